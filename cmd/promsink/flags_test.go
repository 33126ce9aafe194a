package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/promsink/internal/configs"
)

func TestParseFloatList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []float64
		wantErr  bool
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "0.5",
			expected: []float64{0.5},
		},
		{
			name:     "multiple values with spaces",
			input:    "0.005, 0.01, 2.5",
			expected: []float64{0.005, 0.01, 2.5},
		},
		{
			name:    "malformed value",
			input:   "0.5,abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFloatList(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFlushPeriod(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr error
	}{
		{
			name:  "sixty seconds",
			input: "60",
			want:  60 * time.Second,
		},
		{
			name:  "minimum of one second",
			input: "1",
			want:  time.Second,
		},
		{
			name:    "zero seconds",
			input:   "0",
			wantErr: configs.ErrFlushPeriodTooShort,
		},
		{
			name:    "negative seconds",
			input:   "-5",
			wantErr: configs.ErrFlushPeriodTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlushPeriod(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlushPeriod_NotAnInteger(t *testing.T) {
	_, err := parseFlushPeriod("1.5")
	assert.Error(t, err)
}
