package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinFlushPeriod is the documented minimum for the set flush period.
const MinFlushPeriod = time.Second

// DefaultFlushPeriod bounds set cardinality growth when not configured.
const DefaultFlushPeriod = 60 * time.Second

// DefaultAddress is the exposition listen address.
const DefaultAddress = "0.0.0.0:9598"

// ErrFlushPeriodTooShort reports a flush period below the minimum.
var ErrFlushPeriodTooShort = fmt.Errorf("flush period for sets must be at least %s", MinFlushPeriod)

// DefaultBuckets returns the default histogram bucket bounds.
func DefaultBuckets() []float64 {
	return []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}
}

// DefaultQuantiles returns the default summary quantile levels.
func DefaultQuantiles() []float64 {
	return []float64{0.5, 0.75, 0.9, 0.95, 0.99}
}

// SinkConfig holds configuration for the exposition sink.
type SinkConfig struct {
	Address     string        // exposition server listen address
	Namespace   string        // optional metric name prefix
	Buckets     []float64     // histogram bucket bounds, strictly increasing
	Quantiles   []float64     // summary quantile levels within [0,1], non-decreasing
	FlushPeriod time.Duration // set expiry window, at least MinFlushPeriod
}

// SinkConfigOpt applies one option to a SinkConfig.
type SinkConfigOpt func(*SinkConfig) error

// NewSinkConfig builds a config from defaults plus the given options and
// validates it. Validation failures are construction-time errors; the sink
// must not start with an invalid config.
func NewSinkConfig(opts ...SinkConfigOpt) (*SinkConfig, error) {
	cfg := &SinkConfig{
		Address:     DefaultAddress,
		Buckets:     DefaultBuckets(),
		Quantiles:   DefaultQuantiles(),
		FlushPeriod: DefaultFlushPeriod,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.FlushPeriod < MinFlushPeriod {
		return nil, ErrFlushPeriodTooShort
	}
	if err := validateQuantiles(cfg.Quantiles); err != nil {
		return nil, err
	}
	if err := validateBuckets(cfg.Buckets); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithAddress sets the listen address to the first non-empty value.
func WithAddress(addrs ...string) SinkConfigOpt {
	return func(cfg *SinkConfig) error {
		for _, addr := range addrs {
			if strings.TrimSpace(addr) != "" {
				cfg.Address = addr
				break
			}
		}
		return nil
	}
}

// WithNamespace sets the metric name prefix to the first non-empty value.
func WithNamespace(namespaces ...string) SinkConfigOpt {
	return func(cfg *SinkConfig) error {
		for _, ns := range namespaces {
			if strings.TrimSpace(ns) != "" {
				cfg.Namespace = ns
				break
			}
		}
		return nil
	}
}

// WithBuckets replaces the histogram bucket bounds when non-empty.
func WithBuckets(buckets []float64) SinkConfigOpt {
	return func(cfg *SinkConfig) error {
		if len(buckets) > 0 {
			cfg.Buckets = buckets
		}
		return nil
	}
}

// WithQuantiles replaces the summary quantile levels when non-empty.
func WithQuantiles(quantiles []float64) SinkConfigOpt {
	return func(cfg *SinkConfig) error {
		if len(quantiles) > 0 {
			cfg.Quantiles = quantiles
		}
		return nil
	}
}

// WithFlushPeriod sets the flush period to the first non-zero duration.
// Values below MinFlushPeriod are kept so that NewSinkConfig rejects them.
func WithFlushPeriod(periods ...time.Duration) SinkConfigOpt {
	return func(cfg *SinkConfig) error {
		for _, period := range periods {
			if period != 0 {
				cfg.FlushPeriod = period
				break
			}
		}
		return nil
	}
}

func validateQuantiles(quantiles []float64) error {
	if len(quantiles) == 0 {
		return errors.New("at least one quantile level is required")
	}
	prev := 0.0
	for _, q := range quantiles {
		if q < 0 || q > 1 {
			return fmt.Errorf("quantile level %v is outside [0,1]", q)
		}
		if q < prev {
			return fmt.Errorf("quantile levels must be non-decreasing, got %v after %v", q, prev)
		}
		prev = q
	}
	return nil
}

func validateBuckets(buckets []float64) error {
	if len(buckets) == 0 {
		return errors.New("at least one histogram bucket bound is required")
	}
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return fmt.Errorf("bucket bounds must be strictly increasing, got %v after %v", buckets[i], buckets[i-1])
		}
	}
	return nil
}
