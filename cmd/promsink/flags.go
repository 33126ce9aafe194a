package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/sbilibin2017/promsink/internal/configs"
)

var (
	addr           string
	namespace      string
	buckets        string
	quantiles      string
	flushPeriod    string
	pollInterval   string = "2"
	configFilePath string
)

// init sets up command-line flags.
func init() {
	pflag.StringVarP(&addr, "address", "a", "", "exposition server listen address")
	pflag.StringVarP(&namespace, "namespace", "n", "", "metric name prefix")
	pflag.StringVarP(&buckets, "buckets", "b", "", "comma-separated histogram bucket bounds")
	pflag.StringVarP(&quantiles, "quantiles", "q", "", "comma-separated summary quantile levels")
	pflag.StringVarP(&flushPeriod, "flush-period", "f", "", "set flush period in seconds")
	pflag.StringVarP(&pollInterval, "poll-interval", "p", pollInterval, "agent poll interval in seconds")
	pflag.StringVarP(&configFilePath, "config", "c", "", "path to JSON config file")
}

// parseFlags resolves configuration from flags, an optional JSON config
// file and environment variables (env has the highest precedence) and
// validates it.
func parseFlags() (*configs.SinkConfig, time.Duration, error) {
	pflag.Parse()

	if len(pflag.Args()) > 0 {
		return nil, 0, errors.New("unknown flags or arguments are provided")
	}

	if env := os.Getenv("CONFIG"); env != "" && configFilePath == "" {
		configFilePath = env
	}

	if configFilePath != "" {
		cfgBytes, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, 0, fmt.Errorf("error reading config file: %w", err)
		}

		var cfg struct {
			Address          *string `json:"address,omitempty"`
			Namespace        *string `json:"namespace,omitempty"`
			Buckets          *string `json:"buckets,omitempty"`
			Quantiles        *string `json:"quantiles,omitempty"`
			FlushPeriodSecs  *string `json:"flush_period_secs,omitempty"`
			PollIntervalSecs *string `json:"poll_interval_secs,omitempty"`
		}

		if err := json.Unmarshal(cfgBytes, &cfg); err != nil {
			return nil, 0, fmt.Errorf("error parsing config JSON: %w", err)
		}

		if addr == "" && cfg.Address != nil {
			addr = *cfg.Address
		}
		if namespace == "" && cfg.Namespace != nil {
			namespace = *cfg.Namespace
		}
		if buckets == "" && cfg.Buckets != nil {
			buckets = *cfg.Buckets
		}
		if quantiles == "" && cfg.Quantiles != nil {
			quantiles = *cfg.Quantiles
		}
		if flushPeriod == "" && cfg.FlushPeriodSecs != nil {
			flushPeriod = *cfg.FlushPeriodSecs
		}
		if cfg.PollIntervalSecs != nil {
			pollInterval = *cfg.PollIntervalSecs
		}
	}

	// env vars take precedence over flags and the config file
	if env := os.Getenv("ADDRESS"); env != "" {
		addr = env
	}
	if env := os.Getenv("NAMESPACE"); env != "" {
		namespace = env
	}
	if env := os.Getenv("BUCKETS"); env != "" {
		buckets = env
	}
	if env := os.Getenv("QUANTILES"); env != "" {
		quantiles = env
	}
	if env := os.Getenv("FLUSH_PERIOD"); env != "" {
		flushPeriod = env
	}
	if env := os.Getenv("POLL_INTERVAL"); env != "" {
		pollInterval = env
	}

	bucketBounds, err := parseFloatList(buckets)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid buckets value: %w", err)
	}
	quantileLevels, err := parseFloatList(quantiles)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid quantiles value: %w", err)
	}

	var flush time.Duration
	if flushPeriod != "" {
		flush, err = parseFlushPeriod(flushPeriod)
		if err != nil {
			return nil, 0, err
		}
	}

	pollSecs, err := strconv.Atoi(pollInterval)
	if err != nil || pollSecs <= 0 {
		return nil, 0, errors.New("invalid poll_interval value, must be positive integer seconds string")
	}

	cfg, err := configs.NewSinkConfig(
		configs.WithAddress(addr),
		configs.WithNamespace(namespace),
		configs.WithBuckets(bucketBounds),
		configs.WithQuantiles(quantileLevels),
		configs.WithFlushPeriod(flush),
	)
	if err != nil {
		return nil, 0, err
	}

	return cfg, time.Duration(pollSecs) * time.Second, nil
}

// parseFlushPeriod converts an integer seconds string into a duration and
// refuses values below the configured minimum; the process must not start
// with a flush period it cannot honor.
func parseFlushPeriod(s string) (time.Duration, error) {
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid flush_period value, must be integer seconds string")
	}
	period := time.Duration(secs) * time.Second
	if period < configs.MinFlushPeriod {
		return 0, configs.ErrFlushPeriodTooShort
	}
	return period, nil
}

func parseFloatList(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
