// Package agent is the built-in upstream source: it polls host and runtime
// collectors and feeds the resulting updates into the sink channel.
package agent

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"go.uber.org/zap"

	"github.com/sbilibin2017/promsink/internal/models"
)

// Collector produces one batch of metric updates per poll.
type Collector func() ([]models.Metric, error)

// Agent polls its collectors on an interval and emits every update into
// the out channel, one at a time, in collection order.
type Agent struct {
	interval   time.Duration
	out        chan<- models.Metric
	logger     *zap.Logger
	collectors []Collector
}

// New creates an agent. When no collectors are given, the runtime and host
// collectors are used.
func New(interval time.Duration, out chan<- models.Metric, logger *zap.Logger, collectors ...Collector) *Agent {
	if len(collectors) == 0 {
		collectors = []Collector{RuntimeCollector, HostCollector}
	}
	return &Agent{
		interval:   interval,
		out:        out,
		logger:     logger,
		collectors: collectors,
	}
}

// Start runs the poll loop until the context is cancelled, then closes the
// out channel so the sink drains and stops.
func (a *Agent) Start(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	defer close(a.out)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, collect := range a.collectors {
				metrics, err := collect()
				if err != nil {
					a.logger.Warn("collector failed", zap.Error(err))
					continue
				}
				for _, m := range metrics {
					select {
					case a.out <- m:
					case <-ctx.Done():
						return nil
					}
				}
			}
		}
	}
}

// RuntimeCollector reads Go runtime statistics: an incremental poll
// counter, absolute heap gauges, an incremental set of observed GC cycles
// and an incremental distribution of poll durations.
func RuntimeCollector() ([]models.Metric, error) {
	start := time.Now()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	tags := map[string]string{"collector": "runtime"}

	metrics := []models.Metric{
		{
			Name:  "polls_total",
			Tags:  tags,
			Kind:  models.Incremental,
			Value: models.Counter{Value: 1},
		},
		{
			Name:  "heap_alloc_bytes",
			Tags:  tags,
			Kind:  models.Absolute,
			Value: models.Gauge{Value: float64(ms.HeapAlloc)},
		},
		{
			Name:  "heap_objects",
			Tags:  tags,
			Kind:  models.Absolute,
			Value: models.Gauge{Value: float64(ms.HeapObjects)},
		},
		{
			Name: "gc_cycles_seen",
			Tags: tags,
			Kind: models.Incremental,
			Value: models.Set{Values: map[string]struct{}{
				strconv.FormatUint(uint64(ms.NumGC), 10): {},
			}},
		},
		{
			Name: "poll_duration_seconds",
			Tags: tags,
			Kind: models.Incremental,
			Value: models.Distribution{
				Values:      []float64{time.Since(start).Seconds()},
				SampleRates: []uint64{1},
				Statistic:   models.StatisticSummary,
			},
		},
	}

	return metrics, nil
}

// HostCollector reads host cpu and memory statistics.
func HostCollector() ([]models.Metric, error) {
	tags := map[string]string{"collector": "host"}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}

	metrics := []models.Metric{
		{
			Name:  "memory_used_bytes",
			Tags:  tags,
			Kind:  models.Absolute,
			Value: models.Gauge{Value: float64(vm.Used)},
		},
		{
			Name:  "memory_used_percent",
			Tags:  tags,
			Kind:  models.Absolute,
			Value: models.Gauge{Value: vm.UsedPercent},
		},
	}

	percents, err := cpu.Percent(0, false)
	if err != nil {
		return nil, err
	}
	if len(percents) > 0 {
		metrics = append(metrics, models.Metric{
			Name:  "cpu_used_percent",
			Tags:  tags,
			Kind:  models.Absolute,
			Value: models.Gauge{Value: percents[0]},
		})
	}

	return metrics, nil
}
