// Package stats computes order statistics over weighted sample
// distributions for summary exposition.
package stats

import (
	"math"
	"sort"
)

// Quantile is one computed (level, value) order statistic.
type Quantile struct {
	Level float64
	Value float64
}

// DistributionStatistic summarizes a weighted sample distribution:
// true minimum and maximum, weighted sum, count and mean, plus one value
// per requested quantile level.
type DistributionStatistic struct {
	Min       float64
	Max       float64
	Sum       float64
	Avg       float64
	Count     uint64
	Quantiles []Quantile
}

type sample struct {
	value float64
	rate  uint64
}

// New reconstructs the weighted order statistic for the given samples.
// Each value is logically replicated by its rate; quantiles follow the
// nearest-rank rule rank = round(q * (count - 1)) over the value-sorted
// replication. Ties keep input order (the sort is stable). Returns nil
// when there are no samples or every rate is zero.
func New(values []float64, rates []uint64, quantiles []float64) *DistributionStatistic {
	if len(values) == 0 || len(values) != len(rates) {
		return nil
	}

	samples := make([]sample, 0, len(values))
	var count uint64
	var sum float64
	for i, v := range values {
		if rates[i] == 0 {
			continue
		}
		samples = append(samples, sample{value: v, rate: rates[i]})
		count += rates[i]
		sum += v * float64(rates[i])
	}
	if count == 0 {
		return nil
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].value < samples[j].value
	})

	stat := &DistributionStatistic{
		Min:       samples[0].value,
		Max:       samples[len(samples)-1].value,
		Sum:       sum,
		Avg:       sum / float64(count),
		Count:     count,
		Quantiles: make([]Quantile, 0, len(quantiles)),
	}

	for _, q := range quantiles {
		rank := uint64(math.Round(q * float64(count-1)))
		var cumulative uint64
		for _, s := range samples {
			cumulative += s.rate
			if cumulative > rank {
				stat.Quantiles = append(stat.Quantiles, Quantile{Level: q, Value: s.value})
				break
			}
		}
	}

	return stat
}
