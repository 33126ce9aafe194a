package models

import (
	"errors"
	"sort"
	"strings"
)

// UpdateKind is the update discipline carried by an incoming metric.
type UpdateKind int8

const (
	Incremental UpdateKind = iota // folds into the stored value
	Absolute                      // replaces the stored value outright
)

// StatisticKind selects how a raw distribution is exposed.
type StatisticKind int8

const (
	StatisticHistogram StatisticKind = iota
	StatisticSummary
)

// ErrNotFoldable is returned when an incremental update targets a value
// kind that cannot be incrementally folded (aggregated histograms and
// summaries arrive pre-aggregated and are replace-only).
var ErrNotFoldable = errors.New("metric value kind cannot be incrementally folded")

// Value is the closed set of metric value kinds. Fold and render dispatch
// exhaustively over these variants.
type Value interface {
	metricValue()
}

// Counter is a monotonically-intended scalar stored as absolute.
type Counter struct {
	Value float64
}

// Gauge is an arbitrary scalar stored as absolute.
type Gauge struct {
	Value float64
}

// Set holds distinct observed members; only cardinality is exposed.
type Set struct {
	Values map[string]struct{}
}

// Distribution is a raw, un-aggregated weighted sample sequence.
// Conversion to buckets or quantiles happens at render time.
type Distribution struct {
	Values      []float64
	SampleRates []uint64
	Statistic   StatisticKind
}

// AggregatedHistogram is a pre-bucketed histogram. Counts align 1:1 with
// Buckets; Count and Sum cover all observations.
type AggregatedHistogram struct {
	Buckets []float64
	Counts  []uint64
	Count   uint64
	Sum     float64
}

// AggregatedSummary is a pre-computed quantile summary. Values align 1:1
// with Quantiles.
type AggregatedSummary struct {
	Quantiles []float64
	Values    []float64
	Count     uint64
	Sum       float64
}

func (Counter) metricValue()             {}
func (Gauge) metricValue()               {}
func (Set) metricValue()                 {}
func (Distribution) metricValue()        {}
func (AggregatedHistogram) metricValue() {}
func (AggregatedSummary) metricValue()   {}

// Metric is a single update on the ingest path and, once merged, a single
// registry entry. Name plus tag set is the identity; two metrics with the
// same identity address the same time series.
type Metric struct {
	Name  string
	Tags  map[string]string
	Kind  UpdateKind
	Value Value
}

// Key returns the identity key: name plus the tag set sorted by tag name.
// The numeric payload does not participate.
func (m *Metric) Key() string {
	if len(m.Tags) == 0 {
		return m.Name
	}
	names := make([]string, 0, len(m.Tags))
	for name := range m.Tags {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(m.Name)
	for _, name := range names {
		b.WriteByte(0x1f)
		b.WriteString(name)
		b.WriteByte(0x1e)
		b.WriteString(m.Tags[name])
	}
	return b.String()
}

// ToAbsolute returns a copy of the metric under the Absolute discipline,
// giving an incremental update a self-contained absolute form.
func (m Metric) ToAbsolute() Metric {
	m.Kind = Absolute
	return m
}

// Clone returns a deep copy that shares no mutable state with the
// original, so snapshots stay valid while later merges mutate the store.
func (m *Metric) Clone() Metric {
	out := *m
	if m.Tags != nil {
		out.Tags = make(map[string]string, len(m.Tags))
		for k, v := range m.Tags {
			out.Tags[k] = v
		}
	}
	switch v := m.Value.(type) {
	case Set:
		values := make(map[string]struct{}, len(v.Values))
		for member := range v.Values {
			values[member] = struct{}{}
		}
		out.Value = Set{Values: values}
	case Distribution:
		out.Value = Distribution{
			Values:      append([]float64(nil), v.Values...),
			SampleRates: append([]uint64(nil), v.SampleRates...),
			Statistic:   v.Statistic,
		}
	case AggregatedHistogram:
		out.Value = AggregatedHistogram{
			Buckets: append([]float64(nil), v.Buckets...),
			Counts:  append([]uint64(nil), v.Counts...),
			Count:   v.Count,
			Sum:     v.Sum,
		}
	case AggregatedSummary:
		out.Value = AggregatedSummary{
			Quantiles: append([]float64(nil), v.Quantiles...),
			Values:    append([]float64(nil), v.Values...),
			Count:     v.Count,
			Sum:       v.Sum,
		}
	}
	return out
}

// Add folds other's value into m using type-specific addition: counters and
// gauges sum arithmetically, sets take the member union, distributions
// append samples. Aggregated kinds and mismatched variants return
// ErrNotFoldable; the upstream discipline contract forbids them here.
func (m *Metric) Add(other *Metric) error {
	switch v := m.Value.(type) {
	case Counter:
		o, ok := other.Value.(Counter)
		if !ok {
			return ErrNotFoldable
		}
		m.Value = Counter{Value: v.Value + o.Value}
	case Gauge:
		o, ok := other.Value.(Gauge)
		if !ok {
			return ErrNotFoldable
		}
		m.Value = Gauge{Value: v.Value + o.Value}
	case Set:
		o, ok := other.Value.(Set)
		if !ok {
			return ErrNotFoldable
		}
		if v.Values == nil {
			v.Values = make(map[string]struct{}, len(o.Values))
		}
		for member := range o.Values {
			v.Values[member] = struct{}{}
		}
		m.Value = v
	case Distribution:
		o, ok := other.Value.(Distribution)
		if !ok || o.Statistic != v.Statistic {
			return ErrNotFoldable
		}
		v.Values = append(v.Values, o.Values...)
		v.SampleRates = append(v.SampleRates, o.SampleRates...)
		m.Value = v
	default:
		return ErrNotFoldable
	}
	return nil
}
