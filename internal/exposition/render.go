// Package exposition renders a registry snapshot into the Prometheus text
// exposition format (version 0.0.4).
package exposition

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sbilibin2017/promsink/internal/models"
	"github.com/sbilibin2017/promsink/internal/stats"
)

// Render encodes the given entries in their iteration order. Type headers
// are emitted once per fully-qualified name within this single pass; the
// bookkeeping is per-render, never cached across requests. When expired is
// true, set metrics report zero cardinality.
func Render(namespace string, metrics []models.Metric, buckets, quantiles []float64, expired bool) string {
	var b strings.Builder
	seen := make(map[string]struct{}, len(metrics))

	for i := range metrics {
		m := &metrics[i]
		if _, ok := seen[m.Name]; !ok {
			seen[m.Name] = struct{}{}
			writeHeader(&b, namespace, m)
		}
		writeDatum(&b, namespace, buckets, quantiles, expired, m)
	}

	return b.String()
}

func fullName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "_" + name
}

func typeName(v models.Value) string {
	switch v := v.(type) {
	case models.Counter:
		return "counter"
	case models.Gauge:
		return "gauge"
	case models.Set:
		// cardinality is exposed as a point-in-time value
		return "gauge"
	case models.Distribution:
		if v.Statistic == models.StatisticSummary {
			return "summary"
		}
		return "histogram"
	case models.AggregatedHistogram:
		return "histogram"
	case models.AggregatedSummary:
		return "summary"
	}
	return ""
}

func writeHeader(b *strings.Builder, namespace string, m *models.Metric) {
	fq := fullName(namespace, m.Name)
	b.WriteString("# HELP ")
	b.WriteString(fq)
	b.WriteString(" ")
	b.WriteString(m.Name)
	b.WriteString("\n# TYPE ")
	b.WriteString(fq)
	b.WriteString(" ")
	b.WriteString(typeName(m.Value))
	b.WriteString("\n")
}

// formatFloat renders the default decimal form: no exponent for ordinary
// magnitudes, no padding ("10", "-1.1", "2.5", "1.875").
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// encodeTags renders a brace-delimited list of name="value" pairs sorted by
// tag name; an empty tag set renders as no braces at all.
func encodeTags(tags map[string]string) string {
	return encodeTagParts(tagParts(tags))
}

// encodeTagsWith merges one synthetic tag (le or quantile) into the sorted
// list alongside the entry's own tags.
func encodeTagsWith(tags map[string]string, name, value string) string {
	parts := append(tagParts(tags), name+`="`+value+`"`)
	return encodeTagParts(parts)
}

func tagParts(tags map[string]string) []string {
	parts := make([]string, 0, len(tags))
	for name, value := range tags {
		parts = append(parts, name+`="`+value+`"`)
	}
	return parts
}

func encodeTagParts(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func writeLine(b *strings.Builder, name, tags, value string) {
	b.WriteString(name)
	b.WriteString(tags)
	b.WriteString(" ")
	b.WriteString(value)
	b.WriteString("\n")
}

// writeDatum emits the data lines for one entry. Only absolute entries are
// eligible; anything that failed to normalize is skipped rather than
// reported, since rendering never fails.
func writeDatum(b *strings.Builder, namespace string, buckets, quantiles []float64, expired bool, m *models.Metric) {
	if m.Kind != models.Absolute {
		return
	}

	fq := fullName(namespace, m.Name)

	switch v := m.Value.(type) {
	case models.Counter:
		writeLine(b, fq, encodeTags(m.Tags), formatFloat(v.Value))

	case models.Gauge:
		writeLine(b, fq, encodeTags(m.Tags), formatFloat(v.Value))

	case models.Set:
		count := len(v.Values)
		if expired {
			count = 0
		}
		writeLine(b, fq, encodeTags(m.Tags), strconv.Itoa(count))

	case models.Distribution:
		if v.Statistic == models.StatisticSummary {
			writeDistributionSummary(b, fq, quantiles, m.Tags, v)
		} else {
			writeDistributionHistogram(b, fq, buckets, m.Tags, v)
		}

	case models.AggregatedHistogram:
		for i, bound := range v.Buckets {
			writeLine(b, fq+"_bucket", encodeTagsWith(m.Tags, "le", formatFloat(bound)), strconv.FormatUint(v.Counts[i], 10))
		}
		writeLine(b, fq+"_bucket", encodeTagsWith(m.Tags, "le", "+Inf"), strconv.FormatUint(v.Count, 10))
		tags := encodeTags(m.Tags)
		writeLine(b, fq+"_sum", tags, formatFloat(v.Sum))
		writeLine(b, fq+"_count", tags, strconv.FormatUint(v.Count, 10))

	case models.AggregatedSummary:
		for i, level := range v.Quantiles {
			writeLine(b, fq, encodeTagsWith(m.Tags, "quantile", formatFloat(level)), formatFloat(v.Values[i]))
		}
		tags := encodeTags(m.Tags)
		writeLine(b, fq+"_sum", tags, formatFloat(v.Sum))
		writeLine(b, fq+"_count", tags, strconv.FormatUint(v.Count, 10))
	}
}

// writeDistributionHistogram buckets the raw samples into the configured
// bounds. Buckets are cumulative less-or-equal: each sample counts in every
// bucket whose bound is >= the sample value, and the synthesized +Inf
// bucket equals the total weighted count.
func writeDistributionHistogram(b *strings.Builder, fq string, buckets []float64, tags map[string]string, v models.Distribution) {
	counts := make([]uint64, len(buckets))
	var sum float64
	var count uint64
	for i, value := range v.Values {
		rate := v.SampleRates[i]
		for j, bound := range buckets {
			if bound >= value {
				counts[j] += rate
			}
		}
		sum += value * float64(rate)
		count += rate
	}

	for i, bound := range buckets {
		writeLine(b, fq+"_bucket", encodeTagsWith(tags, "le", formatFloat(bound)), strconv.FormatUint(counts[i], 10))
	}
	writeLine(b, fq+"_bucket", encodeTagsWith(tags, "le", "+Inf"), strconv.FormatUint(count, 10))
	encoded := encodeTags(tags)
	writeLine(b, fq+"_sum", encoded, formatFloat(sum))
	writeLine(b, fq+"_count", encoded, strconv.FormatUint(count, 10))
}

// writeDistributionSummary converts the raw samples into quantile lines.
// An empty distribution degrades to zeroed _sum and _count output.
func writeDistributionSummary(b *strings.Builder, fq string, quantiles []float64, tags map[string]string, v models.Distribution) {
	encoded := encodeTags(tags)

	statistic := stats.New(v.Values, v.SampleRates, quantiles)
	if statistic == nil {
		writeLine(b, fq+"_sum", encoded, "0")
		writeLine(b, fq+"_count", encoded, "0")
		return
	}

	for _, q := range statistic.Quantiles {
		writeLine(b, fq, encodeTagsWith(tags, "quantile", formatFloat(q.Level)), formatFloat(q.Value))
	}
	writeLine(b, fq+"_sum", encoded, formatFloat(statistic.Sum))
	writeLine(b, fq+"_count", encoded, strconv.FormatUint(statistic.Count, 10))
	writeLine(b, fq+"_min", encoded, formatFloat(statistic.Min))
	writeLine(b, fq+"_max", encoded, formatFloat(statistic.Max))
	writeLine(b, fq+"_avg", encoded, formatFloat(statistic.Avg))
}
