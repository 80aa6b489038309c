package resolver

import (
	"fmt"
	"math"
	"strings"

	"github.com/slavkostrov/playlist-selection/internal/client"
)

// ConfidenceThreshold drops low-confidence analysis intervals before
// aggregation.
const ConfidenceThreshold = 0.3

// AggregateAnalysis reduces a raw audio-analysis payload to a flat map
// of per-category statistics: interval count, mean duration, the mean of
// every field that carries its own "*_confidence" companion, and for
// segments the pitch and timbre vector aggregates.
func AggregateAnalysis(a *client.AudioAnalysis) map[string]float64 {
	out := map[string]float64{}
	if a == nil {
		return out
	}
	for name, intervals := range a.Categories {
		if len(intervals) == 0 {
			continue
		}
		aggregateCategory(out, name, intervals)
	}
	return out
}

func aggregateCategory(out map[string]float64, name string, intervals []client.AnalysisInterval) {
	filtered := make([]client.AnalysisInterval, 0, len(intervals))
	for _, iv := range intervals {
		if c, ok := number(iv, "confidence"); ok && c >= ConfidenceThreshold {
			filtered = append(filtered, iv)
		}
	}

	out[fmt.Sprintf("%s_number", name)] = float64(len(filtered))
	out[fmt.Sprintf("%s_mean_duration", name)] = meanField(filtered, "duration")

	// Fields shipping their own confidence score get averaged over the
	// intervals where that score clears the threshold.
	for key := range intervals[0] {
		if !strings.HasSuffix(key, "_confidence") {
			continue
		}
		field := strings.TrimSuffix(key, "_confidence")
		confident := make([]client.AnalysisInterval, 0, len(filtered))
		for _, iv := range filtered {
			if c, ok := number(iv, key); ok && c >= ConfidenceThreshold {
				confident = append(confident, iv)
			}
		}
		out[fmt.Sprintf("%s_mean_%s", name, field)] = meanField(confident, field)
	}

	if name == "segments" {
		aggregateVectors(out, filtered, "pitch", "pitches")
		aggregateVectors(out, filtered, "timbre", "timbre")
	}
}

// aggregateVectors reduces each interval's vector field to its mean, max
// and min, then averages those across intervals.
func aggregateVectors(out map[string]float64, intervals []client.AnalysisInterval, label, field string) {
	var means, maxs, mins []float64
	for _, iv := range intervals {
		vec, ok := vector(iv, field)
		if !ok || len(vec) == 0 {
			continue
		}
		sum, hi, lo := vec[0], vec[0], vec[0]
		for _, v := range vec[1:] {
			sum += v
			if v > hi {
				hi = v
			}
			if v < lo {
				lo = v
			}
		}
		means = append(means, sum/float64(len(vec)))
		maxs = append(maxs, hi)
		mins = append(mins, lo)
	}
	out[fmt.Sprintf("segments_mean_%s", label)] = mean(means)
	out[fmt.Sprintf("segments_max_%s", label)] = mean(maxs)
	out[fmt.Sprintf("segments_min_%s", label)] = mean(mins)
}

func meanField(intervals []client.AnalysisInterval, field string) float64 {
	vals := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		if v, ok := number(iv, field); ok {
			vals = append(vals, v)
		}
	}
	return mean(vals)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func number(iv client.AnalysisInterval, key string) (float64, bool) {
	v, ok := iv[key].(float64)
	return v, ok
}

func vector(iv client.AnalysisInterval, key string) ([]float64, bool) {
	raw, ok := iv[key].([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		if v, ok := item.(float64); ok {
			out = append(out, v)
		}
	}
	return out, true
}
