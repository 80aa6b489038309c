package resolver

import (
	"math"
	"testing"

	"github.com/slavkostrov/playlist-selection/internal/client"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateAnalysisCountsAndDurations(t *testing.T) {
	analysis := &client.AudioAnalysis{
		Categories: map[string][]client.AnalysisInterval{
			"bars": {
				{"start": 0.0, "duration": 2.0, "confidence": 0.9},
				{"start": 2.0, "duration": 100.0, "confidence": 0.2}, // below threshold
				{"start": 3.0, "duration": 4.0, "confidence": 0.5},
			},
		},
	}

	out := AggregateAnalysis(analysis)

	if got := out["bars_number"]; !almostEqual(got, 2) {
		t.Errorf("bars_number = %v, want 2", got)
	}
	if got := out["bars_mean_duration"]; !almostEqual(got, 3.0) {
		t.Errorf("bars_mean_duration = %v, want 3.0", got)
	}
}

func TestAggregateAnalysisConfidenceFields(t *testing.T) {
	analysis := &client.AudioAnalysis{
		Categories: map[string][]client.AnalysisInterval{
			"sections": {
				{"duration": 10.0, "confidence": 0.9, "key": 5.0, "key_confidence": 0.8},
				{"duration": 12.0, "confidence": 0.8, "key": 99.0, "key_confidence": 0.1}, // key not trusted
				{"duration": 14.0, "confidence": 0.1, "key": 7.0, "key_confidence": 0.9},  // interval filtered
			},
		},
	}

	out := AggregateAnalysis(analysis)

	if got := out["sections_number"]; !almostEqual(got, 2) {
		t.Errorf("sections_number = %v, want 2", got)
	}
	// Only the first interval clears both the interval and the field
	// confidence thresholds.
	if got := out["sections_mean_key"]; !almostEqual(got, 5.0) {
		t.Errorf("sections_mean_key = %v, want 5.0", got)
	}
}

func TestAggregateAnalysisSegmentVectors(t *testing.T) {
	analysis := &client.AudioAnalysis{
		Categories: map[string][]client.AnalysisInterval{
			"segments": {
				{
					"duration": 0.2, "confidence": 1.0,
					"pitches": []interface{}{0.0, 1.0},
					"timbre":  []interface{}{-10.0, 30.0},
				},
				{
					"duration": 0.4, "confidence": 1.0,
					"pitches": []interface{}{0.5, 0.5},
					"timbre":  []interface{}{0.0, 20.0},
				},
			},
		},
	}

	out := AggregateAnalysis(analysis)

	if got := out["segments_mean_pitch"]; !almostEqual(got, 0.5) {
		t.Errorf("segments_mean_pitch = %v, want 0.5", got)
	}
	if got := out["segments_max_pitch"]; !almostEqual(got, 0.75) {
		t.Errorf("segments_max_pitch = %v, want 0.75", got)
	}
	if got := out["segments_min_pitch"]; !almostEqual(got, 0.25) {
		t.Errorf("segments_min_pitch = %v, want 0.25", got)
	}
	if got := out["segments_mean_timbre"]; !almostEqual(got, 10.0) {
		t.Errorf("segments_mean_timbre = %v, want 10.0", got)
	}
	if got := out["segments_max_timbre"]; !almostEqual(got, 25.0) {
		t.Errorf("segments_max_timbre = %v, want 25.0", got)
	}
	if got := out["segments_min_timbre"]; !almostEqual(got, -5.0) {
		t.Errorf("segments_min_timbre = %v, want -5.0", got)
	}
}

func TestAggregateAnalysisSkipsEmptyCategories(t *testing.T) {
	analysis := &client.AudioAnalysis{
		Categories: map[string][]client.AnalysisInterval{
			"tatums": {},
		},
	}

	out := AggregateAnalysis(analysis)
	if len(out) != 0 {
		t.Errorf("expected empty aggregation for empty categories, got %v", out)
	}
}
