package recommender

import (
	"errors"
	"fmt"
	"testing"

	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/features"
)

func row(id string, x float64) features.Row {
	return features.Row{
		TrackID: id,
		Numeric: map[string]float64{"x": x},
		Genre:   "pop",
	}
}

func trainedIndex(t *testing.T, k int, rows []features.Row) *KnnRecommender {
	t.Helper()
	rec := NewKnn(k, 0)
	if err := rec.Train(rows); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return rec
}

func TestKnnExcludesSelfMatch(t *testing.T) {
	rows := []features.Row{
		row("a", 0), row("b", 1), row("c", 2), row("d", 3), row("e", 10),
	}
	rec := trainedIndex(t, 2, rows)

	// Query identical to an indexed track: the zero-distance hit is the
	// track itself and must not be recommended.
	ids, err := rec.Recommend([]features.Row{row("a", 0)})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("expected 2 neighbours, got %v", ids)
	}
	if ids[0] != "b" || ids[1] != "c" {
		t.Errorf("expected nearest [b c] in ascending distance, got %v", ids)
	}
}

func TestKnnUnindexedQueryKeepsAllCandidates(t *testing.T) {
	rows := []features.Row{
		row("a", 0), row("b", 1), row("c", 2), row("d", 3), row("e", 10),
	}
	rec := trainedIndex(t, 2, rows)

	// A query off the index has no self-match, so all k+1 candidates
	// survive the filter.
	ids, err := rec.Recommend([]features.Row{row("q", 1.4)})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(ids) != 3 {
		t.Fatalf("expected 3 neighbours, got %v", ids)
	}
	if ids[0] != "b" {
		t.Errorf("expected b nearest to 1.4, got %v", ids)
	}
}

func TestKnnConcatenatesQueryRowsInOrder(t *testing.T) {
	rows := []features.Row{
		row("a", 0), row("b", 1), row("c", 2), row("d", 3), row("e", 10),
	}
	rec := trainedIndex(t, 1, rows)

	ids, err := rec.Recommend([]features.Row{row("a", 0), row("e", 10)})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("expected 2 neighbours (1 per row), got %v", ids)
	}
	if ids[0] != "b" {
		t.Errorf("first row's neighbour = %s, want b", ids[0])
	}
	if ids[1] != "d" {
		t.Errorf("second row's neighbour = %s, want d", ids[1])
	}
}

func TestKnnTrainRequiresEnoughRows(t *testing.T) {
	rec := NewKnn(5, 0)
	rows := []features.Row{row("a", 0), row("b", 1), row("c", 2)}

	err := rec.Train(rows)
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error for %d rows with k=5, got %v", len(rows), err)
	}
}

func TestKnnRecommendUntrained(t *testing.T) {
	rec := NewKnn(5, 0)
	_, err := rec.Recommend([]features.Row{row("a", 0)})
	if !errors.Is(err, errs.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestKnnComponentCap(t *testing.T) {
	// Ten 2-column rows can never support 141 components; training must
	// clamp instead of failing.
	rows := make([]features.Row, 10)
	for i := range rows {
		rows[i] = row(fmt.Sprintf("t%d", i), float64(i))
	}

	rec := NewKnn(3, DefaultComponents)
	if err := rec.Train(rows); err != nil {
		t.Fatalf("Train failed on small corpus: %v", err)
	}

	if _, err := rec.Recommend([]features.Row{row("q", 4.5)}); err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
}

func TestPassthroughEchoesSeed(t *testing.T) {
	ids, err := Passthrough{}.Recommend([]features.Row{row("a", 0), row("b", 1)})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("expected [a b], got %v", ids)
	}
}

func TestRegistry(t *testing.T) {
	rec, err := NewFromClass("knn", 5, 141)
	if err != nil {
		t.Fatalf("NewFromClass(knn) failed: %v", err)
	}
	if _, ok := rec.(*KnnRecommender); !ok {
		t.Errorf("expected *KnnRecommender, got %T", rec)
	}

	if _, err := NewFromClass("svd", 5, 141); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error for unknown class, got %v", err)
	}
}
