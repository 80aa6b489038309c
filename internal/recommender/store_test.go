package recommender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/features"
)

// blobFake implements client.StorageClient in memory.
type blobFake struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newBlobFake() *blobFake {
	return &blobFake{objects: map[string][]byte{}}
}

func (s *blobFake) Upload(_ context.Context, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *blobFake) Download(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errs.NotFound("key %s", key)
	}
	return append([]byte(nil), data...), nil
}

func (s *blobFake) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	rows := make([]features.Row, 12)
	for i := range rows {
		rows[i] = row(fmt.Sprintf("t%d", i), float64(i))
	}
	rec := trainedIndex(t, 3, rows)

	storage := newBlobFake()
	store := NewStore(storage)
	ctx := context.Background()

	if err := store.Save(ctx, "knn-latest", rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok := storage.objects["models/knn-latest/model_file"]; !ok {
		t.Error("model artifact not written")
	}
	if _, ok := storage.objects["models/knn-latest/mapping_file"]; !ok {
		t.Error("mapping artifact not written")
	}

	loaded, err := store.Load(ctx, "knn-latest")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	query := []features.Row{row("q", 4.3)}
	want, err := rec.Recommend(query)
	if err != nil {
		t.Fatalf("Recommend on original failed: %v", err)
	}
	got, err := loaded.Recommend(query)
	if err != nil {
		t.Fatalf("Recommend on restored failed: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("restored index returned %v, original %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("restored index diverges at %d: %v vs %v", i, got, want)
		}
	}
}

func TestStoreLoadMissingModel(t *testing.T) {
	store := NewStore(newBlobFake())
	_, err := store.Load(context.Background(), "absent")
	if !errors.Is(err, errs.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for missing artifacts, got %v", err)
	}
}

func TestStoreLoadCorruptModel(t *testing.T) {
	storage := newBlobFake()
	storage.objects["models/bad/model_file"] = []byte("not a gob stream")
	storage.objects["models/bad/mapping_file"] = []byte("also junk")

	store := NewStore(storage)
	_, err := store.Load(context.Background(), "bad")
	if !errors.Is(err, errs.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for corrupt artifacts, got %v", err)
	}
}

func TestStoreSaveUntrained(t *testing.T) {
	store := NewStore(newBlobFake())
	err := store.Save(context.Background(), "knn-latest", NewKnn(5, 0))
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error for untrained index, got %v", err)
	}
}
