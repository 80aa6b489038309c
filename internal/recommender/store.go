package recommender

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/slavkostrov/playlist-selection/internal/client"
	"github.com/slavkostrov/playlist-selection/internal/errs"
)

// knnArtifact is the serialized form of a trained index, matrices
// flattened row-major.
type knnArtifact struct {
	K          int
	Components int

	NumericColumns []string
	Genres         []string
	Impute         []float64
	Mean           []float64
	Std            []float64

	PCAMean []float64
	PCAData []float64
	PCARows int
	PCACols int

	Data     []float64
	DataRows int
	DataCols int
}

// Store persists trained indexes to the blob store, two artifacts per
// model name: the fitted pipeline and the row-to-track mapping.
type Store struct {
	storage client.StorageClient
}

func NewStore(storage client.StorageClient) *Store {
	return &Store{storage: storage}
}

func modelKey(name string) string   { return fmt.Sprintf("models/%s/model_file", name) }
func mappingKey(name string) string { return fmt.Sprintf("models/%s/mapping_file", name) }

// Save writes the trained index under the given model name, replacing
// any previous artifacts.
func (s *Store) Save(ctx context.Context, name string, rec *KnnRecommender) error {
	if rec.data == nil {
		return fmt.Errorf("%w: cannot save untrained index", errs.ErrValidation)
	}

	art := snapshot(rec)
	var modelBuf bytes.Buffer
	if err := gob.NewEncoder(&modelBuf).Encode(art); err != nil {
		return fmt.Errorf("encode model %s: %w", name, err)
	}
	var mappingBuf bytes.Buffer
	if err := gob.NewEncoder(&mappingBuf).Encode(rec.ids); err != nil {
		return fmt.Errorf("encode mapping %s: %w", name, err)
	}

	if err := s.storage.Upload(ctx, modelKey(name), &modelBuf, "application/octet-stream"); err != nil {
		return fmt.Errorf("upload model %s: %w", name, err)
	}
	if err := s.storage.Upload(ctx, mappingKey(name), &mappingBuf, "application/octet-stream"); err != nil {
		return fmt.Errorf("upload mapping %s: %w", name, err)
	}
	log.Printf("saved model %s (%d indexed tracks)", name, len(rec.ids))
	return nil
}

// Load restores a trained index by model name. Missing or unreadable
// artifacts report errs.ErrModelUnavailable.
func (s *Store) Load(ctx context.Context, name string) (*KnnRecommender, error) {
	modelRaw, err := s.storage.Download(ctx, modelKey(name))
	if err != nil {
		return nil, unavailable(name, err)
	}
	mappingRaw, err := s.storage.Download(ctx, mappingKey(name))
	if err != nil {
		return nil, unavailable(name, err)
	}

	var art knnArtifact
	if err := gob.NewDecoder(bytes.NewReader(modelRaw)).Decode(&art); err != nil {
		return nil, fmt.Errorf("%w: corrupt model %s: %v", errs.ErrModelUnavailable, name, err)
	}
	var ids []string
	if err := gob.NewDecoder(bytes.NewReader(mappingRaw)).Decode(&ids); err != nil {
		return nil, fmt.Errorf("%w: corrupt mapping %s: %v", errs.ErrModelUnavailable, name, err)
	}
	if len(ids) != art.DataRows {
		return nil, fmt.Errorf("%w: model %s mapping covers %d rows, index has %d",
			errs.ErrModelUnavailable, name, len(ids), art.DataRows)
	}
	return restore(art, ids), nil
}

func unavailable(name string, err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("%w: model %s not published", errs.ErrModelUnavailable, name)
	}
	return fmt.Errorf("load model %s: %w", name, err)
}

func snapshot(rec *KnnRecommender) knnArtifact {
	pcaRows, pcaCols := rec.proj.Components.Dims()
	dataRows, dataCols := rec.data.Dims()
	return knnArtifact{
		K:              rec.k,
		Components:     rec.components,
		NumericColumns: rec.enc.NumericColumns,
		Genres:         rec.enc.Genres,
		Impute:         rec.enc.Impute,
		Mean:           rec.enc.Mean,
		Std:            rec.enc.Std,
		PCAMean:        rec.proj.Mean,
		PCAData:        append([]float64(nil), rec.proj.Components.RawMatrix().Data...),
		PCARows:        pcaRows,
		PCACols:        pcaCols,
		Data:           append([]float64(nil), rec.data.RawMatrix().Data...),
		DataRows:       dataRows,
		DataCols:       dataCols,
	}
}

func restore(art knnArtifact, ids []string) *KnnRecommender {
	return &KnnRecommender{
		k:          art.K,
		components: art.Components,
		enc: &encoder{
			NumericColumns: art.NumericColumns,
			Genres:         art.Genres,
			Impute:         art.Impute,
			Mean:           art.Mean,
			Std:            art.Std,
		},
		proj: &pca{
			Mean:       art.PCAMean,
			Components: mat.NewDense(art.PCARows, art.PCACols, art.PCAData),
		},
		data: mat.NewDense(art.DataRows, art.DataCols, art.Data),
		ids:  ids,
	}
}
