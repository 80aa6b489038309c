package recommender

import (
	"github.com/slavkostrov/playlist-selection/internal/features"
)

// Passthrough echoes the query tracks back as the recommendation. Used
// when no trained index is available so jobs still complete.
type Passthrough struct{}

func (Passthrough) Train(rows []features.Row) error { return nil }

func (Passthrough) Recommend(rows []features.Row) ([]string, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TrackID)
	}
	return ids, nil
}
