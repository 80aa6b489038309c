package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/slavkostrov/playlist-selection/internal/client"
	"github.com/slavkostrov/playlist-selection/internal/model"
)

// ExportTracks writes one JSON document per resolved track to the blob
// store, keyed by track and lead artist name under the given prefix.
func ExportTracks(ctx context.Context, store client.StorageClient, prefix string, tracks []model.TrackMeta) error {
	for _, meta := range tracks {
		body, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal track %s: %w", meta.TrackID, err)
		}
		key := meta.ExportKey(prefix)
		if err := store.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
			return fmt.Errorf("export track %s: %w", meta.TrackID, err)
		}
		log.Printf("exported track %s to %s", meta.TrackID, key)
	}
	return nil
}
