// Package resolver turns seed input into enriched track records by
// querying the music catalog in rate-limited, fixed-size batches.
package resolver

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/time/rate"

	"github.com/slavkostrov/playlist-selection/internal/client"
	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/model"
)

const (
	// artistTopTracks is how many results an artist-only seed collects.
	artistTopTracks = 5

	// maxConcurrentFetches bounds parallel batch calls per resolve.
	maxConcurrentFetches = 8

	// defaultRateLimit is the catalog request budget per second.
	defaultRateLimit = 8
)

// Resolver resolves seed specs against the catalog.
type Resolver struct {
	catalog client.Catalog
	limiter *rate.Limiter
}

// New creates a resolver over the given catalog client.
func New(catalog client.Catalog) *Resolver {
	return &Resolver{
		catalog: catalog,
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
	}
}

// Resolve turns a seed into enriched track records. Unmatched seeds are
// skipped unless strict is set, in which case a named seed with zero
// catalog hits fails with errs.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, seed model.SeedSpec, strict bool) ([]model.TrackMeta, error) {
	var base []client.Track

	if len(seed.Songs) > 0 {
		for _, song := range seed.Songs {
			matches, err := r.searchSong(ctx, song, strict)
			if err != nil {
				return nil, err
			}
			base = append(base, matches...)
		}
	}

	if len(seed.TrackIDs) > 0 {
		tracks, err := r.fetchTracks(ctx, seed.TrackIDs)
		if err != nil {
			return nil, err
		}
		base = append(base, tracks...)
	}

	var meta []model.TrackMeta
	for _, batch := range batches(base) {
		enriched, err := r.enrich(ctx, batch, strict)
		if err != nil {
			return nil, err
		}
		meta = append(meta, enriched...)
	}
	return meta, nil
}

// LookupTracks hydrates catalog ids into result songs without the
// feature-bearing calls. Unknown ids are dropped.
func (r *Resolver) LookupTracks(ctx context.Context, ids []string) ([]model.Song, error) {
	tracks, err := r.fetchTracks(ctx, ids)
	if err != nil {
		return nil, err
	}

	songs := make([]model.Song, 0, len(tracks))
	for _, tr := range tracks {
		if tr.ID == "" {
			continue
		}
		names := make([]string, 0, len(tr.Artists))
		for _, a := range tr.Artists {
			names = append(names, a.Name)
		}
		songs = append(songs, model.Song{
			ID:      tr.ID,
			Name:    tr.Name,
			Artists: names,
			Link:    fmt.Sprintf("https://open.spotify.com/track/%s", tr.ID),
		})
	}
	return songs, nil
}

// searchSong runs a structured free-text query: single best match when a
// song name is given, top artist tracks when only an artist is named.
func (r *Resolver) searchSong(ctx context.Context, song model.SongQuery, strict bool) ([]client.Track, error) {
	query := fmt.Sprintf("track:%q artist:%q", song.Name, song.Artist)
	limit := 1
	if song.Name == "" {
		limit = artistTopTracks
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	log.Printf("collecting meta for %s", query)
	matches, err := r.catalog.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		if strict {
			return nil, errs.NotFound("no song found for query: %s", query)
		}
		log.Printf("no song found for %s", query)
		return nil, nil
	}
	return matches, nil
}

// fetchTracks splits ids into ceil(n/50) batch lookups, running at most
// maxConcurrentFetches batches in flight, and concatenates results in
// input order.
func (r *Resolver) fetchTracks(ctx context.Context, ids []string) ([]client.Track, error) {
	chunks := batches(ids)
	results := make([][]client.Track, len(chunks))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, maxConcurrentFetches)

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := r.limiter.Wait(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			tracks, err := r.catalog.Tracks(ctx, chunk)
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			results[i] = tracks
		}(i, chunk)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	var out []client.Track
	for _, tracks := range results {
		out = append(out, tracks...)
	}
	return out, nil
}

// enrich merges a batch of base tracks with their audio features, lead
// artist detail and aggregated audio analysis. Per-item failures are
// logged and the item dropped unless strict is set.
func (r *Resolver) enrich(ctx context.Context, batch []client.Track, strict bool) ([]model.TrackMeta, error) {
	ids := make([]string, 0, len(batch))
	artistIDs := make([]string, 0, len(batch))
	usable := make([]client.Track, 0, len(batch))
	for _, tr := range batch {
		// Unknown ids come back as null entries from the catalog.
		if tr.ID == "" || len(tr.Artists) == 0 {
			continue
		}
		usable = append(usable, tr)
		ids = append(ids, tr.ID)
		artistIDs = append(artistIDs, tr.Artists[0].ID)
	}
	if len(usable) == 0 {
		return nil, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	features, err := r.catalog.AudioFeatures(ctx, ids)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	artists, err := r.catalog.Artists(ctx, artistIDs)
	if err != nil {
		return nil, err
	}

	if len(features) != len(usable) || len(artists) != len(usable) {
		return nil, fmt.Errorf("catalog batch size mismatch: %d tracks, %d features, %d artists",
			len(usable), len(features), len(artists))
	}

	meta := make([]model.TrackMeta, 0, len(usable))
	for i, tr := range usable {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		analysis, err := r.catalog.AudioAnalysis(ctx, tr.ID)
		if err != nil {
			if strict {
				return nil, err
			}
			log.Printf("dropping track %s: audio analysis failed: %v", tr.ID, err)
			continue
		}
		meta = append(meta, buildMeta(tr, features[i], artists[i], AggregateAnalysis(analysis)))
	}
	return meta, nil
}

// buildMeta assembles the immutable track record.
func buildMeta(tr client.Track, feats client.AudioFeatures, artist client.Artist, analysis map[string]float64) model.TrackMeta {
	artistNames := make([]string, 0, len(tr.Artists))
	artistIDs := make([]string, 0, len(tr.Artists))
	for _, a := range tr.Artists {
		artistNames = append(artistNames, a.Name)
		artistIDs = append(artistIDs, a.ID)
	}

	genres := artist.Genres
	if len(genres) == 0 {
		genres = []string{"unknown"}
	}

	return model.TrackMeta{
		AlbumName:        tr.Album.Name,
		AlbumID:          tr.Album.ID,
		AlbumReleaseDate: tr.Album.ReleaseDate,
		ArtistNames:      artistNames,
		ArtistIDs:        artistIDs,
		TrackID:          tr.ID,
		TrackName:        tr.Name,
		Genres:           genres,
		Details: model.TrackDetails{
			DurationMS:       tr.DurationMS,
			Explicit:         tr.Explicit,
			Popularity:       tr.Popularity,
			IsLocal:          tr.IsLocal,
			Danceability:     feats.Danceability,
			Energy:           feats.Energy,
			Loudness:         feats.Loudness,
			Mode:             feats.Mode,
			Speechiness:      feats.Speechiness,
			Acousticness:     feats.Acousticness,
			Instrumentalness: feats.Instrumentalness,
			Valence:          feats.Valence,
			Tempo:            feats.Tempo,
			TimeSignature:    feats.TimeSignature,
			Analysis:         analysis,
		},
	}
}

// batches splits items into slices of at most client.MaxBatchSize.
func batches[T any](items []T) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += client.MaxBatchSize {
		end := start + client.MaxBatchSize
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
