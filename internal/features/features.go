// Package features flattens enriched track records into the numeric and
// categorical columns the recommender trains on.
package features

import (
	"strconv"
	"strings"

	"github.com/slavkostrov/playlist-selection/internal/model"
)

// Row is one track's feature vector before encoding: a sparse map of
// numeric columns plus a single categorical genre value.
type Row struct {
	TrackID string
	Numeric map[string]float64
	Genre   string
}

// Transform flattens track records into feature rows, input order
// preserved.
func Transform(tracks []model.TrackMeta) []Row {
	rows := make([]Row, 0, len(tracks))
	for _, meta := range tracks {
		rows = append(rows, fromMeta(meta))
	}
	return rows
}

func fromMeta(meta model.TrackMeta) Row {
	d := meta.Details
	numeric := map[string]float64{
		"duration_ms":      float64(d.DurationMS),
		"explicit":         boolFlag(d.Explicit),
		"popularity":       float64(d.Popularity),
		"is_local":         boolFlag(d.IsLocal),
		"danceability":     d.Danceability,
		"energy":           d.Energy,
		"loudness":         d.Loudness,
		"mode":             float64(d.Mode),
		"speechiness":      d.Speechiness,
		"acousticness":     d.Acousticness,
		"instrumentalness": d.Instrumentalness,
		"valence":          d.Valence,
		"tempo":            d.Tempo,
		"time_signature":   d.TimeSignature,
	}
	if year, ok := releaseYear(meta.AlbumReleaseDate); ok {
		numeric["release_year"] = year
	}
	for key, val := range d.Analysis {
		numeric[key] = val
	}

	genre := "unknown"
	if len(meta.Genres) > 0 && meta.Genres[0] != "" {
		genre = meta.Genres[0]
	}

	return Row{TrackID: meta.TrackID, Numeric: numeric, Genre: genre}
}

// releaseYear parses the leading year out of a catalog release date,
// which may carry day, month or year precision.
func releaseYear(date string) (float64, bool) {
	if date == "" {
		return 0, false
	}
	if i := strings.IndexByte(date, '-'); i >= 0 {
		date = date[:i]
	}
	year, err := strconv.Atoi(date)
	if err != nil {
		return 0, false
	}
	return float64(year), true
}

func boolFlag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
