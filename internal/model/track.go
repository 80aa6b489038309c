package model

import (
	"fmt"
	"strings"
)

// TrackDetails holds the numeric descriptors of a track: basic catalog
// numbers, the audio-feature block, and the aggregated audio-analysis
// statistics (bars/beats/tatums/sections/segments aggregates keyed as
// "<category>_<stat>", e.g. "segments_mean_pitch").
type TrackDetails struct {
	DurationMS int  `json:"duration_ms"`
	Explicit   bool `json:"explicit"`
	Popularity int  `json:"popularity"`
	IsLocal    bool `json:"is_local"`

	// https://developer.spotify.com/documentation/web-api/reference/get-several-audio-features
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    float64 `json:"time_signature"`

	Analysis map[string]float64 `json:"analysis,omitempty"`
}

// TrackMeta is an enriched track record produced by the resolver.
// Immutable once constructed.
type TrackMeta struct {
	AlbumName        string       `json:"album_name,omitempty"`
	AlbumID          string       `json:"album_id,omitempty"`
	AlbumReleaseDate string       `json:"album_release_date,omitempty"`
	ArtistNames      []string     `json:"artist_name"`
	ArtistIDs        []string     `json:"artist_id"`
	TrackID          string       `json:"track_id"`
	TrackName        string       `json:"track_name"`
	Genres           []string     `json:"genres"`
	Details          TrackDetails `json:"track_details"`
}

// Href returns the public catalog link for the track.
func (m TrackMeta) Href() string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", m.TrackID)
}

// ExportKey returns the blob-store key a bulk export writes this track
// under, derived from the track and lead artist names.
func (m TrackMeta) ExportKey(prefix string) string {
	folder := m.TrackName
	if len(m.ArtistNames) > 0 {
		folder += m.ArtistNames[0]
	}
	folder = strings.ReplaceAll(folder, " ", "_")
	return fmt.Sprintf("%s/%s/meta.json", prefix, folder)
}

// Song is the lightweight track representation stored in a finished
// recommendation.
type Song struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Link    string   `json:"link"`
}

// SongFromMeta projects a resolved track onto the result representation.
func SongFromMeta(m TrackMeta) Song {
	return Song{
		ID:      m.TrackID,
		Name:    m.TrackName,
		Artists: m.ArtistNames,
		Link:    m.Href(),
	}
}
