package model

import "github.com/slavkostrov/playlist-selection/internal/errs"

// SongQuery identifies a track by name and artist for free-text search.
type SongQuery struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// SeedSpec is the user-supplied seed a recommendation is based on.
// Exactly one of TrackIDs or Songs must be populated.
type SeedSpec struct {
	TrackIDs []string    `json:"trackIdList,omitempty"`
	Songs    []SongQuery `json:"songList,omitempty"`
}

// Validate rejects a spec with both variants populated or both empty.
func (s SeedSpec) Validate() error {
	if len(s.TrackIDs) > 0 && len(s.Songs) > 0 {
		return errs.Validation("provide either trackIdList or songList, not both")
	}
	if len(s.TrackIDs) == 0 && len(s.Songs) == 0 {
		return errs.Validation("either trackIdList or songList is required")
	}
	return nil
}
