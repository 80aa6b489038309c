package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slavkostrov/playlist-selection/internal/config"
	"github.com/slavkostrov/playlist-selection/internal/errs"
)

// MaxBatchSize is the catalog's hard limit on ids per batch endpoint call.
const MaxBatchSize = 50

// Catalog defines the music catalog operations the resolver consumes.
type Catalog interface {
	Tracks(ctx context.Context, ids []string) ([]Track, error)
	Search(ctx context.Context, query string, limit int) ([]Track, error)
	AudioFeatures(ctx context.Context, ids []string) ([]AudioFeatures, error)
	Artists(ctx context.Context, ids []string) ([]Artist, error)
	AudioAnalysis(ctx context.Context, trackID string) (*AudioAnalysis, error)
}

// Artist represents a catalog artist.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// Album represents a catalog album.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// Track represents a catalog track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	IsLocal    bool     `json:"is_local"`
	Popularity int      `json:"popularity"`
}

// AudioFeatures represents the audio-feature block for one track.
// https://developer.spotify.com/documentation/web-api/reference/get-several-audio-features
type AudioFeatures struct {
	ID               string  `json:"id"`
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
}

// AnalysisInterval is one interval of a fine-grained analysis category.
// Kept as a generic map because categories carry different sub-fields,
// some with their own per-field confidence scores.
type AnalysisInterval map[string]interface{}

// AudioAnalysis groups analysis intervals by category name
// (bars, beats, tatums, sections, segments).
type AudioAnalysis struct {
	Categories map[string][]AnalysisInterval
}

// UnmarshalJSON decodes every top-level array key as an interval
// category; the meta and track objects are skipped.
func (a *AudioAnalysis) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Categories = make(map[string][]AnalysisInterval)
	for key, val := range raw {
		if key == "meta" || key == "track" {
			continue
		}
		var intervals []AnalysisInterval
		if err := json.Unmarshal(val, &intervals); err != nil {
			continue
		}
		a.Categories[key] = intervals
	}
	return nil
}

// SpotifyClient implements Catalog against the Spotify Web API.
type SpotifyClient struct {
	httpClient *http.Client
	baseURL    string
	creds      *Credentials
}

// NewSpotifyClient creates a new catalog client.
func NewSpotifyClient(cfg *config.SpotifyConfig, creds *Credentials) *SpotifyClient {
	return &SpotifyClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: cfg.BaseURL,
		creds:   creds,
	}
}

// IsConfigured returns true if the client has valid configuration.
func (c *SpotifyClient) IsConfigured() bool {
	return c.creds != nil && c.creds.IsConfigured()
}

// Tracks retrieves up to MaxBatchSize tracks by id in input order.
func (c *SpotifyClient) Tracks(ctx context.Context, ids []string) ([]Track, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no track ids provided")
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("maximum %d track ids allowed", MaxBatchSize)
	}

	endpoint := "/tracks?ids=" + url.QueryEscape(strings.Join(ids, ","))
	var result struct {
		Tracks []Track `json:"tracks"`
	}
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return result.Tracks, nil
}

// Search runs a track search query and returns up to limit matches.
func (c *SpotifyClient) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)
	var result struct {
		Tracks struct {
			Items []Track `json:"items"`
		} `json:"tracks"`
	}
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return result.Tracks.Items, nil
}

// AudioFeatures retrieves the audio-feature blocks for up to
// MaxBatchSize tracks in input order.
func (c *SpotifyClient) AudioFeatures(ctx context.Context, ids []string) ([]AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no track ids provided")
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("maximum %d track ids allowed", MaxBatchSize)
	}

	endpoint := "/audio-features?ids=" + url.QueryEscape(strings.Join(ids, ","))
	var result struct {
		AudioFeatures []AudioFeatures `json:"audio_features"`
	}
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return result.AudioFeatures, nil
}

// Artists retrieves up to MaxBatchSize artists by id in input order.
func (c *SpotifyClient) Artists(ctx context.Context, ids []string) ([]Artist, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no artist ids provided")
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("maximum %d artist ids allowed", MaxBatchSize)
	}

	endpoint := "/artists?ids=" + url.QueryEscape(strings.Join(ids, ","))
	var result struct {
		Artists []Artist `json:"artists"`
	}
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return result.Artists, nil
}

// AudioAnalysis retrieves the fine-grained analysis for one track.
func (c *SpotifyClient) AudioAnalysis(ctx context.Context, trackID string) (*AudioAnalysis, error) {
	var result AudioAnalysis
	if err := c.get(ctx, "/audio-analysis/"+trackID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// get sends a GET request and parses the JSON response.
func (c *SpotifyClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doRequest(ctx, req, result)
}

// doRequest executes an HTTP request and parses the response.
// Network failures, 429 and 5xx responses are transient; other error
// statuses are permanent.
func (c *SpotifyClient) doRequest(ctx context.Context, req *http.Request, result interface{}) error {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Spotify API] ✗ %s %s — request failed: %v", req.Method, req.URL.Path, err)
		return errs.Transient(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Transient(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		log.Printf("[Spotify API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.Path)
		return errs.Transientf("spotify API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spotify API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
