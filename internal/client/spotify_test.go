package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slavkostrov/playlist-selection/internal/config"
	"github.com/slavkostrov/playlist-selection/internal/errs"
)

// newCatalogClient wires a client at the given base URL with a token
// already in hand so tests never hit a token endpoint.
func newCatalogClient(baseURL string) *SpotifyClient {
	creds := NewCredentials(&config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"})
	creds.token = "test-token"
	creds.acquiredAt = time.Now()
	return NewSpotifyClient(&config.SpotifyConfig{BaseURL: baseURL}, creds)
}

func TestTracksBatchLimit(t *testing.T) {
	c := newCatalogClient("http://unused")

	ids := make([]string, MaxBatchSize+1)
	for i := range ids {
		ids[i] = "id"
	}
	if _, err := c.Tracks(context.Background(), ids); err == nil {
		t.Error("expected error for oversized batch")
	}
	if _, err := c.Tracks(context.Background(), nil); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestDoRequestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"not found", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := newCatalogClient(server.URL)
			_, err := c.Tracks(context.Background(), []string{"abc"})
			if err == nil {
				t.Fatal("expected error")
			}
			if errs.IsTransient(err) != tt.transient {
				t.Errorf("status %d: IsTransient = %v, want %v", tt.status, errs.IsTransient(err), tt.transient)
			}
		})
	}
}

func TestDoRequestNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := newCatalogClient(server.URL)
	_, err := c.Tracks(context.Background(), []string{"abc"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsTransient(err) {
		t.Errorf("expected transient error for network failure, got %v", err)
	}
}

func TestAudioAnalysisUnmarshal(t *testing.T) {
	raw := `{
		"meta": {"analyzer_version": "4.0.0"},
		"track": {"duration": 255.34},
		"bars": [{"start": 0.5, "duration": 2.1, "confidence": 0.8}],
		"segments": [{"start": 0, "duration": 0.2, "confidence": 1.0, "pitches": [0.1, 0.9], "timbre": [40.1, -10.0]}]
	}`

	var analysis AudioAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := analysis.Categories["meta"]; ok {
		t.Error("meta must not be decoded as a category")
	}
	if _, ok := analysis.Categories["track"]; ok {
		t.Error("track must not be decoded as a category")
	}
	if len(analysis.Categories["bars"]) != 1 {
		t.Errorf("expected 1 bar interval, got %d", len(analysis.Categories["bars"]))
	}
	if len(analysis.Categories["segments"]) != 1 {
		t.Errorf("expected 1 segment interval, got %d", len(analysis.Categories["segments"]))
	}
	if c, _ := analysis.Categories["bars"][0]["confidence"].(float64); c != 0.8 {
		t.Errorf("expected bar confidence 0.8, got %v", analysis.Categories["bars"][0]["confidence"])
	}
}
