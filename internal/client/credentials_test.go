package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slavkostrov/playlist-selection/internal/config"
	"github.com/slavkostrov/playlist-selection/internal/errs"
)

func newTokenServer(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":3600}`, n)
	}))
}

func TestCredentialsRefreshAfterThreshold(t *testing.T) {
	var calls int64
	server := newTokenServer(t, &calls)
	defer server.Close()

	creds := NewCredentials(&config.SpotifyConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	})

	clock := time.Now()
	creds.now = func() time.Time { return clock }

	ctx := context.Background()

	tok, err := creds.Token(ctx)
	if err != nil {
		t.Fatalf("first Token() failed: %v", err)
	}
	if tok != "token-1" {
		t.Errorf("expected token-1, got %q", tok)
	}

	// Repeated calls inside the window reuse the token.
	for i := 0; i < 5; i++ {
		if _, err := creds.Token(ctx); err != nil {
			t.Fatalf("Token() failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 acquisition inside window, got %d", calls)
	}

	// Just under the threshold: still the same token.
	clock = clock.Add(tokenRefreshAfter - time.Second)
	tok, err = creds.Token(ctx)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if tok != "token-1" || calls != 1 {
		t.Errorf("expected cached token-1 after 54m59s, got %q (%d acquisitions)", tok, calls)
	}

	// Crossing the threshold acquires exactly one fresh token.
	clock = clock.Add(2 * time.Second)
	tok, err = creds.Token(ctx)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if tok != "token-2" {
		t.Errorf("expected token-2 after refresh, got %q", tok)
	}
	if _, err := creds.Token(ctx); err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 acquisitions total, got %d", calls)
	}
}

func TestCredentialsAcquireFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	creds := NewCredentials(&config.SpotifyConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	})

	_, err := creds.Token(context.Background())
	if err == nil {
		t.Fatal("expected error from failing token endpoint")
	}
	if !errs.IsTransient(err) {
		t.Errorf("expected transient error, got %v", err)
	}
}
