package client

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/slavkostrov/playlist-selection/internal/config"
	"github.com/slavkostrov/playlist-selection/internal/errs"
)

// tokenRefreshAfter is how long an access token is used before a new one
// is acquired. Catalog tokens live ~1 hour; refreshing at 55 minutes
// keeps a safety margin.
const tokenRefreshAfter = 55 * time.Minute

// Credentials owns a client-credentials access token and its refresh
// policy. One instance per worker process; safe for concurrent use.
type Credentials struct {
	conf *clientcredentials.Config
	now  func() time.Time

	mu         sync.Mutex
	token      string
	acquiredAt time.Time
}

// NewCredentials creates a credential holder for the catalog API.
func NewCredentials(cfg *config.SpotifyConfig) *Credentials {
	return &Credentials{
		conf: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		},
		now: time.Now,
	}
}

// IsConfigured returns true if client credentials are present.
func (c *Credentials) IsConfigured() bool {
	return c.conf.ClientID != "" && c.conf.ClientSecret != ""
}

// Token returns a valid access token, acquiring a fresh one when the
// current token is older than the refresh threshold. The acquisition
// happens at most once per threshold crossing regardless of call volume.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Sub(c.acquiredAt) < tokenRefreshAfter {
		return c.token, nil
	}

	tok, err := c.conf.Token(ctx)
	if err != nil {
		return "", errs.Transient(fmt.Errorf("failed to acquire catalog token: %w", err))
	}

	c.token = tok.AccessToken
	c.acquiredAt = c.now()
	log.Printf("[Spotify API] acquired client-credentials token")
	return c.token, nil
}
