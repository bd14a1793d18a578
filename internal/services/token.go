package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/windsync/internal/shared"
	"golang.org/x/oauth2"
)

// Google OAuth2 endpoints and the scopes windsync needs: Drive read for
// enumeration/download, Photos append for uploads, Photos read for the
// filename cache scan.
var (
	GoogleEndpoint = oauth2.Endpoint{
		AuthURL:  "https://accounts.google.com/o/oauth2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
	}

	GoogleScopes = []string{
		"https://www.googleapis.com/auth/drive.readonly",
		"https://www.googleapis.com/auth/photoslibrary.readonly",
		"https://www.googleapis.com/auth/photoslibrary.appendonly",
	}
)

// TokenSource hands out a valid OAuth2 access token to any number of
// concurrent workers. Reads are cheap; an expired token is refreshed under a
// dedicated mutex so concurrent expiry never triggers two refresh requests.
// Refreshed tokens are persisted back to the token file atomically.
type TokenSource struct {
	config *oauth2.Config
	path   string

	mu    sync.Mutex
	token *oauth2.Token
}

// NewConfig builds the OAuth2 config for the Google client in cfg.
func NewConfig(cfg shared.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     GoogleEndpoint,
		Scopes:       GoogleScopes,
	}
}

// NewTokenSource loads the cached token at path. Returns
// [shared.ErrNotAuthenticated] if no token has been stored yet.
func NewTokenSource(config *oauth2.Config, path string) (*TokenSource, error) {
	var token oauth2.Token
	ok, err := shared.ReadJSON(path, &token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no cached token at %s (run 'windsync auth login')", shared.ErrNotAuthenticated, path)
	}

	return &TokenSource{config: config, path: path, token: &token}, nil
}

// NewTokenSourceFromToken wraps an already-obtained token (the auth login
// flow) and persists it.
func NewTokenSourceFromToken(config *oauth2.Config, path string, token *oauth2.Token) (*TokenSource, error) {
	ts := &TokenSource{config: config, path: path, token: token}
	if err := ts.save(token); err != nil {
		return nil, err
	}
	return ts, nil
}

// Token returns a valid token, refreshing and persisting it when expired.
// Safe for concurrent use.
func (t *TokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token.Valid() {
		return t.token, nil
	}

	if t.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: cached token expired", shared.ErrNoRefreshToken)
	}

	refreshed, err := t.config.TokenSource(ctx, t.token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	t.token = refreshed
	// A failed save only costs a re-refresh on the next process start; the
	// refreshed token itself is still good.
	_ = t.save(refreshed)
	return refreshed, nil
}

// AccessToken returns the bearer token string for Authorization headers.
func (t *TokenSource) AccessToken(ctx context.Context) (string, error) {
	token, err := t.Token(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (t *TokenSource) save(token *oauth2.Token) error {
	return shared.WriteJSONAtomic(t.path, token)
}
