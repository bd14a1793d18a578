package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/windsync/internal/server"
	"github.com/desertthunder/windsync/internal/services"
	"github.com/desertthunder/windsync/internal/shared"
)

// AuthLogin runs the OAuth2 authorization code flow against Google and
// stores the resulting token at the configured path.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	google := r.config.Credentials.Google
	if google.ClientID == "" || google.ClientSecret == "" {
		return fmt.Errorf("%w: set credentials.google.client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}

	oauthConfig := services.NewConfig(google)
	state := shared.GenerateID()

	r.logger.Info("starting OAuth flow", "redirect", google.RedirectURI)

	token, err := server.RunAuthFlow(ctx, oauthConfig, state, func(authURL string) {
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Debug("could not open browser", "error", err)
			r.writePlain("Open this URL in your browser to authorize access:\n\n%s\n\n", authURL)
		}
		r.writePlain("Waiting for the callback...\n")
	})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if _, err := services.NewTokenSourceFromToken(oauthConfig, google.TokenPath, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.logger.Info("token saved", "path", google.TokenPath)
	return r.writePlain("✓ Authentication successful\n")
}

// AuthStatus reports whether a usable token is stored.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	google := r.config.Credentials.Google

	tokens, err := services.NewTokenSource(services.NewConfig(google), google.TokenPath)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		r.writePlain("✗ Not authenticated\n")
		return r.writePlain("Run 'windsync auth login' to authorize access.\n")
	}
	if err != nil {
		return err
	}

	token, err := tokens.Token(ctx)
	if err != nil {
		r.writePlain("✗ Stored token is unusable: %v\n", err)
		return r.writePlain("Run 'windsync auth login' to re-authorize.\n")
	}

	r.writePlain("✓ Authenticated\n")
	if !token.Expiry.IsZero() {
		r.writePlain("Access token expires: %s\n", token.Expiry.Format(time.RFC1123))
	}
	if token.RefreshToken != "" {
		r.writePlain("Refresh token: present\n")
	} else {
		r.writePlain("Refresh token: missing (re-login needed when the access token expires)\n")
	}
	return nil
}
