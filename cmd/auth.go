package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/chartwatch/internal/auth"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs a full OAuth login against the distributor and prints
// the resulting token set.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	manager := r.tokenManager()
	token, err := manager.Login(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	r.logger.Info("login successful", "expires", token.Expiry.Format(time.RFC3339))
	return r.writeJSON(map[string]any{
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"expires_at":    token.Expiry.UTC().Format(time.RFC3339),
	}, cmd.Bool("pretty"))
}

// AuthStatus reports on the cached token set without touching the network.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	store := auth.NewFileStore(r.config.Auth.TokenCache)
	token, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to read token cache: %w", err)
	}
	if token == nil {
		return r.writePlain("No cached tokens. Run 'auth login' first.\n")
	}

	state := "valid"
	if !token.Expiry.After(time.Now()) {
		state = "expired"
	}

	return r.writePlain("Token %s, expires %s (refresh token present: %v)\n",
		state, token.Expiry.Format(time.RFC3339), token.RefreshToken != "")
}
