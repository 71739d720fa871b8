package main

import (
	"context"
	"fmt"
	"time"

	"github.com/duskview/aidj/internal/repositories"
	"github.com/duskview/aidj/internal/server"
	"github.com/duskview/aidj/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// spotifyEndpoint is the Spotify Accounts service OAuth2 endpoint.
var spotifyEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// spotifyScopes are required so the backend can stream track audio on the
// user's behalf.
var spotifyScopes = []string{"streaming", "user-read-email", "user-read-private"}

// AuthLogin obtains a Spotify access token and stores it as the generation
// credential. With --token the browser flow is skipped entirely.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if token := cmd.String("token"); token != "" {
		if err := r.storeCredential(token, configPath); err != nil {
			return err
		}
		return r.writePlain("✓ Credential stored\n")
	}

	spotify := r.config.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s",
			shared.ErrMissingConfig, configPath)
	}

	redirectURI := spotify.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	oauthConfig := &oauth2.Config{
		ClientID:     spotify.ClientID,
		ClientSecret: spotify.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint:     spotifyEndpoint,
	}

	state := shared.GenerateID()
	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)

	r.writePlain("Open this URL in your browser to authorize:\n\n%s\n\n", authURL)
	r.writePlain("Waiting for authorization...\n")

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	token, err := server.WaitForCallback(waitCtx, oauthConfig, state, r.logger)
	if err != nil {
		return err
	}

	if err := r.storeCredential(token.AccessToken, configPath); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("You can now use: aidj mix generate \"your prompt\"\n")
	return nil
}

// AuthStatus reports whether a credential is held.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureCredential(); err != nil {
		r.writePlain("✗ No credential stored\n")
		r.writePlain("Run 'aidj auth login' to authorize\n")
		return nil
	}
	return r.writePlain("✓ Credential stored\n")
}

// AuthLogout removes the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	if err := repositories.NewAppStateRepository(db).Delete(repositories.StateKeyCredential); err != nil {
		return err
	}
	r.api.SetCredential("")
	return r.writePlain("✓ Credential removed\n")
}

// storeCredential persists the token in app state and, best effort, in the
// config file, then arms the API client.
func (r *Runner) storeCredential(token, configPath string) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	if err := repositories.NewAppStateRepository(db).Set(repositories.StateKeyCredential, token); err != nil {
		return err
	}

	r.config.Credentials.Spotify.AccessToken = token
	if err := shared.SaveConfig(configPath, r.config); err != nil {
		r.logger.Warn("failed to update config file", "path", configPath, "error", err)
	}

	r.api.SetCredential(token)
	return nil
}
