package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/songlist/internal/server"
	"github.com/desertthunder/songlist/internal/services"
	"github.com/desertthunder/songlist/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// authTimeout bounds the wait for the browser to hit the callback.
const authTimeout = 2 * time.Minute

// Auth performs the OAuth2 authorization code flow for Spotify and stores the tokens.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.spotifyService(cmd.String("client-id"), cmd.String("client-secret"))
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, svc, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configFileExists() {
		r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	} else {
		r.writePlain("⚠ Tokens not saved: run 'songlist setup config' to create a config file\n\n")
	}
	r.writePlain("You can now use: songlist import FILE PLAYLIST_ID\n")

	return nil
}

// AuthStatus prints the account behind the stored tokens, refreshing them if needed.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		r.writePlain("✗ Not authorized. Run 'songlist auth' first.\n")
		return nil
	}

	svc, err := r.spotifyService(cmd.String("client-id"), cmd.String("client-secret"))
	if err != nil {
		return err
	}

	if err := r.authenticateCached(ctx, svc, token); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}

	user, err := svc.UserProfile(ctx)
	if err != nil {
		return err
	}

	current := svc.Session().Token()
	r.writePlain("✓ Authorized as %s (%s)\n", user.DisplayName, user.ID)
	if user.Product != "" {
		r.writePlain("  Plan: %s\n", user.Product)
	}
	if !current.Expiry.IsZero() {
		r.writePlain("  Access token expires: %s\n", current.Expiry.Local().Format(time.RFC1123))
	}
	return nil
}

// ensureToken gives svc a usable session before any remote call is made.
//
// The cached token is used when still valid and refreshed when expired. Without a cached refresh token, or when the
// refresh is rejected, the interactive OAuth flow runs. Every token obtained is persisted, including the ones the
// background refresher produces later.
func (r *Runner) ensureToken(ctx context.Context, svc *services.SpotifyService) error {
	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})

	if token := r.config.Credentials.Spotify.Token(); token != nil {
		err := r.authenticateCached(ctx, svc, token)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("cached token unusable, starting authorization", "error", err)
	}

	token, err := r.doOAuth(ctx, svc, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		r.logger.Warn("failed to persist token", "error", err)
	}
	return nil
}

// authenticateCached installs token in svc, refreshing it first when it has expired.
func (r *Runner) authenticateCached(ctx context.Context, svc *services.SpotifyService, token *oauth2.Token) error {
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return err
	}

	if token.Valid() {
		r.logger.Debug("using cached access token", "expiry", token.Expiry)
		return nil
	}

	refresher, err := svc.NewRefresher()
	if err != nil {
		return err
	}
	refresher.SetLogger(r.logger)

	if err := refresher.Refresh(ctx); err != nil {
		return err
	}

	r.logger.Info("refreshed cached access token")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server and installs the token in oauthSrv.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	callback := server.NewCallbackServer(serverAddr, oauthSrv.GetOAuthConfig(), state, authURL, r.logger)

	r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
	if err := callback.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := callback.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n", authURL)
		r.writePlain("or visit http://%s/login\n\n", callback.Addr())
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", authTimeout)

	token, err := callback.Wait(ctx, authTimeout)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}

	if err := oauthSrv.OAuthenticate(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	return token, nil
}

// saveTokens stores token in the config and writes the config file when it already exists.
//
// A missing config file is never created here, so credentials passed as arguments stay off disk unless the user
// set up a config file. A token without a refresh token keeps the stored one.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()

	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if !r.configFileExists() {
		r.logger.Warn("no config file, tokens kept for this run only", "path", r.configPath, "hint", "songlist setup config")
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.logger.Debug("tokens saved", "path", r.configPath)
	return nil
}

// configFileExists reports whether something exists at the --config path.
func (r *Runner) configFileExists() bool {
	if r.configPath == "" {
		return false
	}
	_, err := os.Stat(r.configPath)
	return err == nil
}
