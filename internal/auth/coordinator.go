package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/internal/models"
	"github.com/kodinohjaus/gateway/internal/reconciler"
	"github.com/kodinohjaus/gateway/pkg/identity"
	"github.com/kodinohjaus/gateway/pkg/location"
	"github.com/kodinohjaus/gateway/pkg/token"
)

// Distinct failure reasons. Every strategy surfaces its own cause; callers
// must never see a single generic error for different failures.
var (
	ErrNoLocationProvider = errors.New("location access denied: no location provider configured")
	ErrWrongPassword      = errors.New("wrong password")
	ErrTokenRejected      = errors.New("stored token rejected by server")
)

// Coordinator produces a valid credential via one of three strategies and
// guarantees at most one in-flight re-authentication system-wide.
type Coordinator struct {
	requester reconciler.Requester
	tokens    token.Store
	identity  identity.ClientInfoInterface
	locations location.Provider // nil when no ambient location source exists
	logger    zerolog.Logger

	// Single-flight guard: while session is non-nil a re-authentication is in
	// progress and concurrent callers await its outcome.
	mu      sync.Mutex
	session *reauthSession
}

// reauthSession is the singleton in-flight re-authentication. All waiters are
// released with the same result when it settles.
type reauthSession struct {
	done chan struct{}
	err  error
}

// NewCoordinator initializes a Coordinator. The location provider may be nil;
// automatic recovery then fails with a distinct reason instead of guessing.
func NewCoordinator(requester reconciler.Requester, tokens token.Store,
	clientInfo identity.ClientInfoInterface, locations location.Provider,
	logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		requester: requester,
		tokens:    tokens,
		identity:  clientInfo,
		locations: locations,
		logger:    logger,
	}
}

// AuthenticateWithToken verifies a bearer token with the backend and stores
// the (possibly rotated) token it returns.
func (c *Coordinator) AuthenticateWithToken(ctx context.Context, tokenValue string) error {
	resp := c.requester.RequestOnce(ctx, models.Envelope{
		Type:  models.RequestVerifyToken,
		Token: tokenValue,
	})
	if !resp.Success {
		c.logger.Info().Str("reason", resp.Reason()).Msg("Token verification rejected")
		if reason := resp.Reason(); reason != "" {
			return fmt.Errorf("%w: %s", ErrTokenRejected, reason)
		}
		return ErrTokenRejected
	}
	return c.storeCredential(resp)
}

// AuthenticateWithLocation sends coordinates for server-side proximity
// validation. The client performs no distance check of its own; all location
// trust decisions are server-side.
func (c *Coordinator) AuthenticateWithLocation(ctx context.Context, lat, lon float64) error {
	resp := c.requester.RequestOnce(ctx, models.Envelope{
		Type:     models.RequestAuthLocation,
		Location: &models.Coordinates{Latitude: lat, Longitude: lon},
	})
	if !resp.Success {
		c.logger.Info().Str("reason", resp.Reason()).Msg("Location authentication rejected")
		if reason := resp.Reason(); reason != "" {
			return fmt.Errorf("location authentication failed: %s", reason)
		}
		return errors.New("location authentication failed")
	}
	return c.storeCredential(resp)
}

// AuthenticateWithPassword sends a password for verification.
func (c *Coordinator) AuthenticateWithPassword(ctx context.Context, password string) error {
	resp := c.requester.RequestOnce(ctx, models.Envelope{
		Type:     models.RequestAuthPassword,
		Password: password,
	})
	if !resp.Success {
		c.logger.Info().Str("reason", resp.Reason()).Msg("Password authentication rejected")
		if reason := resp.Reason(); reason != "" {
			return fmt.Errorf("%w: %s", ErrWrongPassword, reason)
		}
		return ErrWrongPassword
	}
	return c.storeCredential(resp)
}

// TriggerReauthentication is the single-flight entry point used by the
// reconciler. If a re-authentication is already in progress the caller awaits
// the same outcome instead of starting a second attempt. The stored token is
// not retried here (it just failed); automatic recovery always attempts the
// location strategy as the ambient fallback.
func (c *Coordinator) TriggerReauthentication(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil {
		session := c.session
		c.mu.Unlock()
		c.logger.Debug().Msg("Re-authentication already in flight, awaiting shared outcome")
		select {
		case <-session.done:
			return session.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	session := &reauthSession{done: make(chan struct{})}
	c.session = session
	c.mu.Unlock()

	session.err = c.reauthenticate(ctx)

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	close(session.done)

	return session.err
}

// reauthenticate runs the ambient recovery strategy: one location-based
// attempt. Password and manual-token flows are user-initiated only.
func (c *Coordinator) reauthenticate(ctx context.Context) error {
	if c.locations == nil {
		return ErrNoLocationProvider
	}

	loc, err := c.locations.GetLocation()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to acquire location for re-authentication")
		return fmt.Errorf("location access denied: %w", err)
	}

	if err := c.AuthenticateWithLocation(ctx, loc.Latitude, loc.Longitude); err != nil {
		return err
	}
	c.logger.Info().Msg("Re-authentication succeeded")
	return nil
}

// InitializeOnStartup runs once per established connection: stored-token
// verification first, then at most one automatic location attempt. It never
// loops; further failures require explicit user action.
func (c *Coordinator) InitializeOnStartup(ctx context.Context) error {
	if cred, ok := c.tokens.Get(); ok {
		err := c.AuthenticateWithToken(ctx, cred.Token)
		if err == nil {
			c.logger.Info().Str("user", c.identity.GetUserName()).Msg("Authenticated with stored token")
			return nil
		}
		c.logger.Info().Err(err).Msg("Stored token invalid, clearing")
		if clearErr := c.tokens.Clear(); clearErr != nil {
			c.logger.Warn().Err(clearErr).Msg("Failed to clear rejected token")
		}
	}

	if err := c.TriggerReauthentication(ctx); err != nil {
		return err
	}
	c.logger.Info().Str("user", c.identity.GetUserName()).Msg("Authenticated with location")
	return nil
}

// Logout clears the credential and the remembered user name.
func (c *Coordinator) Logout() error {
	if err := c.tokens.Clear(); err != nil {
		return err
	}
	return c.identity.SaveUserName("")
}

// storeCredential persists the token and TTL carried by a successful
// authentication response, and remembers the user's display name.
func (c *Coordinator) storeCredential(resp models.Response) error {
	data, err := models.ParseAuthData(resp.Data)
	if err != nil {
		return fmt.Errorf("malformed authentication response: %w", err)
	}
	if data.Token == "" {
		return errors.New("authentication response carried no token")
	}

	if err := c.tokens.Set(data.Token, data.ExpiresIn); err != nil {
		return err
	}
	if data.Name != "" {
		if err := c.identity.SaveUserName(data.Name); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to persist user name")
		}
	}
	return nil
}
