package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/habedi/eq/auth"
	"github.com/habedi/eq/client"
	"github.com/habedi/eq/db"
	"github.com/habedi/eq/pkg/clierr"
	"github.com/habedi/eq/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const loginHint = "Please run `eq login` to sign in."

// session wires the API client and the token store for one command invocation.
type session struct {
	client *client.Client
	store  *auth.Store

	mu    sync.Mutex
	ended bool // an authenticated session was ended while the command ran
}

func openSession(ctx context.Context) (*session, error) {
	if err := validation.ValidateAPIURL(apiURL); err != nil {
		return nil, clierr.New(clierr.Validation, err.Error(), err)
	}
	if db.GetDB() == nil {
		return nil, clierr.New(clierr.Internal, "Local storage is not available.", errors.New("database not initialized"))
	}

	c := client.New(apiURL, client.WithHeader("User-Agent", "eq/"+version))
	store := auth.NewStore(db.NewKVRepository(db.GetDB()), c, c)
	c.SetRefreshHandler(store.Refresh)

	s := &session{client: c, store: store}
	wasAuthenticated := store.LoadFromStorage(ctx).IsAuthenticated()
	store.OnChange(func(next auth.Session) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if wasAuthenticated && !next.IsAuthenticated() {
			s.ended = true
		}
		wasAuthenticated = next.IsAuthenticated()
	})

	log.Debug().Str("api", c.BaseURL()).Str("state", store.Session().State()).Msg("Session opened")
	return s, nil
}

func (s *session) sessionEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// requireAuth refuses early when there is no stored session.
func (s *session) requireAuth() error {
	if !s.store.IsAuthenticated() {
		return clierr.New(clierr.Auth, "You are not logged in. "+loginHint, nil)
	}
	return nil
}

// fail turns an error from the API layer into a user-facing error.
func (s *session) fail(what string, err error) error {
	if err == nil {
		return nil
	}
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		return err
	}
	log.Error().Err(err).Msg(what)

	if s.sessionEnded() || isSessionError(err) {
		return clierr.New(clierr.Auth, "Your session has expired. "+loginHint, err)
	}
	if client.IsNotFound(err) {
		return clierr.New(clierr.NotFound, fmt.Sprintf("%s: not found.", what), err)
	}

	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return clierr.New(clierr.Network, fmt.Sprintf("%s: the server did not answer in time.", what), err)
		}
		return clierr.New(clierr.Network, fmt.Sprintf("%s: could not reach %s.", what, s.client.BaseURL()), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return clierr.New(clierr.Network, fmt.Sprintf("%s: timed out.", what), err)
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("%s (status %d)", what, apiErr.StatusCode)
		if apiErr.Detail != "" {
			msg += ": " + apiErr.Detail
		}
		return clierr.New(clierr.API, msg, err)
	}
	return clierr.New(clierr.Internal, what+".", err)
}

func isSessionError(err error) bool {
	return errors.Is(err, auth.ErrNoRefreshToken) ||
		errors.Is(err, auth.ErrSessionChanged) ||
		errors.Is(err, client.ErrSessionEnded) ||
		client.IsUnauthorized(err)
}

// commandContext bounds a command by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := commandTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// withSession is the common RunE prologue: bounded context, opened session, optional auth check.
func withSession(needsAuth bool, run func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		if needsAuth {
			if err := s.requireAuth(); err != nil {
				return err
			}
		}
		return run(ctx, cmd, s, args)
	}
}
