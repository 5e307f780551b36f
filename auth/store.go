package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Store is the single source of truth for the session's token pair. It keeps the
// in-memory session, the durable storage and the attached bearer token in sync.
type Store struct {
	storage   Storage
	attacher  TokenAttacher
	refresher TokenRefresher

	mu        sync.RWMutex
	session   Session
	listeners []func(Session)

	// writeMu serializes storage writes; gen is bumped by every sign-in and sign-out
	// so a refresh that started under an older session can tell it was superseded.
	writeMu sync.Mutex
	gen     uint64

	flight singleflight.Group
}

// NewStore is the constructor for the token store. The returned store is in the
// loading state until LoadFromStorage is called.
func NewStore(storage Storage, attacher TokenAttacher, refresher TokenRefresher) *Store {
	return &Store{
		storage:   storage,
		attacher:  attacher,
		refresher: refresher,
		session:   Session{Loading: true},
	}
}

// Session returns a snapshot of the current session.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// IsAuthenticated reports whether the store holds a complete token pair.
func (s *Store) IsAuthenticated() bool { return s.Session().IsAuthenticated() }

// IsLoading reports whether the initial load from storage is still pending.
func (s *Store) IsLoading() bool { return s.Session().Loading }

// OnChange registers a listener called after every session transition. Listeners
// must not call SignIn, SignOut or LoadFromStorage.
func (s *Store) OnChange(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LoadFromStorage restores the session from durable storage. A half pair is treated
// as corrupted and removed. Read failures leave the session unauthenticated; they are
// logged and never returned.
func (s *Store) LoadFromStorage(ctx context.Context) Session {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.gen++

	access, refresh, err := s.readPair(ctx)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("Failed to load tokens from storage")
		s.setSession(Session{})
	case access != "" && refresh != "":
		log.Info().Msg("Restored session from storage")
		s.setSession(Session{AccessToken: access, RefreshToken: refresh})
	case access != "" || refresh != "":
		log.Warn().Bool("has_access", access != "").Bool("has_refresh", refresh != "").
			Msg("Incomplete token pair in storage, clearing it")
		if err := s.removePair(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to clear incomplete token pair")
		}
		s.setSession(Session{})
	default:
		s.setSession(Session{})
	}
	return s.Session()
}

// SignIn persists both tokens and marks the session authenticated. If persistence
// fails, whatever was written is removed and the session is left unauthenticated.
func (s *Store) SignIn(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return ErrEmptyToken
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.gen++

	if err := s.storage.Set(ctx, AccessTokenKey, accessToken); err != nil {
		return s.abortSignIn(ctx, &StorageError{Op: "set", Key: AccessTokenKey, Err: err})
	}
	if err := s.storage.Set(ctx, RefreshTokenKey, refreshToken); err != nil {
		return s.abortSignIn(ctx, &StorageError{Op: "set", Key: RefreshTokenKey, Err: err})
	}

	s.setSession(Session{AccessToken: accessToken, RefreshToken: refreshToken})
	log.Info().Msg("Signed in")
	return nil
}

func (s *Store) abortSignIn(ctx context.Context, err error) error {
	log.Error().Err(err).Msg("Failed to save tokens")
	if rmErr := s.removePair(ctx); rmErr != nil {
		log.Error().Err(rmErr).Msg("Failed to clean up tokens after failed sign-in")
	}
	s.setSession(Session{})
	return err
}

// SignOut removes both tokens from storage and clears the session. The in-memory
// session is always cleared, even when a removal fails.
func (s *Store) SignOut(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.gen++
	return s.signOut(ctx)
}

// signOut requires writeMu.
func (s *Store) signOut(ctx context.Context) error {
	err := s.removePair(ctx)
	s.setSession(Session{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to remove tokens from storage")
		return err
	}
	log.Info().Msg("Signed out")
	return nil
}

// Refresh exchanges the stored refresh token for a new access token. Concurrent
// callers share one exchange. On any failure the session is signed out and the
// original error is returned. If the session is signed in or out while the exchange
// runs, the result is discarded: a new access token yields ErrSessionChanged and a
// failure is returned without touching the newer session.
func (s *Store) Refresh(ctx context.Context) error {
	ch := s.flight.DoChan("refresh", func() (any, error) {
		// the exchange outlives a caller that stops waiting; other callers may share it
		return nil, s.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) refresh(ctx context.Context) error {
	s.writeMu.Lock()
	gen := s.gen
	s.writeMu.Unlock()

	refreshToken, err := s.storage.Get(ctx, RefreshTokenKey)
	if err != nil {
		return s.failRefresh(ctx, gen, &StorageError{Op: "get", Key: RefreshTokenKey, Err: err})
	}
	if refreshToken == "" {
		return s.failRefresh(ctx, gen, ErrNoRefreshToken)
	}

	log.Info().Msg("Refreshing access token")
	accessToken, err := s.refresher.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		return s.failRefresh(ctx, gen, err)
	}
	if accessToken == "" {
		return s.failRefresh(ctx, gen, errors.New("refresh returned an empty access token"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.gen != gen {
		log.Warn().Msg("Session changed while refreshing, discarding the new access token")
		return ErrSessionChanged
	}
	if err := s.storage.Set(ctx, AccessTokenKey, accessToken); err != nil {
		return s.endRefreshedSession(ctx, &StorageError{Op: "set", Key: AccessTokenKey, Err: err})
	}

	s.setSession(Session{AccessToken: accessToken, RefreshToken: refreshToken})
	log.Info().Msg("Access token refreshed and saved successfully")
	return nil
}

// failRefresh signs out unless a sign-in or sign-out happened since the refresh started,
// and returns err unchanged either way.
func (s *Store) failRefresh(ctx context.Context, gen uint64, err error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.gen != gen {
		log.Warn().Err(err).Msg("Refresh failed after the session changed, keeping the current session")
		return err
	}
	return s.endRefreshedSession(ctx, err)
}

// endRefreshedSession requires writeMu.
func (s *Store) endRefreshedSession(ctx context.Context, err error) error {
	log.Error().Err(err).Msg("Failed to refresh access token, signing out")
	s.gen++
	if signOutErr := s.signOut(ctx); signOutErr != nil {
		log.Error().Err(signOutErr).Msg("Sign-out after failed refresh was incomplete")
	}
	return err
}

func (s *Store) readPair(ctx context.Context) (string, string, error) {
	access, err := s.storage.Get(ctx, AccessTokenKey)
	if err != nil {
		return "", "", &StorageError{Op: "get", Key: AccessTokenKey, Err: err}
	}
	refresh, err := s.storage.Get(ctx, RefreshTokenKey)
	if err != nil {
		return "", "", &StorageError{Op: "get", Key: RefreshTokenKey, Err: err}
	}
	return access, refresh, nil
}

// removePair attempts both removals even if the first one fails.
func (s *Store) removePair(ctx context.Context) error {
	var errs []error
	for _, key := range []string{AccessTokenKey, RefreshTokenKey} {
		if err := s.storage.Remove(ctx, key); err != nil {
			errs = append(errs, &StorageError{Op: "remove", Key: key, Err: err})
		}
	}
	return errors.Join(errs...)
}

// setSession replaces the session, leaves the loading state and attaches the access
// token while holding the lock so attachment order matches state order.
func (s *Store) setSession(next Session) {
	next.Loading = false
	if !next.IsAuthenticated() {
		next = Session{}
	}

	s.mu.Lock()
	s.session = next
	if s.attacher != nil {
		s.attacher.SetAuthToken(next.AccessToken)
	}
	listeners := append([]func(Session){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}
