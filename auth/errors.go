package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshToken is returned by Refresh when storage holds no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrEmptyToken is returned by SignIn when either token is empty.
	ErrEmptyToken = errors.New("access and refresh tokens must both be non-empty")
	// ErrSessionChanged is returned by Refresh when the session was signed in or out
	// while the exchange was running; its result is discarded.
	ErrSessionChanged = errors.New("session changed during refresh")
)

// StorageError reports a failed read, write, or removal on the durable token storage.
type StorageError struct {
	Op  string // get, set or remove
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("token storage %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
