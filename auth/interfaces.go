package auth

import "context"

// Storage keys of the persisted token pair.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Storage defines the contract for the durable key-value store holding the token pair.
// Get returns an empty string when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// TokenAttacher defines the contract for the outbound-call mechanism that sends
// the access token as a bearer credential. An empty token detaches it.
type TokenAttacher interface {
	SetAuthToken(token string)
}

// TokenRefresher defines the contract for any component that can exchange a refresh
// token for a new access token.
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (accessToken string, err error)
}
