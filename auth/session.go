package auth

// Session is a snapshot of the authentication state.
type Session struct {
	AccessToken  string
	RefreshToken string
	// Loading is true until the first LoadFromStorage completes and never becomes true again.
	Loading bool
}

// IsAuthenticated reports whether both tokens are present.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// State returns a short label for the session state.
func (s Session) State() string {
	switch {
	case s.Loading:
		return "loading"
	case s.IsAuthenticated():
		return "authenticated"
	default:
		return "unauthenticated"
	}
}
