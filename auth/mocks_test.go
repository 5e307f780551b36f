package auth_test

import (
	"context"
	"sync"
)

// memStorage is an in-memory auth.Storage with injectable failures.
type memStorage struct {
	mu        sync.Mutex
	data      map[string]string
	getErr    error
	setErr    error
	setErrKey string // when non-empty, setErr only applies to this key
	removeErr error
}

func newMemStorage(kv map[string]string) *memStorage {
	data := make(map[string]string, len(kv))
	for k, v := range kv {
		data[k] = v
	}
	return &memStorage{data: data}
}

func (m *memStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.data[key], nil
}

func (m *memStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil && (m.setErrKey == "" || m.setErrKey == key) {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.data, key)
	return nil
}

func (m *memStorage) snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// recordingAttacher remembers every token it was given.
type recordingAttacher struct {
	mu     sync.Mutex
	tokens []string
}

func (r *recordingAttacher) SetAuthToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
}

func (r *recordingAttacher) current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tokens) == 0 {
		return ""
	}
	return r.tokens[len(r.tokens)-1]
}

// funcRefresher adapts a function to auth.TokenRefresher.
type funcRefresher func(ctx context.Context, refreshToken string) (string, error)

func (f funcRefresher) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	return f(ctx, refreshToken)
}

func staticRefresher(access string, err error) funcRefresher {
	return func(context.Context, string) (string, error) { return access, err }
}
