package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/habedi/eq/auth"
	"github.com/habedi/eq/db"
	"github.com/habedi/eq/pkg/clierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gymAPI is a small in-process stand-in for the gym REST API.
type gymAPI struct {
	mu            sync.Mutex
	validAccess   string
	validRefresh  string
	nextAccess    string
	refreshStatus int
	logoutStatus  int
	refreshCalls  int
	logoutCalls   int
	userAgent     string
	writes        []string // "METHOD path body" of every accepted write
}

func newGymAPI(t *testing.T) (*gymAPI, *httptest.Server) {
	t.Helper()
	api := &gymAPI{validAccess: "a1", validRefresh: "r1", nextAccess: "a2"}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func (g *gymAPI) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (g *gymAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch r.URL.Path {
	case "/auth/token/":
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "alex" || creds["password"] != "secret" {
			g.write(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		g.write(w, http.StatusOK, map[string]string{"access": g.validAccess, "refresh": g.validRefresh})
		return
	case "/auth/token/refresh/":
		g.refreshCalls++
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if g.refreshStatus != 0 || body["refresh"] != g.validRefresh {
			status := g.refreshStatus
			if status == 0 {
				status = http.StatusUnauthorized
			}
			g.write(w, status, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		g.validAccess = g.nextAccess
		g.write(w, http.StatusOK, map[string]string{"access": g.validAccess})
		return
	case "/auth/logout/":
		g.logoutCalls++
		if g.logoutStatus != 0 {
			g.write(w, g.logoutStatus, map[string]string{"detail": "unavailable"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	g.userAgent = r.UserAgent()
	if r.Header.Get("Authorization") != "Bearer "+g.validAccess {
		g.write(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
		return
	}
	if g.serveWrite(w, r) {
		return
	}

	switch {
	case r.URL.Path == "/gyms/":
		g.write(w, http.StatusOK, map[string]any{"count": 1, "results": []map[string]any{
			{"id": 1, "name": "Boulderhalle Nord", "walls": []map[string]any{{"id": 10, "name": "Cave"}}},
		}})
	case r.URL.Path == "/gyms/1/":
		g.write(w, http.StatusOK, map[string]any{"id": 1, "name": "Boulderhalle Nord",
			"walls":    []map[string]any{{"id": 10, "name": "Cave"}},
			"boulders": []map[string]any{{"id": 7, "wall": 10, "setter_grade": "6A", "color": "yellow"}},
		})
	case r.URL.Path == "/boulders/":
		g.write(w, http.StatusOK, []map[string]any{
			{"id": 7, "wall": 10, "setter_grade": "6A", "color": "yellow", "is_active": true},
			{"id": 8, "wall": 10, "setter_grade": "7A", "color": "black", "is_active": false},
		})
	case r.URL.Path == "/boulders/7/" || r.URL.Path == "/boulders/8/":
		id := 7
		if strings.Contains(r.URL.Path, "8") {
			id = 8
		}
		g.write(w, http.StatusOK, map[string]any{"id": id, "wall": 10, "concensus_grade": "6B", "color": "green",
			"ascents": []map[string]any{{"id": 1, "climber": 3, "ascent_type": "flash", "points": 120}}})
	case r.URL.Path == "/boulders/7/ascent/" && r.Method == http.MethodPost:
		g.write(w, http.StatusCreated, map[string]any{"ascent": map[string]any{"id": 2, "ascent_type": "flash", "points": 120},
			"boulder": map[string]any{"id": 7, "num_ascents": 2}})
	case r.URL.Path == "/boulders/7/ascent/" && r.Method == http.MethodDelete:
		g.write(w, http.StatusOK, map[string]any{"boulder": map[string]any{"id": 7, "num_ascents": 1}})
	case r.URL.Path == "/leaderboard/":
		g.write(w, http.StatusOK, []map[string]any{
			{"id": 3, "username": "alex", "first_name": "Alex", "total_points": 900, "rank": 1},
			{"id": 4, "username": "sam", "total_points": 500, "rank": 2},
		})
	case r.URL.Path == "/profile/":
		g.write(w, http.StatusOK, map[string]any{"id": 3, "username": "alex", "email": "alex@example.com",
			"stats":   map[string]any{"total_ascents": 1, "total_points": 120, "flash_count": 1},
			"ascents": []map[string]any{{"boulder_id": 7, "gym_name": "Boulderhalle Nord", "ascent_type": "flash", "points": 120}},
		})
	default:
		g.write(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
}

// serveWrite answers the gym, wall and boulder write endpoints; it requires g.mu.
func (g *gymAPI) serveWrite(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || strings.HasSuffix(r.URL.Path, "/ascent/") {
		return false
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	encoded, _ := json.Marshal(body)
	record := func() { g.writes = append(g.writes, r.Method+" "+r.URL.Path+" "+string(encoded)) }

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/gyms/":
		record()
		g.write(w, http.StatusCreated, map[string]any{"id": 2, "name": body["name"]})
	case r.Method == http.MethodPost && r.URL.Path == "/gyms/1/walls/":
		record()
		g.write(w, http.StatusCreated, map[string]any{"id": 11, "name": body["name"]})
	case r.Method == http.MethodPut && r.URL.Path == "/gyms/1/walls/10/":
		record()
		g.write(w, http.StatusOK, map[string]any{"id": 10, "name": body["name"]})
	case r.Method == http.MethodPost && r.URL.Path == "/boulders/":
		record()
		body["id"] = 9
		g.write(w, http.StatusCreated, body)
	case r.Method == http.MethodPut && r.URL.Path == "/boulders/7/":
		record()
		body["id"] = 7
		g.write(w, http.StatusOK, body)
	case r.Method == http.MethodDelete && (r.URL.Path == "/gyms/1/walls/10/" || r.URL.Path == "/boulders/7/"):
		record()
		w.WriteHeader(http.StatusNoContent)
	default:
		g.write(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
	return true
}

func (g *gymAPI) recordedWrites() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.writes...)
}

func (g *gymAPI) lastUserAgent() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.userAgent
}

func (g *gymAPI) expireAccessToken() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validAccess = "a-rotated"
	g.nextAccess = "a2"
}

func (g *gymAPI) failWith(refreshStatus, logoutStatus int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshStatus = refreshStatus
	g.logoutStatus = logoutStatus
}

func (g *gymAPI) stats() (refreshes, logouts int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshCalls, g.logoutCalls
}

func setupTestDB(t *testing.T) db.KVRepository {
	t.Helper()
	oldPath := db.Path
	db.Path = filepath.Join(t.TempDir(), "eq.db")
	require.NoError(t, db.InitDB())
	t.Cleanup(func() {
		_ = db.CloseDB()
		db.Path = oldPath
	})
	return db.NewKVRepository(db.GetDB())
}

func seedTokens(t *testing.T, repo db.KVRepository, access, refresh string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, auth.AccessTokenKey, access))
	require.NoError(t, repo.Set(ctx, auth.RefreshTokenKey, refresh))
}

func storedTokens(t *testing.T, repo db.KVRepository) (string, string) {
	t.Helper()
	ctx := context.Background()
	access, err := repo.Get(ctx, auth.AccessTokenKey)
	require.NoError(t, err)
	refresh, err := repo.Get(ctx, auth.RefreshTokenKey)
	require.NoError(t, err)
	return access, refresh
}

func runCLI(t *testing.T, srv *httptest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	rootCmd := createRootCmd()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--api-url", srv.URL}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func requireCLIErr(t *testing.T, err error, want clierr.Type) *clierr.Error {
	t.Helper()
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr), "expected *clierr.Error, got %v", err)
	assert.Equal(t, want, cliErr.Type)
	return cliErr
}

func TestLogin_StoresSession(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)

	out, err := runCLI(t, srv, "alex\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Login was successful.")

	access, refresh := storedTokens(t, repo)
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)

	out, err = runCLI(t, srv, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: authenticated")
}

func TestLogin_UsernameFlag(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)

	_, err := runCLI(t, srv, "secret\n", "login", "--username", "alex")
	require.NoError(t, err)
	access, _ := storedTokens(t, repo)
	assert.Equal(t, "a1", access)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	repo := setupTestDB(t)
	api, srv := newGymAPI(t)

	_, err := runCLI(t, srv, "alex\nwrong\n", "login")
	cliErr := requireCLIErr(t, err, clierr.Auth)
	assert.Equal(t, "Invalid username or password.", cliErr.Message)
	assert.Equal(t, 3, clierr.ExitCode(err))

	access, refresh := storedTokens(t, repo)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	refreshes, _ := api.stats()
	assert.Zero(t, refreshes, "bad credentials must not trigger a refresh")
}

func TestLogin_EmptyCredentials(t *testing.T) {
	setupTestDB(t)
	_, srv := newGymAPI(t)

	_, err := runCLI(t, srv, "\n\n", "login")
	requireCLIErr(t, err, clierr.Validation)
}

func TestCommands_RequireLogin(t *testing.T) {
	setupTestDB(t)
	_, srv := newGymAPI(t)

	for _, args := range [][]string{{"gyms", "list"}, {"boulders", "list"}, {"profile"}, {"leaderboard"}, {"ascent", "log", "7"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := runCLI(t, srv, "", args...)
			cliErr := requireCLIErr(t, err, clierr.Auth)
			assert.Contains(t, cliErr.Message, "eq login")
		})
	}
}

func TestCommands_RefreshExpiredAccessToken(t *testing.T) {
	repo := setupTestDB(t)
	api, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")
	api.expireAccessToken()

	out, err := runCLI(t, srv, "", "gyms", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Boulderhalle Nord")

	access, refresh := storedTokens(t, repo)
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r1", refresh, "refresh must not rotate the refresh token")
	refreshes, _ := api.stats()
	assert.Equal(t, 1, refreshes)
}

func TestCommands_RefreshFailureEndsSession(t *testing.T) {
	repo := setupTestDB(t)
	api, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")
	api.expireAccessToken()
	api.failWith(http.StatusBadRequest, 0)

	_, err := runCLI(t, srv, "", "profile")
	cliErr := requireCLIErr(t, err, clierr.Auth)
	assert.Contains(t, cliErr.Message, "expired")

	access, refresh := storedTokens(t, repo)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestCommands_HalfStoredPairIsCleared(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)
	require.NoError(t, repo.Set(context.Background(), auth.AccessTokenKey, "a1"))

	out, err := runCLI(t, srv, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: unauthenticated")

	access, _ := storedTokens(t, repo)
	assert.Empty(t, access)
}

func TestStatus_Check(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	out, err := runCLI(t, srv, "", "status", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as: alex")
}

func TestLogout(t *testing.T) {
	t.Run("server accepts", func(t *testing.T) {
		repo := setupTestDB(t)
		api, srv := newGymAPI(t)
		seedTokens(t, repo, "a1", "r1")

		out, err := runCLI(t, srv, "", "logout")
		require.NoError(t, err)
		assert.Contains(t, out, "Logged out.")
		_, logouts := api.stats()
		assert.Equal(t, 1, logouts)
		access, refresh := storedTokens(t, repo)
		assert.Empty(t, access)
		assert.Empty(t, refresh)
	})

	t.Run("server fails", func(t *testing.T) {
		repo := setupTestDB(t)
		api, srv := newGymAPI(t)
		api.failWith(0, http.StatusServiceUnavailable)
		seedTokens(t, repo, "a1", "r1")

		out, err := runCLI(t, srv, "", "logout")
		require.NoError(t, err)
		assert.Contains(t, out, "Warning:")
		assert.Contains(t, out, "Logged out.")
		access, refresh := storedTokens(t, repo)
		assert.Empty(t, access)
		assert.Empty(t, refresh)
	})

	t.Run("not logged in", func(t *testing.T) {
		setupTestDB(t)
		api, srv := newGymAPI(t)

		out, err := runCLI(t, srv, "", "logout")
		require.NoError(t, err)
		assert.Contains(t, out, "You are not logged in.")
		_, logouts := api.stats()
		assert.Zero(t, logouts)
	})
}

func TestGymsShow(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	out, err := runCLI(t, srv, "", "gyms", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Gym: Boulderhalle Nord (ID 1)")
	assert.Contains(t, out, "Cave")
	assert.Contains(t, out, "yellow")

	_, err = runCLI(t, srv, "", "gyms", "show", "abc")
	requireCLIErr(t, err, clierr.Validation)

	_, err = runCLI(t, srv, "", "gyms", "show", "2")
	requireCLIErr(t, err, clierr.NotFound)
}

func TestBouldersList_Active(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	out, err := runCLI(t, srv, "", "boulders", "list", "--active")
	require.NoError(t, err)
	assert.Contains(t, out, "yellow")
	assert.NotContains(t, out, "black")
}

func TestBouldersShow_Concurrent(t *testing.T) {
	repo := setupTestDB(t)
	api, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")
	api.expireAccessToken()

	out, err := runCLI(t, srv, "", "boulders", "show", "7", "8", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Boulder 7")
	assert.Contains(t, out, "Boulder 8")
	refreshes, _ := api.stats()
	assert.Equal(t, 1, refreshes, "concurrent 401s must share one refresh")
}

func TestBouldersShow_Errors(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	out, err := runCLI(t, srv, "", "boulders", "show", "7", "99")
	cliErr := requireCLIErr(t, err, clierr.NotFound)
	assert.Equal(t, "1 of 2 boulders could not be fetched: not found.", cliErr.Message)
	assert.Contains(t, out, "Boulder 7")

	_, err = runCLI(t, srv, "", "boulders", "show", "7", "--workers", "0")
	requireCLIErr(t, err, clierr.Validation)
}

func TestAscent(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	out, err := runCLI(t, srv, "", "ascent", "log", "7", "--type", "flash")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged a flash of boulder 7 (+120 points).")

	_, err = runCLI(t, srv, "", "ascent", "log", "7", "--type", "onsight")
	requireCLIErr(t, err, clierr.Validation)

	out, err = runCLI(t, srv, "", "ascent", "delete", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed your ascent of boulder 7 (1 ascents left).")
}

func TestLeaderboardAndProfile(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	out, err := runCLI(t, srv, "", "leaderboard", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "alex")
	assert.NotContains(t, out, "sam")

	out, err = runCLI(t, srv, "", "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: alex")
	assert.Contains(t, out, "Points: 120 (1 ascents: 1 flashes, 0 sends)")
	assert.Contains(t, out, "Boulderhalle Nord")
}

func TestInvalidAPIURL(t *testing.T) {
	setupTestDB(t)
	_, srv := newGymAPI(t)

	_, err := runCLI(t, srv, "", "status", "--api-url", "localhost:8000")
	requireCLIErr(t, err, clierr.Validation)
}

func TestNetworkFailure(t *testing.T) {
	repo := setupTestDB(t)
	_, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")
	srv.Close()

	_, err := runCLI(t, srv, "", "gyms", "list")
	requireCLIErr(t, err, clierr.Network)

	access, _ := storedTokens(t, repo)
	assert.Equal(t, "a1", access, "a transport failure must not end the session")
}

func TestRequests_SendUserAgent(t *testing.T) {
	repo := setupTestDB(t)
	api, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	_, err := runCLI(t, srv, "", "gyms", "list")
	require.NoError(t, err)
	assert.Equal(t, "eq/"+version, api.lastUserAgent())
}

func TestGymAndWallAdmin(t *testing.T) {
	repo := setupTestDB(t)
	api, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	out, err := runCLI(t, srv, "", "gyms", "create", "Boulderhalle Süd")
	require.NoError(t, err)
	assert.Contains(t, out, `Created gym "Boulderhalle Süd" (ID 2).`)

	out, err = runCLI(t, srv, "", "walls", "create", "1", "Slab")
	require.NoError(t, err)
	assert.Contains(t, out, `Created wall "Slab" (ID 11) in gym 1.`)

	out, err = runCLI(t, srv, "", "walls", "rename", "1", "10", "Big Cave")
	require.NoError(t, err)
	assert.Contains(t, out, `Renamed wall 10 to "Big Cave".`)

	out, err = runCLI(t, srv, "", "walls", "delete", "1", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted wall 10 from gym 1.")

	assert.Equal(t, []string{
		`POST /gyms/ {"name":"Boulderhalle Süd"}`,
		`POST /gyms/1/walls/ {"name":"Slab"}`,
		`PUT /gyms/1/walls/10/ {"name":"Big Cave"}`,
		`DELETE /gyms/1/walls/10/ null`,
	}, api.recordedWrites())

	_, err = runCLI(t, srv, "", "walls", "create", "1", "  ")
	requireCLIErr(t, err, clierr.Validation)
	_, err = runCLI(t, srv, "", "walls", "rename", "1", "x", "Cave")
	requireCLIErr(t, err, clierr.Validation)
	assert.Len(t, api.recordedWrites(), 4)
}

func TestBoulderAdmin(t *testing.T) {
	repo := setupTestDB(t)
	api, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")

	out, err := runCLI(t, srv, "", "boulders", "create", "--wall", "10", "--grade", "6A", "--color", "blue")
	require.NoError(t, err)
	assert.Contains(t, out, "Created boulder 9 (6A, blue) on wall 10.")

	out, err = runCLI(t, srv, "", "boulders", "update", "7", "--color", "pink", "--active=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated boulder 7.")
	assert.Contains(t, out, "Color: pink")

	out, err = runCLI(t, srv, "", "boulders", "delete", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted boulder 7.")

	assert.Equal(t, []string{
		`POST /boulders/ {"color":"blue","setter_grade":"6A","wall":10}`,
		`PUT /boulders/7/ {"color":"pink","is_active":false}`,
		`DELETE /boulders/7/ null`,
	}, api.recordedWrites())

	_, err = runCLI(t, srv, "", "boulders", "create", "--wall", "10", "--color", "blue")
	requireCLIErr(t, err, clierr.Validation)
	_, err = runCLI(t, srv, "", "boulders", "update", "7")
	requireCLIErr(t, err, clierr.Validation)
	assert.Len(t, api.recordedWrites(), 3)
}

func TestBoulderUpdate_RefreshesExpiredToken(t *testing.T) {
	repo := setupTestDB(t)
	api, srv := newGymAPI(t)
	seedTokens(t, repo, "a1", "r1")
	api.expireAccessToken()

	_, err := runCLI(t, srv, "", "boulders", "update", "7", "--grade", "6B")
	require.NoError(t, err)

	assert.Equal(t, []string{`PUT /boulders/7/ {"setter_grade":"6B"}`}, api.recordedWrites())
	refreshes, _ := api.stats()
	assert.Equal(t, 1, refreshes)
}
