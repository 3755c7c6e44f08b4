package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist-api/internal/identity"
	"github.com/BuzzLyutic/tasklist-api/internal/repo"
	"github.com/BuzzLyutic/tasklist-api/internal/service"
	"github.com/BuzzLyutic/tasklist-api/internal/session"
	"github.com/BuzzLyutic/tasklist-api/internal/testutil"
)

type apiClient struct {
	t   *testing.T
	url string
}

func (c apiClient) do(method, path, token, body string) (int, []byte) {
	c.t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.url+path, r)
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

// newFakeIdP serves the code exchange, userinfo and revoke endpoints. The code
// "code-<name>" signs in <name>, and the access token it returns is a real RS256
// token from issuer.
func newFakeIdP(t *testing.T, issuer *testutil.TokenIssuer, users ...string) *httptest.Server {
	t.Helper()

	tokens := map[string]string{}
	owners := map[string]string{}
	for _, u := range users {
		tok := issuer.Token(t, u, time.Hour)
		tokens["code-"+u] = tok
		owners[tok] = u
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		tok, ok := tokens[r.PostForm.Get("code")]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": tok,
			"id_token":     tok,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/oauth2/userInfo", func(w http.ResponseWriter, r *http.Request) {
		u, ok := owners[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"sub":      "sub-" + u,
			"username": u,
			"email":    u + "@example.com",
		})
	})
	mux.HandleFunc("/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupAPI(t *testing.T) (apiClient, *testutil.TokenIssuer, func()) {
	pool, cleanupDB := testutil.SetupTestDB(t)
	redisClient, cleanupRedis := testutil.SetupTestRedis(t)
	testutil.TruncateTables(t, pool)

	issuer := testutil.NewTokenIssuer(t)
	keysCtx, stopKeys := context.WithCancel(context.Background())
	t.Cleanup(stopKeys)
	keys, err := identity.NewKeyfunc(keysCtx, identity.KeySetConfig{URL: issuer.JWKSURL()}, zap.NewNop())
	require.NoError(t, err)

	idp := newFakeIdP(t, issuer, "u1", "u2")
	provider := identity.NewProvider(identity.ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "secret",
		AuthURL:      idp.URL + "/oauth2/authorize",
		TokenURL:     idp.URL + "/oauth2/token",
		UserInfoURL:  idp.URL + "/oauth2/userInfo",
		RevokeURL:    idp.URL + "/oauth2/revoke",
	}, idp.Client())

	logger := zap.NewNop()
	revocations := session.NewRevocationStore(redisClient, "test-revoked:")
	userRepo := repo.NewUserRepo(pool)
	taskRepo := repo.NewTaskRepo(pool)

	router := NewRouter(RouterDeps{
		Tasks:       service.NewTaskService(taskRepo, userRepo),
		Auth:        service.NewAuthService(userRepo, provider, revocations, logger),
		Verifier:    identity.NewVerifier(keys.Keyfunc, identity.VerifierConfig{Issuer: issuer.Issuer, ClientID: "test-client"}),
		Revocations: revocations,
		Logger:      logger,
		Checks:      map[string]Pinger{"database": pool, "redis": revocations},
	})
	srv := httptest.NewServer(router)

	cleanup := func() {
		srv.Close()
		cleanupRedis()
		cleanupDB()
	}
	return apiClient{t: t, url: srv.URL}, issuer, cleanup
}

func signIn(t *testing.T, c apiClient, username string) string {
	t.Helper()
	code, body := c.do(http.MethodPost, "/api/auth/sign-in?code=code-"+username, "", "")
	require.Equal(t, http.StatusOK, code, string(body))

	var tokens identity.TokenSet
	require.NoError(t, json.Unmarshal(body, &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	return tokens.AccessToken
}

func TestAPI_TaskLifecycle(t *testing.T) {
	c, issuer, cleanup := setupAPI(t)
	defer cleanup()

	u1 := signIn(t, c, "u1")
	u2 := signIn(t, c, "u2")

	code, body := c.do(http.MethodGet, "/api/auth/me", u1, "")
	require.Equal(t, http.StatusOK, code)
	var me userResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "u1", me.Username)
	assert.Equal(t, "u1@example.com", me.Email)

	// signing in again reuses the existing user
	signIn(t, c, "u1")
	_, body = c.do(http.MethodGet, "/api/auth/me", u1, "")
	var again userResponse
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Equal(t, me.ID, again.ID)

	code, body = c.do(http.MethodPost, "/tasks", u1, `{"title":"A","priority":1}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	var created taskResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "A", created.Title)
	assert.Equal(t, "Todo", created.Status)
	assert.Nil(t, created.Deadline)
	assert.Equal(t, me.ID, created.UserID)
	taskPath := "/tasks/" + created.ID.String()

	code, body = c.do(http.MethodGet, "/tasks", u1, "")
	require.Equal(t, http.StatusOK, code)
	var list []taskResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	code, body = c.do(http.MethodGet, "/tasks", u2, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(body))

	code, body = c.do(http.MethodPut, taskPath, u1, `{"status":"Done"}`)
	require.Equal(t, http.StatusOK, code, string(body))
	var updated taskResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Done", updated.Status)
	assert.Equal(t, "A", updated.Title)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		code, _ = c.do(m, taskPath, u2, `{"status":"Stolen"}`)
		assert.Equal(t, http.StatusForbidden, code, "u2 %s", m)
	}

	code, body = c.do(http.MethodDelete, taskPath, u1, "")
	require.Equal(t, http.StatusOK, code)
	var deleted taskResponse
	require.NoError(t, json.Unmarshal(body, &deleted))
	assert.Equal(t, "Done", deleted.Status)

	code, body = c.do(http.MethodGet, "/tasks", u1, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(body))

	code, _ = c.do(http.MethodDelete, taskPath, u1, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = c.do(http.MethodGet, "/tasks/not-a-uuid", u1, "")
	assert.Equal(t, http.StatusNotFound, code)

	// a valid token for someone who never signed in
	stranger := issuer.Token(t, "u3", time.Hour)
	code, _ = c.do(http.MethodPost, "/tasks", stranger, `{"title":"A","priority":1}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_Deadlines(t *testing.T) {
	c, _, cleanup := setupAPI(t)
	defer cleanup()

	u1 := signIn(t, c, "u1")

	code, _ := c.do(http.MethodPost, "/tasks", u1, `{"title":"A","priority":1,"deadline":"2000-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	future := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	code, body := c.do(http.MethodPost, "/tasks", u1, `{"title":"B","priority":2,"deadline":"`+future+`"}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	var task taskResponse
	require.NoError(t, json.Unmarshal(body, &task))
	require.NotNil(t, task.Deadline)

	code, _ = c.do(http.MethodPut, "/tasks/"+task.ID.String(), u1, `{"deadline":"2000-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPut, "/tasks/"+task.ID.String(), u1, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/tasks", u1, `{"priority":2}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_Logout(t *testing.T) {
	c, _, cleanup := setupAPI(t)
	defer cleanup()

	u1 := signIn(t, c, "u1")

	code, _ := c.do(http.MethodGet, "/tasks", u1, "")
	require.Equal(t, http.StatusOK, code)

	code, body := c.do(http.MethodGet, "/api/auth/logout", u1, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"Logout successful"}`, string(body))

	code, body = c.do(http.MethodGet, "/tasks", u1, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, string(body), "token has been revoked")

	code, _ = c.do(http.MethodPost, "/api/auth/sign-in?code=bogus", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, code)
}
