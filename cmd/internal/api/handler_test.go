package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/cmd/identity"
	"quill/cmd/internal/account"
	"quill/cmd/internal/auth/guard"
	"quill/cmd/internal/auth/session"
	"quill/cmd/internal/content"
	"quill/cmd/security/password"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	pcfg := password.DefaultConfig()
	pcfg.Params.MemoryKiB = 8 * 1024
	pcfg.Params.Iterations = 1
	pcfg.Params.Parallelism = 1

	scfg := session.DefaultConfig()
	scfg.Secret = []byte("0123456789abcdef0123456789abcdef")
	tokens, err := session.NewTokenService(scfg)
	require.NoError(t, err)

	users := identity.NewMemoryStore()
	accounts, err := account.NewService(context.Background(), log,
		users, password.NewPool(pcfg, 2), tokens,
		account.WithPolicy(pcfg))
	require.NoError(t, err)

	posts := content.NewService(log, content.NewMemoryStore(content.WithAuthors(users)), nil)

	h, err := NewHandler(log, cfg, accounts, posts, guard.New(tokens, ""), tokens.TTL())
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// newClient returns a client with its own cookie jar, like a separate browser.
func newClient(t *testing.T, ts *httptest.Server) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := ts.Client()
	c.Jar = jar
	return c
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(body, &e), "body=%s", body)
	return e.Error.Code
}

func registerAndLogin(t *testing.T, client *http.Client, base, username, pw string) loginResponse {
	t.Helper()

	status, body := doJSON(t, client, http.MethodPost, base+"/register", credentialsRequest{Username: username, Password: pw})
	require.Equal(t, http.StatusOK, status, "register body=%s", body)

	status, body = doJSON(t, client, http.MethodPost, base+"/login", credentialsRequest{Username: username, Password: pw})
	require.Equal(t, http.StatusOK, status, "login body=%s", body)

	var out loginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestAPI_RegisterLoginProfile(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	client := newClient(t, ts)

	status, body := doJSON(t, client, http.MethodPost, ts.URL+"/register", credentialsRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusOK, status, "body=%s", body)

	var u userResponse
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "alice", u.Username)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), "argon2id")

	status, body = doJSON(t, client, http.MethodPost, ts.URL+"/login", credentialsRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusOK, status, "body=%s", body)

	var lr loginResponse
	require.NoError(t, json.Unmarshal(body, &lr))
	assert.Equal(t, u.ID, lr.ID)
	assert.NotEmpty(t, lr.Token)

	status, body = doJSON(t, client, http.MethodGet, ts.URL+"/profile", nil)
	require.Equal(t, http.StatusOK, status, "body=%s", body)

	var p profileResponse
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, u.ID, p.ID)
	assert.NotZero(t, p.IssuedAt)
}

func TestAPI_RegisterFailures(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	client := newClient(t, ts)

	status, body := doJSON(t, client, http.MethodPost, ts.URL+"/register", credentialsRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusOK, status, "body=%s", body)

	status, body = doJSON(t, client, http.MethodPost, ts.URL+"/register", credentialsRequest{Username: "alice", Password: "another1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "duplicate_username", errorCode(t, body))

	status, body = doJSON(t, client, http.MethodPost, ts.URL+"/register", credentialsRequest{Username: "bob", Password: "secret1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errorCode(t, body))

	status, body = doJSON(t, client, http.MethodPost, ts.URL+"/register", credentialsRequest{Username: "carol", Password: "abc"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errorCode(t, body))

	status, body = doJSON(t, client, http.MethodPost, ts.URL+"/register", map[string]any{"username": "dave", "password": "secret1", "admin": true})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_json", errorCode(t, body))
}

func TestAPI_LoginFailure_NoEnumeration(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	client := newClient(t, ts)

	status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/register", credentialsRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusOK, status)

	statusA, bodyA := doJSON(t, client, http.MethodPost, ts.URL+"/login", credentialsRequest{Username: "nobody", Password: "secret1"})
	statusB, bodyB := doJSON(t, client, http.MethodPost, ts.URL+"/login", credentialsRequest{Username: "alice", Password: "wrong-1"})

	assert.Equal(t, http.StatusInternalServerError, statusA)
	assert.Equal(t, statusA, statusB)
	assert.Equal(t, string(bodyA), string(bodyB))
	assert.Equal(t, "invalid_credentials", errorCode(t, bodyA))
}

func TestAPI_LoginRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoginMax = 2
	ts := newTestServer(t, cfg)
	client := newClient(t, ts)

	for i := 0; i < 2; i++ {
		status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/login", credentialsRequest{Username: "nobody", Password: "secret1"})
		require.Equal(t, http.StatusInternalServerError, status)
	}

	status, body := doJSON(t, client, http.MethodPost, ts.URL+"/login", credentialsRequest{Username: "nobody", Password: "secret1"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", errorCode(t, body))
}

func TestAPI_LoginRateLimitedUnderConcurrency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoginMax = 3
	ts := newTestServer(t, cfg)
	client := newClient(t, ts)

	payload, err := json.Marshal(credentialsRequest{Username: "nobody", Password: "secret1"})
	require.NoError(t, err)

	const attempts = 12
	statuses := make(chan int, attempts)
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Post(ts.URL+"/login", "application/json", bytes.NewReader(payload))
			if err != nil {
				errs <- err
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	counts := map[int]int{}
	for s := range statuses {
		counts[s]++
	}
	assert.Equal(t, 3, counts[http.StatusInternalServerError], "failed logins let through")
	assert.Equal(t, attempts-3, counts[http.StatusTooManyRequests])
}

func TestAPI_ProfileRequiresSession(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	status, body := doJSON(t, newClient(t, ts), http.MethodGet, ts.URL+"/profile", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "unauthenticated", errorCode(t, body))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/profile", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: guard.DefaultCookieName, Value: "not-a-jwt"})
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "invalid_token", errorCode(t, raw))
}

func TestAPI_LogoutClearsCookie(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	client := newClient(t, ts)
	registerAndLogin(t, client, ts.URL, "alice", "secret1")

	status, _ := doJSON(t, client, http.MethodGet, ts.URL+"/profile", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, client, http.MethodPost, ts.URL+"/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `"ok"`, string(body))

	status, body = doJSON(t, client, http.MethodGet, ts.URL+"/profile", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "unauthenticated", errorCode(t, body))
}

func TestAPI_PostOwnership(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	alice := newClient(t, ts)
	mallory := newClient(t, ts)
	aliceLogin := registerAndLogin(t, alice, ts.URL, "alice", "secret1")
	registerAndLogin(t, mallory, ts.URL, "mallory", "secret2")

	status, body := doJSON(t, alice, http.MethodPost, ts.URL+"/post", postRequest{Title: "First", Summary: "s", Content: "<p>hi</p>", Cover: "uploads/a.png"})
	require.Equal(t, http.StatusOK, status, "body=%s", body)

	var created postResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, aliceLogin.ID, created.Author.ID)
	assert.Equal(t, "alice", created.Author.Username)

	// Another user cannot edit it.
	status, body = doJSON(t, mallory, http.MethodPut, ts.URL+"/post", postRequest{ID: created.ID, Title: "Hijacked"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "forbidden", errorCode(t, body))

	// Ownership is judged before the draft.
	status, body = doJSON(t, mallory, http.MethodPut, ts.URL+"/post", postRequest{ID: created.ID, Title: ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "forbidden", errorCode(t, body))

	status, body = doJSON(t, alice, http.MethodPut, ts.URL+"/post", postRequest{ID: created.ID, Title: ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errorCode(t, body))

	status, body = doJSON(t, alice, http.MethodGet, ts.URL+"/post/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var got postResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "First", got.Title)

	// The author can; an empty cover keeps the old one.
	status, body = doJSON(t, alice, http.MethodPut, ts.URL+"/post", postRequest{ID: created.ID, Title: "Edited", Content: "<p>new</p>"})
	require.Equal(t, http.StatusOK, status, "body=%s", body)
	var updated postResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Edited", updated.Title)
	assert.Equal(t, "uploads/a.png", updated.Cover)

	status, body = doJSON(t, mallory, http.MethodGet, ts.URL+"/post", nil)
	require.Equal(t, http.StatusOK, status)
	var list []postResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Edited", list[0].Title)
}

func TestAPI_PostNotFoundAndUnauthenticated(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	anon := newClient(t, ts)

	status, body := doJSON(t, anon, http.MethodPost, ts.URL+"/post", postRequest{Title: "x"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "unauthenticated", errorCode(t, body))

	status, body = doJSON(t, anon, http.MethodGet, ts.URL+"/post/"+ulid.Make().String(), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(t, body))

	status, _ = doJSON(t, anon, http.MethodGet, ts.URL+"/post/not-an-id", nil)
	assert.Equal(t, http.StatusNotFound, status)

	client := newClient(t, ts)
	registerAndLogin(t, client, ts.URL, "alice", "secret1")

	status, body = doJSON(t, client, http.MethodPut, ts.URL+"/post", postRequest{ID: ulid.Make().String(), Title: "x"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(t, body))

	// An absent post is not_found even when the draft is invalid.
	status, body = doJSON(t, client, http.MethodPut, ts.URL+"/post", postRequest{ID: ulid.Make().String(), Title: ""})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(t, body))

	status, body = doJSON(t, client, http.MethodPost, ts.URL+"/post", postRequest{Title: ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errorCode(t, body))
}
