// Package main provides a CI-friendly HTTP smoke test for a running Quill server.
//
// It validates:
//   - register + login for two users, session cookie set
//   - profile reflects the session claims
//   - post create by A, forbidden update by B, update by A
//   - logout clears the session
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

type smokeClient struct {
	name string
	base string
	http *http.Client
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:4000", "server base URL")
		origin   = flag.String("origin", "http://localhost:3000", "Origin header to send")
		password = flag.String("password", "smoke-pass-1", "password for the throwaway users")
		timeout  = flag.Duration("timeout", 7*time.Second, "per-step timeout")
		verbose  = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	root := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	a := newClient("A", *baseURL, *origin)
	b := newClient("B", *baseURL, *origin)

	userA := "smoke_a_" + suffix
	userB := "smoke_b_" + suffix

	idA := mustRegisterAndLogin(root, a, userA, *password, *timeout)
	mustRegisterAndLogin(root, b, userB, *password, *timeout)

	var profile struct {
		Username string `json:"username"`
		ID       string `json:"id"`
		IssuedAt int64  `json:"iat"`
	}
	mustDo(root, a, http.MethodGet, "/profile", nil, http.StatusOK, &profile, *timeout)
	if profile.ID != idA || profile.Username != userA {
		fatalf("profile mismatch: got id=%s username=%s", profile.ID, profile.Username)
	}

	var post struct {
		ID string `json:"id"`
	}
	mustDo(root, a, http.MethodPost, "/post", map[string]string{
		"title":   "smoke " + suffix,
		"summary": "smoke test",
		"content": "<p>hello</p>",
	}, http.StatusOK, &post, *timeout)

	var denied apiError
	mustDo(root, b, http.MethodPut, "/post", map[string]string{
		"id":    post.ID,
		"title": "hijacked",
	}, http.StatusBadRequest, &denied, *timeout)
	if denied.Error.Code != "forbidden" {
		fatalf("expected forbidden, got %q", denied.Error.Code)
	}

	mustDo(root, a, http.MethodPut, "/post", map[string]string{
		"id":    post.ID,
		"title": "smoke edited " + suffix,
	}, http.StatusOK, nil, *timeout)

	mustDo(root, a, http.MethodPost, "/logout", nil, http.StatusOK, nil, *timeout)

	var unauth apiError
	mustDo(root, a, http.MethodGet, "/profile", nil, http.StatusInternalServerError, &unauth, *timeout)
	if unauth.Error.Code != "unauthenticated" {
		fatalf("expected unauthenticated after logout, got %q", unauth.Error.Code)
	}

	if *verbose {
		fmt.Printf("users: A=%s B=%s\n", userA, userB)
	}
	fmt.Printf("OK: user_id=%s post_id=%s\n", idA, post.ID)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func newClient(name, base, origin string) *smokeClient {
	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookiejar: %v", err)
	}
	transport := http.DefaultTransport
	if strings.TrimSpace(origin) != "" {
		transport = originTransport{origin: origin, next: http.DefaultTransport}
	}
	return &smokeClient{
		name: name,
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Jar: jar, Transport: transport},
	}
}

// originTransport sets a browser-like Origin header so CORS checks apply.
type originTransport struct {
	origin string
	next   http.RoundTripper
}

func (t originTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Origin", t.origin)
	return t.next.RoundTrip(r)
}

func mustRegisterAndLogin(parent context.Context, c *smokeClient, username, password string, stepTimeout time.Duration) string {
	creds := map[string]string{"username": username, "password": password}

	mustDo(parent, c, http.MethodPost, "/register", creds, http.StatusOK, nil, stepTimeout)

	var login struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	mustDo(parent, c, http.MethodPost, "/login", creds, http.StatusOK, &login, stepTimeout)
	if login.ID == "" || login.Token == "" {
		fatalf("login %s: empty id or token", c.name)
	}
	return login.ID
}

func mustDo(parent context.Context, c *smokeClient, method, path string, payload any, wantStatus int, out any, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			fatalf("%s %s %s: marshal: %v", c.name, method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		fatalf("%s %s %s: %v", c.name, method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s %s: %v", c.name, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s %s %s: read: %v", c.name, method, path, err)
	}
	if resp.StatusCode != wantStatus {
		fatalf("%s %s %s: status=%d want=%d body=%s", c.name, method, path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fatalf("%s %s %s: decode: %v body=%s", c.name, method, path, err, raw)
		}
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
