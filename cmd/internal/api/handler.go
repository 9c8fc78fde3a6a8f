// Package api exposes Quill's account, session and post endpoints over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"quill/cmd/identity/ids"
	"quill/cmd/internal/account"
	"quill/cmd/internal/auth/guard"
	"quill/cmd/internal/auth/ownership"
	"quill/cmd/internal/content"
)

// Handler wires HTTP endpoints to the account and content services.
type Handler struct {
	log *slog.Logger
	cfg Config

	accounts *account.Service
	posts    *content.Service
	guard    *guard.Guard
	tokenTTL time.Duration

	loginLimiter *failureLimiter
	now          func() time.Time
}

// NewHandler constructs a Handler. tokenTTL sets the session cookie lifetime
// (zero leaves it a browser-session cookie).
func NewHandler(log *slog.Logger, cfg Config, accounts *account.Service, posts *content.Service, g *guard.Guard, tokenTTL time.Duration) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if accounts == nil || posts == nil || g == nil {
		return nil, errors.New("api: nil dependency")
	}
	cfg = cfg.withDefaults()

	return &Handler{
		log:          log,
		cfg:          cfg,
		accounts:     accounts,
		posts:        posts,
		guard:        g,
		tokenTTL:     tokenTTL,
		loginLimiter: newFailureLimiter(cfg.LoginMax, cfg.LoginWindow),
		now:          time.Now,
	}, nil
}

// Register wires routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/register", h.handleRegister)
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/logout", h.handleLogout)
	mux.HandleFunc("/profile", h.handleProfile)
	mux.HandleFunc("/post", h.handlePost)
	mux.HandleFunc("GET /post/{id}", h.handleGetPost)
}

// ---- accounts ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	u, err := h.accounts.Register(ctx, req.Username, req.Password)
	if err != nil {
		h.writeFailure(w, r, "account.register", err)
		return
	}

	h.auditRegister(ctx, u.ID.String(), clientIP(r, h.cfg.TrustProxy))
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	key := ipKey(ip)

	// IP-based throttling before any lookup or hashing work. The attempt is
	// counted here and uncounted below unless it ends as a credential failure.
	if ok, retryAfter := h.loginLimiter.Acquire(key, now); !ok {
		h.auditLoginRateLimited(ctx, req.Username, ip, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	res, err := h.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			h.auditLoginFailed(ctx, req.Username, ip, "invalid_credentials")
		} else {
			h.loginLimiter.Release(key, now)
		}
		h.writeFailure(w, r, "account.login", err)
		return
	}

	h.loginLimiter.Reset(key)
	h.auditLoginSuccess(ctx, res.User.ID.String(), ip)

	h.setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusOK, loginResponse{
		ID:       res.User.ID.String(),
		Username: res.User.Username,
		Token:    res.Token,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.expireSessionCookie(w)
	writeJSON(w, http.StatusOK, "ok")
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	claims, err := h.guard.Authenticate(r)
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(claims))
}

// ---- posts ----

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListPosts(w, r)
	case http.MethodPost:
		h.guard.Require(h.writeAuthFailure, h.handleCreatePost)(w, r)
	case http.MethodPut:
		h.guard.Require(h.writeAuthFailure, h.handleUpdatePost)(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	claims, _ := guard.FromContext(r.Context())

	var req postRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.ID != "" {
		writeError(w, http.StatusBadRequest, "validation_error", "id must not be set on create")
		return
	}

	p, err := h.posts.Create(r.Context(), claims, req.draft())
	if err != nil {
		h.writeFailure(w, r, "post.create", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}

func (h *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	claims, _ := guard.FromContext(r.Context())

	var req postRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	id, err := ids.Parse(req.ID)
	if err != nil {
		// A malformed id cannot name an existing post.
		h.writeFailure(w, r, "post.update", content.ErrNotFound)
		return
	}

	ctx := r.Context()
	p, err := h.posts.Update(ctx, claims, id, req.draft())
	if err != nil {
		if errors.Is(err, ownership.ErrForbidden) {
			h.auditForbidden(ctx, claims.UserID.String(), id.String(), clientIP(r, h.cfg.TrustProxy))
		}
		h.writeFailure(w, r, "post.update", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Latest(r.Context())
	if err != nil {
		h.writeFailure(w, r, "post.list", err)
		return
	}
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := ids.Parse(r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, "post.get", content.ErrNotFound)
		return
	}
	p, err := h.posts.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, "post.get", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}
