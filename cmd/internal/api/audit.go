package api

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// Audit events go to the structured log under the "audit" group.
// They never carry passwords or tokens.

func (h *Handler) auditRegister(ctx context.Context, userID string, ip net.IP) {
	h.audit(ctx, "audit.register", slog.String("user_id", userID), ipAttr(ip))
}

func (h *Handler) auditLoginFailed(ctx context.Context, username string, ip net.IP, reason string) {
	h.audit(ctx, "audit.login.failed", slog.String("username", username), ipAttr(ip), slog.String("reason", reason))
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP) {
	h.audit(ctx, "audit.login.success", slog.String("user_id", userID), ipAttr(ip))
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, username string, ip net.IP, retryAfter time.Duration) {
	h.audit(ctx, "audit.login.rate_limited",
		slog.String("username", username),
		ipAttr(ip),
		slog.Int64("retry_after_s", int64(retryAfter.Seconds())),
	)
}

func (h *Handler) auditForbidden(ctx context.Context, userID, postID string, ip net.IP) {
	h.audit(ctx, "audit.post.forbidden", slog.String("user_id", userID), slog.String("post_id", postID), ipAttr(ip))
}

func (h *Handler) audit(ctx context.Context, action string, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	h.log.LogAttrs(ctx, slog.LevelInfo, action, slog.Group("audit", args...))
}

func ipAttr(ip net.IP) slog.Attr {
	if ip == nil {
		return slog.String("ip", "")
	}
	return slog.String("ip", ip.String())
}
