package handlers

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go/attribute"

	"github.com/lumashop/lumashop/internal/config"
	"github.com/lumashop/lumashop/internal/observability"
)

// SecurityHeaders sets baseline security headers for all responses. Every
// response is JSON, so nothing may be framed or load subresources.
func (h *Handlers) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		headers.Set("Cross-Origin-Opener-Policy", "same-origin")
		headers.Set("Cross-Origin-Resource-Policy", "same-origin")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		headers.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// RequireSameOrigin rejects state-changing requests whose Origin or Referer
// names a host other than the request host or BASE_URL. Cart, checkout,
// account and admin routes are all cookie-authenticated.
func (h *Handlers) RequireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestMutatesState(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		observability.Count(r.Context(), "security.same_origin.checked")
		reason, err := h.crossOriginReason(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}

		observability.Count(r.Context(), "security.same_origin.blocked", attribute.String("reason", reason))
		h.loggerFromContext(r.Context()).Warn("blocked cross-origin request",
			"reason", reason,
			"origin", r.Header.Get("Origin"),
			"referer", r.Header.Get("Referer"),
			"error", err,
		)
		h.writeError(w, r, http.StatusForbidden, "Forbidden")
	})
}

// crossOriginReason returns an empty reason when r may change state.
func (h *Handlers) crossOriginReason(r *http.Request) (string, error) {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	referer := strings.TrimSpace(r.Header.Get("Referer"))
	if origin == "" && referer == "" {
		return "missing_origin_and_referer", nil
	}

	checks := []struct {
		value  string
		reason string
	}{
		{value: origin, reason: "invalid_origin"},
		{value: referer, reason: "invalid_referer"},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		if ok, err := h.headerMatchesAllowedHost(check.value, r); err != nil || !ok {
			return check.reason, err
		}
	}
	return "", nil
}

func requestMutatesState(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (h *Handlers) headerMatchesAllowedHost(value string, r *http.Request) (bool, error) {
	parsed, err := url.Parse(value)
	if err != nil {
		return false, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Host == "" {
		return false, fmt.Errorf("missing host")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false, fmt.Errorf("missing hostname")
	}

	allowedHosts := allowedRequestHosts(h.config, r)
	_, ok := allowedHosts[host]
	return ok, nil
}

func allowedRequestHosts(cfg *config.Config, r *http.Request) map[string]struct{} {
	hosts := map[string]struct{}{}

	if r != nil {
		if host := normalizeHost(r.Host); host != "" {
			hosts[host] = struct{}{}
		}
	}

	if cfg != nil {
		if host := hostFromBaseURL(cfg.BaseURL); host != "" {
			hosts[host] = struct{}{}
		}
	}

	return hosts
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(strings.TrimSpace(host))
	}
	return strings.ToLower(hostport)
}

func hostFromBaseURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
