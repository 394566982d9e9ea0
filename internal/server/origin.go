// Package server normalizes and validates HTTP origins for WebSocket requests
// to enforce configured access control.
package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// originPolicy decides which browser origins may open a connection.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	logger   *slog.Logger
}

// newOriginPolicy builds the allow-list from configured origins. A "*" entry
// allows every origin; entries that are not scheme://host are dropped.
func newOriginPolicy(origins []string, logger *slog.Logger) *originPolicy {
	p := &originPolicy{allowed: make(map[string]struct{}), logger: logger}
	for _, entry := range origins {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case entry == "*":
			p.allowAll = true
		default:
			key, ok := originKey(entry)
			if !ok {
				logger.Warn("ignoring invalid origin in configuration", "origin", entry)
				continue
			}
			p.allowed[key] = struct{}{}
		}
	}
	return p
}

// originKey reduces an origin to its lowercased scheme://host form.
func originKey(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), true
}

// isAllowed accepts requests without an Origin header; only browsers send
// one, and native clients have nothing to present.
func (p *originPolicy) isAllowed(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || p.allowAll {
		return true
	}
	key, ok := originKey(header)
	if !ok {
		return false
	}
	_, ok = p.allowed[key]
	return ok
}

func (p *originPolicy) checkOrigin(r *http.Request) bool {
	if p.isAllowed(r) {
		return true
	}

	p.logger.Warn("blocked websocket connection from disallowed origin",
		"origin", r.Header.Get("Origin"),
		"remote_addr", r.RemoteAddr,
	)
	return false
}
