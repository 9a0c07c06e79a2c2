// Package helpers collects small request-inspection utilities shared by the
// websocket upgrade path and the admission pipeline.
package helpers

import (
	"net/http"
	"strings"
)

// GetRemoteFromReq extracts the client's real remote address from an HTTP
// request, preferring the RFC 7239 Forwarded header, then the conventional
// X-Forwarded-For header, then falling back to the empty string so the
// caller can use the raw connection's remote address instead.
func GetRemoteFromReq(r *http.Request) string {
	if fwd := r.Header.Get("Forwarded"); fwd != "" {
		for _, part := range strings.Split(fwd, ";") {
			part = strings.TrimSpace(part)
			if rest, ok := strings.CutPrefix(part, "for="); ok {
				rest = strings.Trim(rest, `"`)
				rest = strings.TrimPrefix(rest, "[")
				if idx := strings.Index(rest, "]"); idx != -1 {
					return rest[:idx]
				}
				if host, _, ok := strings.Cut(rest, ":"); ok {
					return host
				}
				return rest
			}
		}
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return ""
}
