package transporthttp

import (
	"net/http"
	"strings"
)

const unknownClient = "unknown"

// ClientIP trusts the proxy headers the deployment sets: the first
// X-Forwarded-For hop, then X-Real-IP. Without either every caller shares
// one bucket.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return unknownClient
}
