package requestutil

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/kart-io/provenance/pkg/infra/middleware/common"
)

// GetRequestID returns the request ID stored in the context by the
// request-id middleware, or empty string if absent.
func GetRequestID(ctx context.Context) string {
	return common.GetRequestID(ctx)
}

// GetClientIP returns the client IP address from the request.
// It checks X-Forwarded-For, X-Real-IP, and RemoteAddr.
func GetClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
