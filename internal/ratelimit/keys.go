package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"github.com/vietlearn/backend-academy/internal/common"
)

// ByUser keys the limit on the authenticated user, falling back to the client
// IP for anonymous requests. Used on the voucher apply endpoints so one user
// cannot brute-force codes.
func ByUser(prefix string) func(*http.Request) string {
	return func(r *http.Request) string {
		if userID, ok := common.UserID(r.Context()); ok && userID != "" {
			return prefix + ":user:" + userID
		}
		return prefix + ":ip:" + clientIP(r)
	}
}

// ByIP keys the limit on the client IP.
func ByIP(prefix string) func(*http.Request) string {
	return func(r *http.Request) string {
		return prefix + ":ip:" + clientIP(r)
	}
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
