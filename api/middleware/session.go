package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
)

const (
	sessionIDHeader = "X-Session-Id"

	// AnonymousSession is used when the client sends no session header so
	// carts still resolve to a deterministic key.
	AnonymousSession = "anon"
)

// Session resolves the shopper session identifier carried on every cart and
// checkout request.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if sessionID == "" {
				sessionID = AnonymousSession
			}

			ctx := context.WithValue(r.Context(), ctxSessionID, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
