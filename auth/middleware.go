package auth

import (
	"net/http"

	"github.com/hazyhaar/bulkvis/kit"
)

// Middleware reads the session cookie and, when its token verifies, stores
// the session id with kit.WithSessionID. Invalid cookies are cleared and the
// request continues without a session id.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(CookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := Verify(secret, c.Value)
			if err != nil {
				ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(kit.WithSessionID(r.Context(), claims.SessionID)))
		})
	}
}
