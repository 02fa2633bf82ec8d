package http

import (
	"context"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

const sessionCookieName = "yc_session"

// sessionCookie ensures every redirect request carries a session identity.
// The session ID approximates one browsing session and scopes the
// unique-click markers; it carries no authentication meaning.
func sessionCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""

		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			sessionID = cookie.Value
		} else if id, err := gonanoid.New(); err == nil {
			sessionID = id

			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionIDFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionIDKey).(string)
	return sessionID
}
