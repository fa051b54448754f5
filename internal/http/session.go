package http

import (
	"net/http"

	"github.com/google/uuid"

	applog "billing/internal/log"
	"billing/internal/tracker"
)

const sessionCookieName = "billing_session"

type viewHandler func(w http.ResponseWriter, r *http.Request, v *tracker.View)

// withSession resolves the browser session to its tracker view, starting
// a new session when the cookie is missing, malformed or expired.
func (s *Server) withSession(next viewHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		view, created := s.sessions.GetOrCreate(id, s.newView)
		if created {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSession).
				DebugContext(r.Context(), "Session started", applog.FieldSessionID, id)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.opts.SessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   s.opts.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		next(w, r, view)
	})
}
