package http

import (
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// requireSession establishes the caller's session from the bearer token or
// session cookie and installs it in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.svc.Sessions.Establish(r.Context(), auth.TokenFromRequest(r))
		if err != nil {
			s.fail(w, r, "session", err)
			return
		}

		ctx := auth.NewContext(r.Context(), sess)
		logger := applog.FromContext(ctx).With(applog.NewFields().WithUser(sess.UserID, string(sess.Role())).ToSlice()...)
		ctx = applog.NewContext(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCapability rejects sessions whose role lacks c with 403.
func (s *Server) requireCapability(c auth.Capability, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := auth.FromContext(r.Context())
		if !ok {
			s.fail(w, r, string(c), auth.ErrUnauthenticated)
			return
		}
		if !sess.Can(c) {
			s.fail(w, r, string(c), fmt.Errorf("%w: role %s lacks %s", errForbidden, sess.Role(), c))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the session installed by requireSession.
func session(r *http.Request) *auth.Session {
	sess, _ := auth.FromContext(r.Context())
	return sess
}

type meResponse struct {
	UserID       string            `json:"user_id"`
	Email        string            `json:"email"`
	FullName     string            `json:"full_name"`
	ExpiresAt    time.Time         `json:"expires_at"`
	Profile      *core.UserProfile `json:"profile"`
	Role         auth.Role         `json:"role"`
	Capabilities []auth.Capability `json:"capabilities"`
	Navigation   []auth.NavItem    `json:"navigation"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	role := sess.Role()
	NewResponse().Data(meResponse{
		UserID:       sess.UserID,
		Email:        sess.Email,
		FullName:     sess.FullName,
		ExpiresAt:    sess.ExpiresAt,
		Profile:      sess.Profile,
		Role:         role,
		Capabilities: role.Capabilities(),
		Navigation:   auth.Navigation(role),
	}).Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.svc.Sessions.End(r.Context(), auth.TokenFromRequest(r))
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	NewResponse().
		Status(http.StatusNoContent).
		TriggerSuccessNotification("Signed out").
		Write(w)
}
