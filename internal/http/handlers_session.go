package http

import (
	"errors"
	"net/http"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

// handleIndex shows the login page, or sends authenticated users straight to
// the dashboard.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.sessions.Current() != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login.html", pageData{AIEnabled: s.ai.Enabled()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request")
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	name := sanitizeInput(r.Form.Get("name"))

	_, err := s.sessions.Login(r.Context(), email, name)
	if errors.Is(err, core.ErrEmptyEmail) {
		errorFragment(w, http.StatusUnprocessableEntity, "Email is required")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldError, err.Error())
		errorFragment(w, http.StatusInternalServerError, "Could not sign you in")
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/dashboard")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Logout failed",
			log.FieldOperation, log.OpLogout,
			log.FieldError, err.Error())
	}

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
