package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

// extractClientIP resolves the client address, honoring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// sanitizeInput trims and strips control characters except tab, newline and
// carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"categories": core.Categories,
	}
}

// render executes a named template, logging instead of panicking when the
// template set is broken.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template render failed",
			"template", name,
			log.FieldError, err.Error())
	}
}

// isHTMX reports whether the request came from an htmx-driven element.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// errorFragment writes an inline error block htmx can swap into the page.
func errorFragment(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<div class="error">%s</div>`, template.HTMLEscapeString(msg))
}

// requireIdentity returns the active identity or redirects to the login
// page. Handlers bail out when the second return is false.
func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) (*core.Identity, bool) {
	id := s.sessions.Current()
	if id == nil {
		if isHTMX(r) {
			w.Header().Set("HX-Redirect", "/")
			w.WriteHeader(http.StatusUnauthorized)
		} else {
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}
		return nil, false
	}
	return id, true
}

// invalidateSummary drops the cached dashboard for the user after mutations.
func (s *Server) invalidateSummary(userID string) {
	s.summaryCache.Delete(userID)
}
