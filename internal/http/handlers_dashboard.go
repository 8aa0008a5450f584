package http

import (
	"net/http"
	"time"

	"spendsmart/internal/expense"
)

// recentOnDashboard caps the recent-expenses list on the dashboard.
const recentOnDashboard = 5

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	summary, hit := s.summaryCache.Get(id.ID)
	if !hit {
		summary = expense.Summarize(s.store.View(), time.Now(), recentOnDashboard)
		s.summaryCache.Set(id.ID, summary)
	}

	s.render(w, r, "dashboard.html", toDashboardData(id, s.ai.Enabled(), summary))
}
