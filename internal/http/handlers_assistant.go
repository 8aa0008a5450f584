package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"spendsmart/internal/assistant"
	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

func (s *Server) handleAssistantPage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if !s.ai.Enabled() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, "assistant.html", assistantData{
		pageData: pageData{Identity: id, AIEnabled: true},
	})
}

// handleAssistantChat runs one conversation turn. The rolling history rides
// along in a hidden form field so the server stays stateless per request.
func (s *Server) handleAssistantChat(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if !s.ai.Enabled() {
		errorFragment(w, http.StatusServiceUnavailable, "AI features are not configured")
		return
	}
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request")
		return
	}

	input := sanitizeInput(r.Form.Get("message"))
	if input == "" {
		errorFragment(w, http.StatusUnprocessableEntity, "Type a message first")
		return
	}

	var history []assistant.Message
	if raw := r.Form.Get("history"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			history = nil // start a fresh conversation rather than fail the turn
		}
	}

	outcome, err := s.ai.Chat(r.Context(), history, s.store.View(), input)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Assistant turn failed",
			log.FieldOperation, log.OpChat,
			log.FieldError, err.Error())
		errorFragment(w, http.StatusBadGateway, "The assistant is unavailable right now")
		return
	}

	turn := chatTurnData{UserText: input}
	switch out := outcome.(type) {
	case assistant.Reply:
		turn.ReplyText = out.Text

	case assistant.AddExpense:
		draft := core.ExpenseDraft{
			Amount:      out.Amount,
			Category:    out.Category,
			Date:        out.Date,
			Description: out.Description,
		}
		e, addErr := s.store.Add(r.Context(), draft)
		if addErr != nil {
			turn.ReplyText = "I couldn't add that expense, the details didn't check out. Mind giving me the amount and description again?"
			break
		}
		s.invalidateSummary(id.ID)
		added := toExpenseView(e)
		turn.Added = &added
		turn.ReplyText = fmt.Sprintf("Done! Logged %s for %s under %s. 💸",
			e.Amount.Display(), e.Description, e.Category)

	default:
		turn.ReplyText = "Sorry, I lost my train of thought. Try again?"
	}

	history = append(history,
		assistant.Message{Role: "user", Text: input},
		assistant.Message{Role: "model", Text: turn.ReplyText},
	)
	if encoded, err := json.Marshal(history); err == nil {
		turn.HistoryJS = string(encoded)
	}

	s.render(w, r, "chat_turn.html", turn)
}
