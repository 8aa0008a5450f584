package http

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sort"
	"strings"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

// maxReceiptBytes caps uploaded receipt images.
const maxReceiptBytes = 8 << 20

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	view := s.store.View()
	filter := core.Category(r.URL.Query().Get("category"))
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if filter != "" || query != "" {
		filtered := make([]core.Expense, 0, len(view))
		for _, e := range view {
			if filter != "" && e.Category != filter {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(e.Description), query) {
				continue
			}
			filtered = append(filtered, e)
		}
		view = filtered
	}
	// The view arrives date-descending; "amount" reorders biggest first.
	if r.URL.Query().Get("sort") == "amount" {
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].Amount.Cents > view[j].Amount.Cents
		})
	}

	data := expensesData{
		pageData: pageData{Identity: id, AIEnabled: s.ai.Enabled()},
		Expenses: toExpenseViews(view),
		Filter:   filter,
		Query:    r.URL.Query().Get("q"),
		Today:    core.Today().ISO(),
	}
	if isHTMX(r) {
		s.render(w, r, "expense_rows.html", data)
		return
	}
	s.render(w, r, "expenses.html", data)
}

// draftFromForm reads the shared expense form fields. The validation error
// comes back as a user-facing message.
func draftFromForm(r *http.Request) (core.ExpenseDraft, string) {
	amount, err := core.ParseMoney(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		return core.ExpenseDraft{}, "Enter a valid amount"
	}
	date, err := core.ParseDate(strings.TrimSpace(r.Form.Get("date")))
	if err != nil {
		return core.ExpenseDraft{}, "Enter a valid date"
	}

	draft := core.ExpenseDraft{
		Amount:      amount,
		Category:    core.Category(sanitizeInput(r.Form.Get("category"))),
		Date:        date,
		Description: sanitizeInput(r.Form.Get("description")),
	}
	if !draft.Category.Known() {
		draft.Category = core.Other
	}
	if err := draft.Validate(); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			return draft, "Amount must be greater than zero"
		case errors.Is(err, core.ErrEmptyDescription):
			return draft, "Description is required"
		default:
			return draft, err.Error()
		}
	}
	return draft, ""
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request")
		return
	}

	draft, msg := draftFromForm(r)
	if msg != "" {
		errorFragment(w, http.StatusUnprocessableEntity, msg)
		return
	}

	e, err := s.store.Add(r.Context(), draft)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to save expense",
			log.FieldOperation, log.OpAdd,
			log.FieldError, err.Error())
		errorFragment(w, http.StatusInternalServerError, "Error saving expense")
		return
	}
	s.invalidateSummary(e.UserID)

	w.Header().Set("HX-Trigger", fmt.Sprintf(`{"form:reset": {}, "expenses:changed": {}, "show-notification": {"type": "success", "message": "Added %s"}}`,
		template.JSEscapeString(e.Amount.Display())))
	s.handleListExpenses(w, r)
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	e, found := s.store.Get(r.PathValue("id"))
	if !found {
		errorFragment(w, http.StatusNotFound, "Expense not found")
		return
	}
	s.render(w, r, "expense_form.html", formData{
		pageData: pageData{Identity: id, AIEnabled: s.ai.Enabled()},
		Expense:  toExpenseView(e),
	})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request")
		return
	}

	draft, msg := draftFromForm(r)
	if msg != "" {
		errorFragment(w, http.StatusUnprocessableEntity, msg)
		return
	}

	patch := core.ExpensePatch{
		Amount:      &draft.Amount,
		Category:    &draft.Category,
		Date:        &draft.Date,
		Description: &draft.Description,
	}
	if err := s.store.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to update expense",
			log.FieldOperation, log.OpUpdate,
			log.FieldExpenseID, r.PathValue("id"),
			log.FieldError, err.Error())
		errorFragment(w, http.StatusInternalServerError, "Error updating expense")
		return
	}
	s.invalidateSummary(id.ID)

	w.Header().Set("HX-Trigger", `{"expenses:changed": {}}`)
	s.handleListExpenses(w, r)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to delete expense",
			log.FieldOperation, log.OpDelete,
			log.FieldExpenseID, r.PathValue("id"),
			log.FieldError, err.Error())
		errorFragment(w, http.StatusInternalServerError, "Error deleting expense")
		return
	}
	s.invalidateSummary(id.ID)

	w.Header().Set("HX-Trigger", `{"expenses:changed": {}}`)
	s.handleListExpenses(w, r)
}

// handleParseText turns free text like "coffee 250 yesterday" into a
// prefilled expense form.
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
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
	text := sanitizeInput(r.Form.Get("text"))
	if text == "" {
		errorFragment(w, http.StatusUnprocessableEntity, "Describe the expense first")
		return
	}

	draft, err := s.ai.ParseText(r.Context(), text)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Text parse failed",
			log.FieldOperation, log.OpParse,
			log.FieldError, err.Error())
		errorFragment(w, http.StatusBadGateway, "Could not understand that, try rephrasing")
		return
	}

	s.renderDraftForm(w, r, id, *draft)
}

// handleParseReceipt extracts an expense from an uploaded receipt image.
func (s *Server) handleParseReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if !s.ai.Enabled() {
		errorFragment(w, http.StatusServiceUnavailable, "AI features are not configured")
		return
	}

	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		errorFragment(w, http.StatusBadRequest, "Upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		errorFragment(w, http.StatusUnprocessableEntity, "Attach a receipt image first")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		errorFragment(w, http.StatusUnsupportedMediaType, "Only image uploads are supported")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes))
	if err != nil {
		errorFragment(w, http.StatusBadRequest, "Could not read the upload")
		return
	}

	draft, err := s.ai.ParseImage(r.Context(), mimeType, data)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Receipt parse failed",
			log.FieldOperation, log.OpParse,
			log.FieldError, err.Error())
		errorFragment(w, http.StatusBadGateway, "Could not read that receipt")
		return
	}

	s.renderDraftForm(w, r, id, *draft)
}

// renderDraftForm shows the add form prefilled with an AI-extracted draft for
// the user to confirm or correct.
func (s *Server) renderDraftForm(w http.ResponseWriter, r *http.Request, id *core.Identity, draft core.ExpenseDraft) {
	s.render(w, r, "expense_form.html", formData{
		pageData: pageData{Identity: id, AIEnabled: s.ai.Enabled()},
		Expense: expenseView{
			Description: draft.Description,
			Plain:       draft.Amount.Decimal(),
			Category:    draft.Category,
			Color:       draft.Category.Color(),
			DateISO:     draft.Date.ISO(),
		},
	})
}
