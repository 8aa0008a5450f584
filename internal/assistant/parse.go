package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

// expenseSchema constrains structured extraction to the draft shape.
func expenseSchema() *schema {
	return &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"amount":      {Type: "NUMBER", Description: "The cost of the expense"},
			"category":    {Type: "STRING", Description: "One of: Food, Transport, Housing, Entertainment, Shopping, Utilities, Health, Other. Infer the best fit."},
			"date":        {Type: "STRING", Description: "ISO 8601 date string (YYYY-MM-DD)"},
			"description": {Type: "STRING", Description: "A brief description of what was purchased"},
		},
		Required: []string{"amount", "category", "date", "description"},
	}
}

// extraction is the JSON shape the model returns for structured parsing.
// Amounts arrive as rupee numbers, not cents.
type extraction struct {
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// ParseText extracts an expense draft from free-form text like
// "coffee 250 yesterday".
func (c *Client) ParseText(ctx context.Context, text string) (*core.ExpenseDraft, error) {
	prompt := fmt.Sprintf(
		`Extract expense details from this text: %q. If the year is not specified, assume current year: %d. Return a JSON object.`,
		text, time.Now().UTC().Year())

	req := genRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   expenseSchema(),
		},
	}
	return c.extractDraft(ctx, req)
}

// ParseImage extracts an expense draft from a receipt photo or screenshot.
func (c *Client) ParseImage(ctx context.Context, mimeType string, data []byte) (*core.ExpenseDraft, error) {
	prompt := fmt.Sprintf(
		`Analyze this receipt/image and extract expense details. Return a JSON object. If the date is missing or unclear, use today's date: %s.`,
		core.Today().ISO())

	req := genRequest{
		Contents: []content{{Role: "user", Parts: []part{
			inlinePart(mimeType, data),
			{Text: prompt},
		}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   expenseSchema(),
		},
	}
	return c.extractDraft(ctx, req)
}

func (c *Client) extractDraft(ctx context.Context, req genRequest) (*core.ExpenseDraft, error) {
	out, err := c.generateContent(ctx, req)
	if err != nil {
		return nil, err
	}

	var ext extraction
	if err := json.Unmarshal([]byte(out.text()), &ext); err != nil {
		c.logger.WarnContext(ctx, "Model returned unparsable extraction",
			log.FieldOperation, log.OpParse,
			log.FieldError, err.Error())
		return nil, fmt.Errorf("decode extraction: %w", err)
	}

	draft := ext.toDraft()
	c.logger.InfoContext(ctx, "Expense parsed",
		log.FieldOperation, log.OpParse,
		log.FieldCategory, string(draft.Category),
		log.FieldAmount, draft.Amount.Cents)
	return &draft, nil
}

// toDraft normalizes model output. Unknown categories fall back to Other and
// a missing or broken date falls back to today, so a sloppy model answer
// still yields a usable prefill.
func (ext extraction) toDraft() core.ExpenseDraft {
	draft := core.ExpenseDraft{
		Amount:      rupeesToMoney(ext.Amount),
		Category:    core.Other,
		Date:        core.Today(),
		Description: strings.TrimSpace(ext.Description),
	}
	if cat := core.Category(strings.TrimSpace(ext.Category)); cat.Known() {
		draft.Category = cat
	}
	if d, err := core.ParseDate(ext.Date); err == nil {
		draft.Date = d
	}
	return draft
}

func rupeesToMoney(rupees float64) core.Money {
	return core.Money{Cents: int64(math.Round(rupees * 100))}
}
