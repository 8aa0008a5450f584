package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

// chatContextLimit caps how many recent expenses are shown to the model.
const chatContextLimit = 50

// Message is one turn of the conversation.
type Message struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Outcome is what a chat turn produced: either a textual reply or a request
// to add an expense on the user's behalf.
type Outcome interface {
	isOutcome()
}

// Reply is a plain text answer.
type Reply struct {
	Text string
}

// AddExpense is the model invoking the addExpense tool.
type AddExpense struct {
	Amount      core.Money
	Category    core.Category
	Description string
	Date        core.Date
}

func (Reply) isOutcome()      {}
func (AddExpense) isOutcome() {}

func addExpenseTool() tool {
	return tool{FunctionDeclarations: []functionDeclaration{{
		Name:        "addExpense",
		Description: "Add a new expense to the user's tracker. Use this when the user explicitly asks to add, log, or record an expense.",
		Parameters: &schema{
			Type: "OBJECT",
			Properties: map[string]*schema{
				"amount":      {Type: "NUMBER", Description: "The amount spent."},
				"category":    {Type: "STRING", Description: "Category of expense. Match to one of: Food, Transport, Housing, Entertainment, Shopping, Utilities, Health, Other."},
				"description": {Type: "STRING", Description: "What was purchased."},
				"date":        {Type: "STRING", Description: "Date of purchase (YYYY-MM-DD). Use today's date if not specified."},
			},
			Required: []string{"amount", "category", "description", "date"},
		},
	}}}
}

func systemInstruction(expenses []core.Expense) string {
	recent := make([]core.Expense, len(expenses))
	copy(recent, expenses)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if len(recent) > chatContextLimit {
		recent = recent[:chatContextLimit]
	}

	var lines []string
	for _, e := range recent {
		lines = append(lines, fmt.Sprintf("%s: ₹%s for %s (%s)",
			e.Date.ISO(), e.Amount.Decimal(), e.Description, e.Category))
	}
	contextData := strings.Join(lines, "\n")
	if contextData == "" {
		contextData = "No recent expenses found."
	}

	return fmt.Sprintf(`You are "SpendSmart", a witty, creative, and super supportive personal finance AI.

YOUR DATA (User's recent expenses):
%s

Current Date: %s

INSTRUCTIONS:
1. **Tone**: Friendly, fun, emoji-loving (💸, 🍕, 🚀).
2. **Capabilities**: You can analyze spending AND help add new expenses.
3. **Adding Expenses**: If the user wants to add an expense, CALL the 'addExpense' tool. Do not just say you will do it.
4. **Insights**: If asked about spending, spot trends and give advice.
5. **Currency**: Indian Rupees (₹).`,
		contextData, core.Today().ISO())
}

// Chat sends the conversation plus the user's latest input to the model,
// grounding it in the recent expenses. When the model answers with an
// addExpense tool call, only the first call is honored.
func (c *Client) Chat(ctx context.Context, history []Message, expenses []core.Expense, input string) (Outcome, error) {
	contents := make([]content, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, content{Role: m.Role, Parts: []part{{Text: m.Text}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: input}}})

	req := genRequest{
		Contents:          contents,
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction(expenses)}}},
		Tools:             []tool{addExpenseTool()},
	}

	out, err := c.generateContent(ctx, req)
	if err != nil {
		return nil, err
	}

	if fc := out.firstFunctionCall(); fc != nil && fc.Name == "addExpense" {
		add, err := decodeAddExpense(fc.Args)
		if err != nil {
			c.logger.WarnContext(ctx, "Malformed addExpense call",
				log.FieldOperation, log.OpChat,
				log.FieldError, err.Error())
			return nil, fmt.Errorf("decode addExpense call: %w", err)
		}
		c.logger.InfoContext(ctx, "Assistant requested expense add",
			log.FieldOperation, log.OpChat,
			log.FieldCategory, string(add.Category),
			log.FieldAmount, add.Amount.Cents)
		return add, nil
	}

	return Reply{Text: out.text()}, nil
}

func decodeAddExpense(args json.RawMessage) (AddExpense, error) {
	var raw struct {
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
		Date        string  `json:"date"`
	}
	if err := json.Unmarshal(args, &raw); err != nil {
		return AddExpense{}, err
	}

	add := AddExpense{
		Amount:      rupeesToMoney(raw.Amount),
		Category:    core.Other,
		Description: strings.TrimSpace(raw.Description),
		Date:        core.Today(),
	}
	if cat := core.Category(strings.TrimSpace(raw.Category)); cat.Known() {
		add.Category = cat
	}
	if d, err := core.ParseDate(raw.Date); err == nil {
		add.Date = d
	}
	return add, nil
}
