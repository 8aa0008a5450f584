package http

import (
	"spendsmart/internal/core"
	"spendsmart/internal/expense"
)

// View models handed to the templates. Money and dates are preformatted so
// the templates stay logic-free.

type pageData struct {
	Identity  *core.Identity
	AIEnabled bool
}

type expenseView struct {
	ID          string
	Description string
	Amount      string // ₹ display form
	Plain       string // decimal form for input prefill
	Category    core.Category
	Color       string
	Date        string // human form
	DateISO     string // form value
}

type categoryView struct {
	Name    core.Category
	Color   string
	Total   string
	Percent float64
}

type weekDayView struct {
	Day     string
	Total   string
	Percent float64
}

type dashboardData struct {
	pageData
	Total      string
	MonthTotal string
	Count      int
	Categories []categoryView
	Week       []weekDayView
	WeekActive bool // false when the last seven days saw no spending
	Recent     []expenseView
}

type expensesData struct {
	pageData
	Expenses []expenseView
	Filter   core.Category
	Query    string
	Today    string
	Flash    string
}

type formData struct {
	pageData
	Expense expenseView
	Error   string
}

type assistantData struct {
	pageData
}

type chatTurnData struct {
	UserText  string
	ReplyText string
	Added     *expenseView
	HistoryJS string // serialized conversation carried in the form
}

func toExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.Display(),
		Plain:       e.Amount.Decimal(),
		Category:    e.Category,
		Color:       e.Category.Color(),
		Date:        e.Date.Display(),
		DateISO:     e.Date.ISO(),
	}
}

func toExpenseViews(list []core.Expense) []expenseView {
	out := make([]expenseView, len(list))
	for i, e := range list {
		out[i] = toExpenseView(e)
	}
	return out
}

func toDashboardData(id *core.Identity, aiEnabled bool, s expense.Summary) dashboardData {
	d := dashboardData{
		pageData:   pageData{Identity: id, AIEnabled: aiEnabled},
		Total:      s.Total.Display(),
		MonthTotal: s.MonthTotal.Display(),
		Count:      s.Count,
		Recent:     toExpenseViews(s.Recent),
	}
	for _, c := range s.Categories {
		d.Categories = append(d.Categories, categoryView{
			Name:    c.Category,
			Color:   c.Color,
			Total:   c.Total.Display(),
			Percent: c.Percent,
		})
	}
	d.WeekActive = s.WeekTotal.Cents > 0
	for _, day := range s.Week {
		d.Week = append(d.Week, weekDayView{
			Day:     day.Day,
			Total:   day.Total.Display(),
			Percent: day.Percent,
		})
	}
	return d
}
