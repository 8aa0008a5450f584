package expense

import (
	"sort"
	"time"

	"spendsmart/internal/core"
)

// CategorySlice is one wedge of the category breakdown.
type CategorySlice struct {
	Category core.Category
	Color    string
	Total    core.Money
	Percent  float64
}

// DaySpend is one bar of the weekly trend: total spent on a single day.
type DaySpend struct {
	Day     string // short weekday name, "Mon"
	Date    core.Date
	Total   core.Money
	Percent float64 // relative to the busiest day of the week
}

// Summary aggregates the current view for the dashboard.
type Summary struct {
	Total      core.Money
	Count      int
	MonthTotal core.Money
	Categories []CategorySlice
	Week       []DaySpend // last seven days, oldest first
	WeekTotal  core.Money
	Recent     []core.Expense
}

// Summarize aggregates expenses into dashboard figures. recentN caps the
// recent list; expenses are expected newest first, as View returns them.
func Summarize(expenses []core.Expense, now time.Time, recentN int) Summary {
	s := Summary{Count: len(expenses)}

	totals := make(map[core.Category]int64)
	year, month := now.UTC().Year(), now.UTC().Month()
	for _, e := range expenses {
		s.Total.Cents += e.Amount.Cents
		totals[e.Category] += e.Amount.Cents
		if e.Date.Year() == year && e.Date.Month() == month {
			s.MonthTotal.Cents += e.Amount.Cents
		}
	}

	for cat, cents := range totals {
		slice := CategorySlice{
			Category: cat,
			Color:    cat.Color(),
			Total:    core.Money{Cents: cents},
		}
		if s.Total.Cents > 0 {
			slice.Percent = float64(cents) / float64(s.Total.Cents) * 100
		}
		s.Categories = append(s.Categories, slice)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		if s.Categories[i].Total.Cents != s.Categories[j].Total.Cents {
			return s.Categories[i].Total.Cents > s.Categories[j].Total.Cents
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})

	byDay := make(map[string]int64)
	for _, e := range expenses {
		byDay[e.Date.ISO()] += e.Amount.Cents
	}
	s.Week = make([]DaySpend, 0, 7)
	var busiest int64
	for i := 6; i >= 0; i-- {
		t := now.UTC().AddDate(0, 0, -i)
		d := core.NewDate(t.Year(), int(t.Month()), t.Day())
		cents := byDay[d.ISO()]
		if cents > busiest {
			busiest = cents
		}
		s.WeekTotal.Cents += cents
		s.Week = append(s.Week, DaySpend{
			Day:   d.Format("Mon"),
			Date:  d,
			Total: core.Money{Cents: cents},
		})
	}
	if busiest > 0 {
		for i := range s.Week {
			s.Week[i].Percent = float64(s.Week[i].Total.Cents) / float64(busiest) * 100
		}
	}

	if recentN > len(expenses) {
		recentN = len(expenses)
	}
	s.Recent = make([]core.Expense, recentN)
	copy(s.Recent, expenses[:recentN])

	return s
}
