package core

import (
	"math"
	"sort"
	"time"
)

// reminderWindowDays is how far ahead a card payment due date is surfaced.
const reminderWindowDays = 5

type (
	// CategoryAmount is an amount aggregated under a category name.
	CategoryAmount struct {
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	// SplitTotals is the 50-20-30 view for one month. Debt and CardPayment
	// spending is excluded here but present in the general aggregate.
	SplitTotals struct {
		Needs   Money `json:"needs"`
		Wants   Money `json:"wants"`
		Savings Money `json:"savings"`
	}

	// YearMonth labels one calendar month in a series.
	YearMonth struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}

	// EvolutionSeries is the per-category spend over every month present in
	// the data. Values slices are aligned with Months; absent months are
	// zero-filled.
	EvolutionSeries struct {
		Months     []YearMonth        `json:"months"`
		Categories []string           `json:"categories"`
		Values     map[string][]Money `json:"values"`
	}

	// ForecastPoint is one month of the flat cash-flow projection.
	ForecastPoint struct {
		Year     int   `json:"year"`
		Month    int   `json:"month"`
		Cashflow Money `json:"cashflow"`
	}

	// PaymentReminder flags a card whose payment is due within the window.
	PaymentReminder struct {
		Card    string `json:"card"`
		DueDate Date   `json:"due_date"`
		DaysDue int    `json:"days_due"`
	}

	// BalanceRow is one line of the balances table. Card rows carry the
	// negated outstanding balance and the credit limit.
	BalanceRow struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Balance Money  `json:"balance"`
		Limit   *Money `json:"limit,omitempty"`
	}

	// HistoryEntry is one movement in the combined income+expense history.
	HistoryEntry struct {
		Date        Date   `json:"date"`
		Kind        string `json:"kind"` // "income" or "expense"
		Category    string `json:"category"`
		Subcategory string `json:"subcat"`
		Source      string `json:"source"`
		Amount      Money  `json:"amount"` // negative for expenses
	}
)

// Split returns the Needs/Wants/Savings expense totals for (year, month).
func (b *Budget) Split(year, month int) SplitTotals {
	var s SplitTotals
	for _, t := range b.Expenses {
		if !t.Date.InMonth(year, month) {
			continue
		}
		switch ExpenseCategory(t.Category) {
		case Needs:
			s.Needs.Cents += t.Amount.Cents
		case Wants:
			s.Wants.Cents += t.Amount.Cents
		case Savings:
			s.Savings.Cents += t.Amount.Cents
		}
	}
	return s
}

// CategorySpend groups the month's expenses by category, every category
// included, sorted by name for stable output.
func (b *Budget) CategorySpend(year, month int) []CategoryAmount {
	sums := make(map[string]int64)
	for _, t := range b.Expenses {
		if t.Date.InMonth(year, month) {
			sums[t.Category] += t.Amount.Cents
		}
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MonthlyEvolution builds the expense trend series: every (year-month,
// category) total across all months present in the data, zero-filled where a
// category has no spend in a month.
func (b *Budget) MonthlyEvolution() EvolutionSeries {
	type key struct {
		ym  YearMonth
		cat string
	}
	sums := make(map[key]int64)
	monthSet := make(map[YearMonth]struct{})
	catSet := make(map[string]struct{})
	for _, t := range b.Expenses {
		ym := YearMonth{Year: t.Date.Year(), Month: t.Date.Month()}
		sums[key{ym, t.Category}] += t.Amount.Cents
		monthSet[ym] = struct{}{}
		catSet[t.Category] = struct{}{}
	}

	series := EvolutionSeries{Values: make(map[string][]Money)}
	for ym := range monthSet {
		series.Months = append(series.Months, ym)
	}
	sort.Slice(series.Months, func(i, j int) bool {
		if series.Months[i].Year != series.Months[j].Year {
			return series.Months[i].Year < series.Months[j].Year
		}
		return series.Months[i].Month < series.Months[j].Month
	})
	for cat := range catSet {
		series.Categories = append(series.Categories, cat)
	}
	sort.Strings(series.Categories)

	for _, cat := range series.Categories {
		values := make([]Money, len(series.Months))
		for i, ym := range series.Months {
			values[i] = Money{Cents: sums[key{ym, cat}]}
		}
		series.Values[cat] = values
	}
	return series
}

// Forecast projects twelve months of cash-flow starting at the current
// month. Every point carries the same value: the average cash-flow over
// calendar months 1-12 of the current year. The calendar-year average (not a
// trailing window) is deliberate policy carried over from the original
// tracker.
func (b *Budget) Forecast(now time.Time) []ForecastPoint {
	var total int64
	for m := 1; m <= 12; m++ {
		total += b.Cashflow(now.Year(), m).Cents
	}
	avg := int64(math.Round(float64(total) / 12))

	points := make([]ForecastPoint, 12)
	y, m := now.Year(), int(now.Month())
	for i := 0; i < 12; i++ {
		points[i] = ForecastPoint{Year: y, Month: m, Cashflow: Money{Cents: avg}}
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return points
}

// PaymentReminders surfaces cards whose payment due date in the current
// month falls within the next five days. A pay day past the end of the
// month produces no reminder instead of an invalid date.
func (b *Budget) PaymentReminders(now time.Time) []PaymentReminder {
	today := DateOf(now)
	var out []PaymentReminder
	for _, c := range b.Cards {
		if c.PayDay < 1 || c.PayDay > daysInMonth(today.Year(), today.Month()) {
			continue
		}
		due := NewDate(today.Year(), today.Month(), c.PayDay)
		days := int(due.Sub(today.Time).Hours() / 24)
		if days >= 0 && days <= reminderWindowDays {
			out = append(out, PaymentReminder{Card: c.Name, DueDate: due, DaysDue: days})
		}
	}
	return out
}

// PassiveIncome estimates one month of interest across all accounts.
func (b *Budget) PassiveIncome() Money {
	var total float64
	for _, a := range b.Accounts {
		total += float64(a.Balance.Cents) * a.Rate / 100 / 12
	}
	return Money{Cents: int64(math.Round(total))}
}

// Balances renders the balances table: accounts as-is, then cards with the
// outstanding balance negated and the credit limit attached.
func (b *Budget) Balances() []BalanceRow {
	rows := make([]BalanceRow, 0, len(b.Accounts)+len(b.Cards))
	for _, a := range b.Accounts {
		rows = append(rows, BalanceRow{Name: a.Name, Type: string(a.Type), Balance: a.Balance})
	}
	for _, c := range b.Cards {
		limit := c.Limit
		rows = append(rows, BalanceRow{
			Name:    c.Name,
			Type:    "Credit",
			Balance: Money{Cents: -c.Balance.Cents},
			Limit:   &limit,
		})
	}
	return rows
}

// History merges incomes and expenses into one list sorted by date
// descending, with expense amounts negated.
func (b *Budget) History() []HistoryEntry {
	out := make([]HistoryEntry, 0, len(b.Incomes)+len(b.Expenses))
	for _, t := range b.Incomes {
		out = append(out, HistoryEntry{
			Date: t.Date, Kind: "income", Category: t.Category,
			Subcategory: t.Subcategory, Source: t.Source, Amount: t.Amount,
		})
	}
	for _, t := range b.Expenses {
		out = append(out, HistoryEntry{
			Date: t.Date, Kind: "expense", Category: t.Category,
			Subcategory: t.Subcategory, Source: t.Source,
			Amount: Money{Cents: -t.Amount.Cents},
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
