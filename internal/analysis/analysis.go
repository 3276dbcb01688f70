// Package analysis reduces a full bill list into the series shown by the
// analysis view and the header total of the bills view.
//
// Every function is pure: the filter and the evaluation instant are passed in
// explicitly, so results depend only on the arguments.
package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billbook/internal/core"
)

// Filter selects bills by inclusive date range and product.
type Filter struct {
	Start   core.Date
	End     core.Date
	Product string
}

// DailyPoint is the aggregate of all matching bills on one date.
type DailyPoint struct {
	Date     core.Date `json:"date"`
	Total    float64   `json:"total"`
	Quantity int64     `json:"quantity"`
}

// MonthTotal is the aggregate of matching bills in one calendar month.
type MonthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// Result bundles both analysis views for one filter.
type Result struct {
	Filter     Filter
	Matched    int
	Daily      []DailyPoint
	Comparison []MonthTotal
}

// DefaultFilter spans the start of the previous month to the end of the
// current one, across all products.
func DefaultFilter(now time.Time) Filter {
	today := core.DateOf(now)
	return Filter{
		Start:   today.PreviousMonth(),
		End:     today.MonthEnd(),
		Product: core.AllProducts,
	}
}

// AllProducts reports whether the filter leaves products unrestricted.
func (f Filter) AllProducts() bool {
	p := strings.TrimSpace(f.Product)
	return p == "" || p == core.AllProducts
}

// Matches reports whether b falls inside the range and product selection.
// A zero Start or End leaves that side of the range open.
func (f Filter) Matches(b core.Bill) bool {
	if !f.Start.IsZero() && b.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && b.Date.After(f.End) {
		return false
	}
	if f.AllProducts() {
		return true
	}
	return b.Product == strings.TrimSpace(f.Product)
}

// Apply returns the bills matching f, in input order.
func (f Filter) Apply(bills []core.Bill) []core.Bill {
	out := make([]core.Bill, 0, len(bills))
	for _, b := range bills {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}

// DailySeries groups matching bills by date, ascending.
func DailySeries(bills []core.Bill, f Filter) []DailyPoint {
	type acc struct {
		date  core.Date
		total decimal.Decimal
		qty   int64
	}
	byDay := make(map[string]*acc)
	for _, b := range bills {
		if !f.Matches(b) {
			continue
		}
		key := b.Date.String()
		a, ok := byDay[key]
		if !ok {
			a = &acc{date: b.Date, total: decimal.Zero}
			byDay[key] = a
		}
		a.total = a.total.Add(decimal.NewFromFloat(b.TotalPrice))
		a.qty += b.Quantity
	}

	out := make([]DailyPoint, 0, len(byDay))
	for _, a := range byDay {
		out = append(out, DailyPoint{
			Date:     a.date,
			Total:    a.total.Round(2).InexactFloat64(),
			Quantity: a.qty,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// MonthComparison returns [previous, current] month totals over the bills
// matching f, where current is the calendar month of now. The months are
// fixed by the wall clock, not by the filter range.
func MonthComparison(bills []core.Bill, f Filter, now time.Time) []MonthTotal {
	current := core.DateOf(now).MonthStart()
	previous := current.PreviousMonth()

	prevSum, curSum := decimal.Zero, decimal.Zero
	for _, b := range bills {
		if !f.Matches(b) {
			continue
		}
		switch {
		case b.Date.SameMonth(current):
			curSum = curSum.Add(decimal.NewFromFloat(b.TotalPrice))
		case b.Date.SameMonth(previous):
			prevSum = prevSum.Add(decimal.NewFromFloat(b.TotalPrice))
		}
	}

	return []MonthTotal{
		{Month: previous.MonthLabel(), Total: prevSum.Round(2).InexactFloat64()},
		{Month: current.MonthLabel(), Total: curSum.Round(2).InexactFloat64()},
	}
}

// CurrentMonthTotal sums every bill dated in the calendar month of now,
// regardless of product.
func CurrentMonthTotal(bills []core.Bill, now time.Time) float64 {
	current := core.DateOf(now)
	sum := decimal.Zero
	for _, b := range bills {
		if b.Date.SameMonth(current) {
			sum = sum.Add(decimal.NewFromFloat(b.TotalPrice))
		}
	}
	return sum.Round(2).InexactFloat64()
}

// Analyze computes both analysis views for f.
func Analyze(bills []core.Bill, f Filter, now time.Time) Result {
	matched := f.Apply(bills)
	return Result{
		Filter:     f,
		Matched:    len(matched),
		Daily:      DailySeries(matched, f),
		Comparison: MonthComparison(matched, f, now),
	}
}
