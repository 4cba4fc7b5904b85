package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
)

type (
	// Stats are the dashboard counters.
	Stats struct {
		TotalStudents       int             `json:"total_students"`
		TotalCollected      decimal.Decimal `json:"total_collected"`
		UnpaidInvoicesCount int             `json:"unpaid_invoices_count"`
		UnpaidAmount        decimal.Decimal `json:"unpaid_amount"`
	}

	// Collection is the total of the paid invoices of one billing period.
	Collection struct {
		Period    invoice.Period  `json:"period"`
		MonthName string          `json:"month"`
		Amount    decimal.Decimal `json:"amount"`
		Invoices  int             `json:"invoices"`
	}

	// MethodTotal is the total amount paid with one payment method.
	MethodTotal struct {
		Method string          `json:"method"`
		Name   string          `json:"name"`
		Value  decimal.Decimal `json:"value"`
	}

	Dashboard struct {
		Stats          Stats             `json:"stats"`
		RecentPayments []payment.Payment `json:"recent_payments"`
	}
)

// ComputeStats derives the dashboard counters. The amount collected is the sum of the amounts of
// paid invoices, not of the payments made.
func ComputeStats(totalStudents int, invoices []invoice.Invoice) Stats {
	stats := Stats{
		TotalStudents:  totalStudents,
		TotalCollected: decimal.Zero,
		UnpaidAmount:   decimal.Zero,
	}
	for _, inv := range invoices {
		switch inv.Status {
		case invoice.StatusPaid:
			stats.TotalCollected = stats.TotalCollected.Add(inv.Amount)
		case invoice.StatusUnpaid:
			stats.UnpaidInvoicesCount++
			stats.UnpaidAmount = stats.UnpaidAmount.Add(inv.Amount)
		}
	}
	return stats
}

// MonthlyCollections groups the paid invoices by billing period, oldest first.
func MonthlyCollections(invoices []invoice.Invoice) []Collection {
	byPeriod := make(map[invoice.Period]*Collection)
	for _, inv := range invoices {
		if !inv.IsPaid() {
			continue
		}
		period := inv.Period
		if period.IsZero() {
			if p, err := invoice.ParsePeriod(inv.MonthName); err == nil {
				period = p
			}
		}
		c, ok := byPeriod[period]
		if !ok {
			c = &Collection{Period: period, MonthName: period.MonthName(), Amount: decimal.Zero}
			byPeriod[period] = c
		}
		c.Amount = c.Amount.Add(inv.Amount)
		c.Invoices++
	}

	collections := make([]Collection, 0, len(byPeriod))
	for _, c := range byPeriod {
		collections = append(collections, *c)
	}
	sort.Slice(collections, func(i, j int) bool { return collections[i].Period.Before(collections[j].Period) })
	return collections
}

// PaymentMethodTotals sums the amounts paid per payment method.
// Known methods come first, in their usual order.
func PaymentMethodTotals(payments []payment.Payment) []MethodTotal {
	byMethod := make(map[string]decimal.Decimal)
	for _, p := range payments {
		total, ok := byMethod[p.Method]
		if !ok {
			total = decimal.Zero
		}
		byMethod[p.Method] = total.Add(p.AmountPaid)
	}

	rank := make(map[string]int, len(payment.Methods))
	for i, m := range payment.Methods {
		rank[m] = i
	}
	methods := make([]string, 0, len(byMethod))
	for m := range byMethod {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool {
		ri, iKnown := rank[methods[i]]
		rj, jKnown := rank[methods[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return methods[i] < methods[j]
		}
	})

	totals := make([]MethodTotal, 0, len(methods))
	for _, m := range methods {
		totals = append(totals, MethodTotal{Method: m, Name: capitalize(m), Value: byMethod[m]})
	}
	return totals
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
