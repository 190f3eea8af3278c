package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Snapshot is a read-only view of a loan, including the figures derived
// from today's date.
type Snapshot struct {
	Type                   string      `json:"type"`
	Name                   string      `json:"name"`
	Principal              string      `json:"principal"`
	InterestRate           string      `json:"interest_rate"`
	DateCreated            civil.Date  `json:"date_created"`
	DueDate                civil.Date  `json:"due_date"`
	AmountOwed             string      `json:"amount_owed"`
	AmountPaid             string      `json:"amount_paid"`
	RemainingOwed          string      `json:"remaining_owed"`
	AccruedInterest        string      `json:"accrued_interest"`
	DateLastPaid           *civil.Date `json:"date_last_paid,omitempty"`
	IsPaid                 bool        `json:"is_paid"`
	MonthlyInstalment      string      `json:"monthly_instalment"`
	MonthsUntilDueDate     int         `json:"months_until_due_date"`
	PaymentDifference      string      `json:"payment_difference"`
	MissedInstalmentMonths int         `json:"missed_instalment_months"`
	IsOverDue              bool        `json:"is_overdue"`
}

// Snapshot reads every field under one lock, so the derived figures agree
// with each other.
func (l *Loan) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	today := l.clock.Today()
	s := Snapshot{
		Type:                   l.kind.String(),
		Name:                   l.kind.Name(),
		Principal:              money(l.principal),
		InterestRate:           money(l.interestRate),
		DateCreated:            l.dateCreated,
		DueDate:                l.dueDate,
		AmountOwed:             money(l.amountOwed),
		AmountPaid:             money(l.amountPaid),
		RemainingOwed:          money(l.remaining()),
		AccruedInterest:        money(l.AccruedInterest()),
		IsPaid:                 l.isPaid,
		MonthlyInstalment:      money(l.instalment(today)),
		MonthsUntilDueDate:     MonthsBetween(today, l.dueDate),
		PaymentDifference:      money(l.difference(today)),
		MissedInstalmentMonths: l.missed(today),
	}
	s.IsOverDue = s.MissedInstalmentMonths > 0
	if l.dateLastPaid != nil {
		d := *l.dateLastPaid
		s.DateLastPaid = &d
	}
	return s
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
