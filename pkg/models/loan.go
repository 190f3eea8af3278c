package models

import (
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/loanbook/pkg/clock"
)

// Loan is a debt instrument owed by a contact. Principal, rate, dates and
// the amount owed never change after construction; Pay is the only mutator.
// Money values are held in whole cents, so a saved loan reloads unchanged.
// A Loan is safe for concurrent use.
type Loan struct {
	mu sync.RWMutex

	kind         Kind
	principal    decimal.Decimal
	interestRate decimal.Decimal
	dateCreated  civil.Date
	dueDate      civil.Date
	amountOwed   decimal.Decimal
	amountPaid   decimal.Decimal
	dateLastPaid *civil.Date
	isPaid       bool

	clock clock.Clock
}

// State carries the persisted fields needed to rebuild a loan.
type State struct {
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	AmountPaid   decimal.Decimal
	DueDate      civil.Date
	DateCreated  civil.Date
	DateLastPaid *civil.Date
}

// NewLoan validates command input and creates a loan dated today.
func NewLoan(kind Kind, principal, interestRate, dueDate string, clk clock.Clock) (*Loan, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(principal))
	if err != nil {
		return nil, fmt.Errorf("%w: principal %q is not a number", ErrValidation, principal)
	}
	r, err := decimal.NewFromString(strings.TrimSpace(interestRate))
	if err != nil {
		return nil, fmt.Errorf("%w: interest rate %q is not a number", ErrValidation, interestRate)
	}
	due, err := civil.ParseDate(strings.TrimSpace(dueDate))
	if err != nil {
		return nil, fmt.Errorf("%w: due date %q must be yyyy-mm-dd", ErrValidation, dueDate)
	}
	return RestoreLoan(kind, State{
		Principal:    p,
		InterestRate: r,
		DueDate:      due,
		DateCreated:  clk.Today(),
	}, clk)
}

// RestoreLoan rebuilds a loan from stored fields. The amount owed is
// recomputed from the accrual formula and the paid flag from the balance.
func RestoreLoan(kind Kind, s State, clk clock.Clock) (*Loan, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: unknown loan type %d", ErrValidation, kind)
	}
	if !s.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be positive", ErrValidation)
	}
	if s.Principal.GreaterThan(decimal.NewFromInt(MaxPrincipal)) {
		return nil, fmt.Errorf("%w: principal exceeds the maximum of %d", ErrValidation, MaxPrincipal)
	}
	if s.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate must not be negative", ErrValidation)
	}
	if s.InterestRate.GreaterThan(decimal.NewFromInt(MaxInterestRate)) {
		return nil, fmt.Errorf("%w: interest rate exceeds the maximum of %d%%", ErrValidation, MaxInterestRate)
	}
	if !s.DateCreated.IsValid() || !s.DueDate.IsValid() {
		return nil, fmt.Errorf("%w: invalid date", ErrValidation)
	}
	if !s.DueDate.After(s.DateCreated) {
		return nil, fmt.Errorf("%w: due date %s must be after %s", ErrValidation, s.DueDate, s.DateCreated)
	}
	if s.AmountPaid.IsNegative() {
		return nil, fmt.Errorf("%w: amount paid must not be negative", ErrValidation)
	}
	if !wholeCents(s.Principal) {
		return nil, fmt.Errorf("%w: principal %s has more than 2 decimal places", ErrValidation, s.Principal)
	}
	if !wholeCents(s.InterestRate) {
		return nil, fmt.Errorf("%w: interest rate %s has more than 2 decimal places", ErrValidation, s.InterestRate)
	}
	if !wholeCents(s.AmountPaid) {
		return nil, fmt.Errorf("%w: amount paid %s has more than 2 decimal places", ErrValidation, s.AmountPaid)
	}

	owed := accruals[kind](s.Principal, s.InterestRate, s.DateCreated, s.DueDate).Round(2)
	if s.AmountPaid.GreaterThan(owed) {
		return nil, fmt.Errorf("%w: amount paid %s exceeds amount owed %s", ErrValidation, s.AmountPaid.StringFixed(2), owed.StringFixed(2))
	}

	l := &Loan{
		kind:         kind,
		principal:    s.Principal,
		interestRate: s.InterestRate,
		dateCreated:  s.DateCreated,
		dueDate:      s.DueDate,
		amountOwed:   owed,
		amountPaid:   s.AmountPaid,
		clock:        clk,
	}
	if s.DateLastPaid != nil {
		d := *s.DateLastPaid
		l.dateLastPaid = &d
	}
	l.isPaid = l.RemainingOwed().IsZero()
	return l, nil
}

// wholeCents reports whether d has at most 2 significant decimal places.
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// Fields fixed at construction need no locking.
func (l *Loan) Kind() Kind { return l.kind }
func (l *Loan) Principal() decimal.Decimal { return l.principal }
func (l *Loan) InterestRate() decimal.Decimal { return l.interestRate }
func (l *Loan) DateCreated() civil.Date { return l.dateCreated }
func (l *Loan) DueDate() civil.Date { return l.dueDate }
func (l *Loan) AmountOwed() decimal.Decimal { return l.amountOwed }

// AccruedInterest is the interest part of the amount owed.
func (l *Loan) AccruedInterest() decimal.Decimal { return l.amountOwed.Sub(l.principal) }

func (l *Loan) AmountPaid() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.amountPaid
}

// IsPaid is true once the remaining balance reached zero. It never reverts.
func (l *Loan) IsPaid() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isPaid
}

// DateLastPaid returns the date of the latest payment, if any.
func (l *Loan) DateLastPaid() (civil.Date, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.dateLastPaid == nil {
		return civil.Date{}, false
	}
	return *l.dateLastPaid, true
}

// RemainingOwed is the outstanding balance rounded to cents, never negative.
func (l *Loan) RemainingOwed() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.remaining()
}

func (l *Loan) remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, l.amountOwed.Sub(l.amountPaid)).Round(2)
}

// Pay records a payment in whole cents. Nothing changes when the payment is
// rejected.
func (l *Loan) Pay(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", ErrPayment, amount.String())
	}
	if !wholeCents(amount) {
		return fmt.Errorf("%w: amount %s has more than 2 decimal places", ErrPayment, amount.String())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	remaining := l.remaining()
	if amount.GreaterThan(remaining) {
		return fmt.Errorf("%w: amount %s exceeds remaining %s", ErrPayment, amount.StringFixed(2), remaining.StringFixed(2))
	}

	paid := l.amountPaid.Add(amount)
	if paid.GreaterThan(l.amountOwed) {
		paid = l.amountOwed
	}
	today := l.clock.Today()
	l.amountPaid = paid
	l.dateLastPaid = &today
	if l.remaining().IsZero() {
		l.isPaid = true
	}
	return nil
}

// MonthsUntilDueDate is negative once the due date has passed.
func (l *Loan) MonthsUntilDueDate() int {
	return MonthsBetween(l.clock.Today(), l.dueDate)
}

// MonthlyInstalmentAmount spreads the remaining balance over the months
// left, rounded to cents.
func (l *Loan) MonthlyInstalmentAmount() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.instalment(l.clock.Today())
}

func (l *Loan) instalment(today civil.Date) decimal.Decimal {
	months := MonthsBetween(today, l.dueDate)
	if months < 0 {
		months = -months
	}
	if months < 1 {
		months = 1
	}
	return l.remaining().Div(decimal.NewFromInt(int64(months))).Round(2)
}

// PaymentDifference compares what an ideal monthly schedule would have
// collected by today with what was actually paid. Positive means behind.
func (l *Loan) PaymentDifference() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.difference(l.clock.Today())
}

func (l *Loan) difference(today civil.Date) decimal.Decimal {
	expected := decimal.Zero
	if !today.Before(l.dueDate) {
		expected = l.amountOwed
	} else {
		instalment := l.instalment(today)
		for k := 1; ; k++ {
			if AddMonths(l.dateCreated, k).After(today) {
				break
			}
			expected = expected.Add(instalment)
			if expected.GreaterThanOrEqual(l.amountOwed) {
				expected = l.amountOwed
				break
			}
		}
	}
	return expected.Sub(l.amountPaid).Round(2)
}

// MissedInstalmentMonths estimates how many instalments are outstanding, rounded up.
func (l *Loan) MissedInstalmentMonths() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.missed(l.clock.Today())
}

func (l *Loan) missed(today civil.Date) int {
	diff := l.difference(today)
	instalment := l.instalment(today)
	if !diff.IsPositive() || !instalment.IsPositive() {
		return 0
	}
	return int(diff.Div(instalment).Round(8).Ceil().IntPart())
}

func (l *Loan) IsOverDue() bool {
	return l.MissedInstalmentMonths() > 0
}
