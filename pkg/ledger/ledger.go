package ledger

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/loanbook/pkg/models"
	"github.com/yurifrl/loanbook/pkg/predicate"
)

// ErrIndex is returned when a loan position is outside the ledger.
var ErrIndex = errors.New("loan index out of range")

// NoOverdue is reported by MostOverdueMonths for an empty ledger.
const NoOverdue = math.MinInt

type EventKind int

const (
	Added EventKind = iota
	Removed
	Paid
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Paid:
		return "paid"
	}
	return "unknown"
}

// Event describes a completed mutation. Index is the 0-based position the
// mutation applied to.
type Event struct {
	Kind  EventKind
	Index int
}

// Ledger is the ordered list of loans owned by one contact. Insertion order
// is display order.
type Ledger struct {
	mu        sync.Mutex
	loans     []*models.Loan
	observers []observer
	nextID    int
}

type observer struct {
	id int
	fn func(Event)
}

func New(loans ...*models.Loan) *Ledger {
	return &Ledger{loans: loans}
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loans)
}

// Loans returns a copy of the loan list.
func (l *Ledger) Loans() []*models.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.Loan, len(l.loans))
	copy(out, l.loans)
	return out
}

func (l *Ledger) Get(index int) (*models.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(index); err != nil {
		return nil, err
	}
	return l.loans[index], nil
}

func (l *Ledger) Add(loan *models.Loan) {
	l.mu.Lock()
	l.loans = append(l.loans, loan)
	index := len(l.loans) - 1
	l.mu.Unlock()

	l.notify(Event{Kind: Added, Index: index})
}

func (l *Ledger) Remove(index int) error {
	l.mu.Lock()
	if err := l.check(index); err != nil {
		l.mu.Unlock()
		return err
	}
	l.loans = append(l.loans[:index], l.loans[index+1:]...)
	l.mu.Unlock()

	l.notify(Event{Kind: Removed, Index: index})
	return nil
}

// Pay applies a payment to the loan at index. Paid loans stay in the ledger.
func (l *Ledger) Pay(index int, amount decimal.Decimal) error {
	l.mu.Lock()
	if err := l.check(index); err != nil {
		l.mu.Unlock()
		return err
	}
	if err := l.loans[index].Pay(amount); err != nil {
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	l.notify(Event{Kind: Paid, Index: index})
	return nil
}

// PayMonths pays the given number of monthly instalments, capped at the
// remaining balance.
func (l *Ledger) PayMonths(index, months int) (decimal.Decimal, error) {
	if months <= 0 {
		return decimal.Zero, fmt.Errorf("%w: months must be positive, got %d", models.ErrPayment, months)
	}

	l.mu.Lock()
	if err := l.check(index); err != nil {
		l.mu.Unlock()
		return decimal.Zero, err
	}
	loan := l.loans[index]
	amount := loan.MonthlyInstalmentAmount().Mul(decimal.NewFromInt(int64(months))).Round(2)
	if remaining := loan.RemainingOwed(); amount.GreaterThan(remaining) {
		amount = remaining
	}
	if err := loan.Pay(amount); err != nil {
		l.mu.Unlock()
		return decimal.Zero, err
	}
	l.mu.Unlock()

	l.notify(Event{Kind: Paid, Index: index})
	return amount, nil
}

// FilterByPaidStatus returns the loans whose paid flag equals paid, in ledger order.
func (l *Ledger) FilterByPaidStatus(paid bool) []*models.Loan {
	return l.Filter(func(loan *models.Loan) bool { return loan.IsPaid() == paid })
}

func (l *Ledger) Filter(fn predicate.Func) []*models.Loan {
	var out []*models.Loan
	for _, e := range l.Indexed(fn) {
		out = append(out, e.Loan)
	}
	return out
}

// Entry pairs a loan with its 0-based ledger position.
type Entry struct {
	Index int
	Loan  *models.Loan
}

// Indexed is Filter keeping the ledger positions, so callers can address
// matches in later commands. fn runs under the ledger lock and must not call
// back into the ledger.
func (l *Ledger) Indexed(fn predicate.Func) []Entry {
	if fn == nil {
		fn = predicate.Always
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for i, loan := range l.loans {
		if fn(loan) {
			out = append(out, Entry{Index: i, Loan: loan})
		}
	}
	return out
}

func (l *Ledger) TotalOwed() decimal.Decimal {
	total := decimal.Zero
	for _, loan := range l.Loans() {
		total = total.Add(loan.AmountOwed())
	}
	return total
}

func (l *Ledger) TotalRemaining() decimal.Decimal {
	total := decimal.Zero
	for _, loan := range l.Loans() {
		total = total.Add(loan.RemainingOwed())
	}
	return total
}

// MostOverdueMonths is the highest missed instalment count across the
// ledger. ok is false for an empty ledger and months is NoOverdue.
func (l *Ledger) MostOverdueMonths() (months int, ok bool) {
	loans := l.Loans()
	if len(loans) == 0 {
		return NoOverdue, false
	}
	months = NoOverdue
	for _, loan := range loans {
		if m := loan.MissedInstalmentMonths(); m > months {
			months = m
		}
	}
	return months, true
}

// Subscribe registers fn for change notifications. Observers are called
// synchronously after the mutation, outside the ledger lock.
func (l *Ledger) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.observers = append(l.observers, observer{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, o := range l.observers {
			if o.id == id {
				l.observers = append(l.observers[:i:i], l.observers[i+1:]...)
				return
			}
		}
	}
}

func (l *Ledger) notify(e Event) {
	l.mu.Lock()
	observers := l.observers
	l.mu.Unlock()

	for _, o := range observers {
		o.fn(e)
	}
}

func (l *Ledger) check(index int) error {
	if index < 0 || index >= len(l.loans) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndex, index, len(l.loans))
	}
	return nil
}
