package book

import (
	"fmt"
	"strings"
)

type SortBy string

const (
	ByOverdue SortBy = "overdue"
	ByAmount  SortBy = "amount"
	ByName    SortBy = "name"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

var comparators = map[SortBy]func(a, b *Contact) bool{
	// Empty ledgers report the lowest possible value and sort first ascending.
	ByOverdue: func(a, b *Contact) bool {
		am, _ := a.Ledger.MostOverdueMonths()
		bm, _ := b.Ledger.MostOverdueMonths()
		return am < bm
	},
	ByAmount: func(a, b *Contact) bool {
		return a.Ledger.TotalRemaining().LessThan(b.Ledger.TotalRemaining())
	},
	ByName: func(a, b *Contact) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	},
}

// ParseSort reads the sort key and direction. Empty values default to
// amount, descending.
func ParseSort(by, order string) (SortBy, Order, error) {
	s := SortBy(strings.ToLower(strings.TrimSpace(by)))
	if s == "" {
		s = ByAmount
	}
	if _, ok := comparators[s]; !ok {
		return "", "", fmt.Errorf("%w: unknown key %q, expected overdue, amount or name", ErrInvalidSort, by)
	}

	o := Order(strings.ToLower(strings.TrimSpace(order)))
	switch o {
	case "":
		o = Desc
	case Asc, Desc:
	default:
		return "", "", fmt.Errorf("%w: unknown order %q, expected asc or desc", ErrInvalidSort, order)
	}
	return s, o, nil
}
