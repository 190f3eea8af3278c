package models

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Kind discriminates the interest accrual variant of a loan.
type Kind int

const (
	Simple Kind = iota
	Compound
)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
	monthsPerYr = decimal.NewFromInt(12)
)

// accrualFunc returns the total payable at maturity, before rounding.
type accrualFunc func(principal, rate decimal.Decimal, created, due civil.Date) decimal.Decimal

var accruals = map[Kind]accrualFunc{
	Simple:   simpleAccrual,
	Compound: compoundAccrual,
}

// simpleAccrual charges rate% per 365 days of term.
func simpleAccrual(principal, rate decimal.Decimal, created, due civil.Date) decimal.Decimal {
	termDays := decimal.NewFromInt(int64(due.DaysSince(created)))
	factor := rate.Div(hundred).Mul(termDays).Div(daysPerYear)
	return principal.Mul(decimal.NewFromInt(1).Add(factor))
}

// compoundAccrual compounds monthly over at least one month.
func compoundAccrual(principal, rate decimal.Decimal, created, due civil.Date) decimal.Decimal {
	termMonths := MonthsBetween(created, due)
	if termMonths < 1 {
		termMonths = 1
	}
	base := decimal.NewFromInt(1).Add(rate.Div(hundred).Div(monthsPerYr))
	factor := decimal.NewFromInt(1)
	for i := 0; i < termMonths; i++ {
		factor = factor.Mul(base).Round(20)
	}
	return principal.Mul(factor)
}

// ParseKind accepts the short command letters, the full names and the persisted tags.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "simple":
		return Simple, nil
	case "c", "compound":
		return Compound, nil
	default:
		return 0, fmt.Errorf("%w: loan type must be s or c, got %q", ErrValidation, s)
	}
}

// KindFromTag maps a persisted tag back to its kind.
func KindFromTag(tag string) (Kind, bool) {
	switch tag {
	case "S":
		return Simple, true
	case "C":
		return Compound, true
	}
	return 0, false
}

// Tag is the single letter written by the codec.
func (k Kind) Tag() string {
	if k == Compound {
		return "C"
	}
	return "S"
}

func (k Kind) String() string {
	if k == Compound {
		return "compound"
	}
	return "simple"
}

// Name is the human readable label used in reports.
func (k Kind) Name() string {
	if k == Compound {
		return "Compound Interest Loan"
	}
	return "Simple Interest Loan"
}

func (k Kind) valid() bool {
	_, ok := accruals[k]
	return ok
}
