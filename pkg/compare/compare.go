package compare

import (
	"github.com/shopspring/decimal"

	"github.com/yurifrl/loanbook/pkg/models"
)

var cent = decimal.New(1, -2)

// Equal reports whether two loans describe the same debt: kind, principal,
// rate and due date must match exactly, while the amounts owed and paid may
// differ by at most one cent so that saved two-decimal records still match
// the loans they came from.
func Equal(a, b *models.Loan) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if !a.Principal().Equal(b.Principal()) || !a.InterestRate().Equal(b.InterestRate()) {
		return false
	}
	if a.DueDate() != b.DueDate() {
		return false
	}
	return within(a.AmountOwed(), b.AmountOwed()) && within(a.AmountPaid(), b.AmountPaid())
}

func within(x, y decimal.Decimal) bool {
	return x.Sub(y).Abs().LessThanOrEqual(cent)
}
