package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/ledger"
	"github.com/yurifrl/loanbook/pkg/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	onTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	cardStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// Card renders one loan. index is the 1-based position shown to users.
func Card(index int, l *models.Loan) string {
	header := titleStyle.Render(fmt.Sprintf("%d. Loan Type: %s", index, l.Kind().Name()))
	badge := onTimeStyle.Render("Not Overdue")
	if l.IsOverDue() {
		badge = overdueStyle.Render("Overdue")
	}
	if l.IsPaid() {
		badge = mutedStyle.Render("Paid")
	}

	lastPaid := "Not Paid Yet"
	if d, ok := l.DateLastPaid(); ok {
		lastPaid = d.String()
	}

	lines := []string{
		header + "  " + badge,
		fmt.Sprintf("Principal: $%s", l.Principal().StringFixed(2)),
		fmt.Sprintf("Interest: %s%%", l.InterestRate().StringFixed(2)),
		fmt.Sprintf("Date Created: %s", l.DateCreated()),
		fmt.Sprintf("Due Date: %s", l.DueDate()),
		fmt.Sprintf("Remaining Owed: $%s", l.RemainingOwed().StringFixed(2)),
		fmt.Sprintf("Total Loan Cost: $%s", l.AmountOwed().StringFixed(2)),
		fmt.Sprintf("Monthly Instalment: $%s", l.MonthlyInstalmentAmount().StringFixed(2)),
		fmt.Sprintf("Total Interest: $%s", l.AccruedInterest().StringFixed(2)),
		fmt.Sprintf("Last Paid: %s", lastPaid),
		fmt.Sprintf("Amount Paid: $%s", l.AmountPaid().StringFixed(2)),
		"Past instalments: " + PastInstalments(l.PaymentDifference()),
		DueDateStatus(l.MonthsUntilDueDate()),
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// PastInstalments describes a payment difference from the borrower's side.
func PastInstalments(diff decimal.Decimal) string {
	switch diff.Sign() {
	case 1:
		return "Missed $" + diff.StringFixed(2)
	case -1:
		return "Overpaid $" + diff.Neg().StringFixed(2)
	}
	return "All paid"
}

func DueDateStatus(months int) string {
	if months >= 0 {
		return fmt.Sprintf("Months until due date: %d", months)
	}
	return fmt.Sprintf("Months overdue: %d", -months)
}

// Loans renders a card per entry, keeping ledger positions as labels.
func Loans(w io.Writer, entries []ledger.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("No loans"))
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, Card(e.Index+1, e.Loan)); err != nil {
			return err
		}
	}
	return nil
}

// Contacts renders one summary line per contact.
func Contacts(w io.Writer, contacts []*book.Contact) error {
	if len(contacts) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("No contacts"))
		return err
	}
	for i, c := range contacts {
		line := fmt.Sprintf("%d. %-24s loans: %-3d remaining: $%s", i+1, c.Name, c.Ledger.Len(), c.Ledger.TotalRemaining().StringFixed(2))
		if months, ok := c.Ledger.MostOverdueMonths(); ok && months > 0 {
			line += "  " + overdueStyle.Render(fmt.Sprintf("%d month(s) overdue", months))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
