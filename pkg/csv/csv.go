package csv

import (
	"bytes"
	stdcsv "encoding/csv"
	"strconv"

	"github.com/yurifrl/loanbook/pkg/ledger"
)

type Record interface {
	Fields() []string
}

type FilterFunc[T Record] func(T) bool

// Create writes header and every record accepted by filter. A nil filter
// accepts everything.
func Create[T Record](header []string, records []T, filter FilterFunc[T]) []byte {
	var buf bytes.Buffer
	w := stdcsv.NewWriter(&buf)
	_ = w.Write(header)
	for _, r := range records {
		if filter == nil || filter(r) {
			_ = w.Write(r.Fields())
		}
	}
	w.Flush()
	return buf.Bytes()
}

// LoanHeader names the columns produced by LoanRow.
var LoanHeader = []string{
	"Index", "Type", "Principal", "InterestRate", "DateCreated", "DueDate",
	"AmountOwed", "AmountPaid", "Remaining", "DateLastPaid", "Paid", "MissedMonths",
}

// LoanRow is a ledger entry exported with its 1-based position.
type LoanRow ledger.Entry

func (r LoanRow) Fields() []string {
	l := r.Loan
	lastPaid := ""
	if d, ok := l.DateLastPaid(); ok {
		lastPaid = d.String()
	}
	return []string{
		strconv.Itoa(r.Index + 1),
		l.Kind().String(),
		l.Principal().StringFixed(2),
		l.InterestRate().StringFixed(2),
		l.DateCreated().String(),
		l.DueDate().String(),
		l.AmountOwed().StringFixed(2),
		l.AmountPaid().StringFixed(2),
		l.RemainingOwed().StringFixed(2),
		lastPaid,
		strconv.FormatBool(l.IsPaid()),
		strconv.Itoa(l.MissedInstalmentMonths()),
	}
}

func LoanRows(entries []ledger.Entry) []LoanRow {
	rows := make([]LoanRow, len(entries))
	for i, e := range entries {
		rows[i] = LoanRow(e)
	}
	return rows
}
