package main

import (
	"fmt"

	"github.com/spf13/pflag"
)

// filters collects loan filter flags. Each set flag becomes one condition;
// raw conditions from --filter are appended as given.
type filters struct {
	minAmount string
	maxAmount string
	dueAfter  string
	dueBefore string
	loanType  string
	paid      string
	raw       []string
}

func (f *filters) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.minAmount, "min", "", "Remaining owed at least this amount")
	fs.StringVar(&f.maxAmount, "max", "", "Remaining owed below this amount")
	fs.StringVar(&f.dueAfter, "due-from", "", "Due on or after this date (yyyy-mm-dd)")
	fs.StringVar(&f.dueBefore, "due-before", "", "Due before this date (yyyy-mm-dd)")
	fs.StringVar(&f.loanType, "type", "", "Loan type: simple or compound")
	fs.StringVar(&f.paid, "paid", "", "Paid status: true or false")
	fs.StringArrayVarP(&f.raw, "filter", "f", nil, `Filter condition, e.g. "amount < 500" (repeatable)`)
}

func (f *filters) conditions() []string {
	var out []string
	if f.minAmount != "" {
		out = append(out, fmt.Sprintf("amount >= %s", f.minAmount))
	}
	if f.maxAmount != "" {
		out = append(out, fmt.Sprintf("amount < %s", f.maxAmount))
	}
	if f.dueAfter != "" {
		out = append(out, fmt.Sprintf("duedate >= %s", f.dueAfter))
	}
	if f.dueBefore != "" {
		out = append(out, fmt.Sprintf("duedate < %s", f.dueBefore))
	}
	if f.loanType != "" {
		out = append(out, fmt.Sprintf("loantype %s", f.loanType))
	}
	if f.paid != "" {
		out = append(out, fmt.Sprintf("ispaid %s", f.paid))
	}
	return append(out, f.raw...)
}
