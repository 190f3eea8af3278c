package codec

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/loanbook/pkg/clock"
	"github.com/yurifrl/loanbook/pkg/ledger"
	"github.com/yurifrl/loanbook/pkg/models"
)

const (
	fieldSep  = "/"
	recordSep = ","
	notPaid   = "NA"

	// Empty is the encoding of a ledger without loans.
	Empty = "EMPTY"

	fieldCount = 8
)

// Codec converts loans to and from the flat save format:
//
//	principal/amountPaid/interestRate/dueDate/dateLastPaid|NA/dateCreated/S|C/1|0
//
// Writes are strict. Reads are lenient: a record that does not parse is
// dropped and logged, never returned as an error.
type Codec struct {
	clock  clock.Clock
	logger *log.Logger
}

func New(clk clock.Clock, logger *log.Logger) *Codec {
	return &Codec{clock: clk, logger: logger}
}

func (c *Codec) Encode(l *models.Loan) string {
	lastPaid := notPaid
	if d, ok := l.DateLastPaid(); ok {
		lastPaid = d.String()
	}
	paid := "0"
	if l.IsPaid() {
		paid = "1"
	}
	return strings.Join([]string{
		l.Principal().StringFixed(2),
		l.AmountPaid().StringFixed(2),
		l.InterestRate().StringFixed(2),
		l.DueDate().String(),
		lastPaid,
		l.DateCreated().String(),
		l.Kind().Tag(),
		paid,
	}, fieldSep)
}

// Decode parses one record. The amount owed is recomputed from the accrual
// formula and the paid flag from the balance, so the stored flag is ignored.
func (c *Codec) Decode(record string) (*models.Loan, bool) {
	fields := strings.Split(strings.TrimSpace(record), fieldSep)
	if len(fields) != fieldCount {
		c.logger.Debug("skipping record with wrong field count", "record", record, "fields", len(fields))
		return nil, false
	}

	kind, ok := models.KindFromTag(fields[6])
	if !ok {
		c.logger.Debug("skipping record with unknown loan type", "record", record, "type", fields[6])
		return nil, false
	}

	var state models.State
	var err error
	if state.Principal, err = decimal.NewFromString(fields[0]); err != nil {
		c.logger.Debug("skipping record with bad principal", "record", record, "err", err)
		return nil, false
	}
	if state.AmountPaid, err = decimal.NewFromString(fields[1]); err != nil {
		c.logger.Debug("skipping record with bad amount paid", "record", record, "err", err)
		return nil, false
	}
	if state.InterestRate, err = decimal.NewFromString(fields[2]); err != nil {
		c.logger.Debug("skipping record with bad interest rate", "record", record, "err", err)
		return nil, false
	}
	if state.DueDate, err = civil.ParseDate(fields[3]); err != nil {
		c.logger.Debug("skipping record with bad due date", "record", record, "err", err)
		return nil, false
	}
	if fields[4] != notPaid {
		d, err := civil.ParseDate(fields[4])
		if err != nil {
			c.logger.Debug("skipping record with bad last paid date", "record", record, "err", err)
			return nil, false
		}
		state.DateLastPaid = &d
	}
	if state.DateCreated, err = civil.ParseDate(fields[5]); err != nil {
		c.logger.Debug("skipping record with bad creation date", "record", record, "err", err)
		return nil, false
	}

	loan, err := models.RestoreLoan(kind, state, c.clock)
	if err != nil {
		c.logger.Debug("skipping invalid record", "record", record, "err", err)
		return nil, false
	}

	if stored := fields[7] == "1"; stored != loan.IsPaid() {
		c.logger.Debug("stored paid flag disagrees with balance", "record", record, "stored", fields[7], "paid", loan.IsPaid())
	}
	return loan, true
}

func (c *Codec) EncodeLedger(l *ledger.Ledger) string {
	loans := l.Loans()
	if len(loans) == 0 {
		return Empty
	}
	records := make([]string, len(loans))
	for i, loan := range loans {
		records[i] = c.Encode(loan)
	}
	return strings.Join(records, recordSep)
}

// DecodeLedger never fails. Unparseable records are skipped individually.
func (c *Codec) DecodeLedger(s string) *ledger.Ledger {
	l := ledger.New()
	for _, record := range Records(s) {
		if loan, ok := c.Decode(record); ok {
			l.Add(loan)
		}
	}
	return l
}

// Records splits a ledger string into its raw records.
func Records(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == Empty {
		return nil
	}
	return strings.Split(s, recordSep)
}
