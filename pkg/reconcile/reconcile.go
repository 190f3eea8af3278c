// Package reconcile checks a stored ledger string against what the codec
// makes of it today, so stale or unreadable records can be reported before
// they are silently rewritten on the next save.
package reconcile

import (
	"strings"

	"github.com/yurifrl/loanbook/pkg/codec"
	"github.com/yurifrl/loanbook/pkg/compare"
	"github.com/yurifrl/loanbook/pkg/models"
)

// Status indicates what the next save would do to a stored record.
//
//   - InSync:  re-encodes to the identical text.
//   - Stale:   readable, but the stored text differs from the re-encoding
//     (for example a wrong paid flag).
//   - Dropped: unreadable, it would be lost on the next save.
type Status int

const (
	InSync Status = iota
	Stale
	Dropped
)

func (s Status) String() string {
	switch s {
	case InSync:
		return "in sync"
	case Stale:
		return "stale"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

type Entry struct {
	Record    string
	Loan      *models.Loan // nil when status == Dropped
	Reencoded string
	Status    Status
	// RoundTrips is false when decoding the re-encoded record yields a
	// different loan.
	RoundTrips bool
}

type Report struct {
	Items []Entry
}

// Build classifies every record of a stored ledger string.
func Build(raw string, c *codec.Codec) *Report {
	records := codec.Records(raw)
	items := make([]Entry, 0, len(records))
	for _, rec := range records {
		rec = strings.TrimSpace(rec)
		loan, ok := c.Decode(rec)
		if !ok {
			items = append(items, Entry{Record: rec, Status: Dropped})
			continue
		}

		out := c.Encode(loan)
		status := InSync
		if out != rec {
			status = Stale
		}
		again, ok := c.Decode(out)
		items = append(items, Entry{
			Record:     rec,
			Loan:       loan,
			Reencoded:  out,
			Status:     status,
			RoundTrips: ok && compare.Equal(loan, again),
		})
	}
	return &Report{Items: items}
}

func (r *Report) Count(s Status) int {
	n := 0
	for _, e := range r.Items {
		if e.Status == s {
			n++
		}
	}
	return n
}

// Clean reports whether saving would leave the stored text unchanged.
func (r *Report) Clean() bool {
	return r.Count(InSync) == len(r.Items)
}
