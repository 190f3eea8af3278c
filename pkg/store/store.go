package store

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/codec"
)

// record is the persisted shape of one contact: its identity plus the
// encoded ledger string.
type record struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Loans string `yaml:"loans"`
}

func toRecords(b *book.Book, c *codec.Codec) []record {
	contacts := b.Contacts()
	out := make([]record, len(contacts))
	for i, ct := range contacts {
		out[i] = record{
			ID:    ct.ID.String(),
			Name:  ct.Name,
			Loans: c.EncodeLedger(ct.Ledger),
		}
	}
	return out
}

// fromRecords rebuilds a book. Contacts that cannot be inserted are logged
// and skipped so one bad entry does not hide the rest.
func fromRecords(records []record, c *codec.Codec, logger *log.Logger) *book.Book {
	b := book.New()
	for _, r := range records {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			logger.Warn("contact has invalid id, assigning a new one", "name", r.Name, "id", r.ID)
			id = uuid.New()
		}
		ct := &book.Contact{ID: id, Name: r.Name, Ledger: c.DecodeLedger(r.Loans)}
		if err := b.Insert(ct); err != nil {
			logger.Warn("skipping contact", "name", r.Name, "err", err)
			continue
		}
		if n := len(codec.Records(r.Loans)); n != ct.Ledger.Len() {
			logger.Warn("dropped unreadable loans", "name", ct.Name, "stored", n, "loaded", ct.Ledger.Len())
		}
	}
	return b
}

func rawLedgers(records []record) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.ID] = r.Loans
	}
	return out
}
