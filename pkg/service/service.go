package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/clock"
	"github.com/yurifrl/loanbook/pkg/codec"
	"github.com/yurifrl/loanbook/pkg/csv"
	"github.com/yurifrl/loanbook/pkg/ledger"
	"github.com/yurifrl/loanbook/pkg/models"
	"github.com/yurifrl/loanbook/pkg/predicate"
	"github.com/yurifrl/loanbook/pkg/reconcile"
)

// ErrNotSaved is returned together with the result of a change that was
// applied to the book but could not be written to the store. The change
// stays in memory and goes out with the next successful save.
var ErrNotSaved = errors.New("change not saved")

// Service runs loan commands against a book and persists the result.
// Loan positions are 1-based, as shown to users.
type Service struct {
	mu       sync.Mutex
	book     *book.Book
	store    book.Store
	clock    clock.Clock
	codec    *codec.Codec
	logger   *log.Logger
	autoSave bool
}

func New(b *book.Book, store book.Store, clk clock.Clock, c *codec.Codec, logger *log.Logger) *Service {
	s := &Service{
		book:     b,
		store:    store,
		clock:    clk,
		codec:    c,
		logger:   logger,
		autoSave: store != nil,
	}
	for _, ct := range b.Contacts() {
		s.watch(ct)
	}
	return s
}

// Open loads the book from store.
func Open(ctx context.Context, store book.Store, clk clock.Clock, c *codec.Codec, logger *log.Logger) (*Service, error) {
	b, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	return New(b, store, clk, c, logger), nil
}

func (s *Service) Book() *book.Book { return s.book }

func (s *Service) Clock() clock.Clock { return s.clock }

// SetAutoSave controls whether each successful mutation is saved right away.
func (s *Service) SetAutoSave(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoSave = on && s.store != nil
}

// Save writes the book to the store, if there is one.
func (s *Service) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.book); err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	return nil
}

// Clone copies the book through the codec into a service without a store,
// so commands can be tried without touching the original.
func (s *Service) Clone() *Service {
	b := book.New()
	for _, ct := range s.book.Contacts() {
		cp := &book.Contact{ID: ct.ID, Name: ct.Name, Ledger: s.codec.DecodeLedger(s.codec.EncodeLedger(ct.Ledger))}
		if err := b.Insert(cp); err != nil {
			s.logger.Warn("failed to copy contact", "name", ct.Name, "err", err)
		}
	}
	return New(b, nil, s.clock, s.codec, s.logger.WithPrefix("dry-run"))
}

func (s *Service) commit(ctx context.Context) error {
	if !s.autoSave {
		return nil
	}
	if err := s.Save(ctx); err != nil {
		s.logger.Error("change applied, not persisted", "err", err)
		return fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	return nil
}

func (s *Service) watch(ct *book.Contact) {
	name := ct.Name
	ct.Ledger.Subscribe(func(e ledger.Event) {
		s.logger.Debug("ledger changed", "contact", name, "event", e.Kind, "loan", e.Index+1)
	})
}

func (s *Service) AddContact(ctx context.Context, name string) (*book.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := s.book.Add(name)
	if err != nil {
		return nil, err
	}
	s.watch(ct)
	s.logger.Info("added contact", "name", ct.Name, "id", ct.ID)
	return ct, s.commit(ctx)
}

func (s *Service) RemoveContact(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.book.Remove(name); err != nil {
		return err
	}
	s.logger.Info("removed contact", "name", name)
	return s.commit(ctx)
}

func (s *Service) Contact(name string) (*book.Contact, error) {
	return s.book.Get(name)
}

// Contacts returns the contacts in their current order.
func (s *Service) Contacts() []*book.Contact {
	return s.book.Contacts()
}

// Sort reorders the contacts and saves the new order.
func (s *Service) Sort(ctx context.Context, by, order string) ([]*book.Contact, error) {
	key, dir, err := book.ParseSort(by, order)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.book.Sort(key, dir)
	s.logger.Debug("sorted contacts", "by", key, "order", dir)
	return s.book.Contacts(), s.commit(ctx)
}

// AddLoan creates a loan dated today and appends it to the contact's ledger.
// It returns the loan's 1-based position.
func (s *Service) AddLoan(ctx context.Context, contact, kind, principal, rate, due string) (int, *models.Loan, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return 0, nil, err
	}
	loan, err := models.NewLoan(k, principal, rate, due, s.clock)
	if err != nil {
		return 0, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ct, err := s.book.Get(contact)
	if err != nil {
		return 0, nil, err
	}
	ct.Ledger.Add(loan)
	pos := ct.Ledger.Len()
	s.logger.Info("added loan", "contact", ct.Name, "loan", pos, "type", k, "owed", loan.AmountOwed().StringFixed(2))
	return pos, loan, s.commit(ctx)
}

func (s *Service) DeleteLoan(ctx context.Context, contact string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, err := s.book.Get(contact)
	if err != nil {
		return err
	}
	if err := ct.Ledger.Remove(position - 1); err != nil {
		return err
	}
	s.logger.Info("deleted loan", "contact", ct.Name, "loan", position)
	return s.commit(ctx)
}

// Pay records a payment given as decimal text.
func (s *Service) Pay(ctx context.Context, contact string, position int, amount string) (*models.Loan, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q is not a number", models.ErrPayment, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ct, err := s.book.Get(contact)
	if err != nil {
		return nil, err
	}
	if err := ct.Ledger.Pay(position-1, value); err != nil {
		return nil, err
	}
	loan, _ := ct.Ledger.Get(position - 1)
	s.logger.Info("recorded payment", "contact", ct.Name, "loan", position, "amount", value.StringFixed(2), "remaining", loan.RemainingOwed().StringFixed(2))
	return loan, s.commit(ctx)
}

// PayMonths pays a number of monthly instalments and returns the amount paid.
func (s *Service) PayMonths(ctx context.Context, contact string, position, months int) (decimal.Decimal, *models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, err := s.book.Get(contact)
	if err != nil {
		return decimal.Zero, nil, err
	}
	amount, err := ct.Ledger.PayMonths(position-1, months)
	if err != nil {
		return decimal.Zero, nil, err
	}
	loan, _ := ct.Ledger.Get(position - 1)
	s.logger.Info("recorded payment", "contact", ct.Name, "loan", position, "months", months, "amount", amount.StringFixed(2))
	return amount, loan, s.commit(ctx)
}

func (s *Service) Loan(contact string, position int) (*models.Loan, error) {
	ct, err := s.book.Get(contact)
	if err != nil {
		return nil, err
	}
	return ct.Ledger.Get(position - 1)
}

// Loans returns the contact's loans matching every filter condition, such
// as "amount < 500" or "ispaid false".
func (s *Service) Loans(contact string, filters ...string) ([]ledger.Entry, error) {
	ct, err := s.book.Get(contact)
	if err != nil {
		return nil, err
	}
	fn, preds, err := predicate.ParseAll(filters)
	if err != nil {
		return nil, err
	}
	entries := ct.Ledger.Indexed(fn)
	s.logger.Debug("filtered loans", "contact", ct.Name, "filters", preds, "matches", len(entries))
	return entries, nil
}

// Export renders the matching loans as CSV.
func (s *Service) Export(contact string, filters ...string) ([]byte, error) {
	entries, err := s.Loans(contact, filters...)
	if err != nil {
		return nil, err
	}
	return csv.Create(csv.LoanHeader, csv.LoanRows(entries), nil), nil
}

// RawLoader is implemented by stores that can return the ledger strings
// exactly as stored.
type RawLoader interface {
	LoadRaw(ctx context.Context) (map[string]string, error)
}

type Verification struct {
	Contact string
	Report  *reconcile.Report
}

// Verify checks every stored ledger against its recomputation.
func (s *Service) Verify(ctx context.Context) ([]Verification, error) {
	raw, ok := s.store.(RawLoader)
	if !ok {
		return nil, fmt.Errorf("store does not expose stored records")
	}
	ledgers, err := raw.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}

	var out []Verification
	for _, ct := range s.book.Contacts() {
		stored, ok := ledgers[ct.ID.String()]
		if !ok {
			continue
		}
		out = append(out, Verification{Contact: ct.Name, Report: reconcile.Build(stored, s.codec)})
	}
	return out, nil
}
