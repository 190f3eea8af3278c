package book

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yurifrl/loanbook/pkg/ledger"
)

var (
	ErrContactNotFound  = errors.New("contact not found")
	ErrDuplicateContact = errors.New("contact already exists")
	ErrInvalidName      = errors.New("invalid contact name")
	ErrInvalidSort      = errors.New("invalid sort")
)

// Store persists a whole book.
type Store interface {
	Load(ctx context.Context) (*Book, error)
	Save(ctx context.Context, b *Book) error
}

// Contact owns exactly one ledger. Loans are never shared between contacts.
type Contact struct {
	ID     uuid.UUID
	Name   string
	Ledger *ledger.Ledger
}

// Book is the ordered set of contacts. Names are unique regardless of case.
type Book struct {
	mu       sync.RWMutex
	contacts []*Contact
}

func New() *Book {
	return &Book{}
}

// Add creates a contact with an empty ledger.
func (b *Book) Add(name string) (*Contact, error) {
	c := &Contact{ID: uuid.New(), Name: name, Ledger: ledger.New()}
	if err := b.Insert(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Insert adds an existing contact, as done by stores when loading.
func (b *Book) Insert(c *Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}
	if c.Ledger == nil {
		c.Ledger = ledger.New()
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.find(c.Name) != nil {
		return fmt.Errorf("%w: %q", ErrDuplicateContact, c.Name)
	}
	b.contacts = append(b.contacts, c)
	return nil
}

func (b *Book) Get(name string) (*Contact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := b.find(strings.TrimSpace(name))
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrContactNotFound, name)
	}
	return c, nil
}

// Remove deletes a contact together with its ledger.
func (b *Book) Remove(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	name = strings.TrimSpace(name)
	for i, c := range b.contacts {
		if strings.EqualFold(c.Name, name) {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrContactNotFound, name)
}

// Contacts returns the contacts in display order.
func (b *Book) Contacts() []*Contact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Contact, len(b.contacts))
	copy(out, b.contacts)
	return out
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.contacts)
}

// Sort reorders the contacts in place. Ties keep their current order.
func (b *Book) Sort(by SortBy, order Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	less, ok := comparators[by]
	if !ok {
		less = comparators[ByAmount]
	}
	sort.SliceStable(b.contacts, func(i, j int) bool {
		if order == Desc {
			return less(b.contacts[j], b.contacts[i])
		}
		return less(b.contacts[i], b.contacts[j])
	})
}

func (b *Book) find(name string) *Contact {
	for _, c := range b.contacts {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}
