package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/clock"
	"github.com/yurifrl/loanbook/pkg/codec"
	"github.com/yurifrl/loanbook/pkg/models"
)

var today = clock.Fixed(civil.Date{Year: 2024, Month: 1, Day: 1})

func quiet() *log.Logger {
	return log.New(io.Discard)
}

func sampleBook(t *testing.T) *book.Book {
	t.Helper()
	b := book.New()
	alice, _ := b.Add("Alice")
	_, _ = b.Add("Bob")

	l1, err := models.NewLoan(models.Simple, "1000", "10", "2026-01-01", today)
	if err != nil {
		t.Fatalf("NewLoan failed: %v", err)
	}
	l2, err := models.NewLoan(models.Compound, "250", "12", "2025-01-01", today)
	if err != nil {
		t.Fatalf("NewLoan failed: %v", err)
	}
	alice.Ledger.Add(l1)
	alice.Ledger.Add(l2)
	if err := alice.Ledger.Pay(0, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("Pay failed: %v", err)
	}
	return b
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := codec.New(today, quiet())
	path := filepath.Join(t.TempDir(), "nested", "book.yaml")
	s := NewFileStore(path, c, quiet())

	original := sampleBook(t)
	if err := s.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := original.Contacts()
	got := loaded.Contacts()
	if len(got) != len(want) {
		t.Fatalf("expected %d contacts, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Name != want[i].Name {
			t.Errorf("contact %d: expected %s/%s, got %s/%s", i, want[i].ID, want[i].Name, got[i].ID, got[i].Name)
		}
		if c.EncodeLedger(got[i].Ledger) != c.EncodeLedger(want[i].Ledger) {
			t.Errorf("contact %d: ledger changed: %q vs %q", i,
				c.EncodeLedger(got[i].Ledger), c.EncodeLedger(want[i].Ledger))
		}
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the book file, found %d entries", len(entries))
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "none.yaml"), codec.New(today, quiet()), quiet())
	b, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b.Len() != 0 {
		t.Errorf("expected empty book, got %d contacts", b.Len())
	}
}

func TestFileStoreLenientLoans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yaml")
	content := `version: 1
contacts:
  - id: not-a-uuid
    name: Alice
    loans: 1000.00/0.00/10.00/2030-01-01/NA/2024-01-01/S/0,broken,500.00/0.00/1.00/2025-01-01/NA/2024-01-01/X/0
  - id: 5b0e7c4a-3f6e-4b8e-9a53-5c3f3a1e2d10
    name: bob
    loans: EMPTY
  - id: 0c6c0d0e-6a43-4a7c-8f43-6e5b1c1a9e22
    name: BOB
    loans: EMPTY
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := NewFileStore(path, codec.New(today, quiet()), quiet()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("expected duplicate contact to be skipped, got %d contacts", b.Len())
	}
	alice, err := b.Get("alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if alice.Ledger.Len() != 1 {
		t.Errorf("expected 1 readable loan, got %d", alice.Ledger.Len())
	}
	bob, _ := b.Get("bob")
	if bob.ID.String() != "5b0e7c4a-3f6e-4b8e-9a53-5c3f3a1e2d10" {
		t.Errorf("unexpected id %s", bob.ID)
	}
}

func TestFileStoreErrors(t *testing.T) {
	dir := t.TempDir()
	c := codec.New(today, quiet())

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("contacts: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(bad, c, quiet()).Load(context.Background()); err == nil {
		t.Errorf("expected parse error")
	}

	future := filepath.Join(dir, "future.yaml")
	if err := os.WriteFile(future, []byte("version: 9\ncontacts: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(future, c, quiet()).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "version 9") {
		t.Errorf("expected version error, got %v", err)
	}
}
