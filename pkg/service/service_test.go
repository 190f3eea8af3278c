package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/log"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/clock"
	"github.com/yurifrl/loanbook/pkg/codec"
	"github.com/yurifrl/loanbook/pkg/ledger"
	"github.com/yurifrl/loanbook/pkg/models"
	"github.com/yurifrl/loanbook/pkg/predicate"
	"github.com/yurifrl/loanbook/pkg/reconcile"
	"github.com/yurifrl/loanbook/pkg/store"
)

var today = clock.Fixed(civil.Date{Year: 2024, Month: 1, Day: 1})

func open(t *testing.T, path string) *Service {
	t.Helper()
	logger := log.New(io.Discard)
	c := codec.New(today, logger)
	svc, err := Open(context.Background(), store.NewFileStore(path, c, logger), today, c, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return svc
}

func TestLoanLifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "book.yaml")
	svc := open(t, path)

	if _, err := svc.AddContact(ctx, "Alice"); err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}
	pos, loan, err := svc.AddLoan(ctx, "alice", "s", "1000", "10", "2026-01-01")
	if err != nil {
		t.Fatalf("AddLoan failed: %v", err)
	}
	if pos != 1 || loan.AmountOwed().StringFixed(2) != "1200.27" {
		t.Errorf("unexpected loan %d owed %s", pos, loan.AmountOwed())
	}
	if _, _, err := svc.AddLoan(ctx, "alice", "c", "1200", "0", "2025-01-01"); err != nil {
		t.Fatalf("AddLoan failed: %v", err)
	}

	loan, err = svc.Pay(ctx, "Alice", 1, "500")
	if err != nil {
		t.Fatalf("Pay failed: %v", err)
	}
	if loan.RemainingOwed().StringFixed(2) != "700.27" {
		t.Errorf("expected 700.27 remaining, got %s", loan.RemainingOwed())
	}

	amount, loan, err := svc.PayMonths(ctx, "Alice", 2, 2)
	if err != nil {
		t.Fatalf("PayMonths failed: %v", err)
	}
	if amount.StringFixed(2) != "200.00" || loan.RemainingOwed().StringFixed(2) != "1000.00" {
		t.Errorf("unexpected payment %s, remaining %s", amount, loan.RemainingOwed())
	}

	entries, err := svc.Loans("Alice", "loantype c")
	if err != nil {
		t.Fatalf("Loans failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Index != 1 {
		t.Errorf("expected the second loan, got %+v", entries)
	}

	// Every mutation is on disk already.
	reopened := open(t, path)
	got, err := reopened.Loan("alice", 1)
	if err != nil {
		t.Fatalf("Loan failed: %v", err)
	}
	if got.AmountPaid().StringFixed(2) != "500.00" {
		t.Errorf("payment not persisted, paid %s", got.AmountPaid())
	}

	if err := reopened.DeleteLoan(ctx, "alice", 1); err != nil {
		t.Fatalf("DeleteLoan failed: %v", err)
	}
	if entries, _ := open(t, path).Loans("alice"); len(entries) != 1 || entries[0].Loan.Kind() != models.Compound {
		t.Errorf("expected only the compound loan to remain, got %+v", entries)
	}
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	svc := open(t, filepath.Join(t.TempDir(), "book.yaml"))
	_, _ = svc.AddContact(ctx, "Bob")

	if _, err := svc.AddContact(ctx, "BOB"); !errors.Is(err, book.ErrDuplicateContact) {
		t.Errorf("expected ErrDuplicateContact, got %v", err)
	}
	if _, _, err := svc.AddLoan(ctx, "Zed", "s", "10", "1", "2025-01-01"); !errors.Is(err, book.ErrContactNotFound) {
		t.Errorf("expected ErrContactNotFound, got %v", err)
	}
	if _, _, err := svc.AddLoan(ctx, "Bob", "x", "10", "1", "2025-01-01"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected ErrValidation for kind, got %v", err)
	}
	if _, _, err := svc.AddLoan(ctx, "Bob", "s", "10", "1", "2023-01-01"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected ErrValidation for date, got %v", err)
	}
	if _, err := svc.Pay(ctx, "Bob", 1, "10"); !errors.Is(err, ledger.ErrIndex) {
		t.Errorf("expected ErrIndex, got %v", err)
	}
	_, _, _ = svc.AddLoan(ctx, "Bob", "s", "10", "0", "2025-01-01")
	if _, err := svc.Pay(ctx, "Bob", 1, "ten"); !errors.Is(err, models.ErrPayment) {
		t.Errorf("expected ErrPayment, got %v", err)
	}
	if _, err := svc.Pay(ctx, "Bob", 1, "11"); !errors.Is(err, models.ErrPayment) {
		t.Errorf("expected ErrPayment, got %v", err)
	}
	if err := svc.DeleteLoan(ctx, "Bob", 0); !errors.Is(err, ledger.ErrIndex) {
		t.Errorf("expected ErrIndex for position 0, got %v", err)
	}
	if _, err := svc.Loans("Bob", "amount ~ 5"); !errors.Is(err, predicate.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
	if _, err := svc.Sort(ctx, "height", ""); !errors.Is(err, book.ErrInvalidSort) {
		t.Errorf("expected ErrInvalidSort, got %v", err)
	}
}

func TestSortPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "book.yaml")
	svc := open(t, path)
	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := svc.AddContact(ctx, name); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Sort(ctx, "name", "asc"); err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	var names []string
	for _, c := range open(t, path).Contacts() {
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "alice,bob,carol" {
		t.Errorf("unexpected order %v", names)
	}
}

func TestCloneIsIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "book.yaml")
	svc := open(t, path)
	_, _ = svc.AddContact(ctx, "Alice")
	_, _, _ = svc.AddLoan(ctx, "Alice", "s", "100", "0", "2025-01-01")

	dry := svc.Clone()
	if _, err := dry.Pay(ctx, "Alice", 1, "100"); err != nil {
		t.Fatalf("Pay on clone failed: %v", err)
	}
	if _, err := dry.AddContact(ctx, "Bob"); err != nil {
		t.Fatalf("AddContact on clone failed: %v", err)
	}

	orig, _ := svc.Loan("Alice", 1)
	if orig.IsPaid() {
		t.Errorf("payment on clone leaked into the original")
	}
	if svc.Book().Len() != 1 || open(t, path).Book().Len() != 1 {
		t.Errorf("contact added on clone leaked")
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc := open(t, filepath.Join(t.TempDir(), "book.yaml"))
	_, _ = svc.AddContact(ctx, "Alice")
	_, _, _ = svc.AddLoan(ctx, "Alice", "s", "100", "0", "2025-01-01")
	_, _, _ = svc.AddLoan(ctx, "Alice", "s", "900", "0", "2025-01-01")

	out, err := svc.Export("Alice", "amount >= 500")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "2,simple,900.00") {
		t.Errorf("unexpected export:\n%s", out)
	}
}

func TestVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yaml")
	content := `version: 1
contacts:
  - id: 5b0e7c4a-3f6e-4b8e-9a53-5c3f3a1e2d10
    name: Alice
    loans: 100.00/100.00/0.00/2025-01-01/NA/2024-01-01/S/0,garbage
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := open(t, path).Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(results) != 1 || results[0].Contact != "Alice" {
		t.Fatalf("unexpected results %+v", results)
	}
	r := results[0].Report
	if r.Count(reconcile.Stale) != 1 || r.Count(reconcile.Dropped) != 1 {
		t.Errorf("expected one stale and one dropped record, got %+v", r.Items)
	}

	noStore := New(book.New(), nil, today, codec.New(today, log.New(io.Discard)), log.New(io.Discard))
	if _, err := noStore.Verify(context.Background()); err == nil {
		t.Errorf("expected error without a store")
	}
}

func TestConcurrentPayAndList(t *testing.T) {
	ctx := context.Background()
	svc := open(t, filepath.Join(t.TempDir(), "book.yaml"))
	_, _ = svc.AddContact(ctx, "Ann")
	if _, _, err := svc.AddLoan(ctx, "Ann", "s", "1000", "0", "2025-01-01"); err != nil {
		t.Fatalf("AddLoan failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			if _, err := svc.Pay(ctx, "ann", 1, "1"); err != nil {
				t.Errorf("Pay failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := svc.Loans("ann", "amount < 5000"); err != nil {
				t.Errorf("Loans failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if loan, err := svc.Loan("ann", 1); err == nil {
				_ = loan.Snapshot()
			}
			_, _ = svc.Export("ann")
		}()
	}
	wg.Wait()

	loan, _ := svc.Loan("ann", 1)
	if loan.AmountPaid().StringFixed(2) != "20.00" {
		t.Errorf("expected 20.00 paid, got %s", loan.AmountPaid())
	}
}

type brokenStore struct{}

func (brokenStore) Load(context.Context) (*book.Book, error) { return book.New(), nil }

func (brokenStore) Save(context.Context, *book.Book) error { return errors.New("disk full") }

func TestSaveFailureKeepsChange(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard)
	svc := New(book.New(), brokenStore{}, today, codec.New(today, logger), logger)

	ct, err := svc.AddContact(ctx, "Alice")
	if !errors.Is(err, ErrNotSaved) || ct == nil {
		t.Fatalf("expected contact with ErrNotSaved, got %v, %v", ct, err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected store error in %q", err)
	}

	pos, loan, err := svc.AddLoan(ctx, "Alice", "s", "100", "0", "2025-01-01")
	if !errors.Is(err, ErrNotSaved) || pos != 1 || loan == nil {
		t.Fatalf("expected loan 1 with ErrNotSaved, got %d, %v", pos, err)
	}
	loan, err = svc.Pay(ctx, "Alice", 1, "40")
	if !errors.Is(err, ErrNotSaved) || loan.RemainingOwed().StringFixed(2) != "60.00" {
		t.Fatalf("expected applied payment with ErrNotSaved, got %v", err)
	}

	// Rejected commands are not reported as unsaved changes.
	if _, err := svc.Pay(ctx, "Alice", 1, "1000"); errors.Is(err, ErrNotSaved) || !errors.Is(err, models.ErrPayment) {
		t.Errorf("expected plain ErrPayment, got %v", err)
	}
	if entries, _ := svc.Loans("Alice"); len(entries) != 1 {
		t.Errorf("applied changes were lost, %d loans", len(entries))
	}
}
