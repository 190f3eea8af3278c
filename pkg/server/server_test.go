package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/log"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/clock"
	"github.com/yurifrl/loanbook/pkg/codec"
	"github.com/yurifrl/loanbook/pkg/service"
	"github.com/yurifrl/loanbook/pkg/store"
)

var today = clock.Fixed(civil.Date{Year: 2024, Month: 1, Day: 1})

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	logger := log.New(io.Discard)
	c := codec.New(today, logger)
	path := filepath.Join(t.TempDir(), "book.yaml")
	svc, err := service.Open(context.Background(), store.NewFileStore(path, c, logger), today, c, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ts := httptest.NewServer(New(svc, logger).Handler())
	t.Cleanup(ts.Close)
	return ts, path
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s %s: invalid json %q", method, url, data)
		}
	}
	return resp.StatusCode, out
}

func TestLoanEndpoints(t *testing.T) {
	ts, path := newTestServer(t)
	base := ts.URL + "/api/contacts"

	if code, _ := do(t, http.MethodPost, base, `{"name":"Alice"}`); code != http.StatusCreated {
		t.Fatalf("add contact: status %d", code)
	}
	code, body := do(t, http.MethodPost, base+"/alice/loans",
		`{"type":"s","principal":"1000","rate":"10","due_date":"2026-01-01"}`)
	if code != http.StatusCreated {
		t.Fatalf("add loan: status %d %v", code, body)
	}
	loan := body["loan"].(map[string]any)
	if loan["index"].(float64) != 1 || loan["amount_owed"] != "1200.27" || loan["date_created"] != "2024-01-01" {
		t.Errorf("unexpected loan %v", loan)
	}
	_, _ = do(t, http.MethodPost, base+"/alice/loans",
		`{"type":"c","principal":"100","rate":"0","due_date":"2024-07-01"}`)

	code, body = do(t, http.MethodPost, base+"/alice/loans/1/pay", `{"amount":"200.27"}`)
	if code != http.StatusOK {
		t.Fatalf("pay: status %d %v", code, body)
	}
	if got := body["loan"].(map[string]any)["remaining_owed"]; got != "1000.00" {
		t.Errorf("expected 1000.00 remaining, got %v", got)
	}
	if body["saved"] != true {
		t.Errorf("expected saved change, got %v", body)
	}

	code, body = do(t, http.MethodPost, base+"/alice/loans/2/pay", `{"months":10}`)
	if code != http.StatusOK || body["loan"].(map[string]any)["is_paid"] != true {
		t.Errorf("pay by months: status %d %v", code, body)
	}

	q := url.Values{"filter": {"ispaid false", "amount >= 500"}}
	code, body = do(t, http.MethodGet, base+"/alice/loans?"+q.Encode(), "")
	if code != http.StatusOK {
		t.Fatalf("list loans: status %d", code)
	}
	loans := body["loans"].([]any)
	if len(loans) != 1 || loans[0].(map[string]any)["index"].(float64) != 1 {
		t.Errorf("unexpected filtered loans %v", loans)
	}

	if code, _ := do(t, http.MethodDelete, base+"/alice/loans/2", ""); code != http.StatusNoContent {
		t.Errorf("delete: status %d", code)
	}
	code, body = do(t, http.MethodGet, base, "")
	if code != http.StatusOK {
		t.Fatalf("list contacts: status %d", code)
	}
	contact := body["contacts"].([]any)[0].(map[string]any)
	if contact["loans"].(float64) != 1 || contact["total_remaining"] != "1000.00" {
		t.Errorf("unexpected contact summary %v", contact)
	}

	reloaded, err := store.NewFileStore(path, codec.New(today, log.New(io.Discard)), log.New(io.Discard)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c, _ := reloaded.Get("Alice")
	if c.Ledger.Len() != 1 {
		t.Errorf("changes not saved, %d loans on disk", c.Ledger.Len())
	}
}

func TestErrorStatuses(t *testing.T) {
	ts, _ := newTestServer(t)
	base := ts.URL + "/api/contacts"
	_, _ = do(t, http.MethodPost, base, `{"name":"Bob"}`)
	_, _ = do(t, http.MethodPost, base+"/bob/loans", `{"type":"s","principal":"10","rate":"0","due_date":"2025-01-01"}`)

	cases := []struct {
		name, method, path, body string
		want                     int
	}{
		{"duplicate contact", http.MethodPost, "", `{"name":"BOB"}`, http.StatusConflict},
		{"empty name", http.MethodPost, "", `{"name":""}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "", `{`, http.StatusBadRequest},
		{"unknown contact", http.MethodGet, "/zed/loans", "", http.StatusNotFound},
		{"bad loan", http.MethodPost, "/bob/loans", `{"type":"s","principal":"-1","rate":"0","due_date":"2025-01-01"}`, http.StatusBadRequest},
		{"bad index", http.MethodPost, "/bob/loans/x/pay", `{"amount":"1"}`, http.StatusBadRequest},
		{"missing loan", http.MethodPost, "/bob/loans/4/pay", `{"amount":"1"}`, http.StatusNotFound},
		{"overpayment", http.MethodPost, "/bob/loans/1/pay", `{"amount":"11"}`, http.StatusBadRequest},
		{"amount and months", http.MethodPost, "/bob/loans/1/pay", `{"amount":"1","months":1}`, http.StatusBadRequest},
		{"bad filter", http.MethodGet, "/bob/loans?filter=colour+red", "", http.StatusBadRequest},
		{"bad sort", http.MethodGet, "?sort=height", "", http.StatusBadRequest},
	}

	for _, tc := range cases {
		code, body := do(t, tc.method, base+tc.path, tc.body)
		if code != tc.want {
			t.Errorf("%s: expected %d, got %d %v", tc.name, tc.want, code, body)
		}
		if body["status"] != "error" {
			t.Errorf("%s: expected error body, got %v", tc.name, body)
		}
	}
}

func TestHealthAndExport(t *testing.T) {
	ts, _ := newTestServer(t)
	if code, body := do(t, http.MethodGet, ts.URL+"/health", ""); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health: %d %v", code, body)
	}

	_, _ = do(t, http.MethodPost, ts.URL+"/api/contacts", `{"name":"Bob"}`)
	_, _ = do(t, http.MethodPost, ts.URL+"/api/contacts/bob/loans", `{"type":"s","principal":"10","rate":"0","due_date":"2025-01-01"}`)

	resp, err := http.Get(ts.URL + "/api/contacts/bob/loans.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "text/csv" || !strings.Contains(string(data), "1,simple,10.00") {
		t.Errorf("unexpected export %q", data)
	}
}

type brokenStore struct{}

func (brokenStore) Load(context.Context) (*book.Book, error) { return book.New(), nil }

func (brokenStore) Save(context.Context, *book.Book) error { return errors.New("disk full") }

func TestUnsavedChanges(t *testing.T) {
	logger := log.New(io.Discard)
	svc := service.New(book.New(), brokenStore{}, today, codec.New(today, logger), logger)
	ts := httptest.NewServer(New(svc, logger).Handler())
	t.Cleanup(ts.Close)
	base := ts.URL + "/api/contacts"

	code, body := do(t, http.MethodPost, base, `{"name":"Bob"}`)
	if code != http.StatusCreated || body["saved"] != false || body["warning"] == nil {
		t.Errorf("add contact: %d %v", code, body)
	}
	code, body = do(t, http.MethodPost, base+"/bob/loans", `{"type":"s","principal":"10","rate":"0","due_date":"2025-01-01"}`)
	if code != http.StatusCreated || body["saved"] != false {
		t.Errorf("add loan: %d %v", code, body)
	}
	code, body = do(t, http.MethodPost, base+"/bob/loans/1/pay", `{"amount":"4"}`)
	if code != http.StatusOK || body["loan"].(map[string]any)["remaining_owed"] != "6.00" {
		t.Errorf("pay: %d %v", code, body)
	}
	code, body = do(t, http.MethodDelete, base+"/bob/loans/1", "")
	if code != http.StatusOK || body["status"] != "success" || body["saved"] != false {
		t.Errorf("delete: %d %v", code, body)
	}

	// Rejections still map to their own status.
	if code, _ := do(t, http.MethodPost, base, `{"name":"bob"}`); code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", code)
	}
}
