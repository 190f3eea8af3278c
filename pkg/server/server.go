package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/ledger"
	"github.com/yurifrl/loanbook/pkg/models"
	"github.com/yurifrl/loanbook/pkg/predicate"
	"github.com/yurifrl/loanbook/pkg/service"
)

// Server exposes the loan book over a JSON HTTP API.
type Server struct {
	service *service.Service
	logger  *log.Logger
	mux     *http.ServeMux
}

// New creates a new HTTP server
func New(svc *service.Service, logger *log.Logger) *Server {
	s := &Server{
		service: svc,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.withLogging(s.handleHealth))

	s.mux.HandleFunc("GET /api/contacts", s.withLogging(s.handleListContacts))
	s.mux.HandleFunc("POST /api/contacts", s.withLogging(s.handleAddContact))
	s.mux.HandleFunc("DELETE /api/contacts/{name}", s.withLogging(s.handleRemoveContact))

	s.mux.HandleFunc("GET /api/contacts/{name}/loans", s.withLogging(s.handleListLoans))
	s.mux.HandleFunc("POST /api/contacts/{name}/loans", s.withLogging(s.handleAddLoan))
	s.mux.HandleFunc("GET /api/contacts/{name}/loans/{index}", s.withLogging(s.handleGetLoan))
	s.mux.HandleFunc("DELETE /api/contacts/{name}/loans/{index}", s.withLogging(s.handleDeleteLoan))
	s.mux.HandleFunc("POST /api/contacts/{name}/loans/{index}/pay", s.withLogging(s.handlePay))
	s.mux.HandleFunc("GET /api/contacts/{name}/loans.csv", s.withLogging(s.handleExport))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// ---------------- contacts ----------------

// ContactSummary is the JSON view of a contact with ledger totals.
type ContactSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Loans          int    `json:"loans"`
	TotalOwed      string `json:"total_owed"`
	TotalRemaining string `json:"total_remaining"`
	OverdueMonths  *int   `json:"overdue_months,omitempty"`
}

func summarize(c *book.Contact) ContactSummary {
	sum := ContactSummary{
		ID:             c.ID.String(),
		Name:           c.Name,
		Loans:          c.Ledger.Len(),
		TotalOwed:      c.Ledger.TotalOwed().StringFixed(2),
		TotalRemaining: c.Ledger.TotalRemaining().StringFixed(2),
	}
	if m, ok := c.Ledger.MostOverdueMonths(); ok {
		sum.OverdueMonths = &m
	}
	return sum
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts := s.service.Contacts()
	q := r.URL.Query()
	if q.Get("sort") != "" || q.Get("order") != "" {
		sorted, err := s.service.Sort(r.Context(), q.Get("sort"), q.Get("order"))
		if errors.Is(err, service.ErrNotSaved) {
			s.logger.Warn("sort order not saved", "err", err)
		} else if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		contacts = sorted
	}

	out := make([]ContactSummary, len(contacts))
	for i, c := range contacts {
		out[i] = summarize(c)
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"contacts": out,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
		return
	}

	c, err := s.service.AddContact(r.Context(), req.Name)
	if failed(err) {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondChange(w, r, http.StatusCreated, map[string]any{"contact": summarize(c)}, err)
}

func (s *Server) handleRemoveContact(w http.ResponseWriter, r *http.Request) {
	err := s.service.RemoveContact(r.Context(), r.PathValue("name"))
	if failed(err) {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondChange(w, r, http.StatusNoContent, nil, err)
}

// ---------------- loans ----------------

// LoanView is a loan snapshot with its 1-based ledger position.
type LoanView struct {
	Index int `json:"index"`
	models.Snapshot
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Loans(r.PathValue("name"), r.URL.Query()["filter"]...)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	loans := make([]LoanView, len(entries))
	for i, e := range entries {
		loans[i] = LoanView{Index: e.Index + 1, Snapshot: e.Loan.Snapshot()}
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"loans":  loans,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleAddLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type      string `json:"type"`
		Principal string `json:"principal"`
		Rate      string `json:"rate"`
		DueDate   string `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
		return
	}

	pos, loan, err := s.service.AddLoan(r.Context(), r.PathValue("name"), req.Type, req.Principal, req.Rate, req.DueDate)
	if failed(err) {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondChange(w, r, http.StatusCreated, map[string]any{"loan": LoanView{Index: pos, Snapshot: loan.Snapshot()}}, err)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	pos, ok := s.position(w, r)
	if !ok {
		return
	}
	loan, err := s.service.Loan(r.PathValue("name"), pos)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"loan":   LoanView{Index: pos, Snapshot: loan.Snapshot()},
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	pos, ok := s.position(w, r)
	if !ok {
		return
	}
	err := s.service.DeleteLoan(r.Context(), r.PathValue("name"), pos)
	if failed(err) {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondChange(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	pos, ok := s.position(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount"`
		Months int    `json:"months"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
		return
	}
	if (req.Amount == "") == (req.Months == 0) {
		s.respondError(w, r, http.StatusBadRequest, "exactly one of amount or months is required", nil)
		return
	}

	name := r.PathValue("name")
	var (
		loan *models.Loan
		err  error
	)
	if req.Months != 0 {
		_, loan, err = s.service.PayMonths(r.Context(), name, pos, req.Months)
	} else {
		loan, err = s.service.Pay(r.Context(), name, pos, req.Amount)
	}
	if failed(err) {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondChange(w, r, http.StatusOK, map[string]any{"loan": LoanView{Index: pos, Snapshot: loan.Snapshot()}}, err)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := s.service.Export(name, r.URL.Query()["filter"]...)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"-loans.csv"))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write csv response", "err", err)
	}
}

// --- helpers ---

// position reads the 1-based {index} path value.
func (s *Server) position(w http.ResponseWriter, r *http.Request) (int, bool) {
	pos, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "loan index must be a number", err)
		return 0, false
	}
	return pos, true
}

// failed reports whether a mutation was rejected. A change that was applied
// but not saved did not fail.
func failed(err error) bool {
	return err != nil && !errors.Is(err, service.ErrNotSaved)
}

// respondChange writes the outcome of an applied mutation. When saveErr is
// set the change is live but not stored yet, and the body says so.
func (s *Server) respondChange(w http.ResponseWriter, r *http.Request, status int, body map[string]any, saveErr error) {
	if saveErr == nil && status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	if body == nil {
		body = map[string]any{}
	}
	if status == http.StatusNoContent {
		status = http.StatusOK
	}
	body["status"] = "success"
	body["saved"] = saveErr == nil
	if saveErr != nil {
		s.logger.Warn("change applied, not saved", "method", r.Method, "path", r.URL.Path, "err", saveErr)
		body["warning"] = saveErr.Error()
	}
	if err := s.writeJSON(w, status, body); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrPayment),
		errors.Is(err, predicate.ErrParse),
		errors.Is(err, book.ErrInvalidName),
		errors.Is(err, book.ErrInvalidSort):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrIndex),
		errors.Is(err, book.ErrContactNotFound):
		return http.StatusNotFound
	case errors.Is(err, book.ErrDuplicateContact):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	s.respondError(w, r, status, message, err)
}

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
