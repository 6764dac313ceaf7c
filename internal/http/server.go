// Package http exposes the ledger over a small JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cheque/internal/core"
	"cheque/internal/ledger"
	"cheque/internal/services"
)

type Server struct {
	http.Server
	svc *services.LedgerService
}

func NewServer(addr string, svc *services.LedgerService) *Server {
	s := &Server{svc: svc}
	s.Addr = addr
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleHealth)

	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("DELETE /accounts/{name}", s.handleRemoveAccount)
	mux.HandleFunc("GET /accounts/{name}/balance", s.handleBalance)
	mux.HandleFunc("GET /accounts/{name}/entries", s.handleListEntries)
	mux.HandleFunc("POST /accounts/{name}/entries", s.handleCreateEntry)
	mux.HandleFunc("DELETE /accounts/{name}/entries/{id}", s.handleEraseEntry)
	mux.HandleFunc("POST /accounts/{name}/transfer", s.handleTransfer)

	s.Handler = mux
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps ledger error kinds onto HTTP statuses: validation failures
// are 422, unknown accounts 404, everything else is an opaque storage
// failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrUnknownAccount):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMissingKind),
		errors.Is(err, core.ErrUnknownKind),
		errors.Is(err, core.ErrMissingSubject),
		errors.Is(err, ledger.ErrMissingName):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "url", r.URL.Path)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
