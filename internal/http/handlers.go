package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cheque/internal/core"
	"cheque/internal/ledger"
)

type accountResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Notes        string `json:"notes,omitempty"`
	BalanceCents int64  `json:"balance_cents"`
	Balance      string `json:"balance"`
}

type entryResponse struct {
	ID                int64     `json:"id"`
	AccountID         int64     `json:"account_id"`
	Kind              string    `json:"kind"`
	Category          string    `json:"category"`
	Subject           string    `json:"subject"`
	AmountCents       int64     `json:"amount_cents"`
	Date              time.Time `json:"date"`
	Memo              string    `json:"memo,omitempty"`
	TransferAccountID int64     `json:"transfer_account_id,omitempty"`
	TransferEntryID   int64     `json:"transfer_entry_id,omitempty"`
	Cleared           bool      `json:"cleared"`
	CheckNumber       string    `json:"check_number,omitempty"`
}

func accountJSON(a *ledger.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Name:         a.Name,
		Type:         a.Type,
		Notes:        a.Notes,
		BalanceCents: a.Balance,
		Balance:      core.Fixed2(a.Balance),
	}
}

func entryJSON(e core.Entry) entryResponse {
	return entryResponse{
		ID:                e.ID,
		AccountID:         e.AccountID,
		Kind:              string(e.Kind),
		Category:          e.Category,
		Subject:           e.Subject,
		AmountCents:       e.Amount.Cents,
		Date:              e.Date,
		Memo:              e.Memo,
		TransferAccountID: e.TransferAccountID,
		TransferEntryID:   e.TransferEntryID,
		Cleared:           e.Cleared,
		CheckNumber:       e.CheckNumber,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := s.svc.Checkbook().AccountsByName()
	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = accountJSON(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		Type           string `json:"type"`
		OpeningBalance string `json:"opening_balance"` // decimal string, may be negative
		Notes          string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var balance int64
	if req.OpeningBalance != "" {
		negative := false
		raw := req.OpeningBalance
		if raw[0] == '-' {
			negative = true
			raw = raw[1:]
		}
		cents, err := core.ParseDecimalToCents(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		balance = cents
		if negative {
			balance = -balance
		}
	}

	acct, err := s.svc.AddOrAccessAccount(r.Context(), ledger.AccountOptions{
		Name:    req.Name,
		Type:    req.Type,
		Balance: balance,
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountJSON(acct))
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveAccount(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct := s.svc.Checkbook().GetAccount(r.PathValue("name"))
	if acct == nil {
		writeError(w, r, ledger.ErrUnknownAccount)
		return
	}

	filter := ledger.BalanceFilter{
		ClearedOnly: r.URL.Query().Get("cleared") == "true",
		Kind:        core.Kind(r.URL.Query().Get("kind")),
	}
	cents := acct.ComputeBalance(filter)
	writeJSON(w, http.StatusOK, map[string]any{
		"account":       acct.Name,
		"balance_cents": cents,
		"balance":       core.Fixed2(cents),
	})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	acct := s.svc.Checkbook().GetAccount(r.PathValue("name"))
	if acct == nil {
		writeError(w, r, ledger.ErrUnknownAccount)
		return
	}
	entries := acct.Entries()
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = entryJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind        string `json:"kind"` // "debit" or "credit"
		Subject     string `json:"subject"`
		Category    string `json:"category"`
		Amount      string `json:"amount"` // decimal string, e.g. "12.34"
		Memo        string `json:"memo"`
		Cleared     bool   `json:"cleared"`
		CheckNumber string `json:"check_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.svc.WriteEntry(r.Context(), r.PathValue("name"), core.EntryDraft{
		Kind:        core.Kind(req.Kind),
		Subject:     req.Subject,
		Category:    req.Category,
		Amount:      core.Money{Cents: cents},
		Memo:        req.Memo,
		Cleared:     req.Cleared,
		CheckNumber: req.CheckNumber,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleEraseEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry id"})
		return
	}
	if err := s.svc.EraseEntry(r.Context(), r.PathValue("name"), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To      string `json:"to"`
		Amount  string `json:"amount"` // decimal string
		Subject string `json:"subject"`
		Memo    string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = s.svc.Transfer(r.Context(), r.PathValue("name"), req.To, core.EntryDraft{
		Amount:  core.Money{Cents: cents},
		Subject: req.Subject,
		Memo:    req.Memo,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
