package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"points-ledger/internal/domain"
	"points-ledger/internal/errors"
	"points-ledger/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type EntryHandler struct {
	ledger *service.LedgerService
	logger zerolog.Logger
}

func NewEntryHandler(ledger *service.LedgerService, logger zerolog.Logger) *EntryHandler {
	return &EntryHandler{
		ledger: ledger,
		logger: logger,
	}
}

// EntryRequest is the body of /earn and /spend. Amount accepts a JSON number
// or a decimal string; null or absent is rejected.
type EntryRequest struct {
	Username string              `json:"username"`
	Amount   decimal.NullDecimal `json:"amount"`
}

type EntryView struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Amount    string    `json:"amount"`
	Balance   string    `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

type EntryResponse struct {
	Message  string    `json:"message"`
	Username string    `json:"username"`
	Balance  string    `json:"balance"`
	Entry    EntryView `json:"entry"`
}

type HistoryResponse struct {
	Username string      `json:"username"`
	History  []EntryView `json:"history"`
}

func newEntryView(entry domain.HistoryEntry) EntryView {
	return EntryView{
		ID:        entry.ID,
		Action:    string(entry.Action),
		Amount:    entry.Amount.String(),
		Balance:   entry.Balance.String(),
		Timestamp: entry.Timestamp,
	}
}

type applyFunc func(ctx context.Context, username string, amount decimal.Decimal) (*domain.HistoryEntry, error)

func (h *EntryHandler) Earn(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.ledger.Earn, "earned")
}

func (h *EntryHandler) Spend(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.ledger.Spend, "spent")
}

func (h *EntryHandler) apply(w http.ResponseWriter, r *http.Request, fn applyFunc, verb string) {
	var req EntryRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		WriteError(w, appErr)
		return
	}
	if req.Username == "" || !req.Amount.Valid {
		WriteError(w, errors.NewAppError(errors.InvalidInput, "username and amount are required"))
		return
	}

	entry, err := fn(r.Context(), req.Username, req.Amount.Decimal)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, EntryResponse{
		Message:  fmt.Sprintf("%s points %s", entry.Amount.String(), verb),
		Username: entry.Username,
		Balance:  entry.Balance.String(),
		Entry:    newEntryView(*entry),
	})
}

func (h *EntryHandler) History(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	entries, err := h.ledger.GetHistory(r.Context(), username)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newEntryView(entry))
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Username: username,
		History:  views,
	})
}
