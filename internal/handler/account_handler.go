package handler

import (
	"fmt"
	"net/http"

	"points-ledger/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type AccountHandler struct {
	ledger *service.LedgerService
	logger zerolog.Logger
}

func NewAccountHandler(ledger *service.LedgerService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		ledger: ledger,
		logger: logger,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
}

type RegisterResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

type WalletResponse struct {
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		WriteError(w, appErr)
		return
	}

	account, err := h.ledger.Register(r.Context(), req.Username)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message:  fmt.Sprintf("User %s registered", account.Username),
		Username: account.Username,
		Balance:  account.Balance.String(),
	})
}

func (h *AccountHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	account, err := h.ledger.GetBalance(r.Context(), username)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, WalletResponse{
		Username: account.Username,
		Balance:  account.Balance.String(),
	})
}

func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	rec, err := h.ledger.Reconcile(r.Context(), username)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
