package handler

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the ledger API on router.
func RegisterRoutes(router *mux.Router, accounts *AccountHandler, entries *EntryHandler) {
	router.HandleFunc("/register", accounts.Register).Methods("POST")
	router.HandleFunc("/wallet/{username}", accounts.GetWallet).Methods("GET")
	router.HandleFunc("/reconcile/{username}", accounts.Reconcile).Methods("GET")

	router.HandleFunc("/earn", entries.Earn).Methods("POST")
	router.HandleFunc("/spend", entries.Spend).Methods("POST")
	router.HandleFunc("/history/{username}", entries.History).Methods("GET")
}
