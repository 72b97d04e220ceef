package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gsmwallet/server/internal/directory"
)

// DirectoryHandler exposes the customer directory to the ledger service.
type DirectoryHandler struct {
	directory directory.CustomerDirectory
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(d directory.CustomerDirectory) *DirectoryHandler {
	return &DirectoryHandler{directory: d}
}

func (h *DirectoryHandler) directoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Customer not found.")
	case errors.Is(err, directory.ErrConflict):
		respondWithError(w, http.StatusConflict, "balance changed")
	default:
		log.Printf("level=error component=http msg=\"directory request failed\" err=%v", err)
		respondWithError(w, http.StatusInternalServerError, "An error occurred.")
	}
}

// HandleLookupByGsm handles GET /internal/customers/by-gsm/{gsmNumber}
func (h *DirectoryHandler) HandleLookupByGsm(w http.ResponseWriter, r *http.Request) {
	c, err := h.directory.LookupByPhone(r.Context(), chi.URLParam(r, "gsmNumber"))
	if err != nil {
		h.directoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// HandleGet handles GET /internal/customers/{id}
func (h *DirectoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	c, err := h.directory.Get(r.Context(), id)
	if err != nil {
		h.directoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// HandleUpdateBalance handles PUT /internal/customers/{id}/balance
func (h *DirectoryHandler) HandleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	var req directory.BalanceUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.directory.UpdateBalance(r.Context(), id, req.ExpectedBalance, req.Balance); err != nil {
		h.directoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
