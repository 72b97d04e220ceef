package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/model"
	"github.com/gsmwallet/server/internal/repo"
)

const maxNameLength = 20

// CustomerStore is every capability the customer handler serves.
type CustomerStore interface {
	Creator[model.Customer]
	Getter[model.Customer]
	Lister[model.Customer]
	Updater[model.Customer]
	Deleter
}

// CustomerHandler handles customer CRUD endpoints
type CustomerHandler struct {
	customers CustomerStore
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers CustomerStore) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// customerRequest is the request body for create and update
type customerRequest struct {
	Name      string           `json:"name"`
	Surname   string           `json:"surname"`
	Birthdate string           `json:"birthdate"`
	GsmNumber string           `json:"gsmNumber"`
	Balance   *decimal.Decimal `json:"balance"`
}

func (req *customerRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)
	req.GsmNumber = strings.TrimSpace(req.GsmNumber)

	switch {
	case req.Name == "" || utf8.RuneCountInString(req.Name) > maxNameLength:
		return "name is required and must be at most 20 characters"
	case req.Surname == "" || utf8.RuneCountInString(req.Surname) > maxNameLength:
		return "surname is required and must be at most 20 characters"
	case !model.ValidGsmNumber(req.GsmNumber):
		return "gsmNumber must match 994(10|50|51) followed by 7 digits"
	case req.Balance == nil:
		return "balance is required"
	case req.Balance.IsNegative():
		return "balance must not be negative"
	}
	return ""
}

func (req *customerRequest) apply(c *model.Customer) {
	c.Name = req.Name
	c.Surname = req.Surname
	c.Birthdate = strings.TrimSpace(req.Birthdate)
	c.GsmNumber = req.GsmNumber
	c.Balance = *req.Balance
}

func decodeCustomer(w http.ResponseWriter, r *http.Request) (customerRequest, bool) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if msg := req.validate(); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg)
		return req, false
	}
	return req, true
}

func customerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid customer id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *CustomerHandler) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repo.ErrCustomerNotFound) {
		respondWithError(w, http.StatusNotFound, "Customer not found.")
		return
	}
	log.Printf("level=error component=http msg=\"customer %s failed\" err=%v", op, err)
	respondWithError(w, http.StatusInternalServerError, "An error occurred.")
}

// HandleList handles GET /api/customers
func (h *CustomerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	handleList[model.Customer](w, r, h.customers)
}

// HandleCreate handles POST /api/customers
func (h *CustomerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCustomer(w, r)
	if !ok {
		return
	}
	var c model.Customer
	req.apply(&c)
	if err := h.customers.Create(r.Context(), &c); err != nil {
		h.storeError(w, "create", err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// HandleGet handles GET /api/customers/{id}
func (h *CustomerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	c, err := h.customers.GetByID(r.Context(), id)
	if err != nil {
		h.storeError(w, "get", err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// HandleUpdate handles PUT /api/customers/{id}
func (h *CustomerHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	req, ok := decodeCustomer(w, r)
	if !ok {
		return
	}
	c := model.Customer{ID: id}
	req.apply(&c)
	if err := h.customers.Update(r.Context(), &c); err != nil {
		h.storeError(w, "update", err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// HandleDelete handles DELETE /api/customers/{id}
func (h *CustomerHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	if err := h.customers.Delete(r.Context(), id); err != nil {
		h.storeError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
