package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"comanda/pos/domain"
	"comanda/pos/internal/customers"
	"comanda/pos/internal/search"
	"comanda/pos/internal/seed"
)

// maxImportBytes bounds a CSV upload.
const maxImportBytes = 5 << 20

type customerList struct {
	Customers []domain.Customer `json:"customers"`
	Stats     search.Stats      `json:"stats"`
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	dir := h.directory(r)
	if err := dir.List(r.Context()); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	q := r.URL.Query()
	opts := search.Options{}
	if v := q.Get("min_length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "min_length must be a non-negative integer")
			return
		}
		opts.MinLength = n
	}
	opts.CaseSensitive = q.Get("case_sensitive") == "true"

	all := dir.All()
	filtered := all
	if query := q.Get("q"); query != "" {
		filtered = search.Filter(all, query, search.Customers, opts)
	}
	respondJSON(w, http.StatusOK, customerList{Customers: filtered, Stats: search.Summarize(all, filtered, q.Get("q"))})
}

func respondResult(w http.ResponseWriter, status int, res customers.Result) {
	if !res.Success {
		respondJSON(w, http.StatusBadGateway, res)
		return
	}
	respondJSON(w, status, res)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var c domain.Customer
	if err := decodeJSON(r, &c); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if c.CustomerName == "" {
		respondError(w, http.StatusBadRequest, "customer_name is required")
		return
	}
	respondResult(w, http.StatusCreated, h.directory(r).Add(r.Context(), c))
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondResult(w, http.StatusOK, h.directory(r).Update(r.Context(), chi.URLParam(r, "id"), updates))
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	respondResult(w, http.StatusOK, h.directory(r).Delete(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) importCustomers(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	report, err := seed.ImportCustomers(r.Context(), body, h.directory(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}
