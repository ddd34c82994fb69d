package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"comanda/pos/domain"
	"comanda/pos/internal/restaurant"
	"comanda/pos/internal/search"
)

type contextView struct {
	Selected       *domain.ServingContext `json:"selected"`
	Cart           []domain.Order         `json:"cart"`
	CartTotal      decimal.Decimal        `json:"cart_total"`
	Confirmed      []domain.Order         `json:"confirmed"`
	ConfirmedTotal decimal.Decimal        `json:"confirmed_total"`
}

func viewOf(s *restaurant.Session) contextView {
	v := contextView{
		Cart:           s.Cart(),
		CartTotal:      s.CartTotal(),
		Confirmed:      s.Confirmed(),
		ConfirmedTotal: s.ConfirmedTotal(),
	}
	if sc, ok := s.Selected(); ok {
		v.Selected = &sc
	}
	return v
}

func (h *Handler) currentContext(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, viewOf(h.session(r)))
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	res := s.InitializeTables(r.Context())
	tables := s.Tables()
	if q := r.URL.Query().Get("q"); q != "" {
		tables = search.Filter(tables, q, search.Tables, search.Options{})
	}
	respondFetch(w, res, tables)
}

func (h *Handler) selectTable(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	res := s.SelectTable(r.Context(), chi.URLParam(r, "id"))
	respondFetch(w, res, viewOf(s))
}

type closeTableRequest struct {
	Waiter        string              `json:"waiter"`
	PaymentMethod string              `json:"payment_method"`
	Invoice       *domain.InvoiceData `json:"invoice"`
}

func (h *Handler) closeTable(w http.ResponseWriter, r *http.Request) {
	var req closeTableRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	closed, ok := h.session(r).CloseTable(r.Context(), chi.URLParam(r, "id"), req.Waiter, req.PaymentMethod, req.Invoice)
	if !ok {
		respondError(w, http.StatusConflict, "table not found or has no items")
		return
	}
	respondJSON(w, http.StatusOK, closed)
}

func (h *Handler) deleteTableOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.session(r).DeleteAllOrdersForTable(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listClosedTables(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		respondJSON(w, http.StatusOK, h.session(r).ClosedTables())
		return
	}
	closed, err := h.deps.History.List(r.Context(), claimsFrom(r).CompanyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load closed tables")
		return
	}
	respondJSON(w, http.StatusOK, closed)
}

type selectDeliveryRequest struct {
	CustomerID string `json:"customer_id"`
	TableID    string `json:"table_id"`
}

func (h *Handler) selectDelivery(w http.ResponseWriter, r *http.Request) {
	var req selectDeliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == "" {
		respondError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	dir := h.directory(r)
	customer, ok := dir.Find(req.CustomerID)
	if !ok {
		if err := dir.List(r.Context()); err != nil {
			respondError(w, statusFor(err), err.Error())
			return
		}
		if customer, ok = dir.Find(req.CustomerID); !ok {
			respondError(w, http.StatusNotFound, "customer not found")
			return
		}
	}

	s := h.session(r)
	var res restaurant.FetchResult
	if req.TableID != "" {
		res = s.SelectDeliveryByTableID(r.Context(), customer, req.TableID)
	} else {
		res = s.SelectDeliveryCustomer(r.Context(), customer)
	}
	respondFetch(w, res, viewOf(s))
}

func (h *Handler) deliveryMapping(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.session(r).DeliveryMapping(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load delivery mapping")
		return
	}
	respondJSON(w, http.StatusOK, mapping)
}

func (h *Handler) clearDeliveryMapping(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tableID, customerID := q.Get("table_id"), q.Get("customer_id")
	if tableID == "" && customerID == "" {
		respondError(w, http.StatusBadRequest, "table_id or customer_id is required")
		return
	}
	if err := h.session(r).ClearDeliveryMapping(r.Context(), tableID, customerID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to clear delivery mapping")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pruneDelivery(w http.ResponseWriter, r *http.Request) {
	removed, err := h.session(r).PruneStaleDeliveryMappings(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if removed == nil {
		removed = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"removed": removed})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	respondJSON(w, http.StatusOK, map[string]any{"items": s.Cart(), "total": s.CartTotal()})
}

type cartLineRequest struct {
	TableID            string             `json:"table_id"`
	ProductID          string             `json:"product_id"`
	ProductDescription string             `json:"product_description"`
	UnitPrice          decimal.Decimal    `json:"unit_price"`
	Quantity           int                `json:"quantity"`
	Note               *string            `json:"note"`
	Status             domain.OrderStatus `json:"status"`
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req cartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s := h.session(r)
	if req.TableID == "" {
		if sc, ok := s.Selected(); ok {
			req.TableID = sc.ID
		}
	}
	line, err := s.AddToCart(domain.Order{
		TableID:            req.TableID,
		ProductID:          req.ProductID,
		ProductDescription: req.ProductDescription,
		UnitPrice:          req.UnitPrice,
		Quantity:           req.Quantity,
		Note:               req.Note,
		Status:             req.Status,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "quantity must be positive and unit_price not negative")
		return
	}
	respondJSON(w, http.StatusCreated, line)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	if !h.session(r).RemoveFromCart(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "cart line not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.session(r).ClearCart()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	err := s.SubmitCart(r.Context())
	switch {
	case errors.Is(err, restaurant.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "cart is empty")
		return
	case err != nil:
		respondError(w, statusFor(err), err.Error())
		return
	}
	if res := s.Reload(r.Context()); res.Outcome == restaurant.Failed {
		respondJSON(w, http.StatusAccepted, viewOf(s))
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) removeConfirmedItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := s.RemoveConfirmedItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) printPartial(w http.ResponseWriter, r *http.Request) {
	var content json.RawMessage
	if err := decodeJSON(r, &content); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.session(r).PrintPartialReceipt(r.Context(), content); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	res := s.LoadCategories(r.Context())
	categories := s.Categories()
	if q := r.URL.Query().Get("q"); q != "" {
		categories = search.Filter(categories, q, search.Categories, search.Options{})
	}
	respondFetch(w, res, categories)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	res := s.LoadProducts(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("subcategory_id"))
	products := s.Products()
	if q := r.URL.Query().Get("q"); q != "" {
		products = search.Filter(products, q, search.Products, search.Options{})
	}
	respondFetch(w, res, products)
}

func (h *Handler) listSalesRecords(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := s.ListSalesRecords(r.Context(), r.URL.Query().Get("created_at")); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	records := s.SalesRecords()
	if q := r.URL.Query().Get("q"); q != "" {
		records = search.Filter(records, q, search.SalesRecords, search.Options{})
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) createSalesRecord(w http.ResponseWriter, r *http.Request) {
	var rec domain.SalesRecord
	if err := decodeJSON(r, &rec); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.session(r).CreateSalesRecord(r.Context(), rec)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if len(out) == 0 {
		out = json.RawMessage("{}")
	}
	respondJSON(w, http.StatusCreated, out)
}
