package restaurant

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"comanda/pos/domain"
)

// InitializeTables loads the company's tables, defaulting fields the API omits.
func (s *Session) InitializeTables(ctx context.Context) FetchResult {
	tables, err := s.api.ListTables(ctx, s.companyID())
	if err != nil {
		log.Printf("error initializing tables: %v", err)
		return failedWith(err)
	}
	for i := range tables {
		if tables[i].Status == "" {
			tables[i].Status = domain.TableAvailable
		}
		if tables[i].Items == nil {
			tables[i].Items = []domain.OrderItem{}
		}
	}

	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()
	return loadedOrEmpty(len(tables))
}

// beginSelection makes sc the active context, empties the cart and the
// confirmed orders, and cancels the fetch of the previous selection. The
// returned context and generation belong to the new selection.
func (s *Session) beginSelection(ctx context.Context, sc *domain.ServingContext) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel
	s.gen++

	s.cart = nil
	s.cartTotal = decimal.Zero
	s.confirmed = nil
	s.selected = sc
	return fetchCtx, s.gen
}

// ifCurrent runs fn under the lock when gen is still the active generation.
func (s *Session) ifCurrent(gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	fn()
	return true
}

func (s *Session) replaceConfirmed(gen uint64, orders []domain.Order) FetchResult {
	ok := s.ifCurrent(gen, func() {
		s.confirmed = append([]domain.Order(nil), orders...)
	})
	if !ok {
		return superseded
	}
	return loadedOrEmpty(len(orders))
}

// fetchFailed classifies a fetch error of generation gen.
func (s *Session) fetchFailed(gen uint64, what string, err error) FetchResult {
	if s.stale(gen) {
		return superseded
	}
	log.Printf("error fetching orders for %s: %v", what, err)
	return failedWith(err)
}

func (s *Session) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

// SelectTable makes a cached physical table the active context and loads its
// confirmed orders. An unknown id leaves no context selected. A failed fetch
// keeps the context selected with no confirmed orders.
func (s *Session) SelectTable(ctx context.Context, tableID string) FetchResult {
	var sc *domain.ServingContext
	for _, t := range s.Tables() {
		if t.ID == tableID {
			c := domain.ContextFromTable(t)
			sc = &c
			break
		}
	}

	fetchCtx, gen := s.beginSelection(ctx, sc)
	orders, err := s.api.ListOrders(fetchCtx, s.companyID(), tableID)
	if err != nil {
		return s.fetchFailed(gen, "table "+tableID, err)
	}
	return s.replaceConfirmed(gen, orders)
}

// SelectDeliveryCustomer opens the delivery context of a customer. An open
// delivery session recorded for the customer is reused when it still has
// active orders; otherwise the record is pruned and a fresh virtual context
// is selected.
func (s *Session) SelectDeliveryCustomer(ctx context.Context, customer domain.Customer) FetchResult {
	company := s.companyID()
	mapping, err := s.mappings.Load(ctx, company)
	if err != nil {
		log.Printf("error loading delivery mapping: %v", err)
	}
	existing := mapping[customer.ID]

	id := existing
	if id == "" {
		id = domain.DeliveryContextID(customer.ID)
	}
	candidate := domain.DeliveryContext(id, customer)
	fetchCtx, gen := s.beginSelection(ctx, &candidate)
	if existing == "" {
		return FetchResult{Outcome: Empty}
	}

	orders, err := s.api.ListOrders(fetchCtx, company, existing)
	if err != nil {
		if s.stale(gen) {
			return superseded
		}
		if ctx.Err() != nil {
			// the caller gave up; that says nothing about the session
			return failedWith(err)
		}
		log.Printf("error fetching delivery orders: %v", err)
		if !s.retireDelivery(ctx, gen, company, customer, existing) {
			return superseded
		}
		return failedWith(err)
	}

	active := domain.ActiveOrders(orders)
	if len(active) > 0 {
		return s.replaceConfirmed(gen, active)
	}
	if !s.retireDelivery(ctx, gen, company, customer, existing) {
		return superseded
	}
	return FetchResult{Outcome: Empty}
}

// retireDelivery drops the customer's mapping to sessionID and selects a
// fresh virtual context, both only while gen is current. The check and both
// changes happen under the company mapping lock, which SubmitCart also holds
// when it starts a new generation, so a submission is never undone.
func (s *Session) retireDelivery(ctx context.Context, gen uint64, company string, customer domain.Customer, sessionID string) bool {
	fresh := domain.DeliveryContext(domain.DeliveryContextID(customer.ID), customer)
	current, visited := false, false
	_, err := s.mappings.Update(ctx, company, func(m domain.DeliveryMapping) bool {
		visited = true
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return false
		}
		current = true
		s.selected = &fresh
		if m[customer.ID] != sessionID {
			return false
		}
		delete(m, customer.ID)
		return true
	})
	if err != nil {
		log.Printf("error pruning delivery mapping for customer %s: %v", customer.ID, err)
	}
	if !visited {
		return s.ifCurrent(gen, func() { s.selected = &fresh })
	}
	return current
}

// SelectDeliveryByTableID opens a delivery context whose session id is
// already known. All orders of the session are loaded without filtering.
func (s *Session) SelectDeliveryByTableID(ctx context.Context, customer domain.Customer, tableID string) FetchResult {
	candidate := domain.DeliveryContext(tableID, customer)
	fetchCtx, gen := s.beginSelection(ctx, &candidate)

	orders, err := s.api.ListOrders(fetchCtx, s.companyID(), tableID)
	if err != nil {
		return s.fetchFailed(gen, "delivery table "+tableID, err)
	}
	return s.replaceConfirmed(gen, orders)
}

// Reload refetches the active context through the path that selected it.
func (s *Session) Reload(ctx context.Context) FetchResult {
	sc, ok := s.Selected()
	if !ok {
		return FetchResult{Outcome: Empty}
	}
	if sc.Customer != nil {
		return s.SelectDeliveryByTableID(ctx, *sc.Customer, sc.ID)
	}
	return s.SelectTable(ctx, sc.ID)
}

// RemoveConfirmedItem deletes a confirmed order and reloads the active context.
func (s *Session) RemoveConfirmedItem(ctx context.Context, orderID string) error {
	if err := s.api.DeleteOrder(ctx, s.companyID(), orderID); err != nil {
		log.Printf("error removing item from table: %v", err)
		return err
	}
	if res := s.Reload(ctx); res.Outcome == Failed {
		log.Printf("item %s removed but reload failed: %v", orderID, res.Err)
	}
	return nil
}

// DeleteAllOrdersForTable drops every order of a table on the server.
func (s *Session) DeleteAllOrdersForTable(ctx context.Context, tableID string) error {
	company := s.companyID()
	if company == "" || tableID == "" {
		return nil
	}
	if err := s.api.DeleteTableOrders(ctx, company, tableID); err != nil {
		log.Printf("failed to delete all orders for table %s: %v", tableID, err)
		return err
	}
	return nil
}
