package restaurant

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"comanda/pos/domain"
	"comanda/pos/internal/remote"
)

func (s *Session) lineID() string {
	return "ORD-" + s.newID()
}

// recomputeCartTotal must be called with s.mu held.
func (s *Session) recomputeCartTotal() {
	s.cartTotal = domain.SumLines(s.cart)
}

// AddToCart stores a new unsent line under a fresh id and marks the table it
// targets as pending.
func (s *Session) AddToCart(line domain.Order) (domain.Order, error) {
	if line.Quantity <= 0 || line.UnitPrice.IsNegative() {
		return domain.Order{}, ErrInvalidLine
	}
	line.ID = s.lineID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = append(s.cart, line)
	s.recomputeCartTotal()
	for i := range s.tables {
		if s.tables[i].ID == line.TableID {
			s.tables[i].Status = domain.TablePending
		}
	}
	return line, nil
}

// RemoveFromCart drops a line by id and reports whether it existed.
func (s *Session) RemoveFromCart(lineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.cart {
		if l.ID == lineID {
			s.cart = append(s.cart[:i:i], s.cart[i+1:]...)
			s.recomputeCartTotal()
			return true
		}
	}
	return false
}

func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	s.cartTotal = decimal.Zero
}

// SubmitCart sends every cart line in one batch. A delivery context gets its
// permanent table id first, and the customer's mapping is saved before the
// request so a failed send can be retried against the same table. The cart is
// kept on failure. Order reads still in flight are superseded.
func (s *Session) SubmitCart(ctx context.Context) error {
	company := s.companyID()
	unlock := s.mappings.lock(company)

	s.mu.Lock()
	if len(s.cart) == 0 {
		s.mu.Unlock()
		unlock()
		return ErrEmptyCart
	}
	lines := append([]domain.Order(nil), s.cart...)

	// reads started before the submission must not act on the old state
	s.gen++
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}

	var (
		tableID  string
		customer *domain.Customer
	)
	switch {
	case s.selected != nil && s.selected.IsDelivery():
		tableID = domain.DeliverySessionPrefix + s.newID()
		next := *s.selected
		next.ID = tableID
		s.selected = &next
		customer = next.Customer
	case s.selected != nil:
		tableID = s.selected.ID
	default:
		tableID = lines[0].TableID
	}
	s.mu.Unlock()

	if customer != nil && customer.ID != "" {
		_, err := s.mappings.updateLocked(ctx, company, func(m domain.DeliveryMapping) bool {
			m[customer.ID] = tableID
			return true
		})
		if err != nil {
			log.Printf("error saving delivery mapping for customer %s: %v", customer.ID, err)
		}
	}
	unlock()

	payload := make([]remote.OrderPayload, 0, len(lines))
	for _, l := range lines {
		payload = append(payload, s.submission(l, tableID))
	}

	if err := s.api.CreateOrders(ctx, payload); err != nil {
		log.Printf("error sending pending items: %v", err)
		return err
	}

	sent := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		sent[l.ID] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cart[:0:0]
	for _, l := range s.cart {
		if _, ok := sent[l.ID]; !ok {
			kept = append(kept, l)
		}
	}
	s.cart = kept
	s.recomputeCartTotal()
	return nil
}

// submission coerces a cart line into the shape the order API accepts.
func (s *Session) submission(l domain.Order, tableID string) remote.OrderPayload {
	id := l.ID
	if id == "" {
		id = s.lineID()
	}
	companyID := l.CompanyID
	if companyID == "" {
		companyID = s.user.CompanyID
	}
	userID, userName := l.UserID, l.UserName
	if userID == "" {
		userID = s.user.ID
	}
	if userName == "" {
		userName = s.user.Name
	}
	return remote.OrderPayload{
		ID:                 id,
		CompanyID:          companyID,
		TableID:            tableID,
		UserID:             userID,
		ProductID:          l.ProductID,
		ProductDescription: l.ProductDescription,
		UnitPrice:          l.UnitPrice.InexactFloat64(),
		Quantity:           l.Quantity,
		TotalPrice:         l.Total().InexactFloat64(),
		Note:               l.Note,
		UserName:           userName,
		Status:             l.SubmitStatus(),
	}
}
