package restaurant

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"comanda/pos/domain"
)

// CloseTable snapshots a table with items into a receipt, resets the table
// and clears the cart. Tables without items are left untouched and false is returned.
func (s *Session) CloseTable(ctx context.Context, tableID, waiter, paymentMethod string, invoice *domain.InvoiceData) (domain.ClosedTable, bool) {
	s.mu.Lock()
	idx := -1
	for i := range s.tables {
		if s.tables[i].ID == tableID {
			idx = i
			break
		}
	}
	if idx < 0 || len(s.tables[idx].Items) == 0 {
		s.mu.Unlock()
		return domain.ClosedTable{}, false
	}

	table := &s.tables[idx]
	charge := table.Total.Mul(domain.ServiceChargeRate)
	closed := domain.ClosedTable{
		ID:            "closed-" + s.newID(),
		TableNumber:   table.Number,
		Items:         append([]domain.OrderItem(nil), table.Items...),
		Total:         table.Total,
		ServiceCharge: charge,
		FinalTotal:    table.Total.Add(charge),
		ClosedAt:      s.now(),
		Waiter:        waiter,
		PaymentMethod: paymentMethod,
		Invoice:       invoice,
	}
	s.closed = append([]domain.ClosedTable{closed}, s.closed...)

	table.Items = []domain.OrderItem{}
	table.Total = decimal.Zero
	table.Status = domain.TableAvailable
	s.cart = nil
	s.cartTotal = decimal.Zero
	if s.selected != nil && s.selected.ID == tableID {
		sc := domain.ContextFromTable(*table)
		s.selected = &sc
	}
	s.mu.Unlock()

	if s.history != nil {
		if err := s.history.Append(ctx, s.companyID(), closed); err != nil {
			log.Printf("error recording closed table %s: %v", closed.ID, err)
		}
	}
	return closed, true
}
