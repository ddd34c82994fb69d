package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderOpen   OrderStatus = "open"
	OrderClosed OrderStatus = "closed"
	// OrderPeding is the literal the order API has always been sent for
	// unconfirmed lines. It is kept until the server contract is confirmed.
	OrderPeding  OrderStatus = "peding"
	OrderPending OrderStatus = "pending"
)

var terminalStatuses = map[string]struct{}{
	"closed":    {},
	"completed": {},
	"paid":      {},
}

// Order is both a cart line and a server-confirmed order line.
type Order struct {
	ID                 string           `json:"id"`
	CompanyID          string           `json:"company_id"`
	TableID            string           `json:"table_id"`
	ProductID          string           `json:"product_id"`
	ProductDescription string           `json:"product_description"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	Quantity           int              `json:"quantity"`
	TotalPrice         *decimal.Decimal `json:"total_price,omitempty"`
	Note               *string          `json:"note"`
	UserID             string           `json:"user_id"`
	UserName           string           `json:"user_name"`
	Status             OrderStatus      `json:"status"`
	CreatedAt          string           `json:"created_at,omitempty"`
	UpdatedAt          string           `json:"updated_at,omitempty"`
}

// LineTotal is unit price times quantity.
func (o Order) LineTotal() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// Total returns the explicit total price when set, the line total otherwise.
func (o Order) Total() decimal.Decimal {
	if o.TotalPrice != nil {
		return *o.TotalPrice
	}
	return o.LineTotal()
}

// IsActive reports whether the order still keeps its table open. Orders
// without a status are not active.
func (o Order) IsActive() bool {
	if o.Status == "" {
		return false
	}
	_, terminal := terminalStatuses[strings.ToLower(string(o.Status))]
	return !terminal
}

// SubmitStatus is the status sent to the order API for a cart line.
func (o Order) SubmitStatus() OrderStatus {
	switch o.Status {
	case OrderOpen, OrderClosed, OrderPeding:
		return o.Status
	}
	return OrderPeding
}

// ActiveOrders filters orders down to the ones that are still active.
func ActiveOrders(orders []Order) []Order {
	active := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.IsActive() {
			active = append(active, o)
		}
	}
	return active
}

// SumLines adds unit price times quantity over orders.
func SumLines(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.LineTotal())
	}
	return total
}

// DeliveryMapping associates a customer id with its open delivery table id.
type DeliveryMapping map[string]string
