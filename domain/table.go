package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TablePending   TableStatus = "pending"
)

const (
	// DeliveryTableNumber is the display number shared by every delivery context.
	DeliveryTableNumber = 999

	deliveryPrefix = "delivery-"
	// DeliverySessionPrefix prefixes the server-side table id of a submitted delivery.
	DeliverySessionPrefix = "DLV-"
)

type MenuItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type OrderItem struct {
	ID          string    `json:"id"`
	MenuItem    MenuItem  `json:"menuItem"`
	Quantity    int       `json:"quantity"`
	Observation string    `json:"observation"`
	AddedAt     time.Time `json:"addedAt"`
}

// Table is a physical table as cached from the company table listing.
type Table struct {
	ID          string          `json:"id"`
	Number      int             `json:"number"`
	Description string          `json:"description"`
	Status      TableStatus     `json:"status"`
	Items       []OrderItem     `json:"items"`
	Total       decimal.Decimal `json:"total"`
}

// ServingContext is the table or delivery session that cart and order
// operations currently apply to.
type ServingContext struct {
	ID          string      `json:"id"`
	Number      int         `json:"number"`
	Description string      `json:"description"`
	Status      TableStatus `json:"status"`
	Customer    *Customer   `json:"customer,omitempty"`
}

// IsDelivery reports whether the context is a delivery context that has not
// been submitted yet.
func (c ServingContext) IsDelivery() bool {
	return IsDeliveryContextID(c.ID)
}

func IsDeliveryContextID(id string) bool {
	return strings.HasPrefix(id, deliveryPrefix)
}

// DeliveryContextID synthesizes the virtual table id for a customer.
func DeliveryContextID(customerID string) string {
	return deliveryPrefix + customerID
}

// ContextFromTable derives a serving context from a cached table.
func ContextFromTable(t Table) ServingContext {
	return ServingContext{ID: t.ID, Number: t.Number, Description: t.Description, Status: t.Status}
}

// DeliveryContext builds the virtual table for a delivery customer.
func DeliveryContext(id string, customer Customer) ServingContext {
	c := customer
	return ServingContext{
		ID:          id,
		Number:      DeliveryTableNumber,
		Description: "Delivery - " + customer.CustomerName,
		Status:      TableAvailable,
		Customer:    &c,
	}
}
