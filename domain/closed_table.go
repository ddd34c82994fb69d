package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceChargeRate is applied to the table total when a table is closed.
var ServiceChargeRate = decimal.NewFromFloat(0.10)

type InvoiceData struct {
	DocumentType   string    `json:"documentType"`
	DocumentNumber string    `json:"documentNumber"`
	CustomerName   string    `json:"customerName"`
	CustomerEmail  string    `json:"customerEmail"`
	IssuedAt       time.Time `json:"issuedAt"`
}

// ClosedTable is the receipt snapshot taken when a table is closed.
type ClosedTable struct {
	ID            string          `json:"id"`
	TableNumber   int             `json:"tableNumber"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	FinalTotal    decimal.Decimal `json:"finalTotal"`
	ClosedAt      time.Time       `json:"closedAt"`
	Waiter        string          `json:"waiter"`
	PaymentMethod string          `json:"paymentMethod"`
	Invoice       *InvoiceData    `json:"invoice,omitempty"`
}
