package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SalesRecord is a finished sale as stored by the sales API. Items is kept
// raw because the API does not fix its shape.
type SalesRecord struct {
	ID                 string          `json:"id"`
	CompanyID          string          `json:"company_id"`
	TableID            string          `json:"table_id"`
	PaymentType        string          `json:"payment_type"`
	Items              json.RawMessage `json:"itens"`
	UserID             string          `json:"user_id"`
	UserName           string          `json:"user_name"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	TypeCustomer       string          `json:"type_customer"`
	IdentificationNFCe string          `json:"identification_nfce"`
	IssuesInvoice      bool            `json:"issues_invoice"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
}
