package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type Product struct {
	ID                string          `json:"id"`
	CategoryID        string          `json:"category_id"`
	CompanyID         int64           `json:"company_id"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	SubcategoryID     *string         `json:"subcategory_id"`
	SubcategoryIDMenu *string         `json:"subcategory_id_menu"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}
