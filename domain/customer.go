package domain

type Customer struct {
	ID              string `json:"id"`
	CompanyID       string `json:"company_id"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	Document        string `json:"document,omitempty"`
	DeliveryAddress string `json:"delivery_address"`
	ZipCode         string `json:"zip_code"`
	District        string `json:"district"`
	Number          string `json:"number"`
	City            string `json:"city"`
	State           string `json:"state"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}
