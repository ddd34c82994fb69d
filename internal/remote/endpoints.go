package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"comanda/pos/domain"
)

// LoginResponse is the body of a login attempt.
type LoginResponse struct {
	Success   bool    `json:"success"`
	NameUser  string  `json:"name_user"`
	CompanyID string  `json:"company_id"`
	ID        string  `json:"id"`
	UserType  *string `json:"user_type"`
}

// OrderPayload is one entry of a batch order creation request.
type OrderPayload struct {
	ID                 string             `json:"id"`
	CompanyID          string             `json:"company_id"`
	TableID            string             `json:"table_id"`
	UserID             string             `json:"user_id"`
	ProductID          string             `json:"product_id"`
	ProductDescription string             `json:"product_description"`
	UnitPrice          float64            `json:"unit_price"`
	Quantity           int                `json:"quantity"`
	TotalPrice         float64            `json:"total_price"`
	Note               *string            `json:"note"`
	UserName           string             `json:"user_name"`
	Status             domain.OrderStatus `json:"status"`
}

// Login posts credentials. The status code is returned with the decoded body.
func (c *Client) Login(ctx context.Context, username, password string) (int, LoginResponse, error) {
	var out LoginResponse
	status, err := c.Do(ctx, http.MethodPost, "auth/login", map[string]string{"username": username, "password": password}, &out)
	return status, out, err
}

func (c *Client) ListTables(ctx context.Context, companyID string) ([]domain.Table, error) {
	return getList[domain.Table](ctx, c, "company-tables/"+url.PathEscape(companyID))
}

// ListOrders returns the orders recorded for one table of a company.
func (c *Client) ListOrders(ctx context.Context, companyID, tableID string) ([]domain.Order, error) {
	return getList[domain.Order](ctx, c, "company-orders/"+url.PathEscape(companyID)+"?table="+url.QueryEscape(tableID))
}

// CreateOrders sends all entries as a single batch.
func (c *Client) CreateOrders(ctx context.Context, orders []OrderPayload) error {
	_, err := c.Do(ctx, http.MethodPost, "company-orders/", orders, nil)
	return err
}

func (c *Client) DeleteOrder(ctx context.Context, companyID, orderID string) error {
	_, err := c.Do(ctx, http.MethodDelete, "company-orders/"+url.PathEscape(companyID)+"/"+url.PathEscape(orderID), nil, nil)
	return err
}

func (c *Client) DeleteTableOrders(ctx context.Context, companyID, tableID string) error {
	_, err := c.Do(ctx, http.MethodDelete, "company-orders/"+url.PathEscape(companyID)+"/table/"+url.PathEscape(tableID), nil, nil)
	return err
}

func (c *Client) ListCategories(ctx context.Context, companyID string) ([]domain.Category, error) {
	return getList[domain.Category](ctx, c, "company-category/"+url.PathEscape(companyID))
}

func (c *Client) ListProducts(ctx context.Context, companyID, categoryID, subcategoryID string) ([]domain.Product, error) {
	route := "company-products/" + url.PathEscape(companyID) + "/" + url.PathEscape(categoryID)
	if subcategoryID != "" {
		route += "?subcategory_id=" + url.QueryEscape(subcategoryID)
	}
	return getList[domain.Product](ctx, c, route)
}

// CreateSalesRecord returns the raw response body of the sales API.
func (c *Client) CreateSalesRecord(ctx context.Context, rec domain.SalesRecord) (json.RawMessage, error) {
	var out json.RawMessage
	if _, err := c.Do(ctx, http.MethodPost, "company-salesrecords/", rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSalesRecords lists sales, optionally filtered by creation date.
func (c *Client) ListSalesRecords(ctx context.Context, companyID, createdAt string) ([]domain.SalesRecord, error) {
	route := "company-salesrecords/" + url.PathEscape(companyID)
	if createdAt != "" {
		route += "?created_at=" + url.QueryEscape(createdAt)
	}
	return getList[domain.SalesRecord](ctx, c, route)
}

func (c *Client) PrintPartial(ctx context.Context, content any) error {
	_, err := c.Do(ctx, http.MethodPost, "print-partial/", content, nil)
	return err
}

func (c *Client) ListCustomers(ctx context.Context, companyID string) ([]domain.Customer, error) {
	return getList[domain.Customer](ctx, c, "customers/"+url.PathEscape(companyID))
}

func (c *Client) CreateCustomer(ctx context.Context, customer domain.Customer) error {
	_, err := c.Do(ctx, http.MethodPost, "customers/", customer, nil)
	return err
}

// UpdateCustomer sends only the given fields.
func (c *Client) UpdateCustomer(ctx context.Context, companyID, customerID string, fields map[string]any) error {
	_, err := c.Do(ctx, http.MethodPut, "customers/"+url.PathEscape(companyID)+"/"+url.PathEscape(customerID), fields, nil)
	return err
}

func (c *Client) DeleteCustomer(ctx context.Context, companyID, customerID string) error {
	_, err := c.Do(ctx, http.MethodDelete, "customers/"+url.PathEscape(companyID)+"/"+url.PathEscape(customerID), nil, nil)
	return err
}
