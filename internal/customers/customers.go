// Package customers caches the company's customer records.
package customers

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"comanda/pos/domain"
)

// API is the customer part of the remote client.
type API interface {
	ListCustomers(ctx context.Context, companyID string) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) error
	UpdateCustomer(ctx context.Context, companyID, customerID string, fields map[string]any) error
	DeleteCustomer(ctx context.Context, companyID, customerID string) error
}

// Result is the outcome of a write.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func failed(err error) Result { return Result{Success: false, Error: err.Error()} }

// Directory is the customer cache of one company.
type Directory struct {
	api       API
	companyID string

	mu        sync.RWMutex
	customers []domain.Customer
	loading   int
}

func New(api API, companyID string) *Directory {
	return &Directory{api: api, companyID: companyID}
}

func (d *Directory) begin() {
	d.mu.Lock()
	d.loading++
	d.mu.Unlock()
}

func (d *Directory) end() {
	d.mu.Lock()
	d.loading--
	d.mu.Unlock()
}

// List fetches customers and appends the ones not cached yet.
func (d *Directory) List(ctx context.Context) error {
	d.begin()
	defer d.end()

	fetched, err := d.api.ListCustomers(ctx, d.companyID)
	if err != nil {
		log.Printf("error fetching customers: %v", err)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	known := make(map[string]struct{}, len(d.customers))
	for _, c := range d.customers {
		known[c.ID] = struct{}{}
	}
	for _, c := range fetched {
		if _, ok := known[c.ID]; ok {
			continue
		}
		known[c.ID] = struct{}{}
		d.customers = append(d.customers, c)
	}
	return nil
}

// Add creates a customer and refreshes the cache.
func (d *Directory) Add(ctx context.Context, customer domain.Customer) Result {
	d.begin()
	defer d.end()

	if customer.CompanyID == "" {
		customer.CompanyID = d.companyID
	}
	if err := d.api.CreateCustomer(ctx, customer); err != nil {
		log.Printf("error adding customer: %v", err)
		return failed(err)
	}
	if err := d.List(ctx); err != nil {
		log.Printf("customer added but refresh failed: %v", err)
	}
	return Result{Success: true}
}

// updatableFields strips the fields the API schema rejects on update.
func updatableFields(updates map[string]any) map[string]any {
	out := make(map[string]any, len(updates))
	for k, v := range updates {
		switch k {
		case "id", "company_id", "created_at", "updated_at":
			continue
		}
		out[k] = v
	}
	return out
}

// Update sends the allowed fields and merges them into the cached record.
func (d *Directory) Update(ctx context.Context, customerID string, updates map[string]any) Result {
	d.begin()
	defer d.end()

	allowed := updatableFields(updates)
	if err := d.api.UpdateCustomer(ctx, d.companyID, customerID, allowed); err != nil {
		log.Printf("error updating customer: %v", err)
		return failed(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.customers {
		if d.customers[i].ID != customerID {
			continue
		}
		merged, err := merge(d.customers[i], allowed)
		if err != nil {
			log.Printf("customer %s updated remotely but cache merge failed: %v", customerID, err)
			break
		}
		d.customers[i] = merged
		break
	}
	return Result{Success: true}
}

func merge(c domain.Customer, fields map[string]any) (domain.Customer, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Delete removes a customer remotely and from the cache.
func (d *Directory) Delete(ctx context.Context, customerID string) Result {
	d.begin()
	defer d.end()

	if err := d.api.DeleteCustomer(ctx, d.companyID, customerID); err != nil {
		log.Printf("error deleting customer: %v", err)
		return failed(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.customers {
		if c.ID == customerID {
			d.customers = append(d.customers[:i:i], d.customers[i+1:]...)
			break
		}
	}
	return Result{Success: true}
}

// All returns a copy of the cached customers.
func (d *Directory) All() []domain.Customer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.Customer(nil), d.customers...)
}

// Find looks a customer up by id in the cache.
func (d *Directory) Find(customerID string) (domain.Customer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.customers {
		if c.ID == customerID {
			return c, true
		}
	}
	return domain.Customer{}, false
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.customers)
}

func (d *Directory) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading > 0
}
