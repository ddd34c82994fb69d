package restaurant

import (
	"context"
	"encoding/json"
	"log"

	"comanda/pos/domain"
)

func (s *Session) LoadCategories(ctx context.Context) FetchResult {
	categories, err := s.api.ListCategories(ctx, s.companyID())
	if err != nil {
		log.Printf("error getting categories: %v", err)
		return failedWith(err)
	}
	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	return loadedOrEmpty(len(categories))
}

// LoadProducts loads the products of a category, optionally narrowed to a subcategory.
func (s *Session) LoadProducts(ctx context.Context, categoryID, subcategoryID string) FetchResult {
	products, err := s.api.ListProducts(ctx, s.companyID(), categoryID, subcategoryID)
	if err != nil {
		log.Printf("error getting products by category %s: %v", categoryID, err)
		return failedWith(err)
	}
	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
	return loadedOrEmpty(len(products))
}

func (s *Session) CreateSalesRecord(ctx context.Context, rec domain.SalesRecord) (json.RawMessage, error) {
	if rec.CompanyID == "" {
		rec.CompanyID = s.companyID()
	}
	out, err := s.api.CreateSalesRecord(ctx, rec)
	if err != nil {
		log.Printf("error creating sales record: %v", err)
		return nil, err
	}
	return out, nil
}

// ListSalesRecords replaces the cached sales records. createdAt filters by
// creation date when not empty.
func (s *Session) ListSalesRecords(ctx context.Context, createdAt string) error {
	records, err := s.api.ListSalesRecords(ctx, s.companyID(), createdAt)
	if err != nil {
		log.Printf("error getting sales records: %v", err)
		return err
	}
	s.mu.Lock()
	s.sales = records
	s.mu.Unlock()
	return nil
}

func (s *Session) PrintPartialReceipt(ctx context.Context, content any) error {
	return s.api.PrintPartial(ctx, content)
}
