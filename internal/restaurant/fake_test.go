package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"comanda/pos/domain"
	"comanda/pos/internal/remote"
	"comanda/pos/internal/storage"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeAPI struct {
	mu           sync.Mutex
	tables       []domain.Table
	orders       map[string][]domain.Order
	orderErrs    map[string]error
	gates        map[string]chan struct{}
	ignoreCancel bool
	started      chan string
	listCalls    []string
	batches      [][]remote.OrderPayload
	createErr    error
	deleted      []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		orders:    map[string][]domain.Order{},
		orderErrs: map[string]error{},
		gates:     map[string]chan struct{}{},
		started:   make(chan string, 16),
	}
}

func (f *fakeAPI) ListTables(context.Context, string) ([]domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Table(nil), f.tables...), nil
}

func (f *fakeAPI) ListOrders(ctx context.Context, _ string, tableID string) ([]domain.Order, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, tableID)
	gate := f.gates[tableID]
	f.mu.Unlock()
	select {
	case f.started <- tableID:
	default:
	}

	if gate != nil {
		if f.ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.orderErrs[tableID]; err != nil {
		return nil, err
	}
	return append([]domain.Order(nil), f.orders[tableID]...), nil
}

func (f *fakeAPI) CreateOrders(_ context.Context, orders []remote.OrderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.batches = append(f.batches, orders)
	return nil
}

func (f *fakeAPI) DeleteOrder(_ context.Context, _, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, orderID)
	for table, orders := range f.orders {
		kept := orders[:0:0]
		for _, o := range orders {
			if o.ID != orderID {
				kept = append(kept, o)
			}
		}
		f.orders[table] = kept
	}
	return nil
}

func (f *fakeAPI) DeleteTableOrders(_ context.Context, _, tableID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, "table:"+tableID)
	return nil
}

func (f *fakeAPI) ListCategories(context.Context, string) ([]domain.Category, error) {
	return []domain.Category{{ID: "cat-1", Description: "Drinks"}}, nil
}

func (f *fakeAPI) ListProducts(_ context.Context, _, categoryID, _ string) ([]domain.Product, error) {
	if categoryID == "broken" {
		return nil, errors.New("boom")
	}
	return nil, nil
}

func (f *fakeAPI) CreateSalesRecord(_ context.Context, rec domain.SalesRecord) (json.RawMessage, error) {
	return json.RawMessage(fmt.Sprintf(`{"company_id":%q}`, rec.CompanyID)), nil
}

func (f *fakeAPI) ListSalesRecords(context.Context, string, string) ([]domain.SalesRecord, error) {
	return []domain.SalesRecord{{ID: "s1"}}, nil
}

func (f *fakeAPI) PrintPartial(context.Context, any) error { return nil }

func (f *fakeAPI) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}
