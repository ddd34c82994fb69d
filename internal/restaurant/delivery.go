package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"comanda/pos/domain"
	"comanda/pos/internal/storage"
)

// pruneConcurrency bounds the order lookups of one prune sweep.
const pruneConcurrency = 4

// MappingStore persists the customer -> delivery table mapping of each
// company. Read-modify-write cycles of one company are serialized. A caller
// holding both the company lock and Session.mu takes the company lock first.
type MappingStore struct {
	kv storage.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMappingStore(kv storage.Store) *MappingStore {
	return &MappingStore{kv: kv, locks: make(map[string]*sync.Mutex)}
}

func (m *MappingStore) companyLock(companyID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[companyID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[companyID] = l
	}
	return l
}

// Load returns the company's mapping. A missing or corrupt entry yields an
// empty mapping; only storage failures are returned as errors.
func (m *MappingStore) Load(ctx context.Context, companyID string) (domain.DeliveryMapping, error) {
	l := m.companyLock(companyID)
	l.Lock()
	defer l.Unlock()
	return m.load(ctx, companyID)
}

func (m *MappingStore) load(ctx context.Context, companyID string) (domain.DeliveryMapping, error) {
	raw, err := m.kv.Get(ctx, storage.DeliveryMappingKey(companyID))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.DeliveryMapping{}, nil
	}
	if err != nil {
		return domain.DeliveryMapping{}, err
	}
	var mapping domain.DeliveryMapping
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil || mapping == nil {
		log.Printf("discarding unreadable delivery mapping of company %s: %v", companyID, err)
		return domain.DeliveryMapping{}, nil
	}
	return mapping, nil
}

// Update applies fn to the company's mapping under the company lock and
// persists the result when fn reports a change.
func (m *MappingStore) Update(ctx context.Context, companyID string, fn func(domain.DeliveryMapping) bool) (domain.DeliveryMapping, error) {
	unlock := m.lock(companyID)
	defer unlock()
	return m.updateLocked(ctx, companyID, fn)
}

// lock takes the company lock and returns its release.
func (m *MappingStore) lock(companyID string) func() {
	l := m.companyLock(companyID)
	l.Lock()
	return l.Unlock
}

// updateLocked is Update for callers already holding the company lock.
func (m *MappingStore) updateLocked(ctx context.Context, companyID string, fn func(domain.DeliveryMapping) bool) (domain.DeliveryMapping, error) {
	mapping, err := m.load(ctx, companyID)
	if err != nil {
		return mapping, err
	}
	if !fn(mapping) {
		return mapping, nil
	}
	return mapping, storage.SetJSON(ctx, m.kv, storage.DeliveryMappingKey(companyID), mapping)
}

// DeliveryMapping returns the current company's persisted mapping.
func (s *Session) DeliveryMapping(ctx context.Context) (domain.DeliveryMapping, error) {
	return s.mappings.Load(ctx, s.companyID())
}

// ClearDeliveryMapping removes one entry: by customer id when given and
// mapped, otherwise by reverse lookup of the table id.
func (s *Session) ClearDeliveryMapping(ctx context.Context, tableID, customerID string) error {
	_, err := s.mappings.Update(ctx, s.companyID(), func(m domain.DeliveryMapping) bool {
		if _, ok := m[customerID]; customerID != "" && ok {
			delete(m, customerID)
			return true
		}
		if tableID == "" {
			return false
		}
		for cid, tid := range m {
			if tid == tableID {
				delete(m, cid)
				return true
			}
		}
		return false
	})
	return err
}

// PruneStaleDeliveryMappings drops every mapping whose delivery table has no
// active orders left or could not be checked. It returns the customer ids removed.
// Entries rewritten by a submission during the sweep are kept.
func (s *Session) PruneStaleDeliveryMappings(ctx context.Context) ([]string, error) {
	company := s.companyID()
	if company == "" {
		return nil, nil
	}
	mapping, err := s.mappings.Load(ctx, company)
	if err != nil {
		return nil, err
	}

	type pair struct{ customerID, tableID string }
	pairs := make([]pair, 0, len(mapping))
	for cid, tid := range mapping {
		pairs = append(pairs, pair{cid, tid})
	}
	stale := make([]bool, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pruneConcurrency)
	for i, p := range pairs {
		g.Go(func() error {
			orders, err := s.api.ListOrders(gctx, company, p.tableID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Printf("failed to validate delivery table %s for customer %s: %v", p.tableID, p.customerID, err)
				stale[i] = true
				return nil
			}
			if len(domain.ActiveOrders(orders)) == 0 {
				log.Printf("removing stale delivery mapping for customer %s, table %s", p.customerID, p.tableID)
				stale[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var removed []string
	_, err = s.mappings.Update(ctx, company, func(m domain.DeliveryMapping) bool {
		for i, p := range pairs {
			if stale[i] && m[p.customerID] == p.tableID {
				delete(m, p.customerID)
				removed = append(removed, p.customerID)
			}
		}
		return len(removed) > 0
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
