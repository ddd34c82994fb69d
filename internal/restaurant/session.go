// Package restaurant tracks the serving context of a terminal: the selected
// table or delivery session, its cart of unsent lines and its confirmed orders.
package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"comanda/pos/domain"
	"comanda/pos/internal/remote"
)

var (
	// ErrEmptyCart is returned by SubmitCart when there is nothing to send.
	ErrEmptyCart = errors.New("restaurant: cart is empty")
	// ErrInvalidLine rejects cart lines with a non-positive quantity or a negative price.
	ErrInvalidLine = errors.New("restaurant: invalid cart line")
)

// API is the part of the remote client the context manager consumes.
type API interface {
	ListTables(ctx context.Context, companyID string) ([]domain.Table, error)
	ListOrders(ctx context.Context, companyID, tableID string) ([]domain.Order, error)
	CreateOrders(ctx context.Context, orders []remote.OrderPayload) error
	DeleteOrder(ctx context.Context, companyID, orderID string) error
	DeleteTableOrders(ctx context.Context, companyID, tableID string) error
	ListCategories(ctx context.Context, companyID string) ([]domain.Category, error)
	ListProducts(ctx context.Context, companyID, categoryID, subcategoryID string) ([]domain.Product, error)
	CreateSalesRecord(ctx context.Context, rec domain.SalesRecord) (json.RawMessage, error)
	ListSalesRecords(ctx context.Context, companyID, createdAt string) ([]domain.SalesRecord, error)
	PrintPartial(ctx context.Context, content any) error
}

// HistoryStore persists closed-table receipts.
type HistoryStore interface {
	Append(ctx context.Context, companyID string, ct domain.ClosedTable) error
}

// Outcome classifies a read.
type Outcome int

const (
	Loaded Outcome = iota
	Empty
	Failed
	// Superseded means a newer selection replaced the one the read belonged to;
	// its result was discarded.
	Superseded
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	case Superseded:
		return "superseded"
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// FetchResult lets callers tell "no data" from "fetch failed".
type FetchResult struct {
	Outcome Outcome `json:"outcome"`
	Err     error   `json:"-"`
}

func loadedOrEmpty(n int) FetchResult {
	if n == 0 {
		return FetchResult{Outcome: Empty}
	}
	return FetchResult{Outcome: Loaded}
}

func failedWith(err error) FetchResult { return FetchResult{Outcome: Failed, Err: err} }

var superseded = FetchResult{Outcome: Superseded}

// Option configures a Session.
type Option func(*Session)

// WithHistory records closed tables in h.
func WithHistory(h HistoryStore) Option {
	return func(s *Session) { s.history = h }
}

// WithIDGenerator replaces the random id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Session) { s.now = fn }
}

// Session is the order/table context of one logged-in user. It is safe for
// concurrent use; every context selection starts a new generation and results
// of older generations are dropped.
type Session struct {
	api      API
	mappings *MappingStore
	history  HistoryStore
	user     domain.User
	newID    func() string
	now      func() time.Time

	mu          sync.Mutex
	gen         uint64
	cancelFetch context.CancelFunc
	tables      []domain.Table
	cart        []domain.Order
	cartTotal   decimal.Decimal
	confirmed   []domain.Order
	selected    *domain.ServingContext
	closed      []domain.ClosedTable
	categories  []domain.Category
	products    []domain.Product
	sales       []domain.SalesRecord
}

func NewSession(api API, mappings *MappingStore, user domain.User, opts ...Option) *Session {
	s := &Session{
		api:       api,
		mappings:  mappings,
		user:      user,
		newID:     uuid.NewString,
		now:       time.Now,
		cartTotal: decimal.Zero,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) companyID() string { return s.user.CompanyID }

// User returns the identity the session acts for.
func (s *Session) User() domain.User { return s.user }

// Reset drops every piece of cached state, as on logout.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.tables = nil
	s.cart = nil
	s.cartTotal = decimal.Zero
	s.confirmed = nil
	s.selected = nil
	s.closed = nil
	s.categories = nil
	s.products = nil
	s.sales = nil
}

func (s *Session) Tables() []domain.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Table(nil), s.tables...)
}

func (s *Session) Cart() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.cart...)
}

func (s *Session) CartTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartTotal
}

func (s *Session) Confirmed() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.confirmed...)
}

// ConfirmedTotal sums unit price times quantity over the confirmed orders.
func (s *Session) ConfirmedTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SumLines(s.confirmed)
}

// Selected returns the active context, if any.
func (s *Session) Selected() (domain.ServingContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return domain.ServingContext{}, false
	}
	return *s.selected, true
}

// ClosedTables returns the receipts of this session, newest first.
func (s *Session) ClosedTables() []domain.ClosedTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ClosedTable(nil), s.closed...)
}

func (s *Session) Categories() []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Category(nil), s.categories...)
}

func (s *Session) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Product(nil), s.products...)
}

func (s *Session) SalesRecords() []domain.SalesRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SalesRecord(nil), s.sales...)
}
