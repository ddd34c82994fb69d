// Package storage persists the client's local state: small JSON blobs keyed by
// string (the session, delivery mappings) and the closed-table history.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"comanda/pos/domain"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// SessionKey holds the authenticated-session blob.
const SessionKey = "restaurant_auth"

// DeliveryMappingKey is the company-scoped key of the delivery mapping.
func DeliveryMappingKey(companyID string) string {
	return "delivery_open_tables_" + companyID
}

// Store is a string-keyed store of raw values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// SQLStore keeps values in the kv_store table.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value under key into dest.
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(raw))
}

// closedAtLayout sorts lexically in time order.
const closedAtLayout = "2006-01-02T15:04:05.000000000Z"

type closedTableRow struct {
	ID            string `db:"id"`
	CompanyID     string `db:"company_id"`
	TableNumber   int    `db:"table_number"`
	FinalTotal    string `db:"final_total"`
	PaymentMethod string `db:"payment_method"`
	Waiter        string `db:"waiter"`
	Receipt       string `db:"receipt"`
	ClosedAt      string `db:"closed_at"`
}

// History records closed-table receipts per company.
type History struct {
	db *sqlx.DB
}

func NewHistory(db *sqlx.DB) *History {
	return &History{db: db}
}

func (h *History) Append(ctx context.Context, companyID string, ct domain.ClosedTable) error {
	receipt, err := json.Marshal(ct)
	if err != nil {
		return err
	}
	row := closedTableRow{
		ID:            ct.ID,
		CompanyID:     companyID,
		TableNumber:   ct.TableNumber,
		FinalTotal:    ct.FinalTotal.String(),
		PaymentMethod: ct.PaymentMethod,
		Waiter:        ct.Waiter,
		Receipt:       string(receipt),
		ClosedAt:      ct.ClosedAt.UTC().Format(closedAtLayout),
	}
	_, err = h.db.NamedExecContext(ctx, `INSERT INTO closed_tables (id, company_id, table_number, final_total, payment_method, waiter, receipt, closed_at)
        VALUES (:id, :company_id, :table_number, :final_total, :payment_method, :waiter, :receipt, :closed_at)`, row)
	if err != nil {
		return fmt.Errorf("append closed table %s: %w", ct.ID, err)
	}
	return nil
}

// List returns the company's receipts, newest first.
func (h *History) List(ctx context.Context, companyID string) ([]domain.ClosedTable, error) {
	var rows []closedTableRow
	if err := h.db.SelectContext(ctx, &rows, `SELECT id, company_id, table_number, final_total, payment_method, waiter, receipt, closed_at
        FROM closed_tables WHERE company_id = ? ORDER BY closed_at DESC`, companyID); err != nil {
		return nil, fmt.Errorf("list closed tables: %w", err)
	}
	out := make([]domain.ClosedTable, 0, len(rows))
	for _, row := range rows {
		var ct domain.ClosedTable
		if err := json.Unmarshal([]byte(row.Receipt), &ct); err != nil {
			return nil, fmt.Errorf("decode receipt %s: %w", row.ID, err)
		}
		out = append(out, ct)
	}
	return out, nil
}
