package storage

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/pos/domain"
	"comanda/pos/internal/database"
	"comanda/pos/internal/migrations"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Run(db))
	return db
}

func TestSQLStore_GetMissingKey(t *testing.T) {
	store := NewSQLStore(openTestDB(t))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_SetOverwritesAndRemove(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(openTestDB(t))

	require.NoError(t, store.Set(ctx, "k", "one"))
	require.NoError(t, store.Set(ctx, "k", "two"))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", got)

	require.NoError(t, store.Remove(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSON_RoundTripsDeliveryMapping(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(openTestDB(t))
	mapping := domain.DeliveryMapping{"cust-a": "DLV-1", "cust-b": "DLV-2"}

	require.NoError(t, SetJSON(ctx, store, DeliveryMappingKey("42"), mapping))

	var got domain.DeliveryMapping
	require.NoError(t, GetJSON(ctx, store, DeliveryMappingKey("42"), &got))
	assert.Equal(t, mapping, got)
}

func TestDeliveryMappingKey_IsCompanyScoped(t *testing.T) {
	assert.Equal(t, "delivery_open_tables_7", DeliveryMappingKey("7"))
	assert.NotEqual(t, DeliveryMappingKey("7"), DeliveryMappingKey("8"))
}

func TestHistory_ListsNewestFirstPerCompany(t *testing.T) {
	ctx := context.Background()
	history := NewHistory(openTestDB(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := domain.ClosedTable{ID: "closed-1", TableNumber: 3, FinalTotal: decimal.NewFromInt(11), ClosedAt: base, Waiter: "ana", PaymentMethod: "cash"}
	newer := domain.ClosedTable{ID: "closed-2", TableNumber: 4, FinalTotal: decimal.NewFromInt(22), ClosedAt: base.Add(time.Hour), Waiter: "ana", PaymentMethod: "card"}
	other := domain.ClosedTable{ID: "closed-3", TableNumber: 1, FinalTotal: decimal.NewFromInt(5), ClosedAt: base, Waiter: "bo", PaymentMethod: "cash"}

	require.NoError(t, history.Append(ctx, "c1", older))
	require.NoError(t, history.Append(ctx, "c1", newer))
	require.NoError(t, history.Append(ctx, "c2", other))

	got, err := history.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "closed-2", got[0].ID)
	assert.Equal(t, "closed-1", got[1].ID)
	assert.True(t, got[0].FinalTotal.Equal(decimal.NewFromInt(22)))
}
