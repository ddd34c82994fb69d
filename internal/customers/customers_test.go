package customers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/pos/domain"
)

type fakeAPI struct {
	listed  []domain.Customer
	listErr error
	created []domain.Customer
	updated map[string]any
	deleted []string
	failOn  string
}

func (f *fakeAPI) ListCustomers(context.Context, string) ([]domain.Customer, error) {
	return f.listed, f.listErr
}

func (f *fakeAPI) CreateCustomer(_ context.Context, c domain.Customer) error {
	if f.failOn == "create" {
		return errors.New("boom")
	}
	f.created = append(f.created, c)
	f.listed = append(f.listed, c)
	return nil
}

func (f *fakeAPI) UpdateCustomer(_ context.Context, _, _ string, fields map[string]any) error {
	if f.failOn == "update" {
		return errors.New("boom")
	}
	f.updated = fields
	return nil
}

func (f *fakeAPI) DeleteCustomer(_ context.Context, _, id string) error {
	if f.failOn == "delete" {
		return errors.New("boom")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func TestDirectory_List_MergesWithoutDuplicates(t *testing.T) {
	api := &fakeAPI{listed: []domain.Customer{{ID: "a"}, {ID: "b"}}}
	d := New(api, "c1")

	require.NoError(t, d.List(context.Background()))
	api.listed = []domain.Customer{{ID: "b"}, {ID: "c"}}
	require.NoError(t, d.List(context.Background()))

	ids := []string{}
	for _, c := range d.All() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, 3, d.Count())
	assert.False(t, d.Loading())
}

func TestDirectory_List_ErrorKeepsCache(t *testing.T) {
	api := &fakeAPI{listed: []domain.Customer{{ID: "a"}}}
	d := New(api, "c1")
	require.NoError(t, d.List(context.Background()))

	api.listErr = errors.New("offline")
	assert.Error(t, d.List(context.Background()))
	assert.Equal(t, 1, d.Count())
}

func TestDirectory_Add_DefaultsCompanyAndRefreshes(t *testing.T) {
	api := &fakeAPI{}
	d := New(api, "c1")

	res := d.Add(context.Background(), domain.Customer{ID: "n", CustomerName: "Nina"})
	assert.True(t, res.Success)
	require.Len(t, api.created, 1)
	assert.Equal(t, "c1", api.created[0].CompanyID)
	_, ok := d.Find("n")
	assert.True(t, ok)
}

func TestDirectory_Update_StripsImmutableFieldsAndMerges(t *testing.T) {
	api := &fakeAPI{listed: []domain.Customer{{ID: "a", CustomerName: "Old", City: "Recife"}}}
	d := New(api, "c1")
	require.NoError(t, d.List(context.Background()))

	res := d.Update(context.Background(), "a", map[string]any{
		"id": "zzz", "company_id": "x", "created_at": "t", "updated_at": "t",
		"customer_name": "New",
	})
	require.True(t, res.Success)
	assert.Equal(t, map[string]any{"customer_name": "New"}, api.updated)

	c, ok := d.Find("a")
	require.True(t, ok)
	assert.Equal(t, "New", c.CustomerName)
	assert.Equal(t, "Recife", c.City)
}

func TestDirectory_WriteFailuresReturnResult(t *testing.T) {
	api := &fakeAPI{listed: []domain.Customer{{ID: "a"}}}
	d := New(api, "c1")
	require.NoError(t, d.List(context.Background()))

	api.failOn = "delete"
	res := d.Delete(context.Background(), "a")
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
	assert.Equal(t, 1, d.Count())

	api.failOn = ""
	res = d.Delete(context.Background(), "a")
	assert.True(t, res.Success)
	assert.Zero(t, d.Count())
}
