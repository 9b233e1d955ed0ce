package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/jobsite-invoices/constants"
	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
	"github.com/joseph-ayodele/jobsite-invoices/internal/storage"
)

const key = "@jobsite_invoices"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Fakes ---

var errDiskFull = errors.New("disk full")

type failingStore struct {
	storage.Store
	failGet, failSet, failRemove bool
}

func (f *failingStore) Get(ctx context.Context, k string) (string, error) {
	if f.failGet {
		return "", errDiskFull
	}
	return f.Store.Get(ctx, k)
}

func (f *failingStore) Set(ctx context.Context, k, v string) error {
	if f.failSet {
		return errDiskFull
	}
	return f.Store.Set(ctx, k, v)
}

func (f *failingStore) Remove(ctx context.Context, k string) error {
	if f.failRemove {
		return errDiskFull
	}
	return f.Store.Remove(ctx, k)
}

func newInvoice(t *testing.T, id string, status constants.Status) *entity.Invoice {
	t.Helper()
	inv, err := entity.NewInvoice(id, "10/19/2026", status)
	require.NoError(t, err)
	inv.Items = []entity.LineItem{{ID: "1", Name: "Labor", Qty: 2, Rate: 75}}
	inv.Subtotal, inv.Tax, inv.TaxRate, inv.Total = 150, 12, 8, 162
	return inv
}

func ids(list []*entity.Invoice) []string {
	out := make([]string, len(list))
	for i, inv := range list {
		out[i] = inv.ID
	}
	return out
}

// --- Invoice repository ---

func TestList_NoData(t *testing.T) {
	repo := NewInvoiceRepository(storage.NewMemoryStore(), key, testLogger())

	list, err := repo.List(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
	assert.Empty(t, list)
}

func TestSave_PrependsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(storage.NewMemoryStore(), key, testLogger())

	require.NoError(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusDraft)))
	require.NoError(t, repo.Save(ctx, newInvoice(t, "B", constants.StatusOpen)))
	require.NoError(t, repo.Save(ctx, newInvoice(t, "C", constants.StatusAccepted)))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, ids(list))
	assert.Equal(t, constants.StatusOpen, list[1].Status())
	assert.Equal(t, 162.0, list[2].Total)
}

func TestSave_RejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(storage.NewMemoryStore(), key, testLogger())

	require.NoError(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusDraft)))
	assert.ErrorIs(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusDraft)), ErrDuplicateID)

	list, _ := repo.List(ctx)
	assert.Len(t, list, 1)
}

func TestDelete_KeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(storage.NewMemoryStore(), key, testLogger())
	for _, id := range []string{"A", "B", "C", "D"} {
		require.NoError(t, repo.Save(ctx, newInvoice(t, id, constants.StatusDraft)))
	}

	require.NoError(t, repo.Delete(ctx, "B"))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "A"}, ids(list))
}

func TestDelete_MissingIDLeavesStore(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(storage.NewMemoryStore(), key, testLogger())
	require.NoError(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusDraft)))

	assert.ErrorIs(t, repo.Delete(ctx, "Z"), common.ErrNotFound)
	list, _ := repo.List(ctx)
	assert.Equal(t, []string{"A"}, ids(list))
}

func TestUpdate_PersistsMutation(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(storage.NewMemoryStore(), key, testLogger())
	require.NoError(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusAccepted)))
	require.NoError(t, repo.Save(ctx, newInvoice(t, "B", constants.StatusAccepted)))

	updated, err := repo.Update(ctx, "A", func(inv *entity.Invoice) error {
		inv.SetPaid(true)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCompleted, updated.Status())

	got, err := repo.Get(ctx, "A")
	require.NoError(t, err)
	assert.True(t, got.Paid())
	prev, _ := got.PreviousStatus()
	assert.Equal(t, constants.StatusAccepted, prev)

	other, err := repo.Get(ctx, "B")
	require.NoError(t, err)
	assert.False(t, other.Paid())
}

func TestUpdate_MutatorErrorAbortsWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(storage.NewMemoryStore(), key, testLogger())
	require.NoError(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusAccepted)))

	boom := errors.New("boom")
	_, err := repo.Update(ctx, "A", func(inv *entity.Invoice) error {
		inv.ToggleAcceptance()
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := repo.Get(ctx, "A")
	assert.Equal(t, constants.StatusAccepted, got.Status())
}

func TestUpdateFirst_TargetsNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(storage.NewMemoryStore(), key, testLogger())

	_, err := repo.UpdateFirst(ctx, func(*entity.Invoice) error { return nil })
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusDraft)))
	require.NoError(t, repo.Save(ctx, newInvoice(t, "B", constants.StatusDraft)))

	updated, err := repo.UpdateFirst(ctx, func(inv *entity.Invoice) error {
		inv.AttachSignature("sig-1")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.ID)

	a, _ := repo.Get(ctx, "A")
	assert.Nil(t, a.Signature)
}

func TestLoad_CorruptData(t *testing.T) {
	ctx := context.Background()
	tests := map[string]string{
		"not json": `{{{`,
		"object":   `{"id":"A"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			require.NoError(t, store.Set(ctx, key, raw))
			repo := NewInvoiceRepository(store, key, testLogger())

			list, err := repo.List(ctx)
			assert.ErrorIs(t, err, common.ErrCorrupt)
			assert.Empty(t, list)

			// a write never replaces data it could not read
			assert.ErrorIs(t, repo.Save(ctx, newInvoice(t, "B", constants.StatusDraft)), common.ErrCorrupt)
			v, _ := store.Get(ctx, key)
			assert.Equal(t, raw, v)
		})
	}
}

func TestLoad_SkipsUnreadableRecords(t *testing.T) {
	ctx := context.Background()
	good := `{"id":"A","items":[{"id":"1","name":"Labor","qty":2,"rate":75}],"status":"Draft"}`
	tests := map[string]string{
		"unknown status": `{"id":"X","items":[],"status":"Paid"}`,
		"bad item":       `{"id":"X","items":[{"id":"1","name":"Labor","qty":"two","rate":75}],"status":"Draft"}`,
		"missing id":     `{"items":[],"status":"Draft"}`,
		"not an object":  `42`,
	}
	for name, bad := range tests {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			require.NoError(t, store.Set(ctx, key, "["+good+","+bad+"]"))
			repo := NewInvoiceRepository(store, key, testLogger())

			list, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"A"}, ids(list))

			_, err = repo.Get(ctx, "X")
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestSave_KeepsSkippedRecords(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	legacy := `{"id":"X","items":[],"status":"Paid"}`
	require.NoError(t, store.Set(ctx, key, "["+legacy+"]"))
	repo := NewInvoiceRepository(store, key, testLogger())

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusDraft)))
	_, err = repo.Update(ctx, "A", func(inv *entity.Invoice) error { inv.ToggleAcceptance(); return nil })
	require.NoError(t, err)

	v, err := store.Get(ctx, key)
	require.NoError(t, err)
	var records []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(v), &records))
	require.Len(t, records, 2)
	assert.JSONEq(t, legacy, string(records[1]))

	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(list))

	require.NoError(t, repo.Delete(ctx, "A"))
	v, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, "["+legacy+"]", v)
}

func TestLoad_LegacyRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	raw := `[{"id":"1712345678901","items":[{"id":"1","name":"Labor","qty":2,"rate":75}],"subtotal":150,"tax":12,"taxRate":8,"total":162,"createdAt":"4/5/2024","status":"Not Accepted","extra":true}]`
	require.NoError(t, store.Set(ctx, key, raw))
	repo := NewInvoiceRepository(store, key, testLogger())

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, constants.StatusNotAccepted, list[0].Status())
	assert.False(t, list[0].Paid())
	assert.Empty(t, list[0].Photos)
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: storage.NewMemoryStore()}
	repo := NewInvoiceRepository(store, key, testLogger())
	require.NoError(t, repo.Save(ctx, newInvoice(t, "A", constants.StatusDraft)))

	store.failSet = true
	err := repo.Save(ctx, newInvoice(t, "B", constants.StatusDraft))
	assert.True(t, common.IsStorage(err))
	assert.ErrorIs(t, err, errDiskFull)

	store.failSet = false
	store.failGet = true
	_, err = repo.List(ctx)
	assert.True(t, common.IsStorage(err))
	assert.NotErrorIs(t, err, ErrNoData)
}

// --- Settings repository ---

func TestSettings_DefaultWhenMissing(t *testing.T) {
	repo := NewSettingsRepository(storage.NewMemoryStore(), constants.SettingsKey, 8, testLogger())

	rate, err := repo.TaxRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8.0, rate)

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSettings_SaveAndReset(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := NewSettingsRepository(store, constants.SettingsKey, 8, testLogger())

	require.NoError(t, repo.SaveTaxRate(ctx, 6.5))
	rate, err := repo.TaxRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.5, rate)

	raw, _ := store.Get(ctx, constants.SettingsKey)
	assert.JSONEq(t, `{"taxRate":6.5}`, raw)

	require.NoError(t, repo.Reset(ctx))
	rate, _ = repo.TaxRate(ctx)
	assert.Equal(t, 8.0, rate)
}

func TestSettings_ZeroRateIsKept(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(storage.NewMemoryStore(), constants.SettingsKey, 8, testLogger())

	require.NoError(t, repo.SaveTaxRate(ctx, 0))
	rate, err := repo.TaxRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)
}

func TestSettings_RejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := NewSettingsRepository(store, constants.SettingsKey, 8, testLogger())

	assert.ErrorIs(t, repo.SaveTaxRate(ctx, 101), common.ErrValidation)
	assert.ErrorIs(t, repo.SaveTaxRate(ctx, -1), common.ErrValidation)
	_, err := store.Get(ctx, constants.SettingsKey)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestSettings_UnreadableFallsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: storage.NewMemoryStore()}
	repo := NewSettingsRepository(store, constants.SettingsKey, 8, testLogger())

	require.NoError(t, store.Set(ctx, constants.SettingsKey, `nope`))
	rate, err := repo.TaxRate(ctx)
	assert.ErrorIs(t, err, common.ErrCorrupt)
	assert.Equal(t, 8.0, rate)

	store.failGet = true
	rate, err = repo.TaxRate(ctx)
	assert.True(t, common.IsStorage(err))
	assert.Equal(t, 8.0, rate)
}
