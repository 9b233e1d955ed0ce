package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
	"github.com/joseph-ayodele/jobsite-invoices/internal/storage"
)

// ErrNoData is returned when nothing has been persisted under the key yet.
var ErrNoData = errors.New("no data stored")

// ErrDuplicateID is returned by Save when the id is already in the list.
var ErrDuplicateID = errors.New("invoice id already exists")

// Mutator changes a stored invoice in place.
type Mutator func(inv *entity.Invoice) error

// InvoiceRepository stores the invoice list, newest first, under one key.
// Every write reads the whole list, changes it in memory and writes it back;
// there is no locking, so overlapping writers lose updates.
type InvoiceRepository interface {
	List(ctx context.Context) ([]*entity.Invoice, error)
	Get(ctx context.Context, id string) (*entity.Invoice, error)
	Save(ctx context.Context, inv *entity.Invoice) error
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, mutate Mutator) (*entity.Invoice, error)
	UpdateFirst(ctx context.Context, mutate Mutator) (*entity.Invoice, error)
}

type invoiceRepository struct {
	store  storage.Store
	key    string
	logger *slog.Logger
}

func NewInvoiceRepository(store storage.Store, key string, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{
		store:  store,
		key:    key,
		logger: logger,
	}
}

// stored is the decoded list plus the records that could not be read. Those
// are kept verbatim and written back after the readable ones so a write never
// drops data this version does not understand.
type stored struct {
	invoices []*entity.Invoice
	skipped  []json.RawMessage
}

// load reads and decodes the list. Missing data yields ErrNoData, a value that
// is not a JSON array yields common.ErrCorrupt, store failures are wrapped
// with common.ErrStorage. Individual records that fail validation are skipped.
func (r *invoiceRepository) load(ctx context.Context) (stored, error) {
	empty := stored{invoices: []*entity.Invoice{}}
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return empty, ErrNoData
	}
	if err != nil {
		r.logger.Error("failed to read invoices", "key", r.key, "error", err)
		return empty, common.StorageError("read invoices", err)
	}
	if raw == "" {
		return empty, ErrNoData
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		r.logger.Error("stored invoice list is unreadable", "key", r.key, "error", err)
		return empty, common.NewAppError("CORRUPT_DATA", "decode invoices", errors.Wrap(common.ErrCorrupt, err.Error()))
	}

	out := stored{invoices: make([]*entity.Invoice, 0, len(records))}
	for i, rec := range records {
		inv, err := decodeInvoice(rec)
		if err != nil {
			r.logger.Warn("skipping unreadable invoice record", "key", r.key, "index", i, "error", err)
			out.skipped = append(out.skipped, rec)
			continue
		}
		out.invoices = append(out.invoices, inv)
	}
	return out, nil
}

func decodeInvoice(rec json.RawMessage) (*entity.Invoice, error) {
	if err := validateInvoice(rec); err != nil {
		return nil, err
	}
	var inv entity.Invoice
	if err := json.Unmarshal(rec, &inv); err != nil {
		return nil, errors.Wrap(err, "decode invoice")
	}
	return &inv, nil
}

// loadForWrite treats "no data yet" as an empty list.
func (r *invoiceRepository) loadForWrite(ctx context.Context) (stored, error) {
	s, err := r.load(ctx)
	if errors.Is(err, ErrNoData) {
		return s, nil
	}
	return s, err
}

func (r *invoiceRepository) write(ctx context.Context, list []*entity.Invoice, skipped []json.RawMessage) error {
	records := make([]json.RawMessage, 0, len(list)+len(skipped))
	for _, inv := range list {
		b, err := json.Marshal(inv)
		if err != nil {
			return errors.Wrapf(err, "encode invoice %s", inv.ID)
		}
		records = append(records, b)
	}
	records = append(records, skipped...)

	b, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "encode invoices")
	}
	if err := r.store.Set(ctx, r.key, string(b)); err != nil {
		r.logger.Error("failed to write invoices", "key", r.key, "count", len(list), "error", err)
		return common.StorageError("write invoices", err)
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context) ([]*entity.Invoice, error) {
	s, err := r.load(ctx)
	return s.invoices, err
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	s, err := r.load(ctx)
	if err != nil && !errors.Is(err, ErrNoData) {
		return nil, err
	}
	for _, inv := range s.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, errors.Wrapf(common.ErrNotFound, "invoice %s", id)
}

// Save prepends inv to the list.
func (r *invoiceRepository) Save(ctx context.Context, inv *entity.Invoice) error {
	s, err := r.loadForWrite(ctx)
	if err != nil {
		return err
	}
	for _, existing := range s.invoices {
		if existing.ID == inv.ID {
			r.logger.Error("invoice id collision", "invoice_id", inv.ID)
			return errors.Wrapf(ErrDuplicateID, "invoice %s", inv.ID)
		}
	}

	next := make([]*entity.Invoice, 0, len(s.invoices)+1)
	next = append(next, inv.Clone())
	next = append(next, s.invoices...)
	if err := r.write(ctx, next, s.skipped); err != nil {
		return err
	}
	r.logger.Debug("invoice saved", "invoice_id", inv.ID, "count", len(next))
	return nil
}

// Delete removes the invoice with id and keeps the others in order. An
// absent id returns common.ErrNotFound and leaves the store untouched.
func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	s, err := r.loadForWrite(ctx)
	if err != nil {
		return err
	}

	kept := make([]*entity.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		if inv.ID != id {
			kept = append(kept, inv)
		}
	}
	if len(kept) == len(s.invoices) {
		return errors.Wrapf(common.ErrNotFound, "invoice %s", id)
	}
	if err := r.write(ctx, kept, s.skipped); err != nil {
		return err
	}
	r.logger.Debug("invoice deleted", "invoice_id", id, "count", len(kept))
	return nil
}

func (r *invoiceRepository) Update(ctx context.Context, id string, mutate Mutator) (*entity.Invoice, error) {
	return r.updateWhere(ctx, func(i int, inv *entity.Invoice) bool { return inv.ID == id }, mutate, id)
}

// UpdateFirst mutates the newest readable invoice, whichever it is.
func (r *invoiceRepository) UpdateFirst(ctx context.Context, mutate Mutator) (*entity.Invoice, error) {
	return r.updateWhere(ctx, func(i int, _ *entity.Invoice) bool { return i == 0 }, mutate, "<first>")
}

func (r *invoiceRepository) updateWhere(ctx context.Context, match func(int, *entity.Invoice) bool, mutate Mutator, label string) (*entity.Invoice, error) {
	s, err := r.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}

	for i, inv := range s.invoices {
		if !match(i, inv) {
			continue
		}
		if err := mutate(inv); err != nil {
			return nil, err
		}
		if err := r.write(ctx, s.invoices, s.skipped); err != nil {
			return nil, err
		}
		r.logger.Debug("invoice updated", "invoice_id", inv.ID, "status", inv.Status(), "paid", inv.Paid())
		return inv.Clone(), nil
	}
	return nil, errors.Wrapf(common.ErrNotFound, "invoice %s", label)
}
