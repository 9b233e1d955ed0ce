// Package invoices implements the invoice lifecycle on top of the repositories.
//
// Persistence is best effort. Every operation applies its change in memory
// first and then writes the list back; when the store fails the changed
// record is still returned together with the error, so callers can keep
// showing it and decide whether to surface the failure.
package invoices

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/joseph-ayodele/jobsite-invoices/constants"
	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
	"github.com/joseph-ayodele/jobsite-invoices/internal/draft"
	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
	"github.com/joseph-ayodele/jobsite-invoices/internal/repository"
	"github.com/joseph-ayodele/jobsite-invoices/internal/totals"
)

// DefaultDateLayout formats createdAt like a US locale date (10/19/2026).
const DefaultDateLayout = "1/2/2006"

// Service handles invoice business logic.
type Service struct {
	invoiceRepo  repository.InvoiceRepository
	settingsRepo repository.SettingsRepository
	logger       *slog.Logger

	newID      func() (string, error)
	now        func() time.Time
	dateLayout string
}

// Option customizes a Service.
type Option func(*Service)

// WithIDGenerator replaces the UUIDv7 id source.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// WithDateLayout sets the layout createdAt is formatted with.
func WithDateLayout(layout string) Option {
	return func(s *Service) {
		if layout != "" {
			s.dateLayout = layout
		}
	}
}

// NewService creates a new invoice service.
func NewService(invoiceRepo repository.InvoiceRepository, settingsRepo repository.SettingsRepository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		invoiceRepo:  invoiceRepo,
		settingsRepo: settingsRepo,
		logger:       logger,
		newID:        newUUIDv7,
		now:          time.Now,
		dateLayout:   DefaultDateLayout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create freezes the buffer into a new invoice and prepends it to the list.
// ratePercent is a percentage (8 for 8%). Validation failures leave the
// buffer untouched; otherwise the buffer is cleared even when the write fails.
func (s *Service) Create(ctx context.Context, buf *draft.Buffer, ratePercent float64, intent constants.Intent) (*entity.Invoice, error) {
	if err := common.ValidateTaxRate(ratePercent); err != nil {
		s.logger.Error("invalid tax rate for invoice", "tax_rate", ratePercent, "error", err)
		return nil, err
	}
	status, ok := intent.InitialStatus()
	if !ok {
		s.logger.Error("unknown save intent", "intent", intent)
		return nil, common.NewAppError("INVALID_INPUT", "unknown save intent "+string(intent), common.ErrInvalidInput)
	}

	id, err := s.newID()
	if err != nil {
		s.logger.Error("failed to generate invoice id", "error", err)
		return nil, errors.Wrap(err, "generate invoice id")
	}

	inv, err := entity.NewInvoice(id, s.now().Format(s.dateLayout), status)
	if err != nil {
		return nil, err
	}
	items := buf.Items()
	t := totals.ForInvoice(items, ratePercent)
	inv.Items = items
	inv.Photos = buf.Photos()
	if sig, ok := buf.Signature(); ok {
		inv.AttachSignature(sig)
	}
	inv.Subtotal = t.Subtotal
	inv.Tax = t.Tax
	inv.TaxRate = ratePercent
	inv.Total = t.Total

	buf.Clear()

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		s.logger.Warn("invoice created but not persisted", "invoice_id", inv.ID, "error", err)
		return inv, err
	}
	s.logger.Info("invoice created", "invoice_id", inv.ID, "status", inv.Status(), "total", inv.Total, "items", len(inv.Items))
	return inv, nil
}

// List returns the stored invoices, newest first. The list is always usable:
// missing data is an empty list with no error, while unreadable data or a
// failing store yields an empty list together with the cause.
func (s *Service) List(ctx context.Context) ([]*entity.Invoice, error) {
	list, err := s.invoiceRepo.List(ctx)
	if errors.Is(err, repository.ErrNoData) {
		return list, nil
	}
	if err != nil {
		s.logger.Warn("invoice list unavailable, showing none", "error", err)
		return []*entity.Invoice{}, err
	}
	return list, nil
}

// ListByStatus returns the stored invoices with the given status.
func (s *Service) ListByStatus(ctx context.Context, status constants.Status) ([]*entity.Invoice, error) {
	list, err := s.List(ctx)
	out := make([]*entity.Invoice, 0, len(list))
	for _, inv := range list {
		if inv.Status() == status {
			out = append(out, inv)
		}
	}
	return out, err
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("failed to get invoice", "invoice_id", id, "error", err)
		}
		return nil, err
	}
	return inv, nil
}

// ToggleAcceptance flips inv between Accepted and Not Accepted and writes it
// back. A paid invoice is left as is. The return value reports whether inv changed.
func (s *Service) ToggleAcceptance(ctx context.Context, inv *entity.Invoice) (bool, error) {
	if !inv.ToggleAcceptance() {
		s.logger.Info("acceptance frozen while paid", "invoice_id", inv.ID)
		return false, nil
	}
	return true, s.persist(ctx, inv, "toggle acceptance")
}

// SetPaid records or clears payment on inv and writes it back.
func (s *Service) SetPaid(ctx context.Context, inv *entity.Invoice, paid bool) (bool, error) {
	if !inv.SetPaid(paid) {
		return false, nil
	}
	return true, s.persist(ctx, inv, "set paid")
}

// persist replaces the stored copy of inv. An invoice missing from the list
// is not written; that is a no-op, not an error.
func (s *Service) persist(ctx context.Context, inv *entity.Invoice, op string) error {
	snapshot := inv.Clone()
	_, err := s.invoiceRepo.Update(ctx, inv.ID, func(stored *entity.Invoice) error {
		*stored = *snapshot
		return nil
	})
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Warn("invoice not stored, change kept in memory only", "op", op, "invoice_id", inv.ID)
		return nil
	}
	if err != nil {
		s.logger.Warn("invoice change not persisted", "op", op, "invoice_id", inv.ID, "error", err)
		return err
	}
	s.logger.Info("invoice updated", "op", op, "invoice_id", inv.ID, "status", inv.Status(), "paid", inv.Paid())
	return nil
}

// Delete removes the invoice with id. An absent id is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.invoiceRepo.Delete(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Info("invoice to delete not found", "invoice_id", id)
		return nil
	}
	if err != nil {
		s.logger.Warn("failed to delete invoice", "invoice_id", id, "error", err)
		return err
	}
	s.logger.Info("invoice deleted", "invoice_id", id)
	return nil
}

// AttachSignature sets the signature on the newest stored invoice, whichever
// that is at the time of the call. It returns nil when no invoice is stored.
func (s *Service) AttachSignature(ctx context.Context, ref string) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.UpdateFirst(ctx, func(stored *entity.Invoice) error {
		stored.AttachSignature(ref)
		return nil
	})
	return s.signed(inv, err, "<newest>")
}

// AttachSignatureByID sets the signature on the invoice with id.
func (s *Service) AttachSignatureByID(ctx context.Context, id, ref string) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.Update(ctx, id, func(stored *entity.Invoice) error {
		stored.AttachSignature(ref)
		return nil
	})
	return s.signed(inv, err, id)
}

func (s *Service) signed(inv *entity.Invoice, err error, target string) (*entity.Invoice, error) {
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Warn("no invoice to attach signature to", "target", target)
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("signature not persisted", "target", target, "error", err)
		return nil, err
	}
	s.logger.Info("signature attached", "invoice_id", inv.ID)
	return inv, nil
}

// TaxRate returns the saved tax rate percentage, falling back to the default.
func (s *Service) TaxRate(ctx context.Context) float64 {
	rate, err := s.settingsRepo.TaxRate(ctx)
	if err != nil {
		s.logger.Warn("settings unavailable, using default tax rate", "tax_rate", rate, "error", err)
	}
	return rate
}

func (s *Service) SaveTaxRate(ctx context.Context, rate float64) error {
	return s.settingsRepo.SaveTaxRate(ctx, rate)
}

func (s *Service) ResetSettings(ctx context.Context) error {
	return s.settingsRepo.Reset(ctx)
}
