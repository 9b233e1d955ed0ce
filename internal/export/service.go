package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/jobsite-invoices/constants"
	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
	"github.com/joseph-ayodele/jobsite-invoices/internal/utils"
)

// Sheet names in the exported workbook.
const (
	InvoicesSheet  = "Invoices"
	LineItemsSheet = "Line Items"
)

// InvoiceLister is the read side export needs.
type InvoiceLister interface {
	List(ctx context.Context) ([]*entity.Invoice, error)
}

// Service produces XLSX bytes for the stored invoice list.
type Service struct {
	invoices InvoiceLister
	logger   *slog.Logger
}

func NewService(invoices InvoiceLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, logger: logger}
}

// ExportInvoicesXLSX returns a workbook with one summary row per invoice and
// one row per line item, newest invoice first. A non-nil status keeps only
// invoices in that status.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, status *constants.Status) ([]byte, error) {
	start := time.Now()

	list, err := s.invoices.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list invoices")
	}
	if status != nil {
		kept := list[:0:0]
		for _, inv := range list {
			if inv.Status() == *status {
				kept = append(kept, inv)
			}
		}
		list = kept
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), InvoicesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(LineItemsSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(InvoicesSheet)
	f.SetActiveSheet(activeIndex)

	writeRow(f, InvoicesSheet, 1, []any{
		"Invoice ID", "Date", "Status", "Paid", "Previous Status",
		"Tax Rate (%)", "Subtotal", "Tax", "Total", "Items", "Photos", "Signed",
	})
	writeRow(f, LineItemsSheet, 1, []any{"Invoice ID", "Item ID", "Name", "Qty", "Rate", "Line Total"})

	itemRow := 2
	for i, inv := range list {
		prev, _ := inv.PreviousStatus()
		writeRow(f, InvoicesSheet, i+2, []any{
			inv.ID,
			inv.CreatedAt,
			inv.Status().String(),
			yesNo(inv.Paid()),
			prev.String(),
			inv.TaxRate,
			inv.Subtotal,
			inv.Tax,
			inv.Total,
			len(inv.Items),
			len(inv.Photos),
			yesNo(utils.StrOrEmpty(inv.Signature) != ""),
		})
		for _, item := range inv.Items {
			writeRow(f, LineItemsSheet, itemRow, []any{inv.ID, item.ID, item.Name, item.Qty, item.Rate, item.Total()})
			itemRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(InvoicesSheet, "A", "A", 38) // id
	_ = f.SetColWidth(InvoicesSheet, "B", "B", 12) // date
	_ = f.SetColWidth(InvoicesSheet, "C", "E", 16) // status
	_ = f.SetColWidth(InvoicesSheet, "F", "I", 12) // amounts
	_ = f.SetColWidth(LineItemsSheet, "A", "B", 38)
	_ = f.SetColWidth(LineItemsSheet, "C", "C", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "xlsx write")
	}

	s.logger.Info("export.xlsx.ok",
		"invoices", len(list),
		"line_items", itemRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
