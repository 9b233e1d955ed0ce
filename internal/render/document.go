package render

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
)

// Document formats.
const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

// Document is a rendered invoice on disk. It can be opened, shared, or discarded.
type Document struct {
	Path   string
	Format string
	Size   int64
}

// Discard removes the file. Discarding twice is fine.
func (d *Document) Discard() error {
	if err := os.Remove(d.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "discard %s", d.Path)
	}
	return nil
}

// Renderer produces a document for an invoice.
type Renderer interface {
	Render(ctx context.Context, inv *entity.Invoice, format string) (*Document, error)
}

// FileRenderer writes rendered invoices into a directory.
type FileRenderer struct {
	dir    string
	logger *slog.Logger
}

func NewFileRenderer(dir string, logger *slog.Logger) *FileRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileRenderer{dir: dir, logger: logger}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Render writes inv as format ("pdf" or "html") to <dir>/invoice-<id>.<format>.
func (r *FileRenderer) Render(ctx context.Context, inv *entity.Invoice, format string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format = strings.ToLower(strings.TrimSpace(format))
	var data []byte
	switch format {
	case FormatPDF:
		b, err := PDF(inv)
		if err != nil {
			return nil, err
		}
		data = b
	case FormatHTML:
		s, err := HTML(inv)
		if err != nil {
			return nil, err
		}
		data = []byte(s)
	default:
		return nil, common.NewAppError("INVALID_INPUT", "unsupported document format "+format, common.ErrInvalidInput)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", r.dir)
	}
	name := "invoice-" + unsafeName.ReplaceAllString(inv.ID, "_") + "." + format
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.logger.Error("failed to write document", "invoice_id", inv.ID, "path", path, "error", err)
		return nil, errors.Wrapf(err, "write %s", path)
	}

	r.logger.Info("document rendered", "invoice_id", inv.ID, "format", format, "path", path, "bytes", len(data))
	return &Document{Path: path, Format: format, Size: int64(len(data))}, nil
}
