package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/joseph-ayodele/jobsite-invoices/constants"
	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
	"github.com/joseph-ayodele/jobsite-invoices/internal/utils"
)

const (
	pageMargin   = 15.0
	lineHeight   = 7.0
	photoWidth   = 50.0
	signatureMax = 70.0
)

var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"Item", 85, "L"},
	{"Qty", 25, "C"},
	{"Rate", 35, "R"},
	{"Total", 35, "R"},
}

// PDF lays inv out on A4 pages. Photos and the signature are embedded when
// they are local image files or base64 data URIs; other references are
// printed as text.
func PDF(inv *entity.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Invoice "+inv.ID, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("Invoice #"+inv.ID), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, row := range [][2]string{
		{"Date", inv.CreatedAt},
		{"Status", inv.Status().String()},
		{"Tax Rate", utils.FormatPercent(inv.TaxRate)},
	} {
		pdf.CellFormat(30, lineHeight, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(235, 235, 235)
	for _, col := range itemColumns {
		pdf.CellFormat(col.width, lineHeight, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	for _, item := range inv.Items {
		cells := []string{item.Name, utils.FormatNumber(item.Qty), utils.FormatMoney(item.Rate), utils.FormatMoney(item.Total())}
		for i, col := range itemColumns {
			pdf.CellFormat(col.width, lineHeight, tr(cells[i]), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)

	labelWidth := itemColumns[0].width + itemColumns[1].width + itemColumns[2].width
	for _, row := range [][2]string{
		{"Subtotal", utils.FormatMoney(inv.Subtotal)},
		{"Tax", utils.FormatMoney(inv.Tax)},
		{"Total", utils.FormatMoney(inv.Total)},
	} {
		if row[0] == "Total" {
			pdf.SetFont("Arial", "B", 12)
		}
		pdf.CellFormat(labelWidth, lineHeight, row[0]+":", "", 0, "R", false, 0, "")
		pdf.CellFormat(itemColumns[3].width, lineHeight, row[1], "", 1, "R", false, 0, "")
	}

	if len(inv.Photos) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, lineHeight, "Photos:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for i, ref := range inv.Photos {
			placeImage(pdf, tr, fmt.Sprintf("photo-%d", i), ref, photoWidth)
		}
	}

	if inv.Signature != nil {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, lineHeight, "Signature:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		placeImage(pdf, tr, "signature", *inv.Signature, signatureMax)
	}

	if err := pdf.Error(); err != nil {
		return nil, errors.Wrap(err, "layout invoice pdf")
	}
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, errors.Wrap(err, "write invoice pdf")
	}
	return out.Bytes(), nil
}

// placeImage embeds ref at the current position, or prints it when it cannot
// be loaded as an image.
func placeImage(pdf *gofpdf.Fpdf, tr func(string) string, name, ref string, width float64) {
	if registerImage(pdf, name, ref) {
		info := pdf.GetImageInfo(name)
		height := width
		if info != nil && info.Width() > 0 {
			height = width * info.Height() / info.Width()
		}
		pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), width, height, true, gofpdf.ImageOptions{}, 0, "")
		return
	}
	pdf.MultiCell(0, 5, tr(ref), "", "L", false)
}

func registerImage(pdf *gofpdf.Fpdf, name, ref string) bool {
	data, imgType, ok := loadImage(ref)
	if !ok {
		return false
	}
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: imgType, ReadDpi: true}, bytes.NewReader(data))
	if !pdf.Ok() {
		pdf.ClearError()
		return false
	}
	return true
}

// loadImage resolves a data URI or a local path (optionally file://) to image bytes.
func loadImage(ref string) ([]byte, string, bool) {
	if rest, ok := strings.CutPrefix(ref, "data:image/"); ok {
		mime, payload, found := strings.Cut(rest, ";base64,")
		if !found {
			return nil, "", false
		}
		imgType, ok := constants.ImageExtensions[constants.NormalizeExt(mime)]
		if !ok {
			return nil, "", false
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", false
		}
		return data, imgType, true
	}

	path := strings.TrimPrefix(ref, "file://")
	imgType, ok := constants.ImageExtensions[constants.NormalizeExt(filepath.Ext(path))]
	if !ok {
		return nil, "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", false
	}
	return data, imgType, true
}
