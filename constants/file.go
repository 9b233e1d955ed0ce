package constants

import "strings"

// Storage keys the mobile app writes under; existing blobs stay readable.
const (
	InvoicesKey = "@jobsite_invoices"
	SettingsKey = "@jobsite_settings"
)

// ImageExtensions holds the photo/signature file extensions the PDF renderer can embed.
var ImageExtensions = map[string]string{
	"png":  "PNG",
	"jpg":  "JPG",
	"jpeg": "JPG",
	"gif":  "GIF",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
