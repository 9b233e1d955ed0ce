package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
)

func TestParseItem(t *testing.T) {
	in, err := parseItem("Labor: site A:2:75")
	require.NoError(t, err)
	assert.Equal(t, "Labor: site A", in.Name)
	assert.Equal(t, "2", in.Qty)
	assert.Equal(t, "75", in.Rate)

	_, err = parseItem("Labor:2")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"invoices"}, args...))
	return out.String(), err
}

func TestCLI_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INVOICES_STORE_DRIVER", "sqlite")
	t.Setenv("INVOICES_STORE_DSN", filepath.Join(dir, "invoices.db"))
	t.Setenv("INVOICES_LOG_LEVEL", "error")

	out, err := run(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "tax rate: 8%")

	out, err = run(t, "new", "--item", "Labor:2:75", "--intent", "sign")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:   Accepted")
	assert.Contains(t, out, "Total:    $162.00")
	id := strings.TrimPrefix(strings.SplitN(out, "\n", 2)[0], "Invoice #")

	_, err = run(t, "paid", id)
	require.NoError(t, err)
	out, err = run(t, "toggle", id)
	require.NoError(t, err)
	assert.Contains(t, out, "acceptance unchanged")

	out, err = run(t, "list", "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = run(t, "paid", "--unset", id)
	require.NoError(t, err)
	assert.Contains(t, out, "is now Accepted (paid: false)")

	out, err = run(t, "print", "--format", "html", "--out", dir, id)
	require.NoError(t, err)
	html, err := os.ReadFile(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<b>Total:</b> $162.00")

	xlsx := filepath.Join(dir, "out.xlsx")
	_, err = run(t, "export", "--out", xlsx)
	require.NoError(t, err)
	assert.FileExists(t, xlsx)

	_, err = run(t, "delete", id)
	require.NoError(t, err)
	out, err = run(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, id)
}

func TestCLI_Validation(t *testing.T) {
	t.Setenv("INVOICES_STORE_DRIVER", "memory")
	t.Setenv("INVOICES_LOG_LEVEL", "error")

	_, err := run(t, "new", "--item", "Labor::75")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = run(t, "settings", "set", "150")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = run(t, "list", "--status", "bogus")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
