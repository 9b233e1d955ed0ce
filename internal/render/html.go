// Package render turns an invoice into a printable document.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/pkg/errors"

	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
	"github.com/joseph-ayodele/jobsite-invoices/internal/utils"
)

var printTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money":   utils.FormatMoney,
	"percent": utils.FormatPercent,
	"line":    utils.LineSummary,
	"ref":     imageRef,
	"deref":   utils.StrOrEmpty,
}).Parse(`<html><body style="font-family: -apple-system, Roboto, Arial; padding:16px">
<h2>Invoice #{{.ID}}</h2>
<p><b>Date:</b> {{.CreatedAt}}</p>
<p><b>Status:</b> {{.Status}}</p>
<p><b>Tax Rate:</b> {{percent .TaxRate}}</p>
<p><b>Subtotal:</b> {{money .Subtotal}}</p>
<p><b>Tax:</b> {{money .Tax}}</p>
<p><b>Total:</b> {{money .Total}}</p>
<h3>Line Items</h3>
<ul>
{{- range .Items}}
<li>{{line .}}</li>
{{- end}}
</ul>
{{- if .Photos}}
<div>Photos:</div>
<div>{{range .Photos}}<img src="{{ref .}}" style="width:140px;height:auto;margin-right:8px" />{{end}}</div>
{{- end}}
{{- if .Signature}}
<div style="margin-top:12px"><div>Signature:</div><img src="{{ref (deref .Signature)}}" style="width:200px;height:auto;border:1px solid #ccc"/></div>
{{- end}}
</body></html>
`))

// imageRef trusts the URI schemes the camera and signature pad produce.
// Anything else goes through the template's own URL sanitizer.
func imageRef(ref string) any {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "data:image/") || strings.HasPrefix(lower, "file:") {
		return template.URL(ref)
	}
	return ref
}

// HTML returns the print markup for inv.
func HTML(inv *entity.Invoice) (string, error) {
	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, inv); err != nil {
		return "", errors.Wrap(err, "render invoice html")
	}
	return buf.String(), nil
}
