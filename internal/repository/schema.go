package repository

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/jobsite-invoices/constants"
)

// BuildInvoiceSchema returns the JSON-Schema each record of the persisted
// invoice list must satisfy. Unknown properties are allowed so newer app
// versions can add fields without older readers skipping the record.
func BuildInvoiceSchema() map[string]any {
	status := map[string]any{"type": "string", "enum": constants.Statuses()}
	number := map[string]any{"type": "number"}

	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "string"},
			"name": map[string]any{"type": "string"},
			"qty":  number,
			"rate": number,
		},
		"required": []string{"id", "name", "qty", "rate"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":             map[string]any{"type": "string", "minLength": 1},
			"items":          map[string]any{"type": "array", "items": lineItem},
			"photos":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"signature":      map[string]any{"type": "string"},
			"signaturePng":   map[string]any{"type": "string"},
			"subtotal":       number,
			"tax":            number,
			"taxRate":        number,
			"total":          number,
			"createdAt":      map[string]any{"type": "string"},
			"status":         status,
			"paid":           map[string]any{"type": "boolean"},
			"previousStatus": status,
		},
		"required": []string{"id", "items", "status"},
	}
}

var invoiceSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema("invoice.json", BuildInvoiceSchema())
})

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, errors.Wrap(err, "add schema")
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, errors.Wrap(err, "compile schema")
	}
	return schema, nil
}

// validateInvoice checks one raw record against the invoice schema.
func validateInvoice(data []byte) error {
	schema, err := invoiceSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "unmarshal record")
	}
	if err := schema.Validate(v); err != nil {
		return errors.Wrap(err, "record does not match schema")
	}
	return nil
}
