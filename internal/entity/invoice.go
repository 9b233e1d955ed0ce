package entity

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/joseph-ayodele/jobsite-invoices/constants"
)

// Invoice is a persisted invoice record. Items and totals are frozen at save
// time; only the workflow status and the payment sub-state change afterwards,
// and only through the lifecycle methods.
type Invoice struct {
	ID        string
	Items     []LineItem
	Photos    []string
	Signature *string
	Subtotal  float64
	Tax       float64
	TaxRate   float64 // percent, e.g. 8.0
	Total     float64
	CreatedAt string // display formatted

	status  constants.Status
	payment Payment
}

// NewInvoice returns an unpaid invoice in one of the entry statuses
// (Draft, Open or Accepted).
func NewInvoice(id, createdAt string, status constants.Status) (*Invoice, error) {
	switch status {
	case constants.StatusDraft, constants.StatusOpen, constants.StatusAccepted:
	default:
		return nil, errors.Errorf("invalid entry status %q", status)
	}
	return &Invoice{
		ID:        id,
		CreatedAt: createdAt,
		Items:     []LineItem{},
		Photos:    []string{},
		status:    status,
	}, nil
}

// Status returns the current workflow status.
func (inv *Invoice) Status() constants.Status { return inv.status }

// Paid reports whether payment has been recorded.
func (inv *Invoice) Paid() bool { return inv.payment.paid }

// PreviousStatus returns the status that unmarking payment will restore.
func (inv *Invoice) PreviousStatus() (constants.Status, bool) {
	return inv.payment.previous, inv.payment.previous != ""
}

// Clone returns a deep copy.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.Items = append([]LineItem{}, inv.Items...)
	c.Photos = append([]string{}, inv.Photos...)
	if inv.Signature != nil {
		sig := *inv.Signature
		c.Signature = &sig
	}
	return &c
}

type invoiceJSON struct {
	ID             string           `json:"id"`
	Items          []LineItem       `json:"items"`
	Photos         []string         `json:"photos"`
	Signature      *string          `json:"signature,omitempty"`
	SignaturePng   *string          `json:"signaturePng,omitempty"`
	Subtotal       float64          `json:"subtotal"`
	Tax            float64          `json:"tax"`
	TaxRate        float64          `json:"taxRate"`
	Total          float64          `json:"total"`
	CreatedAt      string           `json:"createdAt"`
	Status         constants.Status `json:"status"`
	Paid           bool             `json:"paid"`
	PreviousStatus constants.Status `json:"previousStatus,omitempty"`
}

// MarshalJSON writes the flat record layout used by the persisted list.
func (inv Invoice) MarshalJSON() ([]byte, error) {
	w := invoiceJSON{
		ID:             inv.ID,
		Items:          inv.Items,
		Photos:         inv.Photos,
		Signature:      inv.Signature,
		Subtotal:       inv.Subtotal,
		Tax:            inv.Tax,
		TaxRate:        inv.TaxRate,
		Total:          inv.Total,
		CreatedAt:      inv.CreatedAt,
		Status:         inv.status,
		Paid:           inv.payment.paid,
		PreviousStatus: inv.payment.previous,
	}
	if w.Items == nil {
		w.Items = []LineItem{}
	}
	if w.Photos == nil {
		w.Photos = []string{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads a persisted record. A record flagged paid is always
// loaded as Completed; "signaturePng" from older app versions is accepted.
func (inv *Invoice) UnmarshalJSON(b []byte) error {
	var w invoiceJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if !w.Status.Valid() {
		return errors.Errorf("invoice %s: unknown status %q", w.ID, w.Status)
	}
	if w.PreviousStatus != "" && !w.PreviousStatus.Valid() {
		return errors.Errorf("invoice %s: unknown previous status %q", w.ID, w.PreviousStatus)
	}

	*inv = Invoice{
		ID:        w.ID,
		Items:     w.Items,
		Photos:    w.Photos,
		Signature: w.Signature,
		Subtotal:  w.Subtotal,
		Tax:       w.Tax,
		TaxRate:   w.TaxRate,
		Total:     w.Total,
		CreatedAt: w.CreatedAt,
		status:    w.Status,
		payment:   Payment{paid: w.Paid, previous: w.PreviousStatus},
	}
	if inv.Signature == nil && w.SignaturePng != nil {
		inv.Signature = w.SignaturePng
	}
	if inv.payment.paid && inv.status != constants.StatusCompleted {
		if inv.payment.previous == "" {
			inv.payment.previous = inv.status
		}
		inv.status = constants.StatusCompleted
	}
	return nil
}
