package entity

import "github.com/joseph-ayodele/jobsite-invoices/constants"

// Payment is the paid/unpaid sub-state. While paid the invoice status is
// Completed and previous holds the status to restore on unmarking.
type Payment struct {
	paid     bool
	previous constants.Status
}

// ToggleAcceptance flips Accepted to Not Accepted and anything else to
// Accepted. It is a no-op once payment is recorded. The return value reports
// whether the status changed.
func (inv *Invoice) ToggleAcceptance() bool {
	if inv.payment.paid {
		return false
	}
	if inv.status == constants.StatusAccepted {
		inv.status = constants.StatusNotAccepted
	} else {
		inv.status = constants.StatusAccepted
	}
	return true
}

// SetPaid records or clears payment. Marking paid snapshots the current
// status and moves to Completed; unmarking restores the snapshot, or
// Not Accepted when there is none. Setting the current value is a no-op.
func (inv *Invoice) SetPaid(paid bool) bool {
	if inv.payment.paid == paid {
		return false
	}
	if paid {
		inv.payment = Payment{paid: true, previous: inv.status}
		inv.status = constants.StatusCompleted
		return true
	}

	restore := inv.payment.previous
	if restore == "" || restore == constants.StatusCompleted {
		restore = constants.StatusNotAccepted
	}
	inv.status = restore
	inv.payment = Payment{}
	return true
}

// AttachSignature stores an opaque signature reference verbatim.
func (inv *Invoice) AttachSignature(ref string) {
	inv.Signature = &ref
}
