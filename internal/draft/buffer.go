// Package draft holds the in-progress invoice being edited before it is saved.
package draft

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
	"github.com/joseph-ayodele/jobsite-invoices/internal/totals"
)

// MaxNameLength bounds a line item name.
const MaxNameLength = 200

// ErrDuplicateItem is returned by Add when the id is already in the buffer.
var ErrDuplicateItem = errors.New("line item id already in draft")

// ItemInput is a line item as typed into the form.
type ItemInput struct {
	Name string
	Qty  string
	Rate string
}

// Buffer is the editing buffer. Items can be added and removed by id until
// the buffer is frozen into an invoice. The zero value is ready to use.
type Buffer struct {
	items     []entity.LineItem
	photos    []string
	signature *string
}

func New() *Buffer {
	return &Buffer{}
}

// AddItem validates form input and appends the parsed item with a fresh id.
func (b *Buffer) AddItem(in ItemInput) (entity.LineItem, error) {
	v := common.NewValidator().
		Field("name", in.Name, common.Required, common.MaxLength(MaxNameLength)).
		Field("qty", in.Qty, common.Required, common.Number).
		Field("rate", in.Rate, common.Required, common.Number)
	if err := v.Error(); err != nil {
		return entity.LineItem{}, err
	}

	qty, _ := strconv.ParseFloat(strings.TrimSpace(in.Qty), 64)
	rate, _ := strconv.ParseFloat(strings.TrimSpace(in.Rate), 64)
	return b.Add(entity.LineItem{Name: strings.TrimSpace(in.Name), Qty: qty, Rate: rate})
}

// Add appends item. An empty id is replaced with a new UUID.
func (b *Buffer) Add(item entity.LineItem) (entity.LineItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	for _, existing := range b.items {
		if existing.ID == item.ID {
			return entity.LineItem{}, errors.Wrapf(ErrDuplicateItem, "item %s", item.ID)
		}
	}
	b.items = append(b.items, item)
	return item, nil
}

// Remove drops the item with id and reports whether it was present.
func (b *Buffer) Remove(id string) bool {
	for i, item := range b.items {
		if item.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns a copy of the items in insertion order.
func (b *Buffer) Items() []entity.LineItem {
	return append([]entity.LineItem{}, b.items...)
}

func (b *Buffer) AddPhoto(ref string) {
	b.photos = append(b.photos, ref)
}

func (b *Buffer) Photos() []string {
	return append([]string{}, b.photos...)
}

// SetSignature records the signature in progress. An empty ref clears it.
func (b *Buffer) SetSignature(ref string) {
	if ref == "" {
		b.signature = nil
		return
	}
	b.signature = &ref
}

func (b *Buffer) Signature() (string, bool) {
	if b.signature == nil {
		return "", false
	}
	return *b.signature, true
}

func (b *Buffer) Len() int { return len(b.items) }

func (b *Buffer) Subtotal() float64 {
	return totals.ComputeSubtotal(b.items)
}

// Totals previews the amounts the invoice would be saved with.
func (b *Buffer) Totals(ratePercent float64) totals.Totals {
	return totals.ForInvoice(b.items, ratePercent)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.items = nil
	b.photos = nil
	b.signature = nil
}
