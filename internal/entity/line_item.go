package entity

// LineItem is a named quantity × rate entry on an invoice.
type LineItem struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Qty  float64 `json:"qty"`
	Rate float64 `json:"rate"`
}

// Total returns qty*rate without rounding.
func (li LineItem) Total() float64 {
	return li.Qty * li.Rate
}
