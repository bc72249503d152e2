package domain

import "time"

// Product is an item available for purchase. Stock is mutated only through
// atomic adjustments at the storage layer, never by read-modify-write in
// application memory.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasStock reports whether the product can cover the requested quantity.
// The check is advisory: concurrent orders race between this read and the
// eventual decrement, which is why the decrement itself is conditional.
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}
