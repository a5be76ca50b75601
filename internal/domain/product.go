package domain

// Product is a single catalog entry.
//
// Quantity is the live sellable counter: reservations debit it immediately,
// so it always answers "how many more can be reserved" without arithmetic.
// Reserved tracks units held by open orders and exists for reporting; it is
// never part of an availability check.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	Reserved    int    `json:"reserved"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

// ProductUpdate is a partial edit of a product. Nil fields are left alone.
// Editing Quantity is an administrative restock or correction and does not
// touch Reserved.
type ProductUpdate struct {
	Name        *string
	Quantity    *int
	Image       *string
	Description *string
}
