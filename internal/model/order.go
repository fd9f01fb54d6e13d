package model

import "time"

// DefaultQuantity is used when an order is created without a positive quantity.
const DefaultQuantity = 1

// Order is a row of the pedidos relation.
//
// Price is read from a NUMERIC(12,2) column into a float64. Twelve
// significant digits fit a float64, so formatting Price with two decimals
// restores the stored value; arithmetic on it is not exact.
type Order struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Product   string    `json:"product"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	OrderedAt time.Time `json:"ordered_at"`
}

// NewOrder holds the caller-provided fields of an order.
type NewOrder struct {
	UserID   int64
	Product  string
	Quantity int
	Price    float64
}

// EffectiveQuantity returns Quantity, or DefaultQuantity when it is not positive.
func (o NewOrder) EffectiveQuantity() int {
	if o.Quantity <= 0 {
		return DefaultQuantity
	}
	return o.Quantity
}

// OrderPatch is a partial update of an order. Nil fields are left unchanged.
type OrderPatch struct {
	Product  *string
	Quantity *int
	Price    *float64
}

// UserOrder is the result of creating a user and its first order together.
type UserOrder struct {
	User  User  `json:"user"`
	Order Order `json:"order"`
}

// OrderCount is the number of orders owned by one user.
type OrderCount struct {
	UserID int64 `json:"user_id"`
	Count  int64 `json:"count"`
}
