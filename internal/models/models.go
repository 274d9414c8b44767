package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals travel as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// User is the identity returned by the auth service. The core only reads
// UserID; everything else is carried along untouched.
type User struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Cart is the ordered list of lines held by the cart service for one user.
type Cart []CartLine

// Clone returns an independent copy. A nil cart clones to an empty one so
// callers never have to tell "no cart" apart from "empty cart".
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

type Order struct {
	OrderID     string          `json:"order_id"`
	UserID      int64           `json:"user_id"`
	Status      string          `json:"status"`
	Items       []CartLine      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type Review struct {
	ID        int64  `json:"id,omitempty"`
	ProductID int64  `json:"product_id"`
	Comment   string `json:"comment"`
	Rating    int    `json:"rating,omitempty"`
	Username  string `json:"username,omitempty"`
	Date      string `json:"date,omitempty"`
}

// OrderStatusConfirmed is the only status an order is ever given; an order
// exists once its payment has been accepted.
const OrderStatusConfirmed = "confirmed"
