package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              int64           `json:"id"`
	UserID          *int64          `json:"user_id,omitempty"`
	FullName        string          `json:"full_name"`
	Email           string          `json:"email"`
	ShippingAddress string          `json:"shipping_address"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	DateOrdered     time.Time       `json:"date_ordered"`
	Shipped         bool            `json:"shipped"`
	DateShipped     *time.Time      `json:"date_shipped,omitempty"`
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o == nil || o.UserID == nil
}

type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	UserID    *int64          `json:"user_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// LineTotal is the item price multiplied by its quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingSnapshot holds the shipping form exactly as submitted between the
// billing step and order placement.
type ShippingSnapshot struct {
	FullName string `json:"shipping_full_name" validate:"required,max=250"`
	Email    string `json:"shipping_email" validate:"required,email,max=250"`
	Address1 string `json:"shipping_address1" validate:"required,max=250"`
	Address2 string `json:"shipping_address2" validate:"max=250"`
	City     string `json:"shipping_city" validate:"required,max=250"`
	Zipcode  string `json:"shipping_zipcode" validate:"max=250"`
	Country  string `json:"shipping_country" validate:"required,max=250"`
}

// FlattenAddress joins the address lines the way they are stored on an order.
func (s ShippingSnapshot) FlattenAddress() string {
	return strings.Join([]string{s.Address1, s.Address2, s.City, s.Zipcode, s.Country}, "\n")
}

// PaymentDetails is collected on the billing step for record keeping only.
// It is never persisted nor sent to a payment network.
type PaymentDetails struct {
	CardName    string `json:"card_name" validate:"required"`
	CardNumber  string `json:"card_number" validate:"required"`
	CardExpDate string `json:"card_exp_date" validate:"required"`
	CardCVV     string `json:"card_cvv" validate:"required"`
}
