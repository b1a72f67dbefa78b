package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile carries the account's contact details and the persisted cart mirror.
type Profile struct {
	UserID       int64     `json:"user_id"`
	Phone        string    `json:"phone"`
	Address1     string    `json:"address1"`
	Address2     string    `json:"address2"`
	City         string    `json:"city"`
	Zipcode      string    `json:"zipcode"`
	Country      string    `json:"country"`
	LastCart     string    `json:"last_cart"`
	DateModified time.Time `json:"date_modified"`
}

type ShippingAddress struct {
	ID       int64  `json:"id"`
	UserID   *int64 `json:"user_id,omitempty"`
	FullName string `json:"shipping_full_name"`
	Email    string `json:"shipping_email"`
	Address1 string `json:"shipping_address1"`
	Address2 string `json:"shipping_address2"`
	City     string `json:"shipping_city"`
	Zipcode  string `json:"shipping_zipcode"`
	Country  string `json:"shipping_country"`
}

// Snapshot converts a saved address into checkout form values.
func (a *ShippingAddress) Snapshot() ShippingSnapshot {
	if a == nil {
		return ShippingSnapshot{}
	}
	return ShippingSnapshot{
		FullName: a.FullName,
		Email:    a.Email,
		Address1: a.Address1,
		Address2: a.Address2,
		City:     a.City,
		Zipcode:  a.Zipcode,
		Country:  a.Country,
	}
}
