// Package model defines domain entities for the application.
package model

import "time"

// User is a row of the usuarios relation.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Age          int       `json:"age"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewUser holds the caller-provided fields of a user. A nil Active leaves
// the store default in place.
type NewUser struct {
	Name   string
	Email  string
	Age    int
	Active *bool
}

// UserPatch is a partial update of a user. Nil fields are left unchanged.
type UserPatch struct {
	Name   *string
	Email  *string
	Age    *int
	Active *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil && p.Active == nil
}

// UserWithOrders is a user with every order it owns, in store order.
// Orders is never nil.
type UserWithOrders struct {
	User
	Orders []Order `json:"orders"`
}

// AgeCount is the number of users of one age.
type AgeCount struct {
	Age   int   `json:"age"`
	Count int64 `json:"count"`
}
