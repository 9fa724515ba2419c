package model

import "time"

// User represents an account as stored in the `users` table.  Only the
// password hash is mutable after signup and only by the user themselves.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	FirstName    – given name shown as the author of quotes.
//	LastName     – family name shown as the author of quotes.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password, never serialized.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Author is the public summary of a user embedded in quote read models.
type Author struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
