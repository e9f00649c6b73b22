package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a storefront customer. Guests created at checkout have
// no password hash; a non-guest customer always has one.
type Customer struct {
	ID            uuid.UUID `json:"id" db:"id"`
	FirstName     string    `json:"first_name" db:"first_name"`
	LastName      string    `json:"last_name" db:"last_name"`
	Email         string    `json:"email" db:"email"`
	Phone         *string   `json:"phone" db:"phone"`
	Address       *string   `json:"address" db:"address"`
	City          *string   `json:"city" db:"city"`
	PostalCode    *string   `json:"postal_code" db:"postal_code"`
	Country       *string   `json:"country" db:"country"`
	PasswordHash  *string   `json:"-" db:"password_hash"`
	IsGuest       bool      `json:"is_guest" db:"is_guest"`
	Role          string    `json:"role" db:"role"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// FullName joins the name parts for notifications and order snapshots.
func (c Customer) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

func (Customer) TableName() string {
	return "customers"
}

func (Customer) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE NOT NULL,
		phone TEXT,
		address TEXT,
		city TEXT,
		postal_code TEXT,
		country TEXT,
		password_hash TEXT,
		is_guest BOOLEAN NOT NULL DEFAULT FALSE,
		role TEXT NOT NULL DEFAULT 'customer',
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_customers_email ON customers(email);
	CREATE INDEX IF NOT EXISTS idx_customers_is_guest ON customers(is_guest);`
}
