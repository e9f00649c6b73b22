package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the persisted cart of an authenticated customer. One cart per
// customer; guest carts live in the session instead (see GuestCart).
type Cart struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CartItem stores a product reference plus the unit price and name seen when
// the item was added, so the cart can render without re-joining the catalog.
// Checkout re-resolves the live price anyway.
type CartItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CartID      uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
	Size        *string   `json:"size" db:"size"`
	AddedAt     time.Time `json:"added_at" db:"added_at"`
}

func (Cart) TableName() string {
	return "carts"
}

func (Cart) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS carts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		customer_id UUID UNIQUE NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (CartItem) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS cart_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		cart_id UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		product_name TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		size VARCHAR(50),
		added_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		UNIQUE(cart_id, product_id, size)
	);

	CREATE INDEX IF NOT EXISTS idx_cart_items_cart_id ON cart_items(cart_id);`
}
