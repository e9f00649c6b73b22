package models

import (
	"time"

	"github.com/google/uuid"
)

// GuestCart is the session-held cart of an anonymous visitor. It mirrors the
// persisted cart's shape so pricing and inventory checks never need to know
// which kind of cart a checkout came from.
type GuestCart struct {
	Items     []GuestCartItem `json:"items"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GuestCartItem mirrors CartItem minus the row identity.
type GuestCartItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Size        *string   `json:"size,omitempty"`
}

// IsEmpty reports whether the cart holds no items.
func (g GuestCart) IsEmpty() bool {
	return len(g.Items) == 0
}

// Upsert adds quantity to a matching line or appends a new one. Lines match
// on product and size, same as the persisted cart's unique constraint.
func (g *GuestCart) Upsert(item GuestCartItem) {
	for i := range g.Items {
		if g.Items[i].ProductID == item.ProductID && equalSize(g.Items[i].Size, item.Size) {
			g.Items[i].Quantity += item.Quantity
			g.Items[i].UnitPrice = item.UnitPrice
			g.Items[i].ProductName = item.ProductName
			g.UpdatedAt = time.Now()
			return
		}
	}
	g.Items = append(g.Items, item)
	g.UpdatedAt = time.Now()
}

// SetQuantity replaces the quantity on a matching line. Returns true when a
// line matched.
func (g *GuestCart) SetQuantity(productID uuid.UUID, size *string, quantity int) bool {
	for i := range g.Items {
		if g.Items[i].ProductID == productID && equalSize(g.Items[i].Size, size) {
			g.Items[i].Quantity = quantity
			g.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// Remove drops the line matching product and size. Returns true when a line
// was removed.
func (g *GuestCart) Remove(productID uuid.UUID, size *string) bool {
	for i := range g.Items {
		if g.Items[i].ProductID == productID && equalSize(g.Items[i].Size, size) {
			g.Items = append(g.Items[:i], g.Items[i+1:]...)
			g.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (g *GuestCart) Clear() {
	g.Items = nil
	g.UpdatedAt = time.Now()
}

func equalSize(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
