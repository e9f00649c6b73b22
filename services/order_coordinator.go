package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"time"

	"crystosjewel-server/models"

	"github.com/google/uuid"
)

// OrderSnapshot is the contact and shipping data copied onto the order row at
// creation time, decoupled from the live customer record.
type OrderSnapshot struct {
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      *string
	ShippingAddress    string
	ShippingCity       *string
	ShippingPostalCode *string
}

// OrderInput is everything the coordinator needs to materialize an order.
type OrderInput struct {
	CustomerID    uuid.UUID
	IsGuest       bool
	Snapshot      OrderSnapshot
	Lines         []CartLine
	Pricing       PricingResult
	Promo         *models.PromoCode
	PaymentMethod string
}

// PlacedOrder is the successful result returned to the caller.
type PlacedOrder struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Total       float64   `json:"total"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderCoordinator owns the atomicity contract of checkout: order header,
// line items, stock decrements and promo usage commit together or not at all.
type OrderCoordinator struct {
	db *sql.DB
}

func NewOrderCoordinator(db *sql.DB) *OrderCoordinator {
	return &OrderCoordinator{db: db}
}

// PlaceOrder runs the whole materialization in one transaction. On any error
// the deferred rollback undoes every step; there is no partial cleanup logic
// because the transaction boundary is the cleanup mechanism.
func (co *OrderCoordinator) PlaceOrder(ctx context.Context, in OrderInput) (*PlacedOrder, error) {
	if len(in.Lines) == 0 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "cart", Message: "cart is empty"}}}
	}

	tx, err := co.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	orderID := uuid.New()
	orderNumber := GenerateOrderNumber()
	now := time.Now()

	// The UNIQUE constraint on order_number is the authoritative collision
	// guard; the generator only has to make collisions unlikely.
	var promoCode *string
	if in.Promo != nil {
		promoCode = &in.Promo.Code
	}

	orderQuery := `
		INSERT INTO orders (
			id, order_number, customer_id, customer_name, customer_email,
			customer_phone, shipping_address, shipping_city, shipping_postal_code,
			subtotal, discount_amount, promo_code, shipping_fee, total,
			status, is_guest_order, payment_method, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)`

	_, err = tx.ExecContext(ctx, orderQuery,
		orderID, orderNumber, in.CustomerID,
		in.Snapshot.CustomerName, in.Snapshot.CustomerEmail, in.Snapshot.CustomerPhone,
		in.Snapshot.ShippingAddress, in.Snapshot.ShippingCity, in.Snapshot.ShippingPostalCode,
		in.Pricing.Subtotal, in.Pricing.DiscountAmount, promoCode,
		in.Pricing.ShippingFee, in.Pricing.Total,
		models.OrderStatusPending, in.IsGuest, in.PaymentMethod, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Lock rows in a global order so two checkouts holding the same products
	// in opposite cart order cannot deadlock each other.
	lines := make([]CartLine, len(in.Lines))
	copy(lines, in.Lines)
	sort.Slice(lines, func(i, j int) bool {
		return bytes.Compare(lines[i].ProductID[:], lines[j].ProductID[:]) < 0
	})

	// Re-check every line under row locks before touching anything else, so
	// the abort can name all failing lines rather than the first one found.
	var shortfalls []StockShortfall
	for _, line := range lines {
		var name string
		var stock int

		err := tx.QueryRowContext(ctx,
			`SELECT name, stock FROM products WHERE id = $1 FOR UPDATE`,
			line.ProductID,
		).Scan(&name, &stock)

		if err == sql.ErrNoRows {
			shortfalls = append(shortfalls, StockShortfall{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   0,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock stock row for %s: %w", line.ProductID, err)
		}

		if stock < line.Quantity {
			shortfalls = append(shortfalls, StockShortfall{
				ProductID:   line.ProductID,
				ProductName: name,
				Requested:   line.Quantity,
				Available:   stock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, &StockConflictError{Shortfalls: shortfalls}
	}

	itemQuery := `
		INSERT INTO order_items (
			id, order_id, product_id, product_name, quantity,
			unit_price, total_price, size, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, line := range lines {
		_, err = tx.ExecContext(ctx, itemQuery,
			uuid.New(), orderID, line.ProductID, line.ProductName,
			line.Quantity, line.UnitPrice, round2(line.UnitPrice*float64(line.Quantity)),
			line.Size, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}

		// Conditional decrement; the rows locked above make the condition
		// hold, but the affected-row check stays as the final guard against
		// a negative counter.
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = $2
			WHERE id = $3 AND stock >= $1`,
			line.Quantity, now, line.ProductID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to verify stock update: %w", err)
		}
		if rowsAffected == 0 {
			return nil, &StockConflictError{Shortfalls: []StockShortfall{{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
			}}}
		}
	}

	if in.Promo != nil {
		if err := co.recordPromoUsage(ctx, tx, in, orderID, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	log.Printf("Order %s committed for customer %s (total %.2f)", orderNumber, in.CustomerID, in.Pricing.Total)

	return &PlacedOrder{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Total:       in.Pricing.Total,
		CreatedAt:   now,
	}, nil
}

// recordPromoUsage consumes one use of the promo inside the order
// transaction; a rollback therefore never burns quota. The guarded update
// closes the race between two checkouts grabbing the last use.
func (co *OrderCoordinator) recordPromoUsage(ctx context.Context, tx *sql.Tx, in OrderInput, orderID uuid.UUID, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1 AND (usage_limit <= 0 OR used_count < usage_limit)`,
		in.Promo.ID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to consume promo code: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to verify promo update: %w", err)
	}
	if rowsAffected == 0 {
		return &PromoError{Code: in.Promo.Code, Reason: "usage limit reached"}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO promo_code_usage (id, promo_code_id, customer_id, order_id, discount_amount, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), in.Promo.ID, in.CustomerID, orderID, in.Pricing.DiscountAmount, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record promo usage: %w", err)
	}
	return nil
}

// GenerateOrderNumber builds a CRJ-YYYYMMDD-XXXXXX order number. The random
// hex suffix keeps collisions out of practice; the database's uniqueness
// constraint stays authoritative.
func GenerateOrderNumber() string {
	now := time.Now()
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand is documented never to fail; the clock keeps the
		// format valid if it somehow does.
		n := now.UnixNano()
		suffix = []byte{byte(n >> 16), byte(n >> 8), byte(n)}
	}
	return fmt.Sprintf("CRJ-%d%02d%02d-%s",
		now.Year(), now.Month(), now.Day(), hex.EncodeToString(suffix))
}
