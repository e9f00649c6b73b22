package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CartReconciler clears the source cart after the order transaction has
// committed. It must never run before the commit, and its failures must
// never turn an already-committed order into a reported failure — callers
// log and continue.
type CartReconciler struct {
	db *sql.DB
}

func NewCartReconciler(db *sql.DB) *CartReconciler {
	return &CartReconciler{db: db}
}

// ClearCustomerCart deletes every persisted cart row for the customer.
func (r *CartReconciler) ClearCustomerCart(ctx context.Context, customerID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE customer_id = $1)`,
		customerID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	return nil
}
