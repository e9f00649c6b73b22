package services

import (
	"context"
	"database/sql"
	"fmt"
)

// InventoryGuard checks requested quantities against current stock before a
// checkout is allowed to open its transaction. The check is advisory: the
// coordinator re-verifies every line under row locks, because a check made
// outside the transaction can always go stale.
type InventoryGuard struct {
	db *sql.DB
}

func NewInventoryGuard(db *sql.DB) *InventoryGuard {
	return &InventoryGuard{db: db}
}

// Check returns the full list of shortfalls, or nil when every line is
// satisfiable. A missing or inactive product reports as zero available.
func (g *InventoryGuard) Check(ctx context.Context, lines []CartLine) ([]StockShortfall, error) {
	var shortfalls []StockShortfall

	for _, line := range lines {
		var name string
		var stock int
		var isActive bool

		err := g.db.QueryRowContext(ctx,
			`SELECT name, stock, is_active FROM products WHERE id = $1`,
			line.ProductID,
		).Scan(&name, &stock, &isActive)

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
			return nil, fmt.Errorf("failed to check stock for %s: %w", line.ProductID, err)
		}

		available := stock
		if !isActive {
			available = 0
		}
		if available < line.Quantity {
			shortfalls = append(shortfalls, StockShortfall{
				ProductID:   line.ProductID,
				ProductName: name,
				Requested:   line.Quantity,
				Available:   available,
			})
		}
	}

	return shortfalls, nil
}
