package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"testing"

	"crystosjewel-server/database"
	"crystosjewel-server/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^CRJ-\d{8}-[0-9a-f]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number := GenerateOrderNumber()
		assert.Regexp(t, pattern, number)
		seen[number] = true
	}

	// The random suffix makes collisions in a small sample effectively
	// impossible; the database constraint covers the rest.
	assert.Greater(t, len(seen), 95)
}

// testDB connects to the database named by TEST_DATABASE_URL and ensures the
// schema. Tests that need Postgres skip when the variable is unset.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database test")
	}

	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.InitializeTables())
	t.Cleanup(func() { db.Close() })

	return db.DB
}

func insertTestProduct(t *testing.T, db *sql.DB, price float64, stock int) CartLine {
	t.Helper()

	id := uuid.New()
	name := fmt.Sprintf("test ring %s", id.String()[:8])
	_, err := db.Exec(`
		INSERT INTO products (id, name, price, stock, is_active)
		VALUES ($1, $2, $3, $4, TRUE)`, id, name, price, stock)
	require.NoError(t, err)

	return CartLine{ProductID: id, ProductName: name, Quantity: 1, UnitPrice: price}
}

func insertTestCustomer(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO customers (id, first_name, last_name, email, is_guest)
		VALUES ($1, 'Test', 'Buyer', $2, TRUE)`,
		id, fmt.Sprintf("buyer-%s@example.com", id.String()[:8]))
	require.NoError(t, err)

	return id
}

func testOrderInput(customerID uuid.UUID, lines []CartLine) OrderInput {
	pricing := PriceCart(lines, nil, ShippingRates{FlatFee: 5.99, FreeThreshold: 50})
	return OrderInput{
		CustomerID: customerID,
		IsGuest:    true,
		Snapshot: OrderSnapshot{
			CustomerName:    "Test Buyer",
			CustomerEmail:   "buyer@example.com",
			ShippingAddress: "1 Jeweler's Row",
		},
		Lines:         lines,
		Pricing:       pricing,
		PaymentMethod: "card",
	}
}

func TestPlaceOrderCommits(t *testing.T) {
	db := testDB(t)
	co := NewOrderCoordinator(db)

	customerID := insertTestCustomer(t, db)
	line := insertTestProduct(t, db, 10.00, 5)
	line.Quantity = 2

	placed, err := co.PlaceOrder(context.Background(), testOrderInput(customerID, []CartLine{line}))
	require.NoError(t, err)
	assert.NotEmpty(t, placed.OrderNumber)
	assert.Equal(t, 25.99, placed.Total)

	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, line.ProductID).Scan(&stock))
	assert.Equal(t, 3, stock)

	var itemCount int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM order_items WHERE order_id = $1`, placed.OrderID).Scan(&itemCount))
	assert.Equal(t, 1, itemCount)

	var status string
	require.NoError(t, db.QueryRow(`SELECT status FROM orders WHERE id = $1`, placed.OrderID).Scan(&status))
	assert.Equal(t, models.OrderStatusPending, status)
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	db := testDB(t)
	co := NewOrderCoordinator(db)

	customerID := insertTestCustomer(t, db)
	line := insertTestProduct(t, db, 10.00, 5)
	line.Quantity = 10

	_, err := co.PlaceOrder(context.Background(), testOrderInput(customerID, []CartLine{line}))

	var serr *StockConflictError
	require.ErrorAs(t, err, &serr)
	require.Len(t, serr.Shortfalls, 1)
	assert.Equal(t, 10, serr.Shortfalls[0].Requested)
	assert.Equal(t, 5, serr.Shortfalls[0].Available)

	// Nothing may survive the rollback.
	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, line.ProductID).Scan(&stock))
	assert.Equal(t, 5, stock)

	var orderCount int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&orderCount))
	assert.Equal(t, 0, orderCount)
}

func TestPlaceOrderReportsAllShortfalls(t *testing.T) {
	db := testDB(t)
	co := NewOrderCoordinator(db)

	customerID := insertTestCustomer(t, db)
	first := insertTestProduct(t, db, 10.00, 1)
	first.Quantity = 3
	second := insertTestProduct(t, db, 20.00, 0)
	second.Quantity = 1

	_, err := co.PlaceOrder(context.Background(), testOrderInput(customerID, []CartLine{first, second}))

	var serr *StockConflictError
	require.ErrorAs(t, err, &serr)
	assert.Len(t, serr.Shortfalls, 2)
}

func TestPlaceOrderConsumesPromoQuotaInTransaction(t *testing.T) {
	db := testDB(t)
	co := NewOrderCoordinator(db)

	customerID := insertTestCustomer(t, db)

	promo := &models.PromoCode{
		ID:            uuid.New(),
		Code:          fmt.Sprintf("ONCE-%s", uuid.New().String()[:8]),
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: 1,
		UsageLimit:    1,
	}
	_, err := db.Exec(`
		INSERT INTO promo_codes (id, code, discount_type, discount_value, usage_limit, used_count,
			is_active, start_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, 0, TRUE, now() - interval '1 day', now() + interval '1 day')`,
		promo.ID, promo.Code, promo.DiscountType, promo.DiscountValue, promo.UsageLimit)
	require.NoError(t, err)

	line := insertTestProduct(t, db, 10.00, 10)
	input := testOrderInput(customerID, []CartLine{line})
	input.Promo = promo
	input.Pricing = PriceCart([]CartLine{line}, promo, ShippingRates{FlatFee: 5.99, FreeThreshold: 50})

	placed, err := co.PlaceOrder(context.Background(), input)
	require.NoError(t, err)

	var usedCount int
	require.NoError(t, db.QueryRow(
		`SELECT used_count FROM promo_codes WHERE id = $1`, promo.ID).Scan(&usedCount))
	assert.Equal(t, 1, usedCount)

	var usageRows int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM promo_code_usage WHERE order_id = $1`, placed.OrderID).Scan(&usageRows))
	assert.Equal(t, 1, usageRows)

	// The quota is spent; a second redemption fails inside the transaction
	// and rolls the whole order back.
	secondLine := insertTestProduct(t, db, 10.00, 10)
	secondInput := testOrderInput(customerID, []CartLine{secondLine})
	secondInput.Promo = promo
	_, err = co.PlaceOrder(context.Background(), secondInput)

	var perr *PromoError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "usage limit reached", perr.Reason)

	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, secondLine.ProductID).Scan(&stock))
	assert.Equal(t, 10, stock, "rolled back order must not keep its stock decrement")
}

func TestPlaceOrderConcurrentCheckoutsNeverOversell(t *testing.T) {
	db := testDB(t)
	co := NewOrderCoordinator(db)

	customerID := insertTestCustomer(t, db)

	// Stock 3 cannot satisfy two checkouts of 2 units each; exactly one of
	// the racing transactions must lose with a stock conflict.
	line := insertTestProduct(t, db, 10.00, 3)
	line.Quantity = 2

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := co.PlaceOrder(context.Background(), testOrderInput(customerID, []CartLine{line}))
			results <- err
		}()
	}

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		err := <-results
		var serr *StockConflictError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &serr):
			conflicts++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, line.ProductID).Scan(&stock))
	assert.Equal(t, 1, stock, "the two checkouts must never jointly decrement past the stock")

	var orderCount int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&orderCount))
	assert.Equal(t, 1, orderCount)
}

func TestPlaceOrderOppositeLineOrderDoesNotDeadlock(t *testing.T) {
	db := testDB(t)
	co := NewOrderCoordinator(db)

	customerID := insertTestCustomer(t, db)
	first := insertTestProduct(t, db, 10.00, 5)
	second := insertTestProduct(t, db, 10.00, 5)

	// Rows are locked in a global order, so holding the same products in
	// opposite cart order must not abort either transaction.
	results := make(chan error, 2)
	go func() {
		_, err := co.PlaceOrder(context.Background(), testOrderInput(customerID, []CartLine{first, second}))
		results <- err
	}()
	go func() {
		_, err := co.PlaceOrder(context.Background(), testOrderInput(customerID, []CartLine{second, first}))
		results <- err
	}()

	require.NoError(t, <-results)
	require.NoError(t, <-results)

	for _, product := range []CartLine{first, second} {
		var stock int
		require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, product.ProductID).Scan(&stock))
		assert.Equal(t, 4, stock)
	}
}

func TestInventoryGuardReportsAllLines(t *testing.T) {
	db := testDB(t)
	guard := NewInventoryGuard(db)

	short := insertTestProduct(t, db, 10.00, 1)
	short.Quantity = 5
	fine := insertTestProduct(t, db, 10.00, 10)
	fine.Quantity = 2
	missing := CartLine{ProductID: uuid.New(), ProductName: "ghost", Quantity: 1}

	shortfalls, err := guard.Check(context.Background(), []CartLine{short, fine, missing})
	require.NoError(t, err)
	require.Len(t, shortfalls, 2)

	byID := make(map[uuid.UUID]StockShortfall)
	for _, s := range shortfalls {
		byID[s.ProductID] = s
	}
	assert.Equal(t, 1, byID[short.ProductID].Available)
	assert.Equal(t, 0, byID[missing.ProductID].Available)
}

func TestCartReconcilerClearsOnlyOwnRows(t *testing.T) {
	db := testDB(t)
	reconciler := NewCartReconciler(db)

	owner := insertTestCustomer(t, db)
	other := insertTestCustomer(t, db)
	product := insertTestProduct(t, db, 10.00, 5)

	addCartRow := func(customerID uuid.UUID) {
		cartID := uuid.New()
		_, err := db.Exec(`INSERT INTO carts (id, customer_id) VALUES ($1, $2)`, cartID, customerID)
		require.NoError(t, err)
		_, err = db.Exec(`
			INSERT INTO cart_items (id, cart_id, product_id, product_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, 1)`,
			uuid.New(), cartID, product.ProductID, product.ProductName, product.UnitPrice)
		require.NoError(t, err)
	}
	addCartRow(owner)
	addCartRow(other)

	require.NoError(t, reconciler.ClearCustomerCart(context.Background(), owner))

	countFor := func(customerID uuid.UUID) int {
		var n int
		require.NoError(t, db.QueryRow(`
			SELECT COUNT(*) FROM cart_items
			WHERE cart_id IN (SELECT id FROM carts WHERE customer_id = $1)`, customerID).Scan(&n))
		return n
	}
	assert.Equal(t, 0, countFor(owner))
	assert.Equal(t, 1, countFor(other))
}
