package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRates() ShippingRates {
	return ShippingRates{FlatFee: 5.99, FreeThreshold: 50}
}

func guestForm(email string) GuestContactForm {
	return GuestContactForm{
		FirstName: "Ada",
		LastName:  "Noble",
		Email:     email,
		Address:   "1 Jeweler's Row",
		City:      "Antwerp",
	}
}

func TestValidateOrderGuestHappyPath(t *testing.T) {
	db := testDB(t)
	service := NewCheckoutService(db, &failingNotifier{}, testRates(), nil)

	product := insertTestProduct(t, db, 10.00, 5)
	email := fmt.Sprintf("guest-%s@example.com", uuid.New().String()[:8])

	cleared := false
	placed, err := service.ValidateOrder(context.Background(), CheckoutRequest{
		Context: GuestContext(guestForm(email)),
		Lines: []CheckoutLineRequest{
			{ProductID: product.ProductID, Quantity: 2},
		},
		ClearSessionCart: func() { cleared = true },
	})
	require.NoError(t, err)

	// 2 x 10.00 = 20.00, below the free-shipping threshold.
	assert.Equal(t, 25.99, placed.Total)
	assert.True(t, cleared, "session cart must be cleared after commit")

	// The guest customer record was created with no credential.
	var isGuest bool
	var hasCredential bool
	require.NoError(t, db.QueryRow(
		`SELECT is_guest, password_hash IS NOT NULL FROM customers WHERE email = $1`,
		email).Scan(&isGuest, &hasCredential))
	assert.True(t, isGuest)
	assert.False(t, hasCredential)

	var isGuestOrder bool
	require.NoError(t, db.QueryRow(
		`SELECT is_guest_order FROM orders WHERE id = $1`, placed.OrderID).Scan(&isGuestOrder))
	assert.True(t, isGuestOrder)
}

func TestValidateOrderSucceedsWhenAllNotificationsFail(t *testing.T) {
	db := testDB(t)
	notifier := &failingNotifier{failCustomer: true, failOperator: true}
	service := NewCheckoutService(db, notifier, testRates(), nil)

	product := insertTestProduct(t, db, 10.00, 5)
	email := fmt.Sprintf("guest-%s@example.com", uuid.New().String()[:8])

	placed, err := service.ValidateOrder(context.Background(), CheckoutRequest{
		Context: GuestContext(guestForm(email)),
		Lines: []CheckoutLineRequest{
			{ProductID: product.ProductID, Quantity: 1},
		},
	})

	// Post-commit failures never change the outcome.
	require.NoError(t, err)
	assert.NotEmpty(t, placed.OrderNumber)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notifier.confirmations))
	assert.Equal(t, int32(1), atomic.LoadInt32(&notifier.operator))
}

func TestValidateOrderInactiveProductRejected(t *testing.T) {
	db := testDB(t)
	service := NewCheckoutService(db, &failingNotifier{}, testRates(), nil)

	product := insertTestProduct(t, db, 10.00, 5)
	_, err := db.Exec(`UPDATE products SET is_active = FALSE WHERE id = $1`, product.ProductID)
	require.NoError(t, err)

	email := fmt.Sprintf("guest-%s@example.com", uuid.New().String()[:8])
	_, err = service.ValidateOrder(context.Background(), CheckoutRequest{
		Context: GuestContext(guestForm(email)),
		Lines: []CheckoutLineRequest{
			{ProductID: product.ProductID, Quantity: 1},
		},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateOrderUnknownPromoRejected(t *testing.T) {
	db := testDB(t)
	service := NewCheckoutService(db, &failingNotifier{}, testRates(), nil)

	product := insertTestProduct(t, db, 10.00, 5)
	email := fmt.Sprintf("guest-%s@example.com", uuid.New().String()[:8])

	_, err := service.ValidateOrder(context.Background(), CheckoutRequest{
		Context:   GuestContext(guestForm(email)),
		PromoCode: "NO-SUCH-CODE",
		Lines: []CheckoutLineRequest{
			{ProductID: product.ProductID, Quantity: 1},
		},
	})

	var perr *PromoError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "invalid promo code", perr.Reason)

	// A rejected promo leaves no order behind.
	var orderCount int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM orders o JOIN customers c ON o.customer_id = c.id WHERE c.email = $1`,
		email).Scan(&orderCount))
	assert.Equal(t, 0, orderCount)
}

func TestValidateOrderGuestMergeKeepsRegisteredCustomer(t *testing.T) {
	db := testDB(t)
	service := NewCheckoutService(db, &failingNotifier{}, testRates(), nil)

	// A registered customer with a credential.
	email := fmt.Sprintf("member-%s@example.com", uuid.New().String()[:8])
	customerID := uuid.New()
	_, err := db.Exec(`
		INSERT INTO customers (id, first_name, last_name, email, password_hash, is_guest)
		VALUES ($1, 'Reg', 'Member', $2, 'bcrypt-hash', FALSE)`, customerID, email)
	require.NoError(t, err)

	product := insertTestProduct(t, db, 10.00, 5)

	// A guest checkout with the same email attaches to the existing record
	// without demoting it.
	placed, err := service.ValidateOrder(context.Background(), CheckoutRequest{
		Context: GuestContext(guestForm(email)),
		Lines: []CheckoutLineRequest{
			{ProductID: product.ProductID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	var orderCustomerID uuid.UUID
	require.NoError(t, db.QueryRow(
		`SELECT customer_id FROM orders WHERE id = $1`, placed.OrderID).Scan(&orderCustomerID))
	assert.Equal(t, customerID, orderCustomerID)

	var isGuest bool
	var hash *string
	require.NoError(t, db.QueryRow(
		`SELECT is_guest, password_hash FROM customers WHERE id = $1`, customerID).Scan(&isGuest, &hash))
	assert.False(t, isGuest, "a credentialed customer is never demoted to guest")
	require.NotNil(t, hash)
	assert.Equal(t, "bcrypt-hash", *hash)
}
