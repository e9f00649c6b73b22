package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"crystosjewel-server/models"

	"github.com/google/uuid"
)

// CheckoutLineRequest is one requested cart line as sent by the caller. The
// unit price is deliberately absent: checkout always resolves the current
// catalog price.
type CheckoutLineRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Size      *string   `json:"size,omitempty"`
}

// CheckoutRequest is the single entry point's input, wrapping the identity
// context, the cart lines and the optional promo code.
type CheckoutRequest struct {
	Context       CheckoutContext
	Lines         []CheckoutLineRequest
	PromoCode     string
	PaymentMethod string

	// ClearSessionCart is set by the HTTP layer for guest checkouts; it
	// clears the session-held cart and the applied-promo marker. Only called
	// after the order transaction has committed.
	ClearSessionCart func()
}

// CheckoutService wires the pipeline: identity resolution, pricing,
// inventory guard, the atomic order transaction, cart reconciliation and
// best-effort notifications.
type CheckoutService struct {
	db          *sql.DB
	identity    *IdentityResolver
	guard       *InventoryGuard
	coordinator *OrderCoordinator
	reconciler  *CartReconciler
	notifier    Notifier
	rates       ShippingRates
	metrics     *CheckoutMetrics
}

func NewCheckoutService(db *sql.DB, notifier Notifier, rates ShippingRates, metrics *CheckoutMetrics) *CheckoutService {
	return &CheckoutService{
		db:          db,
		identity:    NewIdentityResolver(db),
		guard:       NewInventoryGuard(db),
		coordinator: NewOrderCoordinator(db),
		reconciler:  NewCartReconciler(db),
		notifier:    notifier,
		rates:       rates,
		metrics:     metrics,
	}
}

// Rates exposes the configured shipping rates for promo preview endpoints.
func (s *CheckoutService) Rates() ShippingRates {
	return s.rates
}

// PreviewCart prices the given lines with an optional promo code without
// touching stock, quota or orders. Used by the apply/remove promo endpoints
// to show the customer the breakdown before they commit.
func (s *CheckoutService) PreviewCart(ctx context.Context, reqLines []CheckoutLineRequest, promoCode string) (*PricingResult, error) {
	if err := validateLines(reqLines); err != nil {
		return nil, err
	}

	lines, err := s.resolveLines(ctx, reqLines)
	if err != nil {
		return nil, err
	}

	promo, err := s.resolvePromo(ctx, promoCode, lines)
	if err != nil {
		return nil, err
	}

	pricing := PriceCart(lines, promo, s.rates)
	return &pricing, nil
}

// ValidateOrder runs a complete checkout. It returns either one unambiguous
// success (order number and total) or one unambiguous failure; post-commit
// side effects can no longer change the outcome.
func (s *CheckoutService) ValidateOrder(ctx context.Context, req CheckoutRequest) (*PlacedOrder, error) {
	start := time.Now()
	placed, err := s.validateOrder(ctx, req)
	s.metrics.ObserveCheckout(err, time.Since(start))
	return placed, err
}

func (s *CheckoutService) validateOrder(ctx context.Context, req CheckoutRequest) (*PlacedOrder, error) {
	if err := validateLines(req.Lines); err != nil {
		return nil, err
	}

	customer, err := s.identity.Resolve(ctx, req.Context)
	if err != nil {
		return nil, err
	}

	lines, err := s.resolveLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	promo, err := s.resolvePromo(ctx, req.PromoCode, lines)
	if err != nil {
		return nil, err
	}

	pricing := PriceCart(lines, promo, s.rates)

	shortfalls, err := s.guard.Check(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(shortfalls) > 0 {
		return nil, &StockConflictError{Shortfalls: shortfalls}
	}

	snapshot, err := buildSnapshot(customer)
	if err != nil {
		return nil, err
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "card"
	}

	placed, err := s.coordinator.PlaceOrder(ctx, OrderInput{
		CustomerID:    customer.ID,
		IsGuest:       customer.IsGuest,
		Snapshot:      snapshot,
		Lines:         lines,
		Pricing:       pricing,
		Promo:         promo,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return nil, err
	}

	// Everything below runs after commit: failures are logged, never
	// propagated, and never undo the order.
	s.reconcile(ctx, req, customer)

	DispatchOrderNotifications(ctx, s.notifier,
		OrderDigest{
			OrderNumber: placed.OrderNumber,
			Total:       placed.Total,
			ItemCount:   len(lines),
		},
		CustomerDigest{
			Name:  customer.FullName(),
			Email: customer.Email,
			Guest: customer.IsGuest,
		},
	)

	return placed, nil
}

// reconcile clears the source cart. Persisted rows for authenticated
// customers, the session closure for guests.
func (s *CheckoutService) reconcile(ctx context.Context, req CheckoutRequest, customer *models.Customer) {
	if req.Context.IsGuest() {
		if req.ClearSessionCart != nil {
			req.ClearSessionCart()
		}
		return
	}
	if err := s.reconciler.ClearCustomerCart(ctx, customer.ID); err != nil {
		log.Printf("Failed to clear cart for customer %s after checkout: %v", customer.ID, err)
	}
	if req.ClearSessionCart != nil {
		// Authenticated sessions still hold the applied-promo marker.
		req.ClearSessionCart()
	}
}

// resolveLines loads the current name, price and activity flag for every
// requested product. Prices are resolved here, at checkout time.
func (s *CheckoutService) resolveLines(ctx context.Context, reqLines []CheckoutLineRequest) ([]CartLine, error) {
	lines := make([]CartLine, 0, len(reqLines))
	verr := &ValidationError{}

	for i, reqLine := range reqLines {
		var name string
		var price float64
		var isActive bool

		err := s.db.QueryRowContext(ctx,
			`SELECT name, price, is_active FROM products WHERE id = $1`,
			reqLine.ProductID,
		).Scan(&name, &price, &isActive)

		if err == sql.ErrNoRows {
			verr.add(fmt.Sprintf("items[%d]", i), "product not found")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve product %s: %w", reqLine.ProductID, err)
		}
		if !isActive {
			verr.add(fmt.Sprintf("items[%d]", i), fmt.Sprintf("product %q is no longer available", name))
			continue
		}

		lines = append(lines, CartLine{
			ProductID:   reqLine.ProductID,
			ProductName: name,
			Quantity:    reqLine.Quantity,
			UnitPrice:   price,
			Size:        reqLine.Size,
		})
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return lines, nil
}

// resolvePromo loads and validates the promo code against the undiscounted
// subtotal. An empty code means no promotion.
func (s *CheckoutService) resolvePromo(ctx context.Context, code string, lines []CartLine) (*models.PromoCode, error) {
	if code == "" {
		return nil, nil
	}

	promo, err := s.LookupPromo(ctx, code)
	if err != nil {
		return nil, err
	}

	subtotal := PriceCart(lines, nil, ShippingRates{}).Subtotal
	if err := ValidatePromo(promo, subtotal, time.Now()); err != nil {
		return nil, err
	}
	return promo, nil
}

// LookupPromo fetches a promo code, matching case-insensitively.
func (s *CheckoutService) LookupPromo(ctx context.Context, code string) (*models.PromoCode, error) {
	query := `
		SELECT id, code, description, discount_type, discount_value,
		       min_order_amount, max_discount, usage_limit, used_count,
		       is_active, start_date, expiry_date, created_at, updated_at
		FROM promo_codes
		WHERE UPPER(code) = UPPER($1)`

	var promo models.PromoCode
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&promo.ID, &promo.Code, &promo.Description, &promo.DiscountType,
		&promo.DiscountValue, &promo.MinOrderAmount, &promo.MaxDiscount,
		&promo.UsageLimit, &promo.UsedCount, &promo.IsActive,
		&promo.StartDate, &promo.ExpiryDate, &promo.CreatedAt, &promo.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &PromoError{Code: code, Reason: "invalid promo code"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up promo code: %w", err)
	}
	return &promo, nil
}

func validateLines(lines []CheckoutLineRequest) error {
	verr := &ValidationError{}
	if len(lines) == 0 {
		verr.add("cart", "cart is empty")
		return verr
	}
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			verr.add(fmt.Sprintf("items[%d].product_id", i), "product id is required")
		}
		if line.Quantity < 1 {
			verr.add(fmt.Sprintf("items[%d].quantity", i), "quantity must be at least 1")
		}
	}
	return verr.orNil()
}

// buildSnapshot copies the resolved customer's contact fields onto the order.
// A missing shipping address is the one contact gap that can still surface
// here, for authenticated customers who never stored one.
func buildSnapshot(customer *models.Customer) (OrderSnapshot, error) {
	if customer.Address == nil || *customer.Address == "" {
		return OrderSnapshot{}, &ValidationError{Fields: []FieldError{
			{Field: "address", Message: "shipping address is required"},
		}}
	}
	return OrderSnapshot{
		CustomerName:       customer.FullName(),
		CustomerEmail:      customer.Email,
		CustomerPhone:      customer.Phone,
		ShippingAddress:    *customer.Address,
		ShippingCity:       customer.City,
		ShippingPostalCode: customer.PostalCode,
	}, nil
}
