package handlers

import (
	"errors"
	"net/http"

	"crystosjewel-server/database"
	"crystosjewel-server/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Package wiring, set once from main.
var (
	Checkout *services.CheckoutService
	Sessions *SessionStore
	Stats    *services.StatsCache
)

// Init hands the handlers their collaborators.
func Init(checkout *services.CheckoutService, sessions *SessionStore, stats *services.StatsCache) {
	Checkout = checkout
	Sessions = sessions
	Stats = stats
}

type checkoutItemPayload struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	Size      *string `json:"size"`
}

type checkoutPayload struct {
	Items         []checkoutItemPayload      `json:"items"`
	Contact       *services.GuestContactForm `json:"contact"`
	PromoCode     string                     `json:"promo_code"`
	PaymentMethod string                     `json:"payment_method"`
}

// PlaceOrder handles POST /api/v1/checkout for both authenticated customers
// and guests. Items default to the caller's cart (persisted or session) when
// the payload omits them.
func PlaceOrder(c *gin.Context) {
	var payload checkoutPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := Sessions.Get(c)
	customerID := c.GetString("customer_id")

	lines, err := resolveRequestLines(c, payload, session, customerID)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	promoCode := payload.PromoCode
	if promoCode == "" {
		promoCode = session.AppliedPromo
	}

	var checkoutCtx services.CheckoutContext
	if customerID != "" {
		id, parseErr := uuid.Parse(customerID)
		if parseErr != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid customer ID"})
			return
		}
		checkoutCtx = services.AuthenticatedContext(id, payload.Contact)
	} else {
		if payload.Contact == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Contact details are required for guest checkout",
				"fields": []gin.H{{"field": "contact", "message": "contact details are required"}},
			})
			return
		}
		checkoutCtx = services.GuestContext(*payload.Contact)
	}

	placed, err := Checkout.ValidateOrder(c.Request.Context(), services.CheckoutRequest{
		Context:       checkoutCtx,
		Lines:         lines,
		PromoCode:     promoCode,
		PaymentMethod: payload.PaymentMethod,
		ClearSessionCart: func() {
			session.Cart.Clear()
			session.AppliedPromo = ""
		},
	})
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order placed successfully",
		"data": gin.H{
			"order_id":     placed.OrderID,
			"order_number": placed.OrderNumber,
			"total":        placed.Total,
			"created_at":   placed.CreatedAt,
		},
	})
}

// resolveRequestLines turns the payload into line requests, falling back to
// the caller's cart when no explicit items were sent.
func resolveRequestLines(c *gin.Context, payload checkoutPayload, session *Session, customerID string) ([]services.CheckoutLineRequest, error) {
	if len(payload.Items) > 0 {
		lines := make([]services.CheckoutLineRequest, 0, len(payload.Items))
		for _, item := range payload.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				return nil, &services.ValidationError{Fields: []services.FieldError{
					{Field: "items", Message: "invalid product id " + item.ProductID},
				}}
			}
			lines = append(lines, services.CheckoutLineRequest{
				ProductID: productID,
				Quantity:  item.Quantity,
				Size:      item.Size,
			})
		}
		return lines, nil
	}

	if customerID != "" {
		return loadPersistedCartLines(c, customerID)
	}

	lines := make([]services.CheckoutLineRequest, 0, len(session.Cart.Items))
	for _, item := range session.Cart.Items {
		lines = append(lines, services.CheckoutLineRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
		})
	}
	return lines, nil
}

func loadPersistedCartLines(c *gin.Context, customerID string) ([]services.CheckoutLineRequest, error) {
	rows, err := database.Database.QueryContext(c.Request.Context(), `
		SELECT ci.product_id, ci.quantity, ci.size
		FROM cart_items ci
		JOIN carts ca ON ci.cart_id = ca.id
		WHERE ca.customer_id = $1
		ORDER BY ci.added_at`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []services.CheckoutLineRequest
	for rows.Next() {
		var line services.CheckoutLineRequest
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.Size); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// respondCheckoutError maps the checkout error taxonomy onto HTTP responses:
// validation 400, conflicts 409 with the full per-line breakdown, anything
// else a generic 500.
func respondCheckoutError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   verr.Error(),
			"fields":  verr.Fields,
		})
		return
	}

	var serr *services.StockConflictError
	if errors.As(err, &serr) {
		c.JSON(http.StatusConflict, gin.H{
			"success":    false,
			"error":      serr.Error(),
			"shortfalls": serr.Shortfalls,
		})
		return
	}

	var perr *services.PromoError
	if errors.As(err, &perr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   perr.Error(),
		})
		return
	}

	var cerr *services.ConflictError
	if errors.As(err, &cerr) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   cerr.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "Checkout failed, please try again",
	})
}
