package handlers

import (
	"net/http"

	"crystosjewel-server/services"

	"github.com/gin-gonic/gin"
)

type applyPromoPayload struct {
	Code string `json:"code" binding:"required"`
}

// ApplyPromoCode validates a code against the caller's current cart and, on
// success, remembers it on the session and returns the new pricing breakdown.
// The stored used_count is not touched here; quota is only consumed when an
// order commits.
func ApplyPromoCode(c *gin.Context) {
	var payload applyPromoPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Promo code is required"})
		return
	}

	session := Sessions.Get(c)
	customerID := c.GetString("customer_id")

	lines, err := resolveRequestLines(c, checkoutPayload{}, session, customerID)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	priced, err := previewCart(c, lines, payload.Code)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	session.AppliedPromo = payload.Code

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Promo code applied",
		"data":    priced,
	})
}

// RemovePromoCode drops the session's applied code and returns the undiscounted
// breakdown. Removing when nothing is applied is a no-op, not an error.
func RemovePromoCode(c *gin.Context) {
	session := Sessions.Get(c)
	session.AppliedPromo = ""

	customerID := c.GetString("customer_id")
	lines, err := resolveRequestLines(c, checkoutPayload{}, session, customerID)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	priced, err := previewCart(c, lines, "")
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Promo code removed",
		"data":    priced,
	})
}

// previewCart prices the caller's cart with an optional promo code, without
// reserving stock or creating anything.
func previewCart(c *gin.Context, lines []services.CheckoutLineRequest, code string) (*services.PricingResult, error) {
	pricing, err := Checkout.PreviewCart(c.Request.Context(), lines, code)
	if err != nil {
		return nil, err
	}
	return pricing, nil
}
