package services

import (
	"math"
	"time"

	"crystosjewel-server/models"

	"github.com/google/uuid"
)

// CartLine is a resolved cart line: the unit price comes from the current
// product record at checkout time, never from a stale cart snapshot.
type CartLine struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   float64
	Size        *string
}

// ShippingRates holds the flat fee and the discounted-subtotal threshold
// above which shipping is free.
type ShippingRates struct {
	FlatFee       float64
	FreeThreshold float64
}

// PricingResult is the full monetary breakdown of a cart.
type PricingResult struct {
	Subtotal           float64 `json:"subtotal"`
	DiscountAmount     float64 `json:"discount_amount"`
	DiscountedSubtotal float64 `json:"discounted_subtotal"`
	ShippingFee        float64 `json:"shipping_fee"`
	Total              float64 `json:"total"`
}

// PriceCart computes the totals for a cart and an optional promo code that
// has already passed ValidatePromo. Pure function: same inputs, same totals.
// Each accumulation step is rounded to 2 decimal places to avoid float drift.
func PriceCart(lines []CartLine, promo *models.PromoCode, rates ShippingRates) PricingResult {
	var subtotal float64
	for _, line := range lines {
		subtotal = round2(subtotal + round2(line.UnitPrice*float64(line.Quantity)))
	}

	discount := promoDiscount(promo, subtotal)

	discounted := round2(subtotal - discount)

	shipping := rates.FlatFee
	if discounted >= rates.FreeThreshold {
		shipping = 0
	}

	return PricingResult{
		Subtotal:           subtotal,
		DiscountAmount:     discount,
		DiscountedSubtotal: discounted,
		ShippingFee:        shipping,
		Total:              round2(discounted + shipping),
	}
}

// promoDiscount returns the discount amount for the given subtotal, clamped
// to [0, subtotal] so the discounted subtotal can never go negative.
func promoDiscount(promo *models.PromoCode, subtotal float64) float64 {
	if promo == nil {
		return 0
	}

	var discount float64
	switch promo.DiscountType {
	case models.DiscountTypePercentage:
		discount = round2(subtotal * promo.DiscountValue / 100)
		if promo.MaxDiscount != nil && discount > *promo.MaxDiscount {
			discount = *promo.MaxDiscount
		}
	case models.DiscountTypeFixed:
		discount = promo.DiscountValue
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return round2(discount)
}

// ValidatePromo checks a promo code against a cart subtotal. It covers the
// rules the storefront enforces before pricing: active window, usage cap and
// minimum order amount. Returns a *PromoError naming the failed rule.
func ValidatePromo(promo *models.PromoCode, subtotal float64, now time.Time) error {
	if promo == nil {
		return nil
	}
	if !promo.IsActive {
		return &PromoError{Code: promo.Code, Reason: "code is not active"}
	}
	if now.Before(promo.StartDate) {
		return &PromoError{Code: promo.Code, Reason: "code is not yet active"}
	}
	if now.After(promo.ExpiryDate) {
		return &PromoError{Code: promo.Code, Reason: "code has expired"}
	}
	if promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit {
		return &PromoError{Code: promo.Code, Reason: "usage limit reached"}
	}
	if subtotal < promo.MinOrderAmount {
		return &PromoError{Code: promo.Code, Reason: "order amount below the minimum for this code"}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
