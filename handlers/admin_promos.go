package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	"crystosjewel-server/database"
	"crystosjewel-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type promoPayload struct {
	Code           string    `json:"code" binding:"required"`
	Description    string    `json:"description"`
	DiscountType   string    `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue  float64   `json:"discount_value" binding:"required,gt=0"`
	MinOrderAmount float64   `json:"min_order_amount"`
	MaxDiscount    *float64  `json:"max_discount"`
	UsageLimit     int       `json:"usage_limit"`
	IsActive       *bool     `json:"is_active"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	ExpiryDate     time.Time `json:"expiry_date" binding:"required"`
}

// CreatePromoCode creates a promo code. Codes are stored uppercase so lookups
// stay case-insensitive.
func CreatePromoCode(c *gin.Context) {
	var payload promoPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !payload.ExpiryDate.After(payload.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiry_date must be after start_date"})
		return
	}
	if payload.DiscountType == models.DiscountTypePercentage && payload.DiscountValue > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "percentage discount cannot exceed 100"})
		return
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}

	id := uuid.New()
	_, err := database.Database.Exec(`
		INSERT INTO promo_codes (id, code, description, discount_type, discount_value,
			min_order_amount, max_discount, usage_limit, used_count, is_active,
			start_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11)`,
		id, strings.ToUpper(payload.Code), payload.Description, payload.DiscountType,
		payload.DiscountValue, payload.MinOrderAmount, payload.MaxDiscount,
		payload.UsageLimit, isActive, payload.StartDate, payload.ExpiryDate)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "A promo code with this code already exists"})
			return
		}
		log.Printf("Failed to create promo code: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create promo code"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"id": id}})
}

// GetPromoCodes lists all promo codes for the admin dashboard.
func GetPromoCodes(c *gin.Context) {
	rows, err := database.Database.Query(`
		SELECT id, code, description, discount_type, discount_value,
		       min_order_amount, max_discount, usage_limit, used_count,
		       is_active, start_date, expiry_date, created_at, updated_at
		FROM promo_codes
		ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("Failed to list promo codes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promo codes"})
		return
	}
	defer rows.Close()

	codes := []models.PromoCode{}
	for rows.Next() {
		var promo models.PromoCode
		if err := rows.Scan(
			&promo.ID, &promo.Code, &promo.Description, &promo.DiscountType,
			&promo.DiscountValue, &promo.MinOrderAmount, &promo.MaxDiscount,
			&promo.UsageLimit, &promo.UsedCount, &promo.IsActive,
			&promo.StartDate, &promo.ExpiryDate, &promo.CreatedAt, &promo.UpdatedAt,
		); err != nil {
			log.Printf("Failed to scan promo code: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promo codes"})
			return
		}
		codes = append(codes, promo)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": codes})
}

type promoUpdatePayload struct {
	Description    *string    `json:"description"`
	DiscountValue  *float64   `json:"discount_value"`
	MinOrderAmount *float64   `json:"min_order_amount"`
	MaxDiscount    *float64   `json:"max_discount"`
	UsageLimit     *int       `json:"usage_limit"`
	IsActive       *bool      `json:"is_active"`
	StartDate      *time.Time `json:"start_date"`
	ExpiryDate     *time.Time `json:"expiry_date"`
}

// UpdatePromoCode updates a promo code's adjustable fields. The code itself
// and the used_count are immutable from this endpoint.
func UpdatePromoCode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid promo code ID"})
		return
	}

	var payload promoUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := database.Database.Exec(`
		UPDATE promo_codes SET
			description = COALESCE($1, description),
			discount_value = COALESCE($2, discount_value),
			min_order_amount = COALESCE($3, min_order_amount),
			max_discount = COALESCE($4, max_discount),
			usage_limit = COALESCE($5, usage_limit),
			is_active = COALESCE($6, is_active),
			start_date = COALESCE($7, start_date),
			expiry_date = COALESCE($8, expiry_date),
			updated_at = NOW()
		WHERE id = $9`,
		payload.Description, payload.DiscountValue, payload.MinOrderAmount,
		payload.MaxDiscount, payload.UsageLimit, payload.IsActive,
		payload.StartDate, payload.ExpiryDate, id)
	if err != nil {
		log.Printf("Failed to update promo code %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update promo code"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Promo code updated"})
}

// DeletePromoCode deactivates a code that has been used and deletes one that
// has not. Usage rows reference the code, so a used code only ever gets
// switched off.
func DeletePromoCode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid promo code ID"})
		return
	}

	var usedCount int
	err = database.Database.QueryRow(
		`SELECT used_count FROM promo_codes WHERE id = $1`, id,
	).Scan(&usedCount)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load promo code %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete promo code"})
		return
	}

	if usedCount > 0 {
		_, err = database.Database.Exec(
			`UPDATE promo_codes SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			log.Printf("Failed to deactivate promo code %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete promo code"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Promo code deactivated"})
		return
	}

	if _, err = database.Database.Exec(`DELETE FROM promo_codes WHERE id = $1`, id); err != nil {
		log.Printf("Failed to delete promo code %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete promo code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Promo code deleted"})
}

// GetPromoCodeStats returns per-code usage figures from the usage ledger.
func GetPromoCodeStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid promo code ID"})
		return
	}

	var code string
	var usedCount, usageLimit int
	err = database.Database.QueryRow(
		`SELECT code, used_count, usage_limit FROM promo_codes WHERE id = $1`, id,
	).Scan(&code, &usedCount, &usageLimit)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load promo code %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	var totalDiscount float64
	var orderCount int
	err = database.Database.QueryRow(`
		SELECT COALESCE(SUM(discount_amount), 0), COUNT(*)
		FROM promo_code_usage WHERE promo_code_id = $1`, id,
	).Scan(&totalDiscount, &orderCount)
	if err != nil {
		log.Printf("Failed to aggregate promo usage %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"code":           code,
			"used_count":     usedCount,
			"usage_limit":    usageLimit,
			"order_count":    orderCount,
			"total_discount": totalDiscount,
		},
	})
}
