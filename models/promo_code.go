package models

import (
	"time"

	"github.com/google/uuid"
)

// Promo code discount types.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// PromoCode is a discount rule applied at most once per order. Codes are
// matched case-insensitively; the stored form is canonical. usage_limit of -1
// means unlimited.
type PromoCode struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Code           string    `json:"code" db:"code"`
	Description    *string   `json:"description" db:"description"`
	DiscountType   string    `json:"discount_type" db:"discount_type"`
	DiscountValue  float64   `json:"discount_value" db:"discount_value"`
	MinOrderAmount float64   `json:"min_order_amount" db:"min_order_amount"`
	MaxDiscount    *float64  `json:"max_discount" db:"max_discount"`
	UsageLimit     int       `json:"usage_limit" db:"usage_limit"`
	UsedCount      int       `json:"used_count" db:"used_count"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	StartDate      time.Time `json:"start_date" db:"start_date"`
	ExpiryDate     time.Time `json:"expiry_date" db:"expiry_date"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// PromoCodeUsage records a redemption. Written in the same transaction as the
// order so a rolled back checkout never consumes quota.
type PromoCodeUsage struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PromoCodeID    uuid.UUID `json:"promo_code_id" db:"promo_code_id"`
	CustomerID     uuid.UUID `json:"customer_id" db:"customer_id"`
	OrderID        uuid.UUID `json:"order_id" db:"order_id"`
	DiscountAmount float64   `json:"discount_amount" db:"discount_amount"`
	UsedAt         time.Time `json:"used_at" db:"used_at"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}

func (PromoCode) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS promo_codes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		code VARCHAR(50) UNIQUE NOT NULL,
		description TEXT,
		discount_type VARCHAR(20) NOT NULL CHECK (discount_type IN ('percentage', 'fixed')),
		discount_value NUMERIC(10,2) NOT NULL,
		min_order_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		max_discount NUMERIC(10,2),
		usage_limit INTEGER NOT NULL DEFAULT -1,
		used_count INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		start_date TIMESTAMP WITH TIME ZONE NOT NULL,
		expiry_date TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_promo_codes_code ON promo_codes(code);
	CREATE INDEX IF NOT EXISTS idx_promo_codes_active ON promo_codes(is_active);`
}

func (PromoCodeUsage) TableName() string {
	return "promo_code_usage"
}

func (PromoCodeUsage) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS promo_code_usage (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		promo_code_id UUID NOT NULL REFERENCES promo_codes(id) ON DELETE CASCADE,
		customer_id UUID NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		discount_amount NUMERIC(10,2) NOT NULL,
		used_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_promo_code_usage_code ON promo_code_usage(promo_code_id);
	CREATE INDEX IF NOT EXISTS idx_promo_code_usage_customer ON promo_code_usage(customer_id);`
}
