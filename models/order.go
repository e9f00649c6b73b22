package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses. Checkout only ever writes StatusPending; the admin pipeline
// owns every later transition.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order is created exactly once per successful checkout. Customer contact and
// shipping fields are copied onto the row so later customer edits never alter
// a historical order. Invariant: total = subtotal - discount + shipping fee.
type Order struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	OrderNumber        string      `json:"order_number" db:"order_number"`
	CustomerID         uuid.UUID   `json:"customer_id" db:"customer_id"`
	CustomerName       string      `json:"customer_name" db:"customer_name"`
	CustomerEmail      string      `json:"customer_email" db:"customer_email"`
	CustomerPhone      *string     `json:"customer_phone" db:"customer_phone"`
	ShippingAddress    string      `json:"shipping_address" db:"shipping_address"`
	ShippingCity       *string     `json:"shipping_city" db:"shipping_city"`
	ShippingPostalCode *string     `json:"shipping_postal_code" db:"shipping_postal_code"`
	Subtotal           float64     `json:"subtotal" db:"subtotal"`
	DiscountAmount     float64     `json:"discount_amount" db:"discount_amount"`
	PromoCode          *string     `json:"promo_code,omitempty" db:"promo_code"`
	ShippingFee        float64     `json:"shipping_fee" db:"shipping_fee"`
	Total              float64     `json:"total" db:"total"`
	Status             string      `json:"status" db:"status"`
	IsGuestOrder       bool        `json:"is_guest_order" db:"is_guest_order"`
	PaymentMethod      string      `json:"payment_method" db:"payment_method"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
	Items              []OrderItem `json:"items,omitempty"`
}

// OrderItem is immutable after creation; name and price are snapshots taken
// at purchase time regardless of later catalog edits.
type OrderItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
	TotalPrice  float64   `json:"total_price" db:"total_price"`
	Size        *string   `json:"size" db:"size"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (Order) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		order_number VARCHAR(50) NOT NULL UNIQUE,
		customer_id UUID NOT NULL REFERENCES customers(id),
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT,
		shipping_address TEXT NOT NULL,
		shipping_city TEXT,
		shipping_postal_code TEXT,
		subtotal NUMERIC(12,2) NOT NULL,
		discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (discount_amount >= 0),
		promo_code VARCHAR(50),
		shipping_fee NUMERIC(12,2) NOT NULL DEFAULT 0,
		total NUMERIC(12,2) NOT NULL CHECK (total >= 0),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		is_guest_order BOOLEAN NOT NULL DEFAULT FALSE,
		payment_method VARCHAR(30) NOT NULL DEFAULT 'card',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_order_number ON orders(order_number);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (OrderItem) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL,
		total_price NUMERIC(12,2) NOT NULL,
		size VARCHAR(50),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);`
}
