package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"

	"crystosjewel-server/database"
	"crystosjewel-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// orderLookup is one way of finding an order for a reference string. Lookups
// are tried in order; the first hit wins. Keeping them as a list makes the
// resolution order explicit instead of buried in an if-chain.
type orderLookup struct {
	name string
	find func(ref string) (*models.Order, error)
}

var orderLookups = []orderLookup{
	{name: "id", find: findOrderByID},
	{name: "order_number", find: findOrderByNumber},
}

// resolveOrder tries each lookup strategy in turn. sql.ErrNoRows means "try
// the next one"; any other error aborts.
func resolveOrder(ref string) (*models.Order, error) {
	for _, lookup := range orderLookups {
		order, err := lookup.find(ref)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		return order, nil
	}
	return nil, sql.ErrNoRows
}

func findOrderByID(ref string) (*models.Order, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, sql.ErrNoRows
	}
	return scanOrder(database.Database.QueryRow(orderSelect+` WHERE id = $1`, id))
}

func findOrderByNumber(ref string) (*models.Order, error) {
	return scanOrder(database.Database.QueryRow(orderSelect+` WHERE order_number = $1`, ref))
}

const orderSelect = `
	SELECT id, order_number, customer_id, customer_name, customer_email,
	       customer_phone, shipping_address, shipping_city, shipping_postal_code,
	       subtotal, discount_amount, promo_code, shipping_fee, total,
	       status, is_guest_order, payment_method, created_at, updated_at
	FROM orders`

func scanOrder(row *sql.Row) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CustomerID, &order.CustomerName,
		&order.CustomerEmail, &order.CustomerPhone, &order.ShippingAddress,
		&order.ShippingCity, &order.ShippingPostalCode, &order.Subtotal,
		&order.DiscountAmount, &order.PromoCode, &order.ShippingFee, &order.Total,
		&order.Status, &order.IsGuestOrder, &order.PaymentMethod,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func loadOrderItems(orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := database.Database.Query(`
		SELECT id, order_id, product_id, product_name, unit_price, quantity, size, total_price
		FROM order_items WHERE order_id = $1
		ORDER BY product_name`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.UnitPrice, &item.Quantity, &item.Size, &item.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetOrder returns one of the authenticated customer's orders, with items.
// The reference may be the order id or the order number.
func GetOrder(c *gin.Context) {
	customerID := c.GetString("customer_id")

	order, err := resolveOrder(c.Param("ref"))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load order %s: %v", c.Param("ref"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}
	if order.CustomerID.String() != customerID {
		// Not the owner; respond as if the order does not exist.
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	items, err := loadOrderItems(order.ID)
	if err != nil {
		log.Printf("Failed to load order items %s: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"order": order, "items": items}})
}

// TrackOrder is the public tracking endpoint: order number plus the matching
// email, so guests can follow their orders without an account.
func TrackOrder(c *gin.Context) {
	orderNumber := c.Query("order_number")
	email := c.Query("email")
	if orderNumber == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_number and email are required"})
		return
	}

	order, err := findOrderByNumber(orderNumber)
	if err == sql.ErrNoRows || (err == nil && !strings.EqualFold(order.CustomerEmail, email)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to track order %s: %v", orderNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"total":        order.Total,
			"created_at":   order.CreatedAt,
		},
	})
}

// GetCustomerOrders lists the authenticated customer's orders, newest first.
func GetCustomerOrders(c *gin.Context) {
	customerID := c.GetString("customer_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	rows, err := database.Database.Query(orderSelect+`
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		log.Printf("Failed to list orders for %s: %v", customerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(
			&order.ID, &order.OrderNumber, &order.CustomerID, &order.CustomerName,
			&order.CustomerEmail, &order.CustomerPhone, &order.ShippingAddress,
			&order.ShippingCity, &order.ShippingPostalCode, &order.Subtotal,
			&order.DiscountAmount, &order.PromoCode, &order.ShippingFee, &order.Total,
			&order.Status, &order.IsGuestOrder, &order.PaymentMethod,
			&order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			log.Printf("Failed to scan order for %s: %v", customerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
			return
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Failed to list orders for %s: %v", customerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}

	var total int
	if err := database.Database.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID,
	).Scan(&total); err != nil {
		total = len(orders)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}
