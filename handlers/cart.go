package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"crystosjewel-server/database"
	"crystosjewel-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type cartItemPayload struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	Size      *string `json:"size"`
}

// GetCart returns the caller's cart: persisted rows for authenticated
// customers, the session-held cart for guests.
func GetCart(c *gin.Context) {
	if customerID := c.GetString("customer_id"); customerID != "" {
		items, err := loadCartItems(customerID)
		if err != nil {
			log.Printf("Failed to load cart for %s: %v", customerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"items": items}})
		return
	}

	session := Sessions.Get(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"items": session.Cart.Items}})
}

// AddToCart adds a product to the caller's cart, summing quantities when the
// same product and size is already present.
func AddToCart(c *gin.Context) {
	var payload cartItemPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var name string
	var price float64
	var isActive bool
	err = database.Database.QueryRow(
		`SELECT name, price, is_active FROM products WHERE id = $1`, productID,
	).Scan(&name, &price, &isActive)
	if err == sql.ErrNoRows || (err == nil && !isActive) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to look up product %s: %v", productID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to cart"})
		return
	}

	if customerID := c.GetString("customer_id"); customerID != "" {
		if err := upsertCartItem(customerID, productID, name, price, payload); err != nil {
			log.Printf("Failed to add to cart for %s: %v", customerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to cart"})
			return
		}
	} else {
		session := Sessions.Get(c)
		session.Cart.Upsert(models.GuestCartItem{
			ProductID:   productID,
			ProductName: name,
			UnitPrice:   price,
			Quantity:    payload.Quantity,
			Size:        payload.Size,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Added to cart"})
}

// UpdateCartItem sets the quantity for one cart line. Quantity 0 removes it.
func UpdateCartItem(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var payload struct {
		Quantity int     `json:"quantity" binding:"min=0"`
		Size     *string `json:"size"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var matched bool
	if customerID := c.GetString("customer_id"); customerID != "" {
		if payload.Quantity == 0 {
			matched, err = deleteCartItem(customerID, productID, payload.Size)
		} else {
			matched, err = setCartItemQuantity(customerID, productID, payload.Size, payload.Quantity)
		}
		if err != nil {
			log.Printf("Failed to update cart for %s: %v", customerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}
	} else {
		session := Sessions.Get(c)
		if payload.Quantity == 0 {
			matched = session.Cart.Remove(productID, payload.Size)
		} else {
			matched = session.Cart.SetQuantity(productID, payload.Size, payload.Quantity)
		}
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cart updated"})
}

// RemoveFromCart deletes one cart line.
func RemoveFromCart(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var size *string
	if v, ok := c.GetQuery("size"); ok {
		size = &v
	}

	var matched bool
	if customerID := c.GetString("customer_id"); customerID != "" {
		matched, err = deleteCartItem(customerID, productID, size)
		if err != nil {
			log.Printf("Failed to remove cart item for %s: %v", customerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}
	} else {
		session := Sessions.Get(c)
		matched = session.Cart.Remove(productID, size)
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Item removed"})
}

// ClearCart empties the caller's cart.
func ClearCart(c *gin.Context) {
	if customerID := c.GetString("customer_id"); customerID != "" {
		_, err := database.Database.Exec(`
			DELETE FROM cart_items
			WHERE cart_id IN (SELECT id FROM carts WHERE customer_id = $1)`, customerID)
		if err != nil {
			log.Printf("Failed to clear cart for %s: %v", customerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
	} else {
		session := Sessions.Get(c)
		session.Cart.Clear()
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cart cleared"})
}

func loadCartItems(customerID string) ([]models.CartItem, error) {
	rows, err := database.Database.Query(`
		SELECT ci.id, ci.cart_id, ci.product_id, ci.product_name, ci.unit_price,
		       ci.quantity, ci.size, ci.added_at
		FROM cart_items ci
		JOIN carts ca ON ci.cart_id = ca.id
		WHERE ca.customer_id = $1
		ORDER BY ci.added_at`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductName,
			&item.UnitPrice, &item.Quantity, &item.Size, &item.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ensureCart returns the customer's cart id, creating the row on first use.
func ensureCart(customerID string) (uuid.UUID, error) {
	var cartID uuid.UUID
	err := database.Database.QueryRow(`
		INSERT INTO carts (id, customer_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET updated_at = NOW()
		RETURNING id`,
		uuid.New(), customerID,
	).Scan(&cartID)
	return cartID, err
}

func upsertCartItem(customerID string, productID uuid.UUID, name string, price float64, payload cartItemPayload) error {
	cartID, err := ensureCart(customerID)
	if err != nil {
		return err
	}

	// ON CONFLICT cannot match NULL sizes, so merge explicitly.
	result, err := database.Database.Exec(`
		UPDATE cart_items
		SET quantity = quantity + $1, product_name = $2, unit_price = $3
		WHERE cart_id = $4 AND product_id = $5 AND size IS NOT DISTINCT FROM $6`,
		payload.Quantity, name, price, cartID, productID, payload.Size)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}

	_, err = database.Database.Exec(`
		INSERT INTO cart_items (id, cart_id, product_id, product_name, unit_price, quantity, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), cartID, productID, name, price, payload.Quantity, payload.Size)
	return err
}

func setCartItemQuantity(customerID string, productID uuid.UUID, size *string, quantity int) (bool, error) {
	result, err := database.Database.Exec(`
		UPDATE cart_items SET quantity = $1
		WHERE product_id = $2
		  AND size IS NOT DISTINCT FROM $3
		  AND cart_id IN (SELECT id FROM carts WHERE customer_id = $4)`,
		quantity, productID, size, customerID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

func deleteCartItem(customerID string, productID uuid.UUID, size *string) (bool, error) {
	result, err := database.Database.Exec(`
		DELETE FROM cart_items
		WHERE product_id = $1
		  AND size IS NOT DISTINCT FROM $2
		  AND cart_id IN (SELECT id FROM carts WHERE customer_id = $3)`,
		productID, size, customerID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}
