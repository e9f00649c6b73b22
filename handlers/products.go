package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"crystosjewel-server/database"
	"crystosjewel-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetProducts lists active products, optionally filtered by category.
func GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "24"))
	if limit < 1 || limit > 100 {
		limit = 24
	}
	offset := (page - 1) * limit

	query := `
		SELECT id, name, description, category, metal, price, stock, is_active, created_at, updated_at
		FROM products
		WHERE is_active = TRUE`
	args := []interface{}{}

	if category := c.Query("category"); category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := database.Database.Query(query, args...)
	if err != nil {
		log.Printf("Failed to list products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Description,
			&product.Category, &product.Metal, &product.Price, &product.Stock,
			&product.IsActive, &product.CreatedAt, &product.UpdatedAt); err != nil {
			log.Printf("Failed to scan product: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
			return
		}
		products = append(products, product)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": products})
}

// GetProduct returns one product by id.
func GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var product models.Product
	err = database.Database.QueryRow(`
		SELECT id, name, description, category, metal, price, stock, is_active, created_at, updated_at
		FROM products WHERE id = $1`, id,
	).Scan(&product.ID, &product.Name, &product.Description, &product.Category,
		&product.Metal, &product.Price, &product.Stock, &product.IsActive,
		&product.CreatedAt, &product.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load product %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

type productPayload struct {
	Name        string   `json:"name" binding:"required"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Metal       *string  `json:"metal"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Stock       int      `json:"stock" binding:"min=0"`
	IsActive    *bool    `json:"is_active"`
}

// CreateProduct adds a product to the catalog.
func CreateProduct(c *gin.Context) {
	var payload productPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}

	id := uuid.New()
	_, err := database.Database.Exec(`
		INSERT INTO products (id, name, description, category, metal, price, stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, payload.Name, payload.Description, payload.Category, payload.Metal,
		payload.Price, payload.Stock, isActive)
	if err != nil {
		log.Printf("Failed to create product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"id": id}})
}

type productUpdatePayload struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Metal       *string  `json:"metal"`
	Price       *float64 `json:"price"`
	IsActive    *bool    `json:"is_active"`
}

// UpdateProduct edits catalog fields. Stock moves through RestockProduct only,
// so concurrent checkout decrements are never overwritten by an absolute set.
func UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var payload productUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.Price != nil && *payload.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive"})
		return
	}

	result, err := database.Database.Exec(`
		UPDATE products SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			category = COALESCE($3, category),
			metal = COALESCE($4, metal),
			price = COALESCE($5, price),
			is_active = COALESCE($6, is_active),
			updated_at = NOW()
		WHERE id = $7`,
		payload.Name, payload.Description, payload.Category, payload.Metal,
		payload.Price, payload.IsActive, id)
	if err != nil {
		log.Printf("Failed to update product %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if Stats != nil {
		Stats.Invalidate()
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product updated"})
}

// RestockProduct adds to the stock counter. Relative, not absolute, so it
// composes with checkout decrements happening at the same time.
func RestockProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var payload struct {
		Quantity int `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var newStock int
	err = database.Database.QueryRow(`
		UPDATE products SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING stock`, payload.Quantity, id,
	).Scan(&newStock)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to restock product %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restock product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"stock": newStock}})
}
