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

// GetCustomers lists customers for the admin dashboard, newest first.
func GetCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	rows, err := database.Database.Query(`
		SELECT id, first_name, last_name, email, phone, city, country,
		       is_guest, email_verified, created_at
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		log.Printf("Failed to list customers: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load customers"})
		return
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var customer models.Customer
		if err := rows.Scan(&customer.ID, &customer.FirstName, &customer.LastName,
			&customer.Email, &customer.Phone, &customer.City, &customer.Country,
			&customer.IsGuest, &customer.EmailVerified, &customer.CreatedAt); err != nil {
			log.Printf("Failed to scan customer: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load customers"})
			return
		}
		customers = append(customers, customer)
	}

	var total int
	if err := database.Database.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		total = len(customers)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customers,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetCustomer returns one customer with their order count.
func GetCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	var customer models.Customer
	err = database.Database.QueryRow(`
		SELECT id, first_name, last_name, email, phone, address, city,
		       postal_code, country, is_guest, email_verified, created_at
		FROM customers WHERE id = $1`, id,
	).Scan(
		&customer.ID, &customer.FirstName, &customer.LastName, &customer.Email,
		&customer.Phone, &customer.Address, &customer.City, &customer.PostalCode,
		&customer.Country, &customer.IsGuest, &customer.EmailVerified, &customer.CreatedAt,
	)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load customer %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load customer"})
		return
	}

	var orderCount int
	if err := database.Database.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, id,
	).Scan(&orderCount); err != nil {
		log.Printf("Failed to count orders for %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"customer":    customer,
			"order_count": orderCount,
		},
	})
}

// DeleteCustomer removes a customer record. Customers with orders are never
// deleted; their orders are the business record.
func DeleteCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	var orderCount int
	if err := database.Database.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, id,
	).Scan(&orderCount); err != nil {
		log.Printf("Failed to count orders for %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete customer"})
		return
	}
	if orderCount > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Customer has orders and cannot be deleted",
		})
		return
	}

	result, err := database.Database.Exec(`DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		log.Printf("Failed to delete customer %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete customer"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Customer deleted"})
}
