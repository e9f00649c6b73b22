package handlers

import (
	"net/http"
	"strings"

	"crystosjewel-server/database"

	"github.com/gin-gonic/gin"
)

// AuthRequired rejects requests without a valid bearer token and puts the
// customer id into the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Set("customer_id", claims.CustomerID)
		c.Next()
	}
}

// OptionalAuth sets customer_id when a valid token is present and lets the
// request through either way. Checkout uses it to accept both authenticated
// and guest submissions on one route.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := bearerClaims(c); ok {
			c.Set("customer_id", claims.CustomerID)
		}
		c.Next()
	}
}

// AdminRequired checks the customer's stored role. Runs after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.GetString("customer_id")
		if customerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var role string
		err := database.Database.QueryRow(`SELECT role FROM customers WHERE id = $1`, customerID).Scan(&role)
		if err != nil || role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context) (*Claims, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	claims, err := parseJWT(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, false
	}
	return claims, true
}
