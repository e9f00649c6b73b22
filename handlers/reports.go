package handlers

import (
	"log"
	"net/http"

	"crystosjewel-server/database"

	"github.com/gin-gonic/gin"
)

// GetCategoryCounts returns the number of active products per category. The
// result sits behind a short TTL cache since the dashboard polls it.
func GetCategoryCounts(c *gin.Context) {
	counts, err := Stats.Counts(loadCategoryCounts)
	if err != nil {
		log.Printf("Failed to load category counts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": counts})
}

func loadCategoryCounts() (map[string]int, error) {
	rows, err := database.Database.Query(`
		SELECT COALESCE(category, 'uncategorized'), COUNT(*)
		FROM products
		WHERE is_active = TRUE
		GROUP BY COALESCE(category, 'uncategorized')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}
