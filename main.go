package main

import (
	"log"
	"net/http"
	"time"

	"crystosjewel-server/config"
	"crystosjewel-server/database"
	"crystosjewel-server/handlers"
	"crystosjewel-server/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Connect to database
	db, err := database.Connect(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Initialize tables
	if err := db.InitializeTables(); err != nil {
		log.Fatal("Failed to initialize tables:", err)
	}

	notifier := services.NewNotificationService(
		config.AppConfig.MailAPIURL,
		config.AppConfig.MailAPIKey,
		config.AppConfig.MailFromAddress,
		config.AppConfig.OperatorEmail,
	)

	metrics := services.NewCheckoutMetrics()

	checkout := services.NewCheckoutService(db.DB, notifier, services.ShippingRates{
		FlatFee:       config.AppConfig.ShippingFlatFee,
		FreeThreshold: config.AppConfig.FreeShippingThreshold,
	}, metrics)

	handlers.Init(checkout, handlers.NewSessionStore(), services.NewStatsCache(5*time.Minute, nil))

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Crystos Jewel Server is running",
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(services.MetricsHandler()))

	api := router.Group("/api/v1")
	{
		// Authentication routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.POST("/convert-guest", handlers.ConvertGuest)
			auth.GET("/profile", handlers.AuthRequired(), handlers.GetProfile)
			auth.PUT("/profile", handlers.AuthRequired(), handlers.UpdateProfile)
		}

		// Public catalog routes
		products := api.Group("/products")
		{
			products.GET("/", handlers.GetProducts)
			products.GET("/:id", handlers.GetProduct)
		}

		// Cart routes; guests get a session cart via cookie
		cart := api.Group("/cart")
		cart.Use(handlers.OptionalAuth())
		{
			cart.GET("/", handlers.GetCart)
			cart.POST("/add", handlers.AddToCart)
			cart.PUT("/items/:productId", handlers.UpdateCartItem)
			cart.DELETE("/items/:productId", handlers.RemoveFromCart)
			cart.DELETE("/clear", handlers.ClearCart)
		}

		// Checkout: one route for both authenticated and guest submissions
		checkoutRoutes := api.Group("/checkout")
		checkoutRoutes.Use(handlers.OptionalAuth())
		{
			checkoutRoutes.POST("/", handlers.PlaceOrder)
			checkoutRoutes.POST("/promo", handlers.ApplyPromoCode)
			checkoutRoutes.DELETE("/promo", handlers.RemovePromoCode)
		}

		// Order routes
		orders := api.Group("/orders")
		orders.Use(handlers.AuthRequired())
		{
			orders.GET("/", handlers.GetCustomerOrders)
			orders.GET("/:ref", handlers.GetOrder)
		}

		// Public order tracking for guests
		api.GET("/track", handlers.TrackOrder)

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(handlers.AuthRequired(), handlers.AdminRequired())
		{
			admin.POST("/products", handlers.CreateProduct)
			admin.PUT("/products/:id", handlers.UpdateProduct)
			admin.POST("/products/:id/restock", handlers.RestockProduct)

			admin.GET("/promo-codes", handlers.GetPromoCodes)
			admin.POST("/promo-codes", handlers.CreatePromoCode)
			admin.PUT("/promo-codes/:id", handlers.UpdatePromoCode)
			admin.DELETE("/promo-codes/:id", handlers.DeletePromoCode)
			admin.GET("/promo-codes/:id/stats", handlers.GetPromoCodeStats)

			admin.GET("/customers", handlers.GetCustomers)
			admin.GET("/customers/:id", handlers.GetCustomer)
			admin.DELETE("/customers/:id", handlers.DeleteCustomer)

			admin.GET("/reports/categories", handlers.GetCategoryCounts)
		}
	}

	// Start server
	log.Printf("Starting Crystos Jewel Server on 0.0.0.0:%s", config.AppConfig.ServerPort)
	log.Fatal(http.ListenAndServe("0.0.0.0:"+config.AppConfig.ServerPort, corsHandler.Handler(router)))
}
