package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	"crystosjewel-server/database"
	"crystosjewel-server/models"
	"crystosjewel-server/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type registerPayload struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Phone     string `json:"phone"`
}

type loginPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a customer account. When the email already belongs to a
// guest record created during checkout, the guest is converted in place so
// the new account keeps its order history.
func Register(c *gin.Context) {
	var payload registerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	// Guests created at checkout keep the casing they typed; match them
	// case-insensitively here so registration finds the same logical address.
	var existing models.Customer
	var passwordHash sql.NullString
	err = database.Database.QueryRow(
		`SELECT id, is_guest, password_hash FROM customers WHERE LOWER(email) = $1`,
		payload.Email,
	).Scan(&existing.ID, &existing.IsGuest, &passwordHash)

	switch {
	case err == sql.ErrNoRows:
		customer, createErr := createCustomer(payload, string(hash))
		if createErr != nil {
			log.Printf("Failed to create customer %s: %v", payload.Email, createErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}
		respondWithToken(c, http.StatusCreated, customer.ID.String(), payload.Email, "Account created")

	case err != nil:
		log.Printf("Failed to look up customer %s: %v", payload.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})

	case existing.IsGuest && !passwordHash.Valid:
		if convertErr := convertGuest(existing.ID, payload, string(hash)); convertErr != nil {
			log.Printf("Failed to convert guest %s: %v", existing.ID, convertErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}
		respondWithToken(c, http.StatusCreated, existing.ID.String(), payload.Email, "Account created")

	default:
		cerr := &services.ConflictError{Field: "email", Message: "an account with this email already exists"}
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": cerr.Error()})
	}
}

func createCustomer(payload registerPayload, hash string) (*models.Customer, error) {
	customer := &models.Customer{ID: uuid.New()}
	var phone *string
	if payload.Phone != "" {
		phone = &payload.Phone
	}
	err := database.Database.QueryRow(`
		INSERT INTO customers (id, first_name, last_name, email, phone, password_hash, is_guest, role)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, 'customer')
		RETURNING id`,
		customer.ID, payload.FirstName, payload.LastName, payload.Email, phone, hash,
	).Scan(&customer.ID)
	return customer, err
}

// convertGuest upgrades a checkout-created guest record into a full account:
// the credential is set and the guest flag cleared, nothing else moves.
func convertGuest(id uuid.UUID, payload registerPayload, hash string) error {
	_, err := database.Database.Exec(`
		UPDATE customers
		SET first_name = $1, last_name = $2, password_hash = $3,
		    is_guest = FALSE, updated_at = NOW()
		WHERE id = $4 AND password_hash IS NULL`,
		payload.FirstName, payload.LastName, hash, id)
	return err
}

type convertGuestPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// ConvertGuest upgrades an existing guest record into a full account without
// touching its order history. The email must belong to a guest; a registered
// customer's email is a conflict, not a takeover path.
func ConvertGuest(c *gin.Context) {
	var payload convertGuestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))

	var id uuid.UUID
	var isGuest bool
	var passwordHash sql.NullString
	err := database.Database.QueryRow(
		`SELECT id, is_guest, password_hash FROM customers WHERE LOWER(email) = $1`,
		payload.Email,
	).Scan(&id, &isGuest, &passwordHash)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "No guest record found for this email"})
		return
	}
	if err != nil {
		log.Printf("Failed to look up guest %s: %v", payload.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to convert account"})
		return
	}
	if passwordHash.Valid || !isGuest {
		cerr := &services.ConflictError{Field: "email", Message: "an account with this email already exists"}
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": cerr.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	result, err := database.Database.Exec(`
		UPDATE customers
		SET password_hash = $1, is_guest = FALSE, updated_at = NOW()
		WHERE id = $2 AND password_hash IS NULL`,
		string(hash), id)
	if err != nil {
		log.Printf("Failed to convert guest %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to convert account"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// Lost a race with a concurrent registration for the same record.
		cerr := &services.ConflictError{Field: "email", Message: "an account with this email already exists"}
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": cerr.Error()})
		return
	}

	respondWithToken(c, http.StatusOK, id.String(), payload.Email, "Account created from guest checkout")
}

// Login authenticates a customer and returns a bearer token. Guest records
// have no credential and cannot log in until they register.
func Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))

	var id uuid.UUID
	var passwordHash sql.NullString
	err := database.Database.QueryRow(
		`SELECT id, password_hash FROM customers WHERE LOWER(email) = $1`,
		payload.Email,
	).Scan(&id, &passwordHash)
	if err == sql.ErrNoRows || (err == nil && !passwordHash.Valid) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		log.Printf("Failed to look up customer %s: %v", payload.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash.String), []byte(payload.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	_, _ = database.Database.Exec(`UPDATE customers SET updated_at = NOW() WHERE id = $1`, id)

	respondWithToken(c, http.StatusOK, id.String(), payload.Email, "Login successful")
}

// GetProfile returns the authenticated customer's stored contact details.
func GetProfile(c *gin.Context) {
	customerID := c.GetString("customer_id")

	var customer models.Customer
	err := database.Database.QueryRow(`
		SELECT id, first_name, last_name, email, phone, address, city,
		       postal_code, country, is_guest, email_verified, created_at
		FROM customers WHERE id = $1`, customerID,
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
		log.Printf("Failed to load profile %s: %v", customerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": customer})
}

type updateProfilePayload struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

// UpdateProfile updates the stored contact fields. Only fields present in the
// payload change; email and credential are managed elsewhere.
func UpdateProfile(c *gin.Context) {
	customerID := c.GetString("customer_id")

	var payload updateProfilePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := database.Database.Exec(`
		UPDATE customers SET
			first_name = COALESCE($1, first_name),
			last_name = COALESCE($2, last_name),
			phone = COALESCE($3, phone),
			address = COALESCE($4, address),
			city = COALESCE($5, city),
			postal_code = COALESCE($6, postal_code),
			country = COALESCE($7, country),
			updated_at = NOW()
		WHERE id = $8`,
		payload.FirstName, payload.LastName, payload.Phone, payload.Address,
		payload.City, payload.PostalCode, payload.Country, customerID)
	if err != nil {
		log.Printf("Failed to update profile %s: %v", customerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated"})
}

func respondWithToken(c *gin.Context, status int, customerID, email, message string) {
	token, err := generateJWT(customerID, email)
	if err != nil {
		log.Printf("Failed to sign token for %s: %v", customerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data": gin.H{
			"token":       token,
			"customer_id": customerID,
			"expires_at":  time.Now().Add(15 * 24 * time.Hour),
		},
	})
}
