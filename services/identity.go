package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"crystosjewel-server/models"

	"github.com/google/uuid"
)

// GuestContactForm carries the contact and shipping fields a checkout
// supplies. Guests must fill it completely; authenticated customers may send
// a partial form to update their stored details.
type GuestContactForm struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Validate checks the fields a guest checkout cannot proceed without.
func (f GuestContactForm) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(f.FirstName) == "" && strings.TrimSpace(f.LastName) == "" {
		verr.add("name", "name is required")
	}
	email := strings.TrimSpace(f.Email)
	if email == "" {
		verr.add("email", "email is required")
	} else if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		verr.add("email", "email is invalid")
	}
	if strings.TrimSpace(f.Address) == "" {
		verr.add("address", "shipping address is required")
	}
	return verr.orNil()
}

// CheckoutContext is the tagged union of the two checkout identities: an
// authenticated session or a guest contact form. It is resolved exactly once
// at the Identity Resolver boundary; downstream code never branches on field
// presence again.
type CheckoutContext struct {
	customerID *uuid.UUID
	contact    *GuestContactForm
}

// AuthenticatedContext builds the context for a logged-in customer. contact
// may carry updated contact fields to merge onto the stored record.
func AuthenticatedContext(customerID uuid.UUID, contact *GuestContactForm) CheckoutContext {
	return CheckoutContext{customerID: &customerID, contact: contact}
}

// GuestContext builds the context for an anonymous checkout.
func GuestContext(form GuestContactForm) CheckoutContext {
	return CheckoutContext{contact: &form}
}

// IsGuest reports which arm of the union this context is.
func (cc CheckoutContext) IsGuest() bool {
	return cc.customerID == nil
}

// IdentityResolver maps a checkout context to a single customer row,
// creating or updating a guest customer as needed.
type IdentityResolver struct {
	db *sql.DB
}

func NewIdentityResolver(db *sql.DB) *IdentityResolver {
	return &IdentityResolver{db: db}
}

// Resolve returns the customer to attach the order to. Validation failures
// surface before any write.
func (r *IdentityResolver) Resolve(ctx context.Context, cc CheckoutContext) (*models.Customer, error) {
	if cc.IsGuest() {
		return r.resolveGuest(ctx, *cc.contact)
	}
	return r.resolveAuthenticated(ctx, *cc.customerID, cc.contact)
}

func (r *IdentityResolver) resolveAuthenticated(ctx context.Context, customerID uuid.UUID, contact *GuestContactForm) (*models.Customer, error) {
	customer, err := r.loadCustomer(ctx, `WHERE id = $1`, customerID)
	if err == sql.ErrNoRows {
		return nil, &ValidationError{Fields: []FieldError{{Field: "customer", Message: "customer not found"}}}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	if contact != nil {
		merged := MergeContact(*customer, *contact)
		if err := r.persistContact(ctx, &merged); err != nil {
			return nil, err
		}
		return &merged, nil
	}
	return customer, nil
}

func (r *IdentityResolver) resolveGuest(ctx context.Context, form GuestContactForm) (*models.Customer, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	// Exact match on the stored column, case-sensitive
	customer, err := r.loadCustomer(ctx, `WHERE email = $1`, form.Email)
	if err == sql.ErrNoRows {
		return r.createGuest(ctx, form)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up guest email: %w", err)
	}

	merged := MergeContact(*customer, form)
	// A credential-less row that predates the guest flag gets flagged now.
	// A registered customer keeps its credential and its status untouched.
	if customer.PasswordHash == nil && !customer.IsGuest {
		merged.IsGuest = true
	}
	if err := r.persistContact(ctx, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (r *IdentityResolver) createGuest(ctx context.Context, form GuestContactForm) (*models.Customer, error) {
	customer := models.Customer{
		ID:        uuid.New(),
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		Email:     strings.TrimSpace(form.Email),
		IsGuest:   true,
		Role:      "customer",
	}
	customer.Phone = optional(form.Phone)
	customer.Address = optional(form.Address)
	customer.City = optional(form.City)
	customer.PostalCode = optional(form.PostalCode)
	customer.Country = optional(form.Country)

	query := `
		INSERT INTO customers (
			id, first_name, last_name, email, phone, address, city,
			postal_code, country, password_hash, is_guest, role, email_verified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, TRUE, 'customer', FALSE)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		customer.ID, customer.FirstName, customer.LastName, customer.Email,
		customer.Phone, customer.Address, customer.City,
		customer.PostalCode, customer.Country,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)

	if isUniqueViolation(err) {
		// Lost a race with a concurrent checkout for the same email; the row
		// exists now, so resolve against it.
		existing, lookupErr := r.loadCustomer(ctx, `WHERE email = $1`, customer.Email)
		if lookupErr != nil {
			return nil, fmt.Errorf("failed to reload guest after conflict: %w", lookupErr)
		}
		merged := MergeContact(*existing, form)
		if err := r.persistContact(ctx, &merged); err != nil {
			return nil, err
		}
		return &merged, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create guest customer: %w", err)
	}
	return &customer, nil
}

func (r *IdentityResolver) persistContact(ctx context.Context, customer *models.Customer) error {
	query := `
		UPDATE customers SET
			first_name = $2, last_name = $3, phone = $4, address = $5,
			city = $6, postal_code = $7, country = $8, is_guest = $9,
			updated_at = now()
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query,
		customer.ID, customer.FirstName, customer.LastName, customer.Phone,
		customer.Address, customer.City, customer.PostalCode, customer.Country,
		customer.IsGuest,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer contact: %w", err)
	}
	return nil
}

func (r *IdentityResolver) loadCustomer(ctx context.Context, where string, arg interface{}) (*models.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, address, city,
		       postal_code, country, password_hash, is_guest, role,
		       email_verified, created_at, updated_at
		FROM customers ` + where

	var c models.Customer
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address,
		&c.City, &c.PostalCode, &c.Country, &c.PasswordHash, &c.IsGuest,
		&c.Role, &c.EmailVerified, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MergeContact overlays request contact fields onto a stored customer.
// Request fields win when present; stored fields are the fallback. The
// credential, guest flag and email are never touched here.
func MergeContact(stored models.Customer, form GuestContactForm) models.Customer {
	merged := stored
	if v := strings.TrimSpace(form.FirstName); v != "" {
		merged.FirstName = v
	}
	if v := strings.TrimSpace(form.LastName); v != "" {
		merged.LastName = v
	}
	if v := optional(form.Phone); v != nil {
		merged.Phone = v
	}
	if v := optional(form.Address); v != nil {
		merged.Address = v
	}
	if v := optional(form.City); v != nil {
		merged.City = v
	}
	if v := optional(form.PostalCode); v != nil {
		merged.PostalCode = v
	}
	if v := optional(form.Country); v != nil {
		merged.Country = v
	}
	return merged
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
