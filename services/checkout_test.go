package services

import (
	"errors"
	"testing"

	"crystosjewel-server/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name   string
		lines  []CheckoutLineRequest
		fields []string
	}{
		{
			name:  "valid",
			lines: []CheckoutLineRequest{{ProductID: uuid.New(), Quantity: 1}},
		},
		{
			name:   "empty cart",
			lines:  nil,
			fields: []string{"cart"},
		},
		{
			name:   "nil product id",
			lines:  []CheckoutLineRequest{{Quantity: 1}},
			fields: []string{"items[0].product_id"},
		},
		{
			name:   "zero quantity",
			lines:  []CheckoutLineRequest{{ProductID: uuid.New(), Quantity: 0}},
			fields: []string{"items[0].quantity"},
		},
		{
			name:   "negative quantity",
			lines:  []CheckoutLineRequest{{ProductID: uuid.New(), Quantity: -3}},
			fields: []string{"items[0].quantity"},
		},
		{
			name: "every bad line reported",
			lines: []CheckoutLineRequest{
				{ProductID: uuid.New(), Quantity: 1},
				{Quantity: 0},
			},
			fields: []string{"items[1].product_id", "items[1].quantity"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateLines(tt.lines)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)

			got := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestBuildSnapshot(t *testing.T) {
	customer := &models.Customer{
		ID:         uuid.New(),
		FirstName:  "Ada",
		LastName:   "Noble",
		Email:      "ada@example.com",
		Phone:      strPtr("0123"),
		Address:    strPtr("1 Jeweler's Row"),
		City:       strPtr("Antwerp"),
		PostalCode: strPtr("2000"),
	}

	snapshot, err := buildSnapshot(customer)
	require.NoError(t, err)

	assert.Equal(t, "Ada Noble", snapshot.CustomerName)
	assert.Equal(t, "ada@example.com", snapshot.CustomerEmail)
	assert.Equal(t, "1 Jeweler's Row", snapshot.ShippingAddress)
	assert.Equal(t, "Antwerp", *snapshot.ShippingCity)
	assert.Equal(t, "2000", *snapshot.ShippingPostalCode)
}

func TestBuildSnapshotRequiresAddress(t *testing.T) {
	tests := []struct {
		name    string
		address *string
	}{
		{name: "nil address", address: nil},
		{name: "empty address", address: strPtr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customer := &models.Customer{
				FirstName: "Ada",
				Email:     "ada@example.com",
				Address:   tt.address,
			}

			_, err := buildSnapshot(customer)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, "address", verr.Fields[0].Field)
		})
	}
}

func TestCheckoutOutcomeLabels(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
	}{
		{name: "success", err: nil, outcome: "success"},
		{name: "validation", err: &ValidationError{}, outcome: "validation_error"},
		{name: "stock conflict", err: &StockConflictError{}, outcome: "conflict"},
		{name: "other conflict", err: &ConflictError{}, outcome: "conflict"},
		{name: "promo", err: &PromoError{}, outcome: "promo_error"},
		{name: "transient", err: errors.New("connection reset"), outcome: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.outcome, checkoutOutcome(tt.err))
		})
	}
}

func TestObserveCheckoutNilReceiver(t *testing.T) {
	var metrics *CheckoutMetrics
	// Must not panic; services built for tests carry no collectors.
	metrics.ObserveCheckout(nil, 0)
	metrics.ObserveCheckout(&ValidationError{}, 0)
}
