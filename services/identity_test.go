package services

import (
	"testing"

	"crystosjewel-server/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func TestGuestContactFormValidate(t *testing.T) {
	valid := GuestContactForm{
		FirstName: "Ada",
		LastName:  "Noble",
		Email:     "ada@example.com",
		Address:   "1 Jeweler's Row",
	}

	tests := []struct {
		name   string
		mutate func(f *GuestContactForm)
		fields []string
	}{
		{name: "valid", mutate: func(f *GuestContactForm) {}},
		{
			name: "first name only is enough",
			mutate: func(f *GuestContactForm) {
				f.LastName = ""
			},
		},
		{
			name: "missing name",
			mutate: func(f *GuestContactForm) {
				f.FirstName = ""
				f.LastName = " "
			},
			fields: []string{"name"},
		},
		{
			name:   "missing email",
			mutate: func(f *GuestContactForm) { f.Email = "" },
			fields: []string{"email"},
		},
		{
			name:   "malformed email",
			mutate: func(f *GuestContactForm) { f.Email = "nobody" },
			fields: []string{"email"},
		},
		{
			name:   "bare at sign suffix",
			mutate: func(f *GuestContactForm) { f.Email = "nobody@" },
			fields: []string{"email"},
		},
		{
			name:   "missing address",
			mutate: func(f *GuestContactForm) { f.Address = "  " },
			fields: []string{"address"},
		},
		{
			name: "everything missing reports every field",
			mutate: func(f *GuestContactForm) {
				*f = GuestContactForm{}
			},
			fields: []string{"name", "email", "address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.mutate(&form)

			err := form.Validate()
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

func TestCheckoutContextUnion(t *testing.T) {
	authCtx := AuthenticatedContext(uuid.New(), nil)
	assert.False(t, authCtx.IsGuest())

	guestCtx := GuestContext(GuestContactForm{Email: "g@example.com"})
	assert.True(t, guestCtx.IsGuest())
}

func TestMergeContactRequestWins(t *testing.T) {
	stored := models.Customer{
		ID:           uuid.New(),
		FirstName:    "Old",
		LastName:     "Name",
		Email:        "stored@example.com",
		Phone:        strPtr("111"),
		Address:      strPtr("Old Street 1"),
		City:         strPtr("Oldtown"),
		PasswordHash: strPtr("hash"),
		IsGuest:      false,
	}

	merged := MergeContact(stored, GuestContactForm{
		FirstName: "New",
		Phone:     "222",
		Address:   "New Street 9",
	})

	assert.Equal(t, "New", merged.FirstName)
	assert.Equal(t, "Name", merged.LastName, "absent fields keep the stored value")
	assert.Equal(t, "222", *merged.Phone)
	assert.Equal(t, "New Street 9", *merged.Address)
	assert.Equal(t, "Oldtown", *merged.City)
}

func TestMergeContactNeverTouchesIdentityFields(t *testing.T) {
	stored := models.Customer{
		ID:           uuid.New(),
		Email:        "stored@example.com",
		PasswordHash: strPtr("hash"),
		IsGuest:      false,
	}

	merged := MergeContact(stored, GuestContactForm{
		Email:     "attacker@example.com",
		FirstName: "X",
	})

	assert.Equal(t, "stored@example.com", merged.Email)
	require.NotNil(t, merged.PasswordHash)
	assert.Equal(t, "hash", *merged.PasswordHash)
	assert.False(t, merged.IsGuest)
	assert.Equal(t, stored.ID, merged.ID)
}

func TestMergeContactWhitespaceIsAbsent(t *testing.T) {
	stored := models.Customer{FirstName: "Keep", Phone: strPtr("111")}

	merged := MergeContact(stored, GuestContactForm{
		FirstName: "   ",
		Phone:     " ",
	})

	assert.Equal(t, "Keep", merged.FirstName)
	assert.Equal(t, "111", *merged.Phone)
}
