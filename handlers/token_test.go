package handlers

import (
	"testing"

	"crystosjewel-server/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	customerID := uuid.New().String()
	token, err := generateJWT(customerID, "ada@example.com")
	require.NoError(t, err)

	claims, err := parseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, customerID, claims.CustomerID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "first-secret"}
	token, err := generateJWT(uuid.New().String(), "ada@example.com")
	require.NoError(t, err)

	config.AppConfig = &config.Config{JWTSecret: "second-secret"}
	_, err = parseJWT(token)
	assert.Error(t, err)
}

func TestParseJWTRejectsGarbage(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}
	_, err := parseJWT("not-a-token")
	assert.Error(t, err)
}
