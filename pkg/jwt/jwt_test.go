package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-key-for-unit-tests"
	testIssuer = "bakery-stock-test"
	testUserID = "00000000-0000-0000-0000-000000000001"
)

func TestGenerateAndParse_ConRole(t *testing.T) {
	tok, err := Generate(testSecret, testUserID, RoleBaker, testIssuer, 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, role, err := Parse(testSecret, testIssuer, tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
	assert.Equal(t, RoleBaker, role)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := Generate(testSecret, testUserID, RoleAdmin, testIssuer, -1)
	require.NoError(t, err)

	_, _, err = Parse(testSecret, testIssuer, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := Generate(testSecret, testUserID, RoleAdmin, testIssuer, 60)
	require.NoError(t, err)

	_, _, err = Parse("otro-secret-completamente-distinto", testIssuer, tok)
	assert.Error(t, err)
}

func TestParse_IssuerDistinto(t *testing.T) {
	tok, err := Generate(testSecret, testUserID, RoleAdmin, "otro-emisor", 60)
	require.NoError(t, err)

	_, _, err = Parse(testSecret, testIssuer, tok)
	assert.Error(t, err)

	// sin issuer configurado no se valida el claim
	_, _, err = Parse(testSecret, "", tok)
	assert.NoError(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := Generate("", testUserID, RoleAdmin, testIssuer, 60)
	assert.Error(t, err)
}
