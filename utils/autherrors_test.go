package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthErrorMessage(t *testing.T) {
	assert.Equal(t, "Invalid email or password", AuthErrorMessage(AuthErrInvalidCredentials))
	assert.Equal(t, "Email is already registered", AuthErrorMessage(AuthErrEmailTaken))

	// Unmapped codes collapse to the generic message
	assert.Equal(t, "Authentication failed", AuthErrorMessage("database-exploded"))
	assert.Equal(t, "Authentication failed", AuthErrorMessage(AuthErrUnknown))
}
