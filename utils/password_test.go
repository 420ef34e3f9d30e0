package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := &PasswordHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("password1")
	require.NoError(t, err)
	require.NotEqual(t, "password1", hash)

	require.True(t, h.Check(hash, "password1"))
	require.False(t, h.Check(hash, "password2"))
	require.False(t, h.Check("not-a-hash", "password1"))
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	require.Equal(t, 12, NewPasswordHasher().Cost)
}

func TestPasswordHasher_MultibyteBeyondBcryptLimit(t *testing.T) {
	h := &PasswordHasher{Cost: bcrypt.MinCost}
	password := strings.Repeat("😀", 30) // 120 bytes

	hash, err := h.Hash(password)
	require.NoError(t, err)
	require.True(t, h.Check(hash, password))
	require.False(t, h.Check(hash, strings.Repeat("😀", 29)+"😁"))

	short := strings.Repeat("é", 30) // 60 bytes, hashed as typed
	hash, err = h.Hash(short)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(short)))
}
