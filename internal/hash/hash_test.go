package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheck(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPassword(&h, "correct horse"))
	assert.False(t, CheckPassword(&h, "wrong horse"))
}

func TestCheckPassword_NilHash(t *testing.T) {
	assert.False(t, CheckPassword(nil, "anything"))
	empty := ""
	assert.False(t, CheckPassword(&empty, ""))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
