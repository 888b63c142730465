package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("cocina123")
	require.NoError(t, err)
	assert.NotEqual(t, "cocina123", h)

	assert.True(t, CheckPassword(h, "cocina123"))
	assert.False(t, CheckPassword(h, "mozo123"))
	assert.False(t, CheckPassword("not-a-hash", "cocina123"))
}
