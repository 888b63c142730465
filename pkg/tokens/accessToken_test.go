package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret")

func TestNewAccessToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(15 * time.Minute).UTC()
	token, err := NewAccessToken("u-1", "kitchen", "r-1", "Chef Rosa", exp, testSecret)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "kitchen", claims.Role)
	assert.Equal(t, "r-1", claims.RestaurantID)
	assert.Equal(t, "Chef Rosa", claims.Name)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestAccessClaimsFromToken_Rejects(t *testing.T) {
	t.Parallel()

	expired, err := NewAccessToken("u-1", "waiter", "r-1", "", time.Now().Add(-time.Minute), testSecret)
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(expired, testSecret)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	valid, err := NewAccessToken("u-1", "waiter", "r-1", "", time.Now().Add(time.Minute), testSecret)
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(valid, []byte("other-secret"))
	require.Error(t, err)

	_, err = AccessClaimsFromToken("garbage", testSecret)
	require.Error(t, err)

	_, err = NewAccessToken("u-1", "waiter", "r-1", "", time.Now().Add(time.Minute), nil)
	require.Error(t, err)
}
