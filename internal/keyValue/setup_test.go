package keyValue_test

import (
	"sync"
	"testing"
	"time"

	"chatcord-backend/internal/keyValue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var setupOnce sync.Once

func setup() {
	setupOnce.Do(func() {
		keyValue.Setup(zap.NewNop().Sugar(), nil, true)
	})
}

func TestSetGetDelete(t *testing.T) {
	setup()

	require.NoError(t, keyValue.Set("k1", "v1", time.Minute))

	value, err := keyValue.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	require.NoError(t, keyValue.Delete("k1"))

	value, err = keyValue.Get("k1")
	require.NoError(t, err)
	assert.Empty(t, value)
}

// GetDel backs one-shot tokens like the pending-session claim: the first
// reader wins, everyone after sees nothing.
func TestGetDelClaimsOnce(t *testing.T) {
	setup()

	key := keyValue.PendingSessionKey(42)
	require.NoError(t, keyValue.Set(key, "y", time.Minute))

	value, err := keyValue.GetDel(key)
	require.NoError(t, err)
	assert.Equal(t, "y", value)

	value, err = keyValue.GetDel(key)
	require.NoError(t, err)
	assert.Empty(t, value, "a claimed token must not be claimable again")
}

func TestExpiredKeysAreGone(t *testing.T) {
	setup()

	require.NoError(t, keyValue.Set("k2", "v2", -time.Second))

	value, err := keyValue.Get("k2")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, keyValue.Set("k3", "v3", -time.Second))

	value, err = keyValue.GetDel("k3")
	require.NoError(t, err)
	assert.Empty(t, value, "an expired token must not be claimable")
}

func TestKeyFormats(t *testing.T) {
	assert.Equal(t, "member:5:1", keyValue.MemberKey(5, 1))
	assert.Equal(t, "profile_exists:7", keyValue.ProfileExistsKey(7))
	assert.Equal(t, "pending_session:9", keyValue.PendingSessionKey(9))
}
