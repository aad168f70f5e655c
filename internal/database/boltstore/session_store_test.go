package boltstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t).SessionStore()

	sess := Session{
		Token:     "tok-123",
		UserID:    42,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(sess))

	got, err := store.Get("tok-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(42), got.UserID)
	assert.Equal(t, "tok-123", got.Token)
}

func TestSessionStore_GetExpired(t *testing.T) {
	store := setupTestStore(t).SessionStore()

	require.NoError(t, store.Save(Session{
		Token:     "tok-old",
		UserID:    7,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	got, err := store.Get("tok-old")
	require.NoError(t, err)
	assert.Nil(t, got, "expired session should not be returned")
}

func TestSessionStore_Delete(t *testing.T) {
	store := setupTestStore(t).SessionStore()

	require.NoError(t, store.Save(Session{
		Token:     "tok-del",
		UserID:    1,
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.Delete("tok-del"))

	got, err := store.Get("tok-del")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	store := setupTestStore(t).SessionStore()

	require.NoError(t, store.Save(Session{
		Token:     "live",
		UserID:    1,
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.Save(Session{
		Token:     "dead-1",
		UserID:    2,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, store.Save(Session{
		Token:     "dead-2",
		UserID:    3,
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	removed, err := store.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	got, err := store.Get("live")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
