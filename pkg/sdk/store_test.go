package sdk_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/rollcall/pkg/sdk"
)

func TestCredentialStoreRoundTrip(t *testing.T) {
	store := sdk.NewCredentialStore(sdk.NewMemoryStorage())

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, creds, "empty store loads nothing")

	require.NoError(t, store.Save(&sdk.Credentials{AccessToken: "a", RefreshToken: "r", User: student()}))

	creds, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "a", creds.AccessToken)
	assert.Equal(t, "r", creds.RefreshToken)
	assert.Equal(t, student(), creds.User)
	assert.True(t, creds.Restorable())
}

func TestCredentialStoreCorruptUser(t *testing.T) {
	storage := sdk.NewMemoryStorage()
	require.NoError(t, storage.Set(sdk.KeyAuthToken, "a"))
	require.NoError(t, storage.Set(sdk.KeyUser, "{not json"))
	store := sdk.NewCredentialStore(storage)

	u, err := store.User()
	require.NoError(t, err)
	assert.Nil(t, u)

	creds, err := store.Load()
	require.NoError(t, err)
	assert.False(t, creds.Restorable())
}

func TestCredentialStoreClear(t *testing.T) {
	storage := sdk.NewMemoryStorage()
	store := sdk.NewCredentialStore(storage)
	require.NoError(t, store.Save(&sdk.Credentials{AccessToken: "a", User: student()}))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing an empty store is fine")
	assert.Zero(t, storage.Len())
}

type failingStorage struct {
	*sdk.MemoryStorage
	failDelete map[string]bool
}

func (f failingStorage) Delete(key string) error {
	if f.failDelete[key] {
		return errors.New("disk full")
	}
	return f.MemoryStorage.Delete(key)
}

func TestCredentialStoreClearAttemptsEveryKey(t *testing.T) {
	storage := failingStorage{MemoryStorage: sdk.NewMemoryStorage(), failDelete: map[string]bool{sdk.KeyAuthToken: true}}
	store := sdk.NewCredentialStore(storage)
	require.NoError(t, store.Save(&sdk.Credentials{AccessToken: "a", RefreshToken: "r", User: student()}))

	err := store.Clear()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete authToken")

	_, ok, _ := storage.Get(sdk.KeyUser)
	assert.False(t, ok, "later keys are still removed")
	_, ok, _ = storage.Get(sdk.KeyRefreshToken)
	assert.False(t, ok)
}

func TestCredentialStoreSetUserNilDeletes(t *testing.T) {
	storage := sdk.NewMemoryStorage()
	store := sdk.NewCredentialStore(storage)
	require.NoError(t, store.SetUser(student()))
	require.NoError(t, store.SetUser(nil))

	_, ok, _ := storage.Get(sdk.KeyUser)
	assert.False(t, ok)
}

func TestTokenSource(t *testing.T) {
	store := sdk.NewCredentialStore(sdk.NewMemoryStorage())
	ts := store.TokenSource()

	_, err := ts.Token()
	assert.ErrorIs(t, err, sdk.ErrNotLoggedIn)

	require.NoError(t, store.Save(&sdk.Credentials{AccessToken: "first", User: student()}))
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "first", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)

	// The source always reflects the latest stored token.
	require.NoError(t, store.Save(&sdk.Credentials{AccessToken: "second", User: student()}))
	tok, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "second", tok.AccessToken)
}
