// ABOUTME: Tests for credential store implementations
// ABOUTME: Covers file rewrite-in-place semantics and env store overrides
package credstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.env")
	store := NewFileStore(path)

	require.NoError(t, store.Set(KeyZohoAccessToken, "token-1"))

	got, ok := store.Get(KeyZohoAccessToken)
	require.True(t, ok)
	assert.Equal(t, "token-1", got)
}

func TestFileStoreGetMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.env"))

	_, ok := store.Get("NOPE")
	assert.False(t, ok)
}

func TestFileStoreRewritePreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.env")
	store := NewFileStore(path)

	require.NoError(t, store.Set(KeyZohoClientID, "client-abc"))
	require.NoError(t, store.Set(KeyZohoAccessToken, "token-1"))
	require.NoError(t, store.Set(KeyZohoRefreshToken, "refresh-xyz"))

	// Overwrite the middle key; neighbors must survive untouched
	require.NoError(t, store.Set(KeyZohoAccessToken, "token-2"))

	got, ok := store.Get(KeyZohoAccessToken)
	require.True(t, ok)
	assert.Equal(t, "token-2", got)

	clientID, ok := store.Get(KeyZohoClientID)
	require.True(t, ok)
	assert.Equal(t, "client-abc", clientID)

	refresh, ok := store.Get(KeyZohoRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "refresh-xyz", refresh)

	// Exactly one line per key after rewrite
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), KeyZohoAccessToken+"="))
}

func TestFileStoreValueWithEquals(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.env"))

	// OAuth tokens routinely contain '=' padding
	require.NoError(t, store.Set(KeyZohoAccessToken, "abc==def="))

	got, ok := store.Get(KeyZohoAccessToken)
	require.True(t, ok)
	assert.Equal(t, "abc==def=", got)
}

func TestEnvStoreReadsEnvironment(t *testing.T) {
	t.Setenv("LEADSYNC_TEST_KEY", "from-env")

	store := NewEnvStore()
	got, ok := store.Get("LEADSYNC_TEST_KEY")
	require.True(t, ok)
	assert.Equal(t, "from-env", got)
}

func TestEnvStoreSetOverridesInMemory(t *testing.T) {
	t.Setenv("LEADSYNC_TEST_KEY", "from-env")

	store := NewEnvStore()
	require.NoError(t, store.Set("LEADSYNC_TEST_KEY", "override"))

	got, ok := store.Get("LEADSYNC_TEST_KEY")
	require.True(t, ok)
	assert.Equal(t, "override", got)

	// Environment itself untouched
	assert.Equal(t, "from-env", os.Getenv("LEADSYNC_TEST_KEY"))
}
