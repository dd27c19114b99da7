package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/fyerslogin/internal/domain"
	"github.com/waabox/fyerslogin/internal/store"
)

func TestFileStore_PersistThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.txt")
	s := store.NewFileStore(path)

	token := &domain.Token{Value: "ABCD-100:SIMULATED_TOKEN_20240309070502", ObtainedAt: time.Now(), Mode: domain.ModeSimulated}
	require.NoError(t, s.Persist(token))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, token.Value, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, token.Value, string(raw), "file must hold only the raw value")
}

func TestFileStore_PersistOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.txt")
	s := store.NewFileStore(path)

	require.NoError(t, s.Persist(&domain.Token{Value: "a-much-longer-first-token"}))
	require.NoError(t, s.Persist(&domain.Token{Value: "second"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(raw))
}

func TestFileStore_PersistWithoutTokenFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.txt")
	s := store.NewFileStore(path)

	for _, tok := range []*domain.Token{nil, {}} {
		err := s.Persist(tok)
		var storeErr *domain.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.ErrorIs(t, err, domain.ErrNothingToPersist)
	}
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestFileStore_PersistToUnwritablePathFails(t *testing.T) {
	dir := t.TempDir()
	// A regular file where a directory is expected makes the write fail on every platform.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	s := store.NewFileStore(filepath.Join(blocker, "access_token.txt"))
	err := s.Persist(&domain.Token{Value: "tok"})
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "save", storeErr.Op)
}

func TestFileStore_PersistRejectsSurroundingWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.txt")
	s := store.NewFileStore(path)

	for _, value := range []string{" x ", "x\n", "\tx"} {
		err := s.Persist(&domain.Token{Value: value})
		assert.ErrorIs(t, err, domain.ErrMalformedToken, "%q", value)
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Persist(&domain.Token{Value: "a b"}))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "a b", got)
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	s := store.NewFileStore(filepath.Join(t.TempDir(), "missing.txt"))
	_, err := s.Load()
	assert.ErrorIs(t, err, domain.ErrNoToken)
}

func TestFileStore_LoadTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.txt")
	require.NoError(t, os.WriteFile(path, []byte("  tok\n"), 0600))

	got, err := store.NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestNewFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, "access_token.txt", store.NewFileStore("").Path())
}
