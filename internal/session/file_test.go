package session_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evep-health/evep/internal/entity"
	"github.com/evep-health/evep/internal/session"
)

func tempSessionPath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "session.json")
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	path := tempSessionPath(t)
	store := session.NewFileStore(path)

	user := entity.User{Email: "doctor@clinic.test", Role: entity.RoleDoctor}
	tokens := entity.UserTokens{AccessToken: "access", RefreshToken: "refresh", SessionHash: "hash"}

	require.NoError(t, store.SetSession(tokens, user))

	// A fresh store on the same path sees the persisted session.
	reopened := session.NewFileStore(path)
	require.Equal(t, "access", reopened.Token())
	require.Equal(t, "refresh", reopened.RefreshToken())
	require.Equal(t, "hash", reopened.SessionHash())

	got := reopened.User()
	require.NotNil(t, got)
	require.Equal(t, entity.RoleDoctor, got.Role)
}

func TestFileStore_ClearRemovesFile(t *testing.T) {
	t.Parallel()

	path := tempSessionPath(t)
	store := session.NewFileStore(path)

	require.NoError(t, store.SetSession(entity.UserTokens{AccessToken: "a"}, entity.User{}))
	require.FileExists(t, path)

	require.NoError(t, store.Clear())
	require.NoFileExists(t, path)

	require.NoError(t, store.Clear())
}

func TestFileStore_ClearRemovesLegacyKeys(t *testing.T) {
	t.Parallel()

	path := tempSessionPath(t)

	doc := map[string]string{
		"access_token":  "old-access",
		"refresh_token": "old-refresh",
		"token":         "older-still",
		"user":          `{"role":"nurse"}`,
		"theme":         "dark",
	}

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	store := session.NewFileStore(path)
	require.NoError(t, store.Clear())

	b, err = os.ReadFile(path)
	require.NoError(t, err)

	var left map[string]string
	require.NoError(t, json.Unmarshal(b, &left))

	// Unrelated keys survive; every session key, legacy included, is gone.
	require.Equal(t, map[string]string{"theme": "dark"}, left)
}

func TestFileStore_CorruptUserMeansLoggedOut(t *testing.T) {
	t.Parallel()

	path := tempSessionPath(t)

	doc := map[string]string{
		"evep_access_token": "access",
		"evep_user":         "{not json",
	}

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	store := session.NewFileStore(path)

	require.Nil(t, store.User())
	require.Empty(t, store.Token())
	require.False(t, store.Session().Valid())
}

func TestFileStore_UnreadableFileMeansEmptySession(t *testing.T) {
	t.Parallel()

	path := tempSessionPath(t)
	require.NoError(t, os.WriteFile(path, []byte("]["), 0o600))

	store := session.NewFileStore(path)

	require.Empty(t, store.Token())
	require.Nil(t, store.User())
	require.True(t, store.IsTokenExpired())
}
