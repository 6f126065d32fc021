package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondutypro/onduty-api/internal/models"
)

func TestStoreMissingFilesYieldEmptySets(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	requests, err := store.LoadRequests()
	require.NoError(t, err)
	assert.Empty(t, requests)

	users, err := store.LoadUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	saved := []models.Request{
		{ID: "req-1", UserID: "student-1", Status: models.StatusPending, Shift: models.ShiftMorning},
		{ID: "req-2", UserID: "student-2", Status: models.StatusAccepted, Shift: models.ShiftNight},
	}
	require.NoError(t, store.SaveRequests(saved))

	// A fresh store over the same directory sees the persisted blob.
	reopened, err := New(dir)
	require.NoError(t, err)
	loaded, err := reopened.LoadRequests()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "req-1", loaded[0].ID)
	assert.Equal(t, models.StatusAccepted, loaded[1].Status)
}

func TestStoreBlobsAreIndependent(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveUsers([]models.User{{ID: "u1", Name: "Sam", Role: models.RoleStudent}}))

	requests, err := store.LoadRequests()
	require.NoError(t, err)
	assert.Empty(t, requests)

	users, err := store.LoadUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Sam", users[0].Name)
}

func TestStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveRequests([]models.Request{{ID: "req-1"}}))

	_, err = os.Stat(filepath.Join(dir, "requests.json.tmp"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "requests.json"))
	assert.NoError(t, err)
}

func TestStoreCorruptBlobSurfacesError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requests.json"), []byte("{not json"), 0o644))

	store, err := New(dir)
	require.NoError(t, err)
	_, err = store.LoadRequests()
	assert.Error(t, err)
}
