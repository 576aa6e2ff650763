package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "fixture.yaml"))
	require.NoError(t, err)

	assert.Equal(t, int64(42), f.Workspace.ID)
	assert.Equal(t, "Demo Workspace", f.Workspace.Name)

	require.Len(t, f.APIKeys, 1)
	assert.Equal(t, "orbit_demo_token", f.APIKeys[0].Token)

	require.Len(t, f.Users, 2)
	assert.Equal(t, int64(9007199254740993), f.Users[0].UserID)
	assert.Equal(t, []int64{9007199254740993, 200}, f.Members)

	require.Len(t, f.SessionTypes, 1)
	typ := f.SessionTypes[0]
	require.Len(t, typ.Slots, 2)
	assert.Equal(t, 2, typ.Slots[1].Capacity)
	require.Len(t, typ.Statuses, 2)
	assert.Equal(t, 60, typ.Statuses[1].MinutesAfterStart)
	require.NotNil(t, typ.GameID)
	assert.Equal(t, int64(1818), *typ.GameID)

	require.Len(t, f.Sessions, 1)
	assert.Equal(t, "Patrol", f.Sessions[0].Type)
	require.NotNil(t, f.Sessions[0].HostUserID)
	assert.Equal(t, int64(200), *f.Sessions[0].HostUserID)
	assert.True(t, f.Sessions[0].IsOpen)
}

func TestLoadFixtureMissingWorkspace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace:\n  name: nameless\n"), 0o600))

	_, err := LoadFixture(path)
	assert.ErrorContains(t, err, "workspace.id")
}

func TestLoadFixtureMissingFile(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
