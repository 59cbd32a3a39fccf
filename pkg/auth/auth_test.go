package auth

import (
	"testing"

	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T, bypass bool) *Auth {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, bypass)
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	a := newTestAuth(t, false)
	require.NoError(t, a.AddUser("alice", "correct-horse", []types.Permission{types.PermissionRead}))

	ok, err := a.Verify("alice", "wrong-password", types.PermissionRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAcceptsCorrectPasswordWithPermission(t *testing.T) {
	a := newTestAuth(t, false)
	require.NoError(t, a.AddUser("alice", "correct-horse", []types.Permission{types.PermissionRead, types.PermissionCompute}))

	ok, err := a.Verify("alice", "correct-horse", types.PermissionCompute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsMissingPermission(t *testing.T) {
	a := newTestAuth(t, false)
	require.NoError(t, a.AddUser("alice", "correct-horse", []types.Permission{types.PermissionRead}))

	ok, err := a.Verify("alice", "correct-horse", types.PermissionAdmin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminPermissionSatisfiesAnyRequirement(t *testing.T) {
	a := newTestAuth(t, false)
	require.NoError(t, a.AddUser("root", "hunter2", []types.Permission{types.PermissionAdmin}))

	ok, err := a.Verify("root", "hunter2", types.PermissionQueue)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBypassSecurityAlwaysSucceeds(t *testing.T) {
	a := newTestAuth(t, true)
	ok, err := a.Verify("anyone", "anything", types.PermissionAdmin)
	require.NoError(t, err)
	assert.True(t, ok)
}
