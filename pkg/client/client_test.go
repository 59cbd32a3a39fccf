package client

import (
	"context"
	"testing"

	"github.com/ChayaSt/QCFractal/pkg/auth"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/taskqueue"
	"github.com/ChayaSt/QCFractal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, verify bool) (*Client, *auth.Auth) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := auth.New(store, !verify)
	require.NoError(t, a.AddUser("alice", "hunter2", []types.Permission{types.PermissionRead}))

	c, err := New(store, taskqueue.New(store), a, "alice", "hunter2", verify)
	require.NoError(t, err)
	return c, a
}

func TestNewRejectsBadCredentialsWhenVerifying(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	defer store.Close()

	a := auth.New(store, false)
	require.NoError(t, a.AddUser("alice", "hunter2", []types.Permission{types.PermissionRead}))

	_, err = New(store, taskqueue.New(store), a, "alice", "wrong", true)
	assert.Error(t, err)
}

func TestAddAndGetMoleculesRoundTrip(t *testing.T) {
	c, _ := newTestClient(t, true)
	ctx := context.Background()

	meta, ids, err := c.AddMolecules(ctx, []*types.Molecule{
		{Symbols: []string{"H", "H"}, Geometry: []float64{0, 0, 0, 0, 0, 0.74}},
	})
	require.NoError(t, err)
	assert.True(t, meta.Success)
	require.Len(t, ids, 1)

	got, _, err := c.GetMolecules(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSubmitAndCheckTasks(t *testing.T) {
	c, _ := newTestClient(t, true)
	ctx := context.Background()

	_, ids, err := c.SubmitTasks(ctx, []*types.Task{
		{BaseResult: types.DocumentRef{Kind: "result", ID: "r1"}},
	})
	require.NoError(t, err)

	tasks, _, err := c.CheckTasks(ctx, ids)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, types.TaskStatusWaiting, tasks[0].Status)
}
