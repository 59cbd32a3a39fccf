package taskqueue

import (
	"testing"

	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *TaskQueue {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func TestSubmitMergesHooksOnDuplicateBaseResult(t *testing.T) {
	q := newTestQueue(t)
	ref := types.DocumentRef{Kind: "result", ID: "res-1"}

	meta1, ids1, err := q.Submit([]*types.Task{{
		BaseResult: ref,
		Hooks:      []types.HookList{{Document: ref, Updates: []types.Hook{{Op: types.HookOpInc, Field: "n", Value: 1.0}}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, meta1.NInserted)

	meta2, ids2, err := q.Submit([]*types.Task{{
		BaseResult: ref,
		Hooks:      []types.HookList{{Document: ref, Updates: []types.Hook{{Op: types.HookOpInc, Field: "n", Value: 2.0}}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, len(meta2.Duplicates))
	assert.Equal(t, ids1[0], ids2[0])

	tasks, _, err := q.GetByIDs([]string{ids1[0]})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Len(t, tasks[0].Hooks, 2)
}

func TestGetNextLeasesWaitingTasks(t *testing.T) {
	q := newTestQueue(t)

	for i := 0; i < 3; i++ {
		_, _, err := q.Submit([]*types.Task{{BaseResult: types.DocumentRef{Kind: "result", ID: string(rune('a' + i))}}})
		require.NoError(t, err)
	}

	leased, err := q.GetNext("manager-1", "", 2)
	require.NoError(t, err)
	assert.Len(t, leased, 2)
	for _, tsk := range leased {
		assert.Equal(t, types.TaskStatusRunning, tsk.Status)
		assert.Equal(t, "manager-1", tsk.ManagerName)
	}

	remaining, err := q.GetNext("manager-1", "", 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestMarkCompleteAndResetStatus(t *testing.T) {
	q := newTestQueue(t)
	_, ids, err := q.Submit([]*types.Task{{BaseResult: types.DocumentRef{Kind: "result", ID: "r1"}}})
	require.NoError(t, err)

	leased, err := q.GetNext("manager-1", "", 1)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	n, err := q.MarkComplete(ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tasks, _, err := q.GetByIDs(ids)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusComplete, tasks[0].Status)

	n, err = q.ResetStatus(ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tasks, _, err = q.GetByIDs(ids)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusWaiting, tasks[0].Status)
	assert.Empty(t, tasks[0].ManagerName)
}

func TestMarkErrorRecordsMessage(t *testing.T) {
	q := newTestQueue(t)
	_, ids, err := q.Submit([]*types.Task{{BaseResult: types.DocumentRef{Kind: "result", ID: "r2"}}})
	require.NoError(t, err)

	n, err := q.MarkError(map[string]string{ids[0]: "adapter failed"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tasks, _, err := q.GetByIDs(ids)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusError, tasks[0].Status)
	assert.Equal(t, "adapter failed", tasks[0].Error)
}
