package reconciler

import (
	"testing"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/events"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/taskqueue"
	"github.com/ChayaSt/QCFractal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileResetsExpiredLeases(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	defer store.Close()

	queue := taskqueue.New(store)
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	_, ids, err := queue.Submit([]*types.Task{{BaseResult: types.DocumentRef{Kind: "result", ID: "r1"}}})
	require.NoError(t, err)

	leased, err := queue.GetNext("manager-1", "", 1)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	r := New(store, queue, broker, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.reconcile())

	tasks, _, err := queue.GetByIDs(ids)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusWaiting, tasks[0].Status)
}
