package queuemanager

import (
	"context"
	"testing"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/adapter"
	"github.com/ChayaSt/QCFractal/pkg/events"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/taskqueue"
	"github.com/ChayaSt/QCFractal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*QueueManager, storage.Store, *taskqueue.TaskQueue) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	queue := taskqueue.New(store)
	ad, err := adapter.New(adapter.KindFireworks, adapter.Config{})
	require.NoError(t, err)

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	qm, err := New(Config{
		ManagerName:     "manager-test",
		ClusterName:     "cluster-test",
		UpdateFrequency: 5 * time.Millisecond,
		MaxTasks:        4,
	}, store, queue, ad, broker)
	require.NoError(t, err)

	return qm, store, queue
}

func TestNewRegistersManagerAsActive(t *testing.T) {
	qm, store, _ := newTestManager(t)
	defer qm.adapter.Close()

	m, err := store.GetManager("manager-test")
	require.NoError(t, err)
	assert.Equal(t, types.ManagerStatusActive, m.Status)
}

func TestRapidfireDrainsQueueAndMarksComplete(t *testing.T) {
	qm, _, queue := newTestManager(t)

	_, ids, err := queue.Submit([]*types.Task{
		{BaseResult: types.DocumentRef{Kind: "result", ID: "r1"}, Spec: map[string]interface{}{"x": 1}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	qm.RunRapidfire(ctx)
	require.NoError(t, qm.Close())

	tasks, _, err := queue.GetByIDs(ids)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusComplete, tasks[0].Status)
}

func TestExitCallbacksRunInLIFOOrder(t *testing.T) {
	qm, _, _ := newTestManager(t)

	var order []int
	qm.AddExitCallback(func() { order = append(order, 1) })
	qm.AddExitCallback(func() { order = append(order, 2) })
	qm.AddExitCallback(func() { order = append(order, 3) })

	require.NoError(t, qm.Close())
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestReconcileOrphansResetsOwnRunningTasks(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	defer store.Close()

	queue := taskqueue.New(store)
	_, ids, err := queue.Submit([]*types.Task{
		{BaseResult: types.DocumentRef{Kind: "result", ID: "r1"}},
	})
	require.NoError(t, err)

	leased, err := queue.GetNext("manager-test", "", 1)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	ad, err := adapter.New(adapter.KindFireworks, adapter.Config{})
	require.NoError(t, err)
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	qm, err := New(Config{ManagerName: "manager-test"}, store, queue, ad, broker)
	require.NoError(t, err)
	defer qm.adapter.Close()

	tasks, _, err := queue.GetByIDs(ids)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusWaiting, tasks[0].Status)
}
