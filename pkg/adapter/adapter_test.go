package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(Kind("spark"), Config{})
	assert.Error(t, err)
}

func TestPoolAdapterSubmitAndPoll(t *testing.T) {
	a, err := New(KindDask, Config{MaxConcurrent: 2})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Submit(ctx, "task-1", map[string]interface{}{"method": "b3lyp"}))

	var outcomes []Outcome
	require.Eventually(t, func() bool {
		out, err := a.Poll(ctx)
		require.NoError(t, err)
		outcomes = append(outcomes, out...)
		return len(outcomes) == 1
	}, time.Second, 5*time.Millisecond)

	assert.True(t, outcomes[0].Success)
	assert.Equal(t, "task-1", outcomes[0].TaskID)
}

func TestSerialAdapterReturnsEverySubmission(t *testing.T) {
	a, err := New(KindFireworks, Config{})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Submit(ctx, "task", map[string]interface{}{}))
	}

	var outcomes []Outcome
	require.Eventually(t, func() bool {
		out, _ := a.Poll(ctx)
		outcomes = append(outcomes, out...)
		return len(outcomes) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestCancelMarksOutcomeAsCancelled(t *testing.T) {
	a, err := New(KindParsl, Config{})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Cancel(ctx, []string{"task-x"}))
	require.NoError(t, a.Submit(ctx, "task-x", map[string]interface{}{}))

	var outcomes []Outcome
	require.Eventually(t, func() bool {
		out, _ := a.Poll(ctx)
		outcomes = append(outcomes, out...)
		return len(outcomes) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, outcomes[0].Success)
	assert.Equal(t, "cancelled", outcomes[0].Error)
}
