package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(store Store) *Orchestrator {
	o := NewOrchestrator(&OrchestratorConfig{Store: store})
	o.backoff = func(attempt int) time.Duration { return 0 }
	return o
}

func TestExecuteSagaHappyPath(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	o := newTestOrchestrator(store)

	s := o.CreateSaga(ctx, "booking_creation_e1", map[string]interface{}{
		"event_id": "e1",
		"user_id":  "u1",
	})

	var step2Saw map[string]interface{}
	s.AddStep("reserve", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		assert.Equal(t, "e1", data["event_id"])
		return map[string]interface{}{"reservation": "held"}, nil
	}, nil, nil, 2)
	s.AddStep("commit", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		step2Saw = data
		return map[string]interface{}{"booking_id": "b1"}, nil
	}, nil, nil, 1)

	err := o.ExecuteSaga(ctx, s)
	require.NoError(t, err)

	// Step 1's result is visible to step 2 through the merged context.
	assert.Equal(t, "held", step2Saw["reservation"])

	assert.Equal(t, StatusCompleted, s.GetStatus())
	assert.Equal(t, 2, s.CompletedSteps)

	state, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), state.Status)
	assert.Equal(t, 2, state.CompletedSteps)
	assert.NotNil(t, state.CompletedAt)
}

func TestExecuteSagaCompensatesInReverseOrder(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(NewMemoryStore())

	var order []string
	s := o.CreateSaga(ctx, "test", nil)
	s.AddStep("a", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"a_result": 1}, nil
	}, func(ctx context.Context, data map[string]interface{}, result map[string]interface{}) error {
		order = append(order, "comp_a")
		assert.EqualValues(t, 1, result["a_result"])
		return nil
	}, nil, 0)
	s.AddStep("b", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	}, func(ctx context.Context, data map[string]interface{}, result map[string]interface{}) error {
		order = append(order, "comp_b")
		return nil
	}, nil, 0)
	s.AddStep("c", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return nil, errors.New("step c exploded")
	}, func(ctx context.Context, data map[string]interface{}, result map[string]interface{}) error {
		order = append(order, "comp_c")
		return nil
	}, nil, 0)

	err := o.ExecuteSaga(ctx, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step c exploded")

	// Failed step c is never compensated; b and a run in reverse.
	assert.Equal(t, []string{"comp_b", "comp_a"}, order)
	assert.Equal(t, StatusFailed, s.GetStatus())
	assert.Equal(t, StepStatusCompensated, s.Steps[0].Status)
	assert.Equal(t, StepStatusCompensated, s.Steps[1].Status)
	assert.Equal(t, StepStatusFailed, s.Steps[2].Status)
}

func TestCompensationFailureDoesNotAbortChain(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(NewMemoryStore())

	var compensatedA bool
	s := o.CreateSaga(ctx, "test", nil)
	s.AddStep("a", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	}, func(ctx context.Context, data map[string]interface{}, result map[string]interface{}) error {
		compensatedA = true
		return nil
	}, nil, 0)
	s.AddStep("b", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	}, func(ctx context.Context, data map[string]interface{}, result map[string]interface{}) error {
		return errors.New("compensation b failed")
	}, nil, 0)
	s.AddStep("c", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return nil, errors.New("boom")
	}, nil, nil, 0)

	err := o.ExecuteSaga(ctx, s)
	require.Error(t, err)

	// b's compensation failed but a's still ran.
	assert.True(t, compensatedA)
	assert.Equal(t, StepStatusCompensated, s.Steps[0].Status)
	// b keeps its completed status; the failed compensation is logged only.
	assert.Equal(t, StepStatusCompleted, s.Steps[1].Status)
}

func TestStepRetriesUntilSuccess(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(NewMemoryStore())

	attempts := 0
	s := o.CreateSaga(ctx, "test", nil)
	s.AddStep("flaky", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return nil, nil
	}, nil, nil, 2)

	err := o.ExecuteSaga(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, s.Steps[0].RetryCount)
}

func TestStepRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(NewMemoryStore())

	attempts := 0
	s := o.CreateSaga(ctx, "test", nil)
	s.AddStep("doomed", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		attempts++
		return nil, errors.New("permanent")
	}, nil, nil, 2)

	err := o.ExecuteSaga(ctx, s)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, StepStatusFailed, s.Steps[0].Status)
	assert.Equal(t, "permanent", s.Steps[0].LastError)
}

func TestRegistryDrainedAfterExecution(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(NewMemoryStore())

	ok := o.CreateSaga(ctx, "ok", nil)
	ok.AddStep("noop", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	}, nil, nil, 0)

	bad := o.CreateSaga(ctx, "bad", nil)
	bad.AddStep("fail", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return nil, errors.New("boom")
	}, nil, nil, 0)

	assert.Equal(t, 2, o.ActiveCount())
	require.NoError(t, o.ExecuteSaga(ctx, ok))
	require.Error(t, o.ExecuteSaga(ctx, bad))
	assert.Equal(t, 0, o.ActiveCount())
}

func TestGetSagaStatusFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	o := newTestOrchestrator(store)

	s := o.CreateSaga(ctx, "test", nil)
	s.AddStep("noop", func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	}, nil, nil, 0)
	require.NoError(t, o.ExecuteSaga(ctx, s))

	// The live instance is gone; status comes from the envelope.
	status, err := o.GetSagaStatus(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status.Status)
	assert.Equal(t, 1, status.CompletedSteps)

	_, err = o.GetSagaStatus(ctx, "missing")
	assert.ErrorIs(t, err, ErrSagaNotFound)
}

func TestRecoverIncompleteSagas(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seed := func(id string, status Status) {
		require.NoError(t, store.Upsert(ctx, &SagaState{
			ID:        id,
			SagaID:    id,
			SagaName:  "booking_creation_e1",
			Status:    string(status),
			StartedAt: time.Now(),
		}))
	}
	seed("s1", StatusStarted)
	seed("s2", StatusExecuting)
	seed("s3", StatusCompensating)
	seed("s4", StatusCompleted)

	o := newTestOrchestrator(store)
	recovered, err := o.RecoverIncompleteSagas(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, recovered)

	for _, id := range []string{"s1", "s2", "s3"} {
		state, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, string(StatusFailed), state.Status)
		assert.Equal(t, RecoveryMessage, state.ErrorMessage)
	}

	state, err := store.Get(ctx, "s4")
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), state.Status)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewSaga("booking_creation_e1", map[string]interface{}{"event_id": "e1"})
	s.AddStep("reserve", nil, nil, map[string]interface{}{"ttl": 600}, 2)

	state, err := Snapshot(s)
	require.NoError(t, err)
	assert.Equal(t, s.ID, state.SagaID)
	assert.Equal(t, "booking_creation_e1", state.SagaName)
	assert.Equal(t, string(StatusStarted), state.Status)
	assert.Contains(t, state.Context, "event_id")
	assert.Contains(t, state.StepsData, "reserve")
}
