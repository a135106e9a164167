package saga

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RecoveryMessage is written to sagas found incomplete at startup.
const RecoveryMessage = "Server restart during execution - requires manual investigation"

// Logger interface for saga logging
type Logger interface {
	InfoContext(ctx context.Context, msg string, fields ...interface{})
	WarnContext(ctx context.Context, msg string, fields ...interface{})
	ErrorContext(ctx context.Context, msg string, fields ...interface{})
}

// NoOpLogger is a no-op logger implementation
type NoOpLogger struct{}

func (l *NoOpLogger) InfoContext(ctx context.Context, msg string, fields ...interface{})  {}
func (l *NoOpLogger) WarnContext(ctx context.Context, msg string, fields ...interface{})  {}
func (l *NoOpLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {}

// SagaStatus is the externally visible status of a saga.
type SagaStatus struct {
	SagaID         string `json:"saga_id"`
	Name           string `json:"name"`
	Status         Status `json:"status"`
	CompletedSteps int    `json:"completed_steps"`
	Error          string `json:"error,omitempty"`
}

// OrchestratorConfig holds configuration for the orchestrator
type OrchestratorConfig struct {
	Store  Store
	Logger Logger
}

// Orchestrator runs sagas: forward steps with retries, reverse compensation
// on failure, and best-effort persistence of the envelope after every step
// transition. Active sagas live in an in-memory map drained on termination.
type Orchestrator struct {
	store  Store
	logger Logger

	mu       sync.Mutex
	active   map[string]*Saga
	cleanup  map[string]time.Time
	backoff  func(attempt int) time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewOrchestrator creates a new saga orchestrator
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Orchestrator{
		store:   store,
		logger:  logger,
		active:  make(map[string]*Saga),
		cleanup: make(map[string]time.Time),
		backoff: defaultBackoff,
		stopCh:  make(chan struct{}),
	}
}

// defaultBackoff waits min(2^attempt, 10) seconds between retries.
func defaultBackoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

// CreateSaga creates and registers a new saga with the given context.
func (o *Orchestrator) CreateSaga(ctx context.Context, name string, sagaContext map[string]interface{}) *Saga {
	s := NewSaga(name, sagaContext)

	o.mu.Lock()
	o.active[s.ID] = s
	o.cleanup[s.ID] = time.Now()
	o.mu.Unlock()

	o.persist(ctx, s)
	o.logger.InfoContext(ctx, "Saga created", "saga_id", s.ID, "saga_name", name)
	return s
}

// ExecuteSaga forward-executes all steps. On a step failure it compensates
// executed steps in reverse order and returns the failing step's last error.
// The in-memory registration is always drained, including error paths.
func (o *Orchestrator) ExecuteSaga(ctx context.Context, s *Saga) error {
	defer o.release(s.ID)

	s.SetStatus(StatusExecuting)
	o.persist(ctx, s)

	var lastError error
	for _, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			lastError = err
			break
		}

		if err := o.executeStep(ctx, s, step); err != nil {
			lastError = err
			break
		}
		s.mu.Lock()
		s.CompletedSteps++
		s.mu.Unlock()
		o.persist(ctx, s)
	}

	if lastError != nil {
		s.SetStatus(StatusCompensating)
		o.persist(ctx, s)
		o.compensate(ctx, s)

		s.Fail(lastError)
		o.persist(ctx, s)
		o.logger.ErrorContext(ctx, "Saga failed", "saga_id", s.ID, "saga_name", s.Name, "error", lastError)
		return fmt.Errorf("saga %s failed: %w", s.Name, lastError)
	}

	s.Complete()
	o.persist(ctx, s)
	o.logger.InfoContext(ctx, "Saga completed", "saga_id", s.ID, "saga_name", s.Name)
	return nil
}

// executeStep runs one step with its retry budget. The step record is
// persisted after every transition.
func (o *Orchestrator) executeStep(ctx context.Context, s *Saga, step *Step) error {
	step.Status = StepStatusExecuting
	o.persist(ctx, s)

	var lastError error
	maxAttempts := step.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			step.RetryCount = attempt
			o.logger.InfoContext(ctx, "Retrying saga step",
				"saga_id", s.ID, "step", step.Name, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.backoff(attempt)):
			}
		}

		result, err := step.action(ctx, s.MergedContext(step))
		if err == nil {
			now := time.Now()
			step.Status = StepStatusCompleted
			step.Result = result
			step.LastError = ""
			step.ExecutedAt = &now
			if result != nil {
				s.UpdateContext(result)
			}
			o.persist(ctx, s)
			o.logger.InfoContext(ctx, "Saga step completed", "saga_id", s.ID, "step", step.Name)
			return nil
		}

		lastError = err
		step.LastError = err.Error()
		o.persist(ctx, s)
	}

	now := time.Now()
	step.Status = StepStatusFailed
	step.ExecutedAt = &now
	o.persist(ctx, s)
	return lastError
}

// compensate reverses completed steps in reverse order. Compensation
// failures are logged and never abort the chain: partial compensation is
// strictly better than halting midway.
func (o *Orchestrator) compensate(ctx context.Context, s *Saga) {
	for i := len(s.Steps) - 1; i >= 0; i-- {
		step := s.Steps[i]
		if step.Status != StepStatusCompleted {
			continue
		}
		if step.compensation == nil {
			continue
		}

		if err := step.compensation(ctx, s.MergedContext(step), step.Result); err != nil {
			o.logger.ErrorContext(ctx, "Saga compensation failed",
				"saga_id", s.ID, "step", step.Name, "error", err)
		} else {
			now := time.Now()
			step.Status = StepStatusCompensated
			step.CompensatedAt = &now
			o.logger.InfoContext(ctx, "Saga step compensated", "saga_id", s.ID, "step", step.Name)
		}
		o.persist(ctx, s)
	}
}

// GetSagaStatus returns the status of a saga, preferring the live instance
// over the persisted envelope.
func (o *Orchestrator) GetSagaStatus(ctx context.Context, sagaID string) (*SagaStatus, error) {
	o.mu.Lock()
	s, ok := o.active[sagaID]
	o.mu.Unlock()
	if ok {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return &SagaStatus{
			SagaID:         s.ID,
			Name:           s.Name,
			Status:         s.Status,
			CompletedSteps: s.CompletedSteps,
			Error:          s.ErrorMessage,
		}, nil
	}

	state, err := o.store.Get(ctx, sagaID)
	if err != nil {
		return nil, err
	}
	return &SagaStatus{
		SagaID:         state.SagaID,
		Name:           state.SagaName,
		Status:         Status(state.Status),
		CompletedSteps: state.CompletedSteps,
		Error:          state.ErrorMessage,
	}, nil
}

// RecoverIncompleteSagas marks every persisted saga that was mid-flight when
// the process died as failed. Forward recovery is deliberately not attempted.
// Returns the number of sagas marked.
func (o *Orchestrator) RecoverIncompleteSagas(ctx context.Context) (int, error) {
	states, err := o.store.ListByStatus(ctx, StatusStarted, StatusExecuting, StatusCompensating)
	if err != nil {
		return 0, fmt.Errorf("failed to list incomplete sagas: %w", err)
	}

	recovered := 0
	for _, state := range states {
		if err := o.store.MarkFailed(ctx, state.SagaID, RecoveryMessage); err != nil {
			o.logger.ErrorContext(ctx, "Failed to mark saga for investigation",
				"saga_id", state.SagaID, "error", err)
			continue
		}
		recovered++
		o.logger.WarnContext(ctx, "Marked incomplete saga as failed",
			"saga_id", state.SagaID, "saga_name", state.SagaName, "previous_status", state.Status)
	}
	return recovered, nil
}

// StartSweeper periodically reconciles the cleanup registry against the
// active map so a leaked saga cannot pin memory forever.
func (o *Orchestrator) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-o.stopCh:
				return
			case <-ticker.C:
				o.sweep(ctx, maxAge)
			}
		}
	}()
}

// Stop halts the background sweeper.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

// ActiveCount returns the number of live sagas.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// release drains a saga from the in-memory map and cleanup registry.
func (o *Orchestrator) release(sagaID string) {
	o.mu.Lock()
	delete(o.active, sagaID)
	delete(o.cleanup, sagaID)
	o.mu.Unlock()
}

func (o *Orchestrator) sweep(ctx context.Context, maxAge time.Duration) {
	o.mu.Lock()
	var stale []string
	for id, registered := range o.cleanup {
		s, ok := o.active[id]
		if !ok || time.Since(registered) > maxAge {
			stale = append(stale, id)
			continue
		}
		switch s.GetStatus() {
		case StatusCompleted, StatusFailed, StatusCompensated:
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(o.active, id)
		delete(o.cleanup, id)
	}
	o.mu.Unlock()

	if len(stale) > 0 {
		o.logger.WarnContext(ctx, "Swept stale sagas from registry", "count", len(stale))
	}
}

// persist writes the saga envelope. Failures are logged, never raised: the
// in-memory saga stays authoritative for the running call.
func (o *Orchestrator) persist(ctx context.Context, s *Saga) {
	state, err := Snapshot(s)
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to snapshot saga", "saga_id", s.ID, "error", err)
		return
	}
	if err := o.store.Upsert(ctx, state); err != nil {
		o.logger.ErrorContext(ctx, "Failed to persist saga state", "saga_id", s.ID, "error", err)
	}
}
