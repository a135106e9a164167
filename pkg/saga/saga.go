package saga

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the current status of a saga
type Status string

const (
	StatusStarted      Status = "started"
	StatusExecuting    Status = "executing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCompensating Status = "compensating"
	StatusCompensated  Status = "compensated"
)

// StepStatus represents the status of a saga step
type StepStatus string

const (
	StepStatusPending     StepStatus = "pending"
	StepStatusExecuting   StepStatus = "executing"
	StepStatusCompleted   StepStatus = "completed"
	StepStatusFailed      StepStatus = "failed"
	StepStatusCompensated StepStatus = "compensated"
)

// ActionFunc is the forward action of a step. It receives the merged saga
// and step context; the returned map is stored on the step record and merged
// back into the saga context.
type ActionFunc func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error)

// CompensationFunc reverses a completed step. It receives the merged context
// plus the step's last successful result.
type CompensationFunc func(ctx context.Context, data map[string]interface{}, result map[string]interface{}) error

// Step is a forward action paired with its compensation. Steps run strictly
// in the order they were added.
type Step struct {
	Name          string                 `json:"name"`
	Status        StepStatus             `json:"status"`
	Context       map[string]interface{} `json:"context,omitempty"`
	Result        map[string]interface{} `json:"result,omitempty"`
	RetryCount    int                    `json:"retry_count"`
	MaxRetries    int                    `json:"max_retries"`
	LastError     string                 `json:"last_error,omitempty"`
	ExecutedAt    *time.Time             `json:"executed_at,omitempty"`
	CompensatedAt *time.Time             `json:"compensated_at,omitempty"`

	action       ActionFunc
	compensation CompensationFunc
}

// Saga is one logical transaction: ordered steps with compensations plus a
// shared context.
type Saga struct {
	ID             string
	Name           string
	Status         Status
	Context        map[string]interface{}
	Steps          []*Step
	CompletedSteps int
	StartedAt      time.Time
	CompletedAt    *time.Time
	ErrorMessage   string

	mu sync.RWMutex
}

// NewSaga creates a saga in the started state.
func NewSaga(name string, context map[string]interface{}) *Saga {
	if context == nil {
		context = make(map[string]interface{})
	}
	return &Saga{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    StatusStarted,
		Context:   context,
		Steps:     make([]*Step, 0),
		StartedAt: time.Now(),
	}
}

// AddStep appends a step. Order is preserved; steps added after execution
// started are not picked up.
func (s *Saga) AddStep(name string, action ActionFunc, compensation CompensationFunc, stepContext map[string]interface{}, maxRetries int) *Saga {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Steps = append(s.Steps, &Step{
		Name:         name,
		Status:       StepStatusPending,
		Context:      stepContext,
		MaxRetries:   maxRetries,
		action:       action,
		compensation: compensation,
	})
	return s
}

// SetStatus updates the saga status.
func (s *Saga) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
}

// GetStatus returns the current saga status.
func (s *Saga) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// MergedContext returns a copy of the saga context overlaid with a step's
// own context.
func (s *Saga) MergedContext(step *Step) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	merged := make(map[string]interface{}, len(s.Context)+len(step.Context))
	for k, v := range s.Context {
		merged[k] = v
	}
	for k, v := range step.Context {
		merged[k] = v
	}
	return merged
}

// UpdateContext merges new data into the saga context.
func (s *Saga) UpdateContext(data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range data {
		s.Context[k] = v
	}
}

// ContextValue reads a single context key.
func (s *Saga) ContextValue(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.Context[key]
	return v, ok
}

// Complete marks the saga as completed.
func (s *Saga) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.Status = StatusCompleted
	s.CompletedAt = &now
}

// Fail marks the saga as failed with the given error.
func (s *Saga) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.Status = StatusFailed
	if err != nil {
		s.ErrorMessage = err.Error()
	}
	s.CompletedAt = &now
}
