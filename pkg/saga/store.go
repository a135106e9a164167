package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSagaNotFound is returned when a saga id has no persisted state.
var ErrSagaNotFound = errors.New("saga not found")

// SagaState is the durable envelope of a saga. The in-memory saga drives the
// running call; this row is authoritative for post-crash inspection.
type SagaState struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	SagaID           string     `gorm:"type:uuid;uniqueIndex;not null" json:"saga_id"`
	SagaName         string     `gorm:"size:255;not null" json:"saga_name"`
	Status           string     `gorm:"size:20;not null;index" json:"status"`
	Context          string     `gorm:"type:jsonb" json:"context"`
	StepsData        string     `gorm:"type:jsonb" json:"steps_data"`
	CurrentStepIndex int        `gorm:"default:0" json:"current_step_index"`
	CompletedSteps   int        `gorm:"default:0" json:"completed_steps"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ErrorMessage     string     `gorm:"type:text" json:"error_message,omitempty"`
	LastRetryAt      *time.Time `json:"last_retry_at,omitempty"`
	RetryCount       int        `gorm:"default:0" json:"retry_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (SagaState) TableName() string {
	return "saga_states"
}

// Store persists saga envelopes.
type Store interface {
	// Upsert writes the full envelope, inserting or replacing by saga id.
	Upsert(ctx context.Context, state *SagaState) error
	// Get returns the envelope for a saga id.
	Get(ctx context.Context, sagaID string) (*SagaState, error)
	// ListByStatus returns every saga in one of the given statuses.
	ListByStatus(ctx context.Context, statuses ...Status) ([]*SagaState, error)
	// MarkFailed transitions a persisted saga to failed with a message.
	MarkFailed(ctx context.Context, sagaID, message string) error
}

// Snapshot converts a running saga into its durable envelope.
func Snapshot(s *Saga) (*SagaState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contextJSON, err := json.Marshal(s.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal saga context: %w", err)
	}
	stepsJSON, err := json.Marshal(s.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal saga steps: %w", err)
	}

	currentStep := 0
	retryCount := 0
	var lastRetryAt *time.Time
	for i, step := range s.Steps {
		retryCount += step.RetryCount
		if step.Status == StepStatusExecuting || step.Status == StepStatusPending {
			continue
		}
		currentStep = i
		if step.RetryCount > 0 && step.ExecutedAt != nil {
			lastRetryAt = step.ExecutedAt
		}
	}

	return &SagaState{
		ID:               s.ID,
		SagaID:           s.ID,
		SagaName:         s.Name,
		Status:           string(s.Status),
		Context:          string(contextJSON),
		StepsData:        string(stepsJSON),
		CurrentStepIndex: currentStep,
		CompletedSteps:   s.CompletedSteps,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		ErrorMessage:     s.ErrorMessage,
		LastRetryAt:      lastRetryAt,
		RetryCount:       retryCount,
	}, nil
}

// GormStore persists saga envelopes in the durable store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a saga store over the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Upsert(ctx context.Context, state *SagaState) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "saga_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "context", "steps_data", "current_step_index",
			"completed_steps", "completed_at", "error_message",
			"last_retry_at", "retry_count", "updated_at",
		}),
	}).Create(state).Error
}

func (s *GormStore) Get(ctx context.Context, sagaID string) (*SagaState, error) {
	var state SagaState
	err := s.db.WithContext(ctx).Where("saga_id = ?", sagaID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSagaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load saga state: %w", err)
	}
	return &state, nil
}

func (s *GormStore) ListByStatus(ctx context.Context, statuses ...Status) ([]*SagaState, error) {
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	var states []*SagaState
	err := s.db.WithContext(ctx).Where("status IN ?", values).Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list saga states: %w", err)
	}
	return states, nil
}

func (s *GormStore) MarkFailed(ctx context.Context, sagaID, message string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&SagaState{}).
		Where("saga_id = ?", sagaID).
		Updates(map[string]interface{}{
			"status":        string(StatusFailed),
			"error_message": message,
			"completed_at":  now,
		}).Error
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*SagaState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*SagaState)}
}

func (s *MemoryStore) Upsert(ctx context.Context, state *SagaState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.states[state.SagaID] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sagaID string) (*SagaState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sagaID]
	if !ok {
		return nil, ErrSagaNotFound
	}
	copied := *state
	return &copied, nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, statuses ...Status) ([]*SagaState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*SagaState
	for _, state := range s.states {
		for _, st := range statuses {
			if state.Status == string(st) {
				copied := *state
				out = append(out, &copied)
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, sagaID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[sagaID]
	if !ok {
		return ErrSagaNotFound
	}
	now := time.Now()
	state.Status = string(StatusFailed)
	state.ErrorMessage = message
	state.CompletedAt = &now
	return nil
}
