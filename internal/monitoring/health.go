package monitoring

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type DependencyStatus string

const (
	StatusHealthy   DependencyStatus = "healthy"
	StatusDegraded  DependencyStatus = "degraded"
	StatusUnhealthy DependencyStatus = "unhealthy"
)

// DependencyReport is one dependency's probe result.
type DependencyReport struct {
	Status         DependencyStatus `json:"status"`
	ResponseTimeMs float64          `json:"response_time_ms"`
	Error          string           `json:"error,omitempty"`
}

// HealthReport aggregates all dependency probes.
type HealthReport struct {
	Status       DependencyStatus            `json:"status"`
	CheckedAt    time.Time                   `json:"checked_at"`
	Dependencies map[string]DependencyReport `json:"dependencies"`
}

// Connections exposes the dependency handles the checker probes.
// *database.DB satisfies it, without monitoring importing that package
// (database transitively imports bookings, which imports monitoring).
type Connections interface {
	GetPostgreSQL() *gorm.DB
	GetRedisClient() *redis.Client
}

// Checker probes each dependency independently.
type Checker struct {
	db Connections
}

func NewChecker(db Connections) *Checker {
	return &Checker{db: db}
}

func (c *Checker) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		CheckedAt:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyReport),
	}

	report.Dependencies["postgres"] = probe(func() error {
		sqlDB, err := c.db.GetPostgreSQL().DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	report.Dependencies["redis"] = probe(func() error {
		return c.db.GetRedisClient().Ping(ctx).Err()
	})

	healthyCount := 0
	for _, dep := range report.Dependencies {
		if dep.Status == StatusHealthy {
			healthyCount++
		}
	}
	switch healthyCount {
	case len(report.Dependencies):
		report.Status = StatusHealthy
	case 0:
		report.Status = StatusUnhealthy
	default:
		report.Status = StatusDegraded
	}
	return report
}

func probe(check func() error) DependencyReport {
	start := time.Now()
	err := check()
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return DependencyReport{Status: StatusUnhealthy, ResponseTimeMs: elapsed, Error: err.Error()}
	}
	return DependencyReport{Status: StatusHealthy, ResponseTimeMs: elapsed}
}
