// Package store persists detected emergencies.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skufu/carealert/internal/config"
	"github.com/Skufu/carealert/internal/emergency"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

var ErrUnknownDriver = errors.New("unknown database driver")

// EmergencyLog is one stored emergency event.
type EmergencyLog struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"userSession"`
	Symptoms        []string  `json:"symptoms"`
	EmergencyType   string    `json:"emergencyType"`
	SeverityLevel   string    `json:"severityLevel"`
	LocationLat     *float64  `json:"locationLat,omitempty"`
	LocationLng     *float64  `json:"locationLng,omitempty"`
	AmbulanceCalled bool      `json:"ambulanceCalled"`
	Timestamp       time.Time `json:"timestamp"`
}

// Store is implemented by the Postgres and SQLite backends. It doubles as
// the detector's log sink.
type Store interface {
	emergency.LogSink
	EmergencyHistory(ctx context.Context, sessionID string, limit int) ([]EmergencyLog, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend selected by cfg.DBDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.DBDriver)
	}
}

// ClampLimit maps a requested page size onto [1, MaxHistoryLimit], using
// DefaultHistoryLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

func sessionOrDefault(sessionID string) string {
	if sessionID == "" {
		return emergency.DefaultSessionID
	}
	return sessionID
}
