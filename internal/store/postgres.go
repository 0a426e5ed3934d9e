package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/carealert/internal/emergency"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS emergency_logs (
	id BIGSERIAL PRIMARY KEY,
	user_session TEXT NOT NULL,
	symptoms TEXT[] NOT NULL DEFAULT '{}',
	emergency_type TEXT NOT NULL,
	severity_level TEXT NOT NULL,
	location_lat DOUBLE PRECISION,
	location_lng DOUBLE PRECISION,
	ambulance_called BOOLEAN NOT NULL DEFAULT FALSE,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_emergency_logs_session ON emergency_logs (user_session, timestamp DESC);
`

const logCols = `id, user_session, symptoms, emergency_type, severity_level,
	location_lat, location_lng, ambulance_called, timestamp`

// PostgresStore keeps emergency logs in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool, pings it and ensures the schema.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns, minConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) LogEmergency(ctx context.Context, entry emergency.LogEntry) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO emergency_logs (user_session, symptoms, emergency_type, severity_level, ambulance_called)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		sessionOrDefault(entry.SessionID), nonNil(entry.Symptoms),
		entry.EmergencyType, entry.SeverityLevel, entry.AmbulanceCalled,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert emergency log: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) EmergencyHistory(ctx context.Context, sessionID string, limit int) ([]EmergencyLog, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+logCols+` FROM emergency_logs
		WHERE user_session = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`,
		sessionOrDefault(sessionID), ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query emergency logs: %w", err)
	}
	defer rows.Close()

	logs := []EmergencyLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emergency log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func scanLog(row pgx.Row) (EmergencyLog, error) {
	var l EmergencyLog
	err := row.Scan(&l.ID, &l.SessionID, &l.Symptoms, &l.EmergencyType, &l.SeverityLevel,
		&l.LocationLat, &l.LocationLng, &l.AmbulanceCalled, &l.Timestamp)
	return l, err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
