package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Skufu/carealert/internal/emergency"
)

const memoryPath = ":memory:"

// SQLiteStore keeps emergency logs in a local SQLite file.
// All methods are safe for concurrent use.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// OpenSQLite opens or creates the database at path and ensures the schema.
// ":memory:" opens the process-wide shared in-memory database, which lives
// until its last connection closes.
func OpenSQLite(path string) (*SQLiteStore, error) {
	connStr := path
	if path == memoryPath {
		// every pooled connection must see the same in-memory database
		connStr = "file::memory:?cache=shared"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if path != memoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS emergency_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_session TEXT NOT NULL,
		symptoms TEXT NOT NULL,
		emergency_type TEXT NOT NULL,
		severity_level TEXT NOT NULL,
		location_lat REAL,
		location_lng REAL,
		ambulance_called INTEGER DEFAULT 0,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_emergency_logs_session ON emergency_logs(user_session, timestamp DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// LogEmergency inserts entry and returns its row id.
func (s *SQLiteStore) LogEmergency(ctx context.Context, entry emergency.LogEntry) (int64, error) {
	symptoms, err := json.Marshal(nonNil(entry.Symptoms))
	if err != nil {
		return 0, fmt.Errorf("encode symptoms: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO emergency_logs (
			user_session, symptoms, emergency_type, severity_level, ambulance_called, timestamp
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		sessionOrDefault(entry.SessionID),
		string(symptoms),
		entry.EmergencyType,
		entry.SeverityLevel,
		boolToInt(entry.AmbulanceCalled),
		s.now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert emergency log: %w", err)
	}
	return res.LastInsertId()
}

// EmergencyHistory returns the newest logs of a session first.
func (s *SQLiteStore) EmergencyHistory(ctx context.Context, sessionID string, limit int) ([]EmergencyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_session, symptoms, emergency_type, severity_level,
			location_lat, location_lng, ambulance_called, timestamp
		FROM emergency_logs
		WHERE user_session = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, sessionOrDefault(sessionID), ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query emergency logs: %w", err)
	}
	defer rows.Close()

	logs := []EmergencyLog{}
	for rows.Next() {
		var (
			l         EmergencyLog
			symptoms  string
			lat, lng  sql.NullFloat64
			ambulance int
		)
		if err := rows.Scan(&l.ID, &l.SessionID, &symptoms, &l.EmergencyType, &l.SeverityLevel,
			&lat, &lng, &ambulance, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan emergency log: %w", err)
		}
		if err := json.Unmarshal([]byte(symptoms), &l.Symptoms); err != nil {
			return nil, fmt.Errorf("decode symptoms of log %d: %w", l.ID, err)
		}
		l.LocationLat = nullFloat(lat)
		l.LocationLng = nullFloat(lng)
		l.AmbulanceCalled = ambulance != 0
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close waits for in-flight operations before closing the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
