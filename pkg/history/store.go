package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

type Outcome string

const (
	OutcomeAnswered         Outcome = "answered"
	OutcomeExhausted        Outcome = "exhausted"
	OutcomeEmptyAnswer      Outcome = "empty_answer"
	OutcomeModelUnavailable Outcome = "model_unavailable"
	OutcomeTranscription    Outcome = "transcription_failed"
)

// Record is one handled request.
type Record struct {
	ID         int64     `json:"id" yaml:"id"`
	RequestID  string    `json:"request_id" yaml:"request_id"`
	Language   string    `json:"language" yaml:"language"`
	UserText   string    `json:"user_text" yaml:"user_text"`
	AgentText  string    `json:"agent_text" yaml:"agent_text"`
	Iterations int       `json:"iterations" yaml:"iterations"`
	Outcome    Outcome   `json:"outcome" yaml:"outcome"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Store is the sqlite backed interaction log.
type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	language TEXT NOT NULL,
	user_text TEXT NOT NULL,
	agent_text TEXT NOT NULL,
	iterations INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS interactions_created_at ON interactions (created_at);`

func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create history directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save appends r. A zero CreatedAt is set to now.
func (s *Store) Save(ctx context.Context, r Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (request_id, language, user_text, agent_text, iterations, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.Language, r.UserText, r.AgentText, r.Iterations, string(r.Outcome), r.CreatedAt.UnixMilli(),
	)
	return errors.Wrap(err, "insert interaction")
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, language, user_text, agent_text, iterations, outcome, created_at
		 FROM interactions
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query interactions")
	}
	defer rows.Close()

	ret := make([]Record, 0)
	for rows.Next() {
		var r Record
		var outcome string
		var created int64
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Language, &r.UserText, &r.AgentText, &r.Iterations, &outcome, &created); err != nil {
			return nil, errors.Wrap(err, "scan interaction")
		}
		r.Outcome = Outcome(outcome)
		r.CreatedAt = time.UnixMilli(created)
		ret = append(ret, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
