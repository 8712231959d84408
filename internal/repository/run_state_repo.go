package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"degradation_monitor/internal/models"
)

type RunStateSQLite struct {
	db *sql.DB
}

func NewRunStateSQLite(db *sql.DB) *RunStateSQLite {
	return &RunStateSQLite{db: db}
}

const (
	runStateRowID = 1

	upsertRunStateSQL = `
		INSERT INTO analysis_run_state (id, schedule, last_run_at, processed, errors, running, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schedule=excluded.schedule,
			last_run_at=excluded.last_run_at,
			processed=excluded.processed,
			errors=excluded.errors,
			running=excluded.running,
			updated_at=excluded.updated_at
	`

	selectRunStateSQL = `
		SELECT id, schedule, last_run_at, processed, errors, running, updated_at
		FROM analysis_run_state WHERE id=?
	`
)

func marshalRunErrors(msgs []string) (string, error) {
	if msgs == nil {
		msgs = []string{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalRunErrors(s string) ([]string, error) {
	msgs := []string{}
	if s == "" {
		return msgs, nil
	}
	if err := json.Unmarshal([]byte(s), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Save upserts the single analysis_run_state row. Times are stored in UTC;
// a zero UpdatedAt is set to now.
func (r *RunStateSQLite) Save(ctx context.Context, s models.AnalysisRunState) error {
	errsJSON, err := marshalRunErrors(s.Errors)
	if err != nil {
		return err
	}

	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	} else {
		updated = updated.UTC()
	}

	var lastRun any
	if !s.LastRunAt.IsZero() {
		lastRun = s.LastRunAt.UTC()
	}

	_, err = r.db.ExecContext(ctx, upsertRunStateSQL,
		runStateRowID,
		s.Schedule,
		lastRun,
		s.ProcessedCategories,
		errsJSON,
		s.Running,
		updated,
	)
	return err
}

// Load returns the stored state, or the zero value when nothing was saved yet.
func (r *RunStateSQLite) Load(ctx context.Context) (models.AnalysisRunState, error) {
	row := r.db.QueryRowContext(ctx, selectRunStateSQL, runStateRowID)

	var (
		s        models.AnalysisRunState
		lastRun  sql.NullTime
		errsJSON string
	)
	if err := row.Scan(
		&s.ID,
		&s.Schedule,
		&lastRun,
		&s.ProcessedCategories,
		&errsJSON,
		&s.Running,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AnalysisRunState{Errors: []string{}}, nil
		}
		return models.AnalysisRunState{}, err
	}

	msgs, err := unmarshalRunErrors(errsJSON)
	if err != nil {
		return models.AnalysisRunState{}, err
	}
	s.Errors = msgs
	if lastRun.Valid {
		s.LastRunAt = lastRun.Time.UTC()
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
