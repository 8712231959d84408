package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"degradation_monitor/internal/models"
)

var (
	ErrOperatorNotFound = errors.New("operator not found")
	ErrOperatorExists   = errors.New("operator already exists")
)

// OperatorRepository stores console accounts in the operators table.
type OperatorRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db, now: time.Now}
}

var _ Authorization = (*OperatorRepository)(nil)

const (
	insertOperatorSQL           = `INSERT INTO operators (username, password_hash, created_at) VALUES (?, ?, ?)`
	selectOperatorColumns       = `SELECT id, username, password_hash, created_at, last_sign_in_at FROM operators`
	selectOperatorByUsernameSQL = selectOperatorColumns + ` WHERE username = ?`
	selectOperatorByIDSQL       = selectOperatorColumns + ` WHERE id = ?`
	updateOperatorSignInSQL     = `UPDATE operators SET last_sign_in_at = ? WHERE id = ?`

	operatorTimeLayout = "2006-01-02 15:04:05"
)

// Create inserts a new operator and returns its ID. A taken username yields
// ErrOperatorExists.
func (r *OperatorRepository) Create(ctx context.Context, username, passwordHash string) (int, error) {
	created := r.now().UTC().Format(operatorTimeLayout)
	res, err := r.db.ExecContext(ctx, insertOperatorSQL, username, passwordHash, created)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert operator %q: %w", username, ErrOperatorExists)
		}
		return 0, fmt.Errorf("insert operator %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for operator %q: %w", username, err)
	}
	return int(id), nil
}

// ByUsername looks an operator up for sign-in.
func (r *OperatorRepository) ByUsername(ctx context.Context, username string) (models.Operator, error) {
	op, err := r.scanOne(r.db.QueryRowContext(ctx, selectOperatorByUsernameSQL, username))
	if err != nil {
		return models.Operator{}, fmt.Errorf("select operator %q: %w", username, err)
	}
	return op, nil
}

// ByID looks up the operator a token was issued to.
func (r *OperatorRepository) ByID(ctx context.Context, id int) (models.Operator, error) {
	op, err := r.scanOne(r.db.QueryRowContext(ctx, selectOperatorByIDSQL, id))
	if err != nil {
		return models.Operator{}, fmt.Errorf("select operator %d: %w", id, err)
	}
	return op, nil
}

// RecordSignIn stamps the operator's last successful sign-in.
func (r *OperatorRepository) RecordSignIn(ctx context.Context, id int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, updateOperatorSignInSQL, at.UTC().Format(operatorTimeLayout), id)
	if err != nil {
		return fmt.Errorf("record sign-in of operator %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record sign-in of operator %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("record sign-in of operator %d: %w", id, ErrOperatorNotFound)
	}
	return nil
}

func (r *OperatorRepository) scanOne(row *sql.Row) (models.Operator, error) {
	var (
		op       models.Operator
		lastSeen sql.NullTime
	)
	if err := row.Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Operator{}, ErrOperatorNotFound
		}
		return models.Operator{}, err
	}
	op.CreatedAt = op.CreatedAt.UTC()
	if lastSeen.Valid {
		t := lastSeen.Time.UTC()
		op.LastSignInAt = &t
	}
	return op, nil
}

// isUniqueViolation matches the SQLite constraint message; the driver's
// typed error is not part of database/sql.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
