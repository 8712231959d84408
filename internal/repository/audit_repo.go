package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"degradation_monitor/internal/models"
)

// AuditFilter narrows List. Zero fields do not filter.
type AuditFilter struct {
	From       time.Time
	To         time.Time
	Type       string
	CategoryID models.CategoryID
	OperatorID int
	Limit      int
}

type AuditSQLite struct {
	db *sql.DB
}

func NewAuditSQLite(db *sql.DB) *AuditSQLite { return &AuditSQLite{db: db} }

const (
	insertAuditSQL = `
		INSERT INTO audit_events (id, occurred_at, type, category_id, operator_id, operator, message, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	selectAuditSQL = `SELECT id, occurred_at, type, category_id, operator_id, operator, message, meta FROM audit_events`
)

// Append inserts a new audit event. EventID and OccurredAt are set when empty.
func (r *AuditSQLite) Append(ctx context.Context, e models.AuditEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	var category, operatorID, operator any
	if e.CategoryID != models.NoCategory {
		category = int64(e.CategoryID)
	}
	if e.OperatorID != 0 {
		operatorID, operator = int64(e.OperatorID), e.Operator
	}

	_, err := r.db.ExecContext(ctx, insertAuditSQL,
		e.EventID,
		e.OccurredAt.Format("2006-01-02 15:04:05"),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		category,
		operatorID,
		operator,
		e.Description,
		metaPtr,
	)
	return err
}

// List returns events filtered by [From, To] (inclusive), type, category and operator,
// newest first.
func (r *AuditSQLite) List(ctx context.Context, f AuditFilter) ([]models.AuditEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC().Format("2006-01-02 15:04:05"))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.To.UTC().Format("2006-01-02 15:04:05"))
	}
	if typ := strings.ToUpper(strings.TrimSpace(f.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if f.CategoryID != models.NoCategory {
		conds = append(conds, "category_id = ?")
		args = append(args, int64(f.CategoryID))
	}
	if f.OperatorID != 0 {
		conds = append(conds, "operator_id = ?")
		args = append(args, int64(f.OperatorID))
	}

	q := selectAuditSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.AuditEvent, 0, 64)
	for rows.Next() {
		var (
			ev       models.AuditEvent
			category   sql.NullInt64
			operatorID sql.NullInt64
			operator   sql.NullString
			metaStr    sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &category, &operatorID, &operator, &ev.Description, &metaStr); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		if category.Valid {
			ev.CategoryID = models.CategoryID(category.Int64)
		}
		if operatorID.Valid {
			ev.OperatorID = int(operatorID.Int64)
			ev.Operator = operator.String
		}

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
