package repository

import (
	"context"
	"database/sql"
	"time"

	"degradation_monitor/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	ByUsername(ctx context.Context, username string) (models.Operator, error)
	ByID(ctx context.Context, id int) (models.Operator, error)
	RecordSignIn(ctx context.Context, id int, at time.Time) error
}

type RunStateRepo interface {
	Save(ctx context.Context, s models.AnalysisRunState) error
	Load(ctx context.Context) (models.AnalysisRunState, error)
}

type AuditRepo interface {
	Append(ctx context.Context, e models.AuditEvent) error
	List(ctx context.Context, f AuditFilter) ([]models.AuditEvent, error)
}

type Repository struct {
	RunState RunStateRepo
	Audit    AuditRepo
	Auth     Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		RunState: NewRunStateSQLite(db),
		Audit:    NewAuditSQLite(db),
		Auth:     NewOperatorRepository(db),
	}
}
