package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opengrc/attest/internal/domain"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

const auditColumns = `id, title, scope, objective, business_unit, framework_id, policy_id,
	sub_policy_id, assignee_id, auditor_id, reviewer_id, status, audit_type,
	due_date, assigned_date, completion_date, created_at, updated_at`

func (r *AuditRepo) Create(ctx context.Context, a *domain.Audit) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audits (id, title, scope, objective, business_unit, framework_id, policy_id, sub_policy_id, assignee_id, auditor_id, reviewer_id, status, audit_type, due_date, assigned_date, completion_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		a.ID, a.Title, a.Scope, a.Objective, a.BusinessUnit, a.FrameworkID, a.PolicyID,
		a.SubPolicyID, a.AssigneeID, a.AuditorID, a.ReviewerID, a.Status, a.AuditType,
		a.DueDate, a.AssignedDate, a.CompletionDate, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.Create: %w", err)
	}

	return nil
}

func (r *AuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Audit, error) {
	var a domain.Audit

	err := r.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audits WHERE id = $1`,
		id,
	).Scan(scanAuditDest(&a)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("auditRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("auditRepo.GetByID: %w", err)
	}

	return &a, nil
}

func (r *AuditRepo) ListByAuditor(ctx context.Context, auditorID uuid.UUID) ([]*domain.Audit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audits WHERE auditor_id = $1
		 ORDER BY created_at DESC
		 LIMIT 500`,
		auditorID,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByAuditor: %w", err)
	}
	defer rows.Close()

	return scanAudits(rows, "auditRepo.ListByAuditor")
}

func (r *AuditRepo) ListByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]*domain.Audit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audits WHERE reviewer_id = $1
		 ORDER BY created_at DESC
		 LIMIT 500`,
		reviewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByReviewer: %w", err)
	}
	defer rows.Close()

	return scanAudits(rows, "auditRepo.ListByReviewer")
}

func (r *AuditRepo) List(ctx context.Context) ([]*domain.Audit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audits
		 ORDER BY created_at DESC
		 LIMIT 1000`,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.List: %w", err)
	}
	defer rows.Close()

	return scanAudits(rows, "auditRepo.List")
}

func (r *AuditRepo) Update(ctx context.Context, a *domain.Audit) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE audits SET title = $1, scope = $2, objective = $3, business_unit = $4,
		        policy_id = $5, sub_policy_id = $6, assignee_id = $7, auditor_id = $8,
		        reviewer_id = $9, status = $10, audit_type = $11, due_date = $12,
		        completion_date = $13, updated_at = now()
		 WHERE id = $14`,
		a.Title, a.Scope, a.Objective, a.BusinessUnit,
		a.PolicyID, a.SubPolicyID, a.AssigneeID, a.AuditorID,
		a.ReviewerID, a.Status, a.AuditType, a.DueDate,
		a.CompletionDate, a.ID,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("auditRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *AuditRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AuditStatus) error {
	completion := "completion_date"
	if status == domain.AuditStatusCompleted {
		completion = "now()"
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE audits SET status = $1, completion_date = `+completion+`, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("auditRepo.UpdateStatus: %w", domain.ErrNotFound)
	}

	return nil
}

func scanAuditDest(a *domain.Audit) []any {
	return []any{
		&a.ID, &a.Title, &a.Scope, &a.Objective, &a.BusinessUnit, &a.FrameworkID, &a.PolicyID,
		&a.SubPolicyID, &a.AssigneeID, &a.AuditorID, &a.ReviewerID, &a.Status, &a.AuditType,
		&a.DueDate, &a.AssignedDate, &a.CompletionDate, &a.CreatedAt, &a.UpdatedAt,
	}
}

func scanAudits(rows pgx.Rows, caller string) ([]*domain.Audit, error) {
	var audits []*domain.Audit
	for rows.Next() {
		var a domain.Audit
		if err := rows.Scan(scanAuditDest(&a)...); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		audits = append(audits, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return audits, nil
}
