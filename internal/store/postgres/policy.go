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

type PolicyRepo struct {
	pool *pgxpool.Pool
}

func NewPolicyRepo(pool *pgxpool.Pool) *PolicyRepo {
	return &PolicyRepo{pool: pool}
}

func (r *PolicyRepo) Create(ctx context.Context, p *domain.Policy) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO policies (id, framework_id, name, department, scope, objective, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.FrameworkID, p.Name, p.Department, p.Scope, p.Objective, p.Active,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("policyRepo.Create: %w", err)
	}

	return nil
}

func (r *PolicyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Policy, error) {
	var p domain.Policy

	err := r.pool.QueryRow(ctx,
		`SELECT id, framework_id, name, department, scope, objective, active, created_at, updated_at
		 FROM policies WHERE id = $1`,
		id,
	).Scan(
		&p.ID, &p.FrameworkID, &p.Name, &p.Department, &p.Scope, &p.Objective, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("policyRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("policyRepo.GetByID: %w", err)
	}

	return &p, nil
}

func (r *PolicyRepo) ListByFramework(ctx context.Context, frameworkID uuid.UUID) ([]*domain.Policy, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, framework_id, name, department, scope, objective, active, created_at, updated_at
		 FROM policies WHERE framework_id = $1
		 ORDER BY name
		 LIMIT 1000`,
		frameworkID,
	)
	if err != nil {
		return nil, fmt.Errorf("policyRepo.ListByFramework: %w", err)
	}
	defer rows.Close()

	var policies []*domain.Policy
	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(
			&p.ID, &p.FrameworkID, &p.Name, &p.Department, &p.Scope, &p.Objective, &p.Active,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("policyRepo.ListByFramework: scan: %w", err)
		}
		policies = append(policies, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("policyRepo.ListByFramework: rows: %w", err)
	}

	return policies, nil
}

func (r *PolicyRepo) Update(ctx context.Context, p *domain.Policy) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE policies SET name = $1, department = $2, scope = $3, objective = $4,
		        active = $5, updated_at = now()
		 WHERE id = $6`,
		p.Name, p.Department, p.Scope, p.Objective, p.Active, p.ID,
	)
	if err != nil {
		return fmt.Errorf("policyRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("policyRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}
