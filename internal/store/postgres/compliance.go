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

type ComplianceRepo struct {
	pool *pgxpool.Pool
}

func NewComplianceRepo(pool *pgxpool.Pool) *ComplianceRepo {
	return &ComplianceRepo{pool: pool}
}

const complianceColumns = `id, sub_policy_id, description, criticality, is_risk,
	possible_damage, mitigation_steps, active, created_at, updated_at`

func (r *ComplianceRepo) Create(ctx context.Context, c *domain.Compliance) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO compliances (id, sub_policy_id, description, criticality, is_risk, possible_damage, mitigation_steps, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.SubPolicyID, c.Description, c.Criticality, c.IsRisk,
		c.PossibleDamage, c.MitigationSteps, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("complianceRepo.Create: %w", err)
	}

	return nil
}

func (r *ComplianceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Compliance, error) {
	var c domain.Compliance

	err := r.pool.QueryRow(ctx,
		`SELECT `+complianceColumns+` FROM compliances WHERE id = $1`,
		id,
	).Scan(
		&c.ID, &c.SubPolicyID, &c.Description, &c.Criticality, &c.IsRisk,
		&c.PossibleDamage, &c.MitigationSteps, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("complianceRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("complianceRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *ComplianceRepo) ListBySubPolicy(ctx context.Context, subPolicyID uuid.UUID) ([]*domain.Compliance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+complianceColumns+` FROM compliances WHERE sub_policy_id = $1
		 ORDER BY created_at
		 LIMIT 1000`,
		subPolicyID,
	)
	if err != nil {
		return nil, fmt.Errorf("complianceRepo.ListBySubPolicy: %w", err)
	}
	defer rows.Close()

	return scanCompliances(rows, "complianceRepo.ListBySubPolicy")
}

func (r *ComplianceRepo) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*domain.Compliance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.sub_policy_id, c.description, c.criticality, c.is_risk,
		        c.possible_damage, c.mitigation_steps, c.active, c.created_at, c.updated_at
		 FROM compliances c
		 JOIN sub_policies sp ON sp.id = c.sub_policy_id
		 WHERE sp.policy_id = $1
		 ORDER BY c.created_at
		 LIMIT 5000`,
		policyID,
	)
	if err != nil {
		return nil, fmt.Errorf("complianceRepo.ListByPolicy: %w", err)
	}
	defer rows.Close()

	return scanCompliances(rows, "complianceRepo.ListByPolicy")
}

func (r *ComplianceRepo) ListByFramework(ctx context.Context, frameworkID uuid.UUID) ([]*domain.Compliance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.sub_policy_id, c.description, c.criticality, c.is_risk,
		        c.possible_damage, c.mitigation_steps, c.active, c.created_at, c.updated_at
		 FROM compliances c
		 JOIN sub_policies sp ON sp.id = c.sub_policy_id
		 JOIN policies p ON p.id = sp.policy_id
		 WHERE p.framework_id = $1
		 ORDER BY c.created_at
		 LIMIT 5000`,
		frameworkID,
	)
	if err != nil {
		return nil, fmt.Errorf("complianceRepo.ListByFramework: %w", err)
	}
	defer rows.Close()

	return scanCompliances(rows, "complianceRepo.ListByFramework")
}

func (r *ComplianceRepo) Update(ctx context.Context, c *domain.Compliance) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE compliances SET description = $1, criticality = $2, is_risk = $3,
		        possible_damage = $4, mitigation_steps = $5, active = $6, updated_at = now()
		 WHERE id = $7`,
		c.Description, c.Criticality, c.IsRisk, c.PossibleDamage, c.MitigationSteps, c.Active, c.ID,
	)
	if err != nil {
		return fmt.Errorf("complianceRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complianceRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func scanCompliances(rows pgx.Rows, caller string) ([]*domain.Compliance, error) {
	var compliances []*domain.Compliance
	for rows.Next() {
		var c domain.Compliance
		if err := rows.Scan(
			&c.ID, &c.SubPolicyID, &c.Description, &c.Criticality, &c.IsRisk,
			&c.PossibleDamage, &c.MitigationSteps, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		compliances = append(compliances, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return compliances, nil
}
