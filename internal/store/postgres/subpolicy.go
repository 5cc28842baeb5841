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

type SubPolicyRepo struct {
	pool *pgxpool.Pool
}

func NewSubPolicyRepo(pool *pgxpool.Pool) *SubPolicyRepo {
	return &SubPolicyRepo{pool: pool}
}

func (r *SubPolicyRepo) Create(ctx context.Context, sp *domain.SubPolicy) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sub_policies (id, policy_id, name, control, description, permanent, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sp.ID, sp.PolicyID, sp.Name, sp.Control, sp.Description, sp.Permanent,
		sp.CreatedAt, sp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("subPolicyRepo.Create: %w", err)
	}

	return nil
}

func (r *SubPolicyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SubPolicy, error) {
	var sp domain.SubPolicy

	err := r.pool.QueryRow(ctx,
		`SELECT id, policy_id, name, control, description, permanent, created_at, updated_at
		 FROM sub_policies WHERE id = $1`,
		id,
	).Scan(
		&sp.ID, &sp.PolicyID, &sp.Name, &sp.Control, &sp.Description, &sp.Permanent,
		&sp.CreatedAt, &sp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subPolicyRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("subPolicyRepo.GetByID: %w", err)
	}

	return &sp, nil
}

func (r *SubPolicyRepo) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*domain.SubPolicy, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, policy_id, name, control, description, permanent, created_at, updated_at
		 FROM sub_policies WHERE policy_id = $1
		 ORDER BY name
		 LIMIT 1000`,
		policyID,
	)
	if err != nil {
		return nil, fmt.Errorf("subPolicyRepo.ListByPolicy: %w", err)
	}
	defer rows.Close()

	var subPolicies []*domain.SubPolicy
	for rows.Next() {
		var sp domain.SubPolicy
		if err := rows.Scan(
			&sp.ID, &sp.PolicyID, &sp.Name, &sp.Control, &sp.Description, &sp.Permanent,
			&sp.CreatedAt, &sp.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("subPolicyRepo.ListByPolicy: scan: %w", err)
		}
		subPolicies = append(subPolicies, &sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subPolicyRepo.ListByPolicy: rows: %w", err)
	}

	return subPolicies, nil
}

func (r *SubPolicyRepo) Update(ctx context.Context, sp *domain.SubPolicy) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sub_policies SET name = $1, control = $2, description = $3, permanent = $4, updated_at = now()
		 WHERE id = $5`,
		sp.Name, sp.Control, sp.Description, sp.Permanent, sp.ID,
	)
	if err != nil {
		return fmt.Errorf("subPolicyRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subPolicyRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}
