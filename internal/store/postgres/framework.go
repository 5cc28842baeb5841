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

type FrameworkRepo struct {
	pool *pgxpool.Pool
}

func NewFrameworkRepo(pool *pgxpool.Pool) *FrameworkRepo {
	return &FrameworkRepo{pool: pool}
}

func (r *FrameworkRepo) Create(ctx context.Context, f *domain.Framework) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO frameworks (id, name, category, description, effective_date, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.Name, f.Category, f.Description, f.EffectiveDate, f.Active,
		f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("frameworkRepo.Create: %w", err)
	}

	return nil
}

func (r *FrameworkRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Framework, error) {
	var f domain.Framework

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, category, description, effective_date, active, created_at, updated_at
		 FROM frameworks WHERE id = $1`,
		id,
	).Scan(
		&f.ID, &f.Name, &f.Category, &f.Description, &f.EffectiveDate, &f.Active,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("frameworkRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("frameworkRepo.GetByID: %w", err)
	}

	return &f, nil
}

func (r *FrameworkRepo) List(ctx context.Context, activeOnly bool) ([]*domain.Framework, error) {
	query := `SELECT id, name, category, description, effective_date, active, created_at, updated_at
	          FROM frameworks ORDER BY name LIMIT 1000`
	if activeOnly {
		query = `SELECT id, name, category, description, effective_date, active, created_at, updated_at
		         FROM frameworks WHERE active ORDER BY name LIMIT 1000`
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("frameworkRepo.List: %w", err)
	}
	defer rows.Close()

	var frameworks []*domain.Framework
	for rows.Next() {
		var f domain.Framework
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Category, &f.Description, &f.EffectiveDate, &f.Active,
			&f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("frameworkRepo.List: scan: %w", err)
		}
		frameworks = append(frameworks, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("frameworkRepo.List: rows: %w", err)
	}

	return frameworks, nil
}

func (r *FrameworkRepo) Update(ctx context.Context, f *domain.Framework) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE frameworks SET name = $1, category = $2, description = $3, effective_date = $4,
		        active = $5, updated_at = now()
		 WHERE id = $6`,
		f.Name, f.Category, f.Description, f.EffectiveDate, f.Active, f.ID,
	)
	if err != nil {
		return fmt.Errorf("frameworkRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("frameworkRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *FrameworkRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE frameworks SET active = $1, updated_at = now() WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("frameworkRepo.SetActive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("frameworkRepo.SetActive: %w", domain.ErrNotFound)
	}

	return nil
}
