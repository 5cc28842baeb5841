package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opengrc/attest/internal/domain"
)

type VersionRepo struct {
	pool *pgxpool.Pool
}

func NewVersionRepo(pool *pgxpool.Pool) *VersionRepo {
	return &VersionRepo{pool: pool}
}

const versionColumns = `id, audit_id, label, payload, author_id, active, created_at`

// uniqueViolation is the Postgres error code raised by the unique index on
// (audit_id, label). Two writers allocating the same label race here; the
// loser gets domain.ErrConflict and re-allocates.
const uniqueViolation = "23505"

func (r *VersionRepo) Create(ctx context.Context, v *domain.AuditVersion) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_versions (id, audit_id, label, payload, author_id, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.AuditID, v.Label, v.Payload, v.AuthorID, v.Active, v.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("versionRepo.Create: label %s: %w", v.Label, domain.ErrConflict)
		}
		return fmt.Errorf("versionRepo.Create: %w", err)
	}

	return nil
}

func (r *VersionRepo) Latest(ctx context.Context, auditID uuid.UUID) (*domain.AuditVersion, error) {
	var v domain.AuditVersion

	err := r.pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM audit_versions
		 WHERE audit_id = $1 AND active
		 ORDER BY created_at DESC, substring(label FROM '[0-9]+$')::int DESC NULLS LAST
		 LIMIT 1`,
		auditID,
	).Scan(&v.ID, &v.AuditID, &v.Label, &v.Payload, &v.AuthorID, &v.Active, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("versionRepo.Latest: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("versionRepo.Latest: %w", err)
	}

	return &v, nil
}

func (r *VersionRepo) LatestByPrefix(ctx context.Context, auditID uuid.UUID, prefix string) (*domain.AuditVersion, error) {
	var v domain.AuditVersion

	err := r.pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM audit_versions
		 WHERE audit_id = $1 AND active AND substring(label FROM 1 FOR 1) = $2
		 ORDER BY substring(label FROM '[0-9]+$')::int DESC NULLS LAST, created_at DESC
		 LIMIT 1`,
		auditID, prefix,
	).Scan(&v.ID, &v.AuditID, &v.Label, &v.Payload, &v.AuthorID, &v.Active, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("versionRepo.LatestByPrefix: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("versionRepo.LatestByPrefix: %w", err)
	}

	return &v, nil
}

func (r *VersionRepo) ListLabels(ctx context.Context, auditID uuid.UUID, prefix string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT label FROM audit_versions
		 WHERE audit_id = $1 AND substring(label FROM 1 FOR 1) = $2`,
		auditID, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("versionRepo.ListLabels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("versionRepo.ListLabels: scan: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("versionRepo.ListLabels: rows: %w", err)
	}

	return labels, nil
}

func (r *VersionRepo) ListByAudit(ctx context.Context, auditID uuid.UUID, includeInactive bool) ([]*domain.AuditVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM audit_versions
	 WHERE audit_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC, substring(label FROM '[0-9]+$')::int DESC NULLS LAST`

	rows, err := r.pool.Query(ctx, query, auditID)
	if err != nil {
		return nil, fmt.Errorf("versionRepo.ListByAudit: %w", err)
	}
	defer rows.Close()

	var versions []*domain.AuditVersion
	for rows.Next() {
		var v domain.AuditVersion
		if err := rows.Scan(&v.ID, &v.AuditID, &v.Label, &v.Payload, &v.AuthorID, &v.Active, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("versionRepo.ListByAudit: scan: %w", err)
		}
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("versionRepo.ListByAudit: rows: %w", err)
	}

	return versions, nil
}

func (r *VersionRepo) Deactivate(ctx context.Context, auditID uuid.UUID, label string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE audit_versions SET active = false WHERE audit_id = $1 AND label = $2`,
		auditID, label,
	)
	if err != nil {
		return fmt.Errorf("versionRepo.Deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("versionRepo.Deactivate: %w", domain.ErrNotFound)
	}

	return nil
}
