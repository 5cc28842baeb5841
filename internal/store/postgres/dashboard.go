package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opengrc/attest/internal/domain"
)

type DashboardRepo struct {
	pool *pgxpool.Pool
}

func NewDashboardRepo(pool *pgxpool.Pool) *DashboardRepo {
	return &DashboardRepo{pool: pool}
}

func (r *DashboardRepo) KPIs(ctx context.Context) (*domain.KPISummary, error) {
	summary := &domain.KPISummary{
		AuditsByStatus: make(map[domain.AuditStatus]int),
	}

	rows, err := r.pool.Query(ctx,
		`SELECT status, count(*) FROM audits GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboardRepo.KPIs: status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.AuditStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("dashboardRepo.KPIs: scan status: %w", err)
		}
		summary.AuditsByStatus[status] = count
		summary.TotalAudits += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboardRepo.KPIs: status rows: %w", err)
	}
	summary.CompletedAudits = summary.AuditsByStatus[domain.AuditStatusCompleted]

	err = r.pool.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE "check" = $1),
		        count(*) FILTER (WHERE "check" = $2 AND major_minor = '1' AND accept_reject <> '1')
		 FROM findings`,
		domain.CheckCompliant, domain.CheckNonCompliant,
	).Scan(&summary.TotalFindings, &summary.CompliantFindings, &summary.OpenMajorFindings)
	if err != nil {
		return nil, fmt.Errorf("dashboardRepo.KPIs: finding counts: %w", err)
	}

	if summary.TotalFindings > 0 {
		summary.CompliantRate = float64(summary.CompliantFindings) / float64(summary.TotalFindings)
	}

	return summary, nil
}
