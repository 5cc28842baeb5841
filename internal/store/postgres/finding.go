package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opengrc/attest/internal/domain"
)

type FindingRepo struct {
	pool *pgxpool.Pool
}

func NewFindingRepo(pool *pgxpool.Pool) *FindingRepo {
	return &FindingRepo{pool: pool}
}

const findingColumns = `id, audit_id, compliance_id, "check", evidence, comments, how_to_verify,
	impact, recommendation, details_of_finding, major_minor, severity_rating,
	underlying_cause, suggested_action_plan, responsible_for_plan, mitigation_date,
	re_audit, re_audit_date, selected_risks, selected_mitigations,
	review_status, review_comments, accept_reject, assigned_date, review_date, updated_at`

func (r *FindingRepo) Create(ctx context.Context, f *domain.Finding) error {
	risks, mitigations, err := marshalFindingJSON(f)
	if err != nil {
		return fmt.Errorf("findingRepo.Create: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO findings (id, audit_id, compliance_id, "check", evidence, comments, how_to_verify, impact, recommendation, details_of_finding, major_minor, severity_rating, underlying_cause, suggested_action_plan, responsible_for_plan, mitigation_date, re_audit, re_audit_date, selected_risks, selected_mitigations, review_status, review_comments, accept_reject, assigned_date, review_date, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		f.ID, f.AuditID, f.ComplianceID, f.Check, f.Evidence, f.Comments, f.HowToVerify,
		f.Impact, f.Recommendation, f.DetailsOfFinding, f.MajorMinor, f.SeverityRating,
		f.UnderlyingCause, f.SuggestedActionPlan, f.ResponsibleForPlan, f.MitigationDate,
		f.ReAudit, f.ReAuditDate, risks, mitigations,
		f.ReviewStatus, f.ReviewComments, f.AcceptReject, f.AssignedDate, f.ReviewDate, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("findingRepo.Create: %w", err)
	}

	return nil
}

func (r *FindingRepo) GetByAuditAndCompliance(ctx context.Context, auditID, complianceID uuid.UUID) (*domain.Finding, error) {
	var f domain.Finding
	var risks, mitigations []byte

	err := r.pool.QueryRow(ctx,
		`SELECT `+findingColumns+` FROM findings WHERE audit_id = $1 AND compliance_id = $2`,
		auditID, complianceID,
	).Scan(scanFindingDest(&f, &risks, &mitigations)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("findingRepo.GetByAuditAndCompliance: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("findingRepo.GetByAuditAndCompliance: %w", err)
	}

	if err := unmarshalFindingJSON(&f, risks, mitigations); err != nil {
		return nil, fmt.Errorf("findingRepo.GetByAuditAndCompliance: %w", err)
	}

	return &f, nil
}

func (r *FindingRepo) ListByAudit(ctx context.Context, auditID uuid.UUID) ([]*domain.Finding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+findingColumns+` FROM findings WHERE audit_id = $1
		 ORDER BY assigned_date, compliance_id`,
		auditID,
	)
	if err != nil {
		return nil, fmt.Errorf("findingRepo.ListByAudit: %w", err)
	}
	defer rows.Close()

	var findings []*domain.Finding
	for rows.Next() {
		var f domain.Finding
		var risks, mitigations []byte

		if err := rows.Scan(scanFindingDest(&f, &risks, &mitigations)...); err != nil {
			return nil, fmt.Errorf("findingRepo.ListByAudit: scan: %w", err)
		}
		if err := unmarshalFindingJSON(&f, risks, mitigations); err != nil {
			return nil, fmt.Errorf("findingRepo.ListByAudit: %w", err)
		}
		findings = append(findings, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("findingRepo.ListByAudit: rows: %w", err)
	}

	return findings, nil
}

func (r *FindingRepo) Update(ctx context.Context, f *domain.Finding) error {
	risks, mitigations, err := marshalFindingJSON(f)
	if err != nil {
		return fmt.Errorf("findingRepo.Update: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE findings SET "check" = $1, evidence = $2, comments = $3, how_to_verify = $4,
		        impact = $5, recommendation = $6, details_of_finding = $7, major_minor = $8,
		        severity_rating = $9, underlying_cause = $10, suggested_action_plan = $11,
		        responsible_for_plan = $12, mitigation_date = $13, re_audit = $14,
		        re_audit_date = $15, selected_risks = $16, selected_mitigations = $17,
		        updated_at = now()
		 WHERE audit_id = $18 AND compliance_id = $19`,
		f.Check, f.Evidence, f.Comments, f.HowToVerify,
		f.Impact, f.Recommendation, f.DetailsOfFinding, f.MajorMinor,
		f.SeverityRating, f.UnderlyingCause, f.SuggestedActionPlan,
		f.ResponsibleForPlan, f.MitigationDate, f.ReAudit,
		f.ReAuditDate, risks, mitigations,
		f.AuditID, f.ComplianceID,
	)
	if err != nil {
		return fmt.Errorf("findingRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("findingRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *FindingRepo) UpdateReview(ctx context.Context, auditID, complianceID uuid.UUID, reviewStatus, reviewComments, acceptReject string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE findings SET review_status = $1, review_comments = $2, accept_reject = $3,
		        review_date = now(), updated_at = now()
		 WHERE audit_id = $4 AND compliance_id = $5`,
		reviewStatus, reviewComments, acceptReject, auditID, complianceID,
	)
	if err != nil {
		return fmt.Errorf("findingRepo.UpdateReview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("findingRepo.UpdateReview: %w", domain.ErrNotFound)
	}

	return nil
}

func scanFindingDest(f *domain.Finding, risks, mitigations *[]byte) []any {
	return []any{
		&f.ID, &f.AuditID, &f.ComplianceID, &f.Check, &f.Evidence, &f.Comments, &f.HowToVerify,
		&f.Impact, &f.Recommendation, &f.DetailsOfFinding, &f.MajorMinor, &f.SeverityRating,
		&f.UnderlyingCause, &f.SuggestedActionPlan, &f.ResponsibleForPlan, &f.MitigationDate,
		&f.ReAudit, &f.ReAuditDate, risks, mitigations,
		&f.ReviewStatus, &f.ReviewComments, &f.AcceptReject, &f.AssignedDate, &f.ReviewDate, &f.UpdatedAt,
	}
}

func marshalFindingJSON(f *domain.Finding) (risks, mitigations []byte, err error) {
	risks, err = json.Marshal(f.SelectedRisks)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal selected risks: %w", err)
	}

	mitigations, err = json.Marshal(f.SelectedMitigations)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal selected mitigations: %w", err)
	}

	return risks, mitigations, nil
}

func unmarshalFindingJSON(f *domain.Finding, risks, mitigations []byte) error {
	if err := json.Unmarshal(risks, &f.SelectedRisks); err != nil {
		return fmt.Errorf("unmarshal selected risks: %w", err)
	}
	if err := json.Unmarshal(mitigations, &f.SelectedMitigations); err != nil {
		return fmt.Errorf("unmarshal selected mitigations: %w", err)
	}

	return nil
}
