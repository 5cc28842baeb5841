package domain

import "context"

// KPISummary aggregates the numbers the dashboard renders: audit counts by
// status, the compliant rate across all findings and open major findings.
type KPISummary struct {
	AuditsByStatus    map[AuditStatus]int `json:"audits_by_status"`
	TotalAudits       int                 `json:"total_audits"`
	CompletedAudits   int                 `json:"completed_audits"`
	TotalFindings     int                 `json:"total_findings"`
	CompliantFindings int                 `json:"compliant_findings"`
	CompliantRate     float64             `json:"compliant_rate"`
	OpenMajorFindings int                 `json:"open_major_findings"`
}

type DashboardRepository interface {
	KPIs(ctx context.Context) (*KPISummary, error)
}
