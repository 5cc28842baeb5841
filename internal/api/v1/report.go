package v1

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/opengrc/attest/internal/domain"
)

type GetReportInput struct {
	ID uuid.UUID `path:"id" doc:"Audit ID"`
}

type GetReportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

var reportHeader = []string{ //nolint:gochecknoglobals // fixed CSV layout
	"compliance_id",
	"description",
	"compliance_status",
	"evidence",
	"comments",
	"criticality",
	"severity_rating",
	"details_of_finding",
	"recommendation",
	"suggested_action_plan",
	"responsible_for_plan",
	"mitigation_date",
	"review_status",
	"review_comments",
	"accept_reject",
}

func RegisterReportRoutes(api huma.API, engine VersionEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-audit-report",
		Method:      http.MethodGet,
		Path:        "/audits/{id}/report.csv",
		Summary:     "Export an audit's current state as CSV",
		Tags:        []string{"Audits"},
	}, func(ctx context.Context, input *GetReportInput) (*GetReportOutput, error) {
		view, err := engine.GetTaskView(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit not found")
			}
			return nil, huma.Error500InternalServerError("failed to build report", err)
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(reportHeader); err != nil {
			return nil, huma.Error500InternalServerError("failed to write report", err)
		}
		for _, item := range view.Compliances {
			row := []string{
				item.ComplianceID,
				item.Description,
				item.ComplianceStatus,
				item.Evidence,
				item.Comments,
				item.Criticality,
				item.SeverityRating,
				item.DetailsOfFinding,
				item.Recommendation,
				item.SuggestedActionPlan,
				item.ResponsibleForPlan,
				item.MitigationDate,
				item.ReviewStatus,
				item.ReviewComments,
				item.AcceptReject,
			}
			if err := w.Write(row); err != nil {
				return nil, huma.Error500InternalServerError("failed to write report", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, huma.Error500InternalServerError("failed to write report", err)
		}

		return &GetReportOutput{
			ContentType:        "text/csv; charset=utf-8",
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", "audit-"+input.ID.String()+".csv"),
			Body:               buf.Bytes(),
		}, nil
	})
}
