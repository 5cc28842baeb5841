package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/opengrc/attest/internal/domain"
)

type GetKPIsOutput struct {
	Body *domain.KPISummary
}

func RegisterDashboardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard-kpis",
		Method:      http.MethodGet,
		Path:        "/dashboard/kpis",
		Summary:     "Get dashboard KPIs across all audits",
		Tags:        []string{"Dashboard"},
	}, func(ctx context.Context, _ *struct{}) (*GetKPIsOutput, error) {
		kpis, err := store.Dashboard().KPIs(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to compute KPIs", err)
		}

		return &GetKPIsOutput{Body: kpis}, nil
	})
}
