package v1_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/opengrc/attest/internal/api/v1"
	"github.com/opengrc/attest/internal/domain"
	"github.com/opengrc/attest/internal/snapshot"
)

func TestGetAuditReport(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		auditID := uuid.New()
		itemID := uuid.New().String()

		engine := &mockVersionEngine{
			getTaskViewFunc: func(_ context.Context, id uuid.UUID) (*snapshot.TaskView, error) {
				require.Equal(t, auditID, id)
				return &snapshot.TaskView{
					AuditID: auditID,
					Compliances: []snapshot.TaskViewItem{
						{
							ComplianceID: itemID,
							ItemRecord: domain.ItemRecord{
								Description:      "Quarterly access recertification",
								ComplianceStatus: domain.CheckCompliant,
								Evidence:         "u1,u2",
								ReviewStatus:     "verified",
								AcceptReject:     "1",
							},
						},
					},
				}, nil
			},
		}

		v1.RegisterReportRoutes(api, engine)

		resp := api.GetCtx(userCtx(uuid.New()), "/audits/"+auditID.String()+"/report.csv")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")

		rows, err := csv.NewReader(strings.NewReader(resp.Body.String())).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "compliance_id", rows[0][0])
		assert.Equal(t, itemID, rows[1][0])
		assert.Equal(t, "Quarterly access recertification", rows[1][1])
		assert.Equal(t, "1", rows[1][2])
	})

	t.Run("audit_not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockVersionEngine{
			getTaskViewFunc: func(_ context.Context, _ uuid.UUID) (*snapshot.TaskView, error) {
				return nil, domain.ErrNotFound
			},
		}

		v1.RegisterReportRoutes(api, engine)

		resp := api.GetCtx(userCtx(uuid.New()), "/audits/"+uuid.New().String()+"/report.csv")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
