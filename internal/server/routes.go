package server

import (
	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/opengrc/attest/internal/api/v1"
	"github.com/opengrc/attest/internal/auth"
	"github.com/opengrc/attest/internal/extract"
	"github.com/opengrc/attest/internal/notify"
	"github.com/opengrc/attest/internal/snapshot"
	"github.com/opengrc/attest/internal/store/postgres"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

// registerAdminRoutes holds operations restricted to the admin role by the
// surrounding router group.
func registerAdminRoutes(api huma.API, store *postgres.Store) {
	v1.RegisterUserRoutes(api, store)
}

func registerAPIRoutes(api huma.API, store *postgres.Store, engine *snapshot.Service, extractor *extract.Service, notifier *notify.Notifier) {
	v1.RegisterFrameworkRoutes(api, store)
	v1.RegisterPolicyRoutes(api, store)
	v1.RegisterComplianceRoutes(api, store)
	v1.RegisterAuditRoutes(api, store, engine, notifier)
	v1.RegisterVersionRoutes(api, store, engine, notifier)
	v1.RegisterFindingRoutes(api, store)
	v1.RegisterDashboardRoutes(api, store)
	v1.RegisterReportRoutes(api, engine)
	v1.RegisterTrailRoutes(api, store)
	if extractor != nil {
		v1.RegisterExtractRoutes(api, extractor)
	}
}
