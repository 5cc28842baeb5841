package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opengrc/attest/internal/domain"
)

type Store struct {
	pool        *pgxpool.Pool
	users       *UserRepo
	frameworks  *FrameworkRepo
	policies    *PolicyRepo
	subPolicies *SubPolicyRepo
	compliances *ComplianceRepo
	audits      *AuditRepo
	findings    *FindingRepo
	versions    *VersionRepo
	trail       *TrailRepo
	dashboard   *DashboardRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:        pool,
		users:       NewUserRepo(pool),
		frameworks:  NewFrameworkRepo(pool),
		policies:    NewPolicyRepo(pool),
		subPolicies: NewSubPolicyRepo(pool),
		compliances: NewComplianceRepo(pool),
		audits:      NewAuditRepo(pool),
		findings:    NewFindingRepo(pool),
		versions:    NewVersionRepo(pool),
		trail:       NewTrailRepo(pool),
		dashboard:   NewDashboardRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Users() domain.UserRepository             { return s.users }
func (s *Store) Frameworks() domain.FrameworkRepository   { return s.frameworks }
func (s *Store) Policies() domain.PolicyRepository        { return s.policies }
func (s *Store) SubPolicies() domain.SubPolicyRepository  { return s.subPolicies }
func (s *Store) Compliances() domain.ComplianceRepository { return s.compliances }
func (s *Store) Audits() domain.AuditRepository           { return s.audits }
func (s *Store) Findings() domain.FindingRepository       { return s.findings }
func (s *Store) Versions() domain.VersionRepository       { return s.versions }
func (s *Store) Trail() domain.TrailRepository            { return s.trail }
func (s *Store) Dashboard() domain.DashboardRepository    { return s.dashboard }
