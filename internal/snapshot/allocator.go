package snapshot

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/opengrc/attest/internal/domain"
)

// NextLabel computes the next version label for an audit within one prefix
// sequence: prefix + (max existing suffix + 1), or prefix + "1" when no
// label exists yet. A label whose suffix does not parse is logged and
// ignored rather than failing the allocation, so a single bad row can never
// block saves. Only storage errors are returned.
//
// The read-then-compute here is not atomic; the unique index on
// (audit_id, label) plus the caller's bounded retry close the race.
func (s *Service) NextLabel(ctx context.Context, auditID uuid.UUID, prefix string) (string, error) {
	labels, err := s.versions.ListLabels(ctx, auditID, prefix)
	if err != nil {
		return "", fmt.Errorf("snapshot.NextLabel: %w", err)
	}

	maxOrdinal := 0
	for _, label := range labels {
		n, parseErr := domain.LabelOrdinal(label)
		if parseErr != nil {
			log.Warn().Str("audit_id", auditID.String()).Str("label", label).
				Msg("snapshot: malformed version label ignored during allocation")
			continue
		}
		if n > maxOrdinal {
			maxOrdinal = n
		}
	}

	return domain.FormatLabel(prefix, maxOrdinal+1), nil
}
