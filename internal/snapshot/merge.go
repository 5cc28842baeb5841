package snapshot

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/opengrc/attest/internal/domain"
)

// applyCrossRoundMerge enriches a freshly built auditor payload with state
// owned by other rounds: metadata is inherited from the previous auditor
// snapshot for fields the submission left out, and per-item review state is
// pulled forward from the latest reviewer snapshot so an auditor re-save
// can never silently erase a reviewer decision.
func (s *Service) applyCrossRoundMerge(ctx context.Context, auditID uuid.UUID, payload *domain.VersionPayload, fields AuditFields) {
	prior := s.latestPayloadByPrefix(ctx, auditID, domain.PrefixAuditor)
	mergeMetadata(payload, prior, fields)

	review := s.latestPayloadByPrefix(ctx, auditID, domain.PrefixReviewer)
	if review != nil {
		applyReviewState(payload, review)
		// Owned by the reviewer side, carried forward verbatim.
		payload.OverallReviewComments = review.OverallReviewComments
	}
}

// mergeMetadata resolves audit-level fields with precedence: explicit
// submission, then the prior auditor snapshot, then the seed from the audit
// record. audit_evidence is the one field that merges instead of
// overwriting when both sides are non-empty.
func mergeMetadata(payload *domain.VersionPayload, prior *domain.VersionPayload, fields AuditFields) {
	if fields.Title != nil {
		payload.Metadata.Title = *fields.Title
	} else if prior != nil {
		payload.Metadata.Title = prior.Metadata.Title
	}

	if fields.Scope != nil {
		payload.Metadata.Scope = *fields.Scope
	} else if prior != nil {
		payload.Metadata.Scope = prior.Metadata.Scope
	}

	if fields.Objective != nil {
		payload.Metadata.Objective = *fields.Objective
	} else if prior != nil {
		payload.Metadata.Objective = prior.Metadata.Objective
	}

	if fields.BusinessUnit != nil {
		payload.Metadata.BusinessUnit = *fields.BusinessUnit
	} else if prior != nil {
		payload.Metadata.BusinessUnit = prior.Metadata.BusinessUnit
	}

	var oldEvidence string
	if prior != nil {
		oldEvidence = prior.Metadata.AuditEvidence
	}
	if fields.AuditEvidence != nil {
		payload.Metadata.AuditEvidence = mergeEvidence(oldEvidence, *fields.AuditEvidence)
	} else {
		payload.Metadata.AuditEvidence = oldEvidence
	}

	// Approval state belongs to the review cycle; the auditor save path
	// only carries it forward.
	if prior != nil {
		payload.Metadata.ApprovalState = prior.Metadata.ApprovalState
	}

	if fields.OverallComments != nil {
		payload.OverallComments = *fields.OverallComments
	} else if prior != nil {
		payload.OverallComments = prior.OverallComments
	}
}

// applyReviewState copies the reviewer-owned fields of every item present
// in both the reviewer snapshot and the new payload. Items with no reviewer
// counterpart keep the builder's Pending defaults.
func applyReviewState(payload *domain.VersionPayload, review *domain.VersionPayload) {
	for id, item := range payload.Items {
		reviewed, ok := review.Items[id]
		if !ok {
			continue
		}
		item.ReviewStatus = reviewed.ReviewStatus
		item.ReviewComments = reviewed.ReviewComments
		item.AcceptReject = reviewed.AcceptReject
		payload.Items[id] = item
	}
}

// mergeEvidence combines two comma-separated evidence URL lists,
// de-duplicated and order-preserving with the old list first. Either side
// being empty yields the other unchanged.
func mergeEvidence(oldList, newList string) string {
	oldURLs := splitEvidence(oldList)
	newURLs := splitEvidence(newList)

	if len(oldURLs) == 0 {
		return strings.Join(newURLs, ",")
	}
	if len(newURLs) == 0 {
		return strings.Join(oldURLs, ",")
	}

	seen := make(map[string]struct{}, len(oldURLs)+len(newURLs))
	merged := make([]string, 0, len(oldURLs)+len(newURLs))
	for _, u := range append(oldURLs, newURLs...) {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		merged = append(merged, u)
	}

	return strings.Join(merged, ",")
}

func splitEvidence(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

// latestPayloadByPrefix returns the decoded payload of the newest snapshot
// within one prefix, or nil when none exists or it does not parse.
func (s *Service) latestPayloadByPrefix(ctx context.Context, auditID uuid.UUID, prefix string) *domain.VersionPayload {
	v, err := s.versions.LatestByPrefix(ctx, auditID, prefix)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Str("audit_id", auditID.String()).Str("prefix", prefix).
			Msg("snapshot: latest version lookup failed")
		return nil
	}

	payload, parseErr := domain.ParsePayload(v.Payload)
	if parseErr != nil {
		s.metrics.IncPayloadParseFailure()
		log.Warn().Err(parseErr).Str("audit_id", auditID.String()).Str("label", v.Label).
			Msg("snapshot: stored payload failed to parse, treating as absent")
		return nil
	}

	return payload
}
