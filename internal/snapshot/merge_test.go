package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opengrc/attest/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestMergeEvidence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		old, new string
		want     string
	}{
		{"both_nonempty_dedup", "u1,u2", "u2,u3", "u1,u2,u3"},
		{"old_empty", "", "u1,u2", "u1,u2"},
		{"new_empty", "u1,u2", "", "u1,u2"},
		{"both_empty", "", "", ""},
		{"identical", "u1", "u1", "u1"},
		{"whitespace_trimmed", " u1 , u2 ", "u2, u3", "u1,u2,u3"},
		{"old_first_order", "b,a", "a,c", "b,a,c"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, mergeEvidence(tc.old, tc.new))
		})
	}
}

func TestMergeMetadataInheritance(t *testing.T) {
	t.Parallel()

	prior := &domain.VersionPayload{
		Metadata: domain.VersionMetadata{
			Title:         "old title",
			Scope:         "old scope",
			Objective:     "old objective",
			BusinessUnit:  "old bu",
			AuditEvidence: "u1,u2",
			ApprovalState: "Rejected",
		},
		OverallComments: "old overall",
	}

	payload := &domain.VersionPayload{Items: map[string]domain.ItemRecord{}}

	mergeMetadata(payload, prior, AuditFields{
		Scope:         strPtr("new scope"),
		AuditEvidence: strPtr("u2,u3"),
	})

	// Supplied keys win, unsupplied keys inherit.
	assert.Equal(t, "old title", payload.Metadata.Title)
	assert.Equal(t, "new scope", payload.Metadata.Scope)
	assert.Equal(t, "old objective", payload.Metadata.Objective)
	assert.Equal(t, "old bu", payload.Metadata.BusinessUnit)
	assert.Equal(t, "u1,u2,u3", payload.Metadata.AuditEvidence)
	assert.Equal(t, "Rejected", payload.Metadata.ApprovalState)
	assert.Equal(t, "old overall", payload.OverallComments)
}

func TestMergeMetadataNoPriorKeepsSeed(t *testing.T) {
	t.Parallel()

	payload := &domain.VersionPayload{
		Metadata: domain.VersionMetadata{Title: "seeded from audit"},
		Items:    map[string]domain.ItemRecord{},
	}

	mergeMetadata(payload, nil, AuditFields{
		Objective:       strPtr("verify backups"),
		OverallComments: strPtr("first pass"),
	})

	assert.Equal(t, "seeded from audit", payload.Metadata.Title)
	assert.Equal(t, "verify backups", payload.Metadata.Objective)
	assert.Equal(t, "first pass", payload.OverallComments)
	assert.Empty(t, payload.Metadata.AuditEvidence)
}

func TestApplyReviewState(t *testing.T) {
	t.Parallel()

	payload := &domain.VersionPayload{
		Items: map[string]domain.ItemRecord{
			"item-a": {Description: "a", ReviewStatus: "Pending", AcceptReject: "0"},
			"item-b": {Description: "b", ReviewStatus: "Pending", AcceptReject: "0"},
		},
	}
	review := &domain.VersionPayload{
		Items: map[string]domain.ItemRecord{
			"item-a": {ReviewStatus: "Reject", ReviewComments: "insufficient evidence", AcceptReject: "2"},
			"item-c": {ReviewStatus: "Accept", AcceptReject: "1"}, // no counterpart in payload
		},
	}

	applyReviewState(payload, review)

	assert.Equal(t, "Reject", payload.Items["item-a"].ReviewStatus)
	assert.Equal(t, "insufficient evidence", payload.Items["item-a"].ReviewComments)
	assert.Equal(t, "2", payload.Items["item-a"].AcceptReject)

	// Untouched item keeps its defaults.
	assert.Equal(t, "Pending", payload.Items["item-b"].ReviewStatus)
	assert.Equal(t, "0", payload.Items["item-b"].AcceptReject)

	// Reviewer-only item is not resurrected into the payload.
	_, ok := payload.Items["item-c"]
	assert.False(t, ok)
}
