package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrc/attest/internal/domain"
)

// Spec scenario: an audit with finding rows for two compliance items and no
// snapshot. The first read reconstructs and self-heals; the second takes
// the snapshot path and yields the same items.
func TestGetTaskViewSelfHealing(t *testing.T) {
	t.Parallel()

	h := newHarness()
	audit, ids := h.seedAudit(2)
	ctx := context.Background()

	first, err := h.svc.GetTaskView(ctx, audit.ID)
	require.NoError(t, err)
	assert.False(t, first.LoadedFromVersion)
	assert.Len(t, first.Compliances, 2)

	// A snapshot A1 now exists.
	v, err := h.versions.Latest(ctx, audit.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", v.Label)

	second, err := h.svc.GetTaskView(ctx, audit.ID)
	require.NoError(t, err)
	assert.True(t, second.LoadedFromVersion)
	assert.Equal(t, "A1", second.CurrentVersion)
	assert.Len(t, second.Compliances, 2)

	// Same compliance list both times.
	for i := range first.Compliances {
		assert.Equal(t, first.Compliances[i].ComplianceID, second.Compliances[i].ComplianceID)
		assert.Equal(t, first.Compliances[i].Description, second.Compliances[i].Description)
	}

	for _, id := range ids {
		found := false
		for _, e := range second.Compliances {
			if e.ComplianceID == id.String() {
				found = true
			}
		}
		assert.True(t, found, "compliance %s missing from view", id)
	}
}

func TestGetTaskViewReconstructionIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness()
	audit, _ := h.seedAudit(3)
	ctx := context.Background()

	first, err := h.svc.GetTaskView(ctx, audit.ID)
	require.NoError(t, err)

	second, err := h.svc.GetTaskView(ctx, audit.ID)
	require.NoError(t, err)

	require.Equal(t, len(first.Compliances), len(second.Compliances))
	for i := range first.Compliances {
		assert.Equal(t, first.Compliances[i], second.Compliances[i])
	}
}

func TestGetTaskViewCorruptPayloadFallsBack(t *testing.T) {
	t.Parallel()

	h := newHarness()
	audit, _ := h.seedAudit(2)
	ctx := context.Background()

	h.versions.injectRaw(audit.ID, "A1", []byte("not json"), time.Now())

	view, err := h.svc.GetTaskView(ctx, audit.ID)
	require.NoError(t, err)
	assert.False(t, view.LoadedFromVersion)
	assert.Len(t, view.Compliances, 2)

	// The reconstruction was persisted under the next free label, not A1.
	v, err := h.versions.LatestByPrefix(ctx, audit.ID, domain.PrefixAuditor)
	require.NoError(t, err)
	assert.Equal(t, "A2", v.Label)

	// Next read takes the snapshot path.
	healed, err := h.svc.GetTaskView(ctx, audit.ID)
	require.NoError(t, err)
	assert.True(t, healed.LoadedFromVersion)
}

func TestGetTaskViewAuditNotFound(t *testing.T) {
	t.Parallel()

	h := newHarness()

	_, err := h.svc.GetTaskView(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetTaskViewEmptyAudit(t *testing.T) {
	t.Parallel()

	h := newHarness()
	audit, _ := h.seedAudit(0)

	view, err := h.svc.GetTaskView(context.Background(), audit.ID)
	require.NoError(t, err)
	assert.False(t, view.LoadedFromVersion)
	assert.Empty(t, view.Compliances)
	assert.Equal(t, audit.Title, view.Title)
}

func TestGetTaskViewUnionsPostSnapshotFindings(t *testing.T) {
	t.Parallel()

	h := newHarness()
	audit, ids := h.seedAudit(1)
	ctx := context.Background()

	_, err := h.svc.SaveVersion(ctx, audit.ID, map[string]ItemEdit{
		ids[0].String(): {Description: "snapshotted control", ComplianceStatus: "1"},
	}, AuditFields{}, audit.AuditorID)
	require.NoError(t, err)

	// A finding row attached after the snapshot exists only in the rows.
	late := &domain.Compliance{ID: uuidFromInt(99), Description: "late control"}
	require.NoError(t, h.compliances.Create(ctx, late))
	require.NoError(t, h.findings.Create(ctx, &domain.Finding{
		ID:           uuidFromInt(100),
		AuditID:      audit.ID,
		ComplianceID: late.ID,
		Check:        domain.CheckNonCompliant,
	}))

	view, err := h.svc.GetTaskView(ctx, audit.ID)
	require.NoError(t, err)
	assert.True(t, view.LoadedFromVersion)
	require.Len(t, view.Compliances, 2)

	descriptions := map[string]string{}
	for _, e := range view.Compliances {
		descriptions[e.ComplianceID] = e.Description
	}
	assert.Equal(t, "snapshotted control", descriptions[ids[0].String()])
	assert.Equal(t, "late control", descriptions[late.ID.String()])
}

func TestGetTaskViewSkipsDescriptionlessItems(t *testing.T) {
	t.Parallel()

	h := newHarness()
	audit, _ := h.seedAudit(0)
	ctx := context.Background()

	// A finding row whose compliance item has no description and a payload
	// entry with no description either: nothing to show.
	orphan := &domain.Compliance{ID: uuidFromInt(7), Description: ""}
	require.NoError(t, h.compliances.Create(ctx, orphan))
	require.NoError(t, h.findings.Create(ctx, &domain.Finding{
		ID:           uuidFromInt(8),
		AuditID:      audit.ID,
		ComplianceID: orphan.ID,
	}))

	view, err := h.svc.GetTaskView(ctx, audit.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Compliances)
}

// uuidFromInt builds a deterministic UUID for test fixtures.
func uuidFromInt(n byte) uuid.UUID {
	var id uuid.UUID
	id[15] = n
	id[6] = 0x40
	id[8] = 0x80
	return id
}
