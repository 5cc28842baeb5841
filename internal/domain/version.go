package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Version label prefixes. Auditor rounds are labeled A1, A2, ...;
// reviewer rounds R1, R2, ... Each prefix forms its own monotonic
// sequence per audit.
const (
	PrefixAuditor  = "A"
	PrefixReviewer = "R"
)

var labelPattern = regexp.MustCompile(`^[AR][1-9][0-9]*$`)

// ValidLabel reports whether s is a well-formed version label.
func ValidLabel(s string) bool {
	return labelPattern.MatchString(s)
}

// LabelOrdinal extracts the numeric suffix of a version label.
// Returns 0 and an error for malformed labels.
func LabelOrdinal(label string) (int, error) {
	if len(label) < 2 {
		return 0, fmt.Errorf("domain.LabelOrdinal: label %q too short", label)
	}
	n, err := strconv.Atoi(label[1:])
	if err != nil {
		return 0, fmt.Errorf("domain.LabelOrdinal: label %q: %w", label, err)
	}
	return n, nil
}

// FormatLabel builds a label from a prefix and ordinal.
func FormatLabel(prefix string, ordinal int) string {
	return prefix + strconv.Itoa(ordinal)
}

// AuditVersion is one immutable snapshot of an audit's working state.
// Payload is never mutated after the row is written; corrections create a
// new version. Inactive versions are excluded from default listing, not
// deleted.
type AuditVersion struct {
	ID        uuid.UUID
	AuditID   uuid.UUID
	Label     string // A{n} or R{n}
	Payload   []byte // JSON-encoded VersionPayload
	AuthorID  uuid.UUID
	Active    bool
	CreatedAt time.Time
}

// Ordinal returns the numeric part of the version label, 0 if malformed.
func (v *AuditVersion) Ordinal() int {
	n, err := LabelOrdinal(v.Label)
	if err != nil {
		return 0
	}
	return n
}

// Prefix returns the label prefix ("A" or "R"), empty if malformed.
func (v *AuditVersion) Prefix() string {
	if len(v.Label) == 0 {
		return ""
	}
	return v.Label[:1]
}

// VersionMetadata carries audit-level (not per-item) fields inside a
// snapshot payload.
type VersionMetadata struct {
	Title         string `json:"title"`
	Scope         string `json:"scope"`
	Objective     string `json:"objective"`
	BusinessUnit  string `json:"business_unit"`
	AuditEvidence string `json:"audit_evidence"` // comma-separated URLs
	ApprovalState string `json:"approval_state"`
}

// ItemRecord is the per-compliance-item record inside a snapshot payload.
// Fields are never null: unsupplied values are empty strings, empty lists
// or false so consumers can rely on string operations.
type ItemRecord struct {
	Description         string   `json:"description"`
	ComplianceStatus    string   `json:"compliance_status"`
	Evidence            string   `json:"evidence"`
	Comments            string   `json:"comments"`
	HowToVerify         string   `json:"how_to_verify"`
	Impact              string   `json:"impact"`
	Recommendation      string   `json:"recommendation"`
	DetailsOfFinding    string   `json:"details_of_finding"`
	Criticality         string   `json:"criticality"` // "Major", "Minor", "Not Applicable" or ""
	SeverityRating      string   `json:"severity_rating"`
	UnderlyingCause     string   `json:"underlying_cause"`
	SuggestedActionPlan string   `json:"suggested_action_plan"`
	ResponsibleForPlan  string   `json:"responsible_for_plan"`
	MitigationDate      string   `json:"mitigation_date"`
	ReAudit             bool     `json:"re_audit"`
	ReAuditDate         string   `json:"re_audit_date"`
	SelectedRisks       []string `json:"selected_risks"`
	SelectedMitigations []string `json:"selected_mitigations"`
	ReviewStatus        string   `json:"review_status"`
	ReviewComments      string   `json:"review_comments"`
	AcceptReject        string   `json:"accept_reject"`
}

// VersionPayload is the snapshot payload envelope. Metadata lives in its
// own field rather than a reserved key inside the item map, so compliance
// item ids can never collide with a sentinel.
type VersionPayload struct {
	Metadata              VersionMetadata       `json:"metadata"`
	Items                 map[string]ItemRecord `json:"items"`
	OverallComments       string                `json:"overall_comments"`
	OverallReviewComments string                `json:"overall_review_comments"`
}

// ErrPayloadParse indicates a stored snapshot payload is not valid JSON or
// not an object. Callers treat a version with an unparsable payload as
// absent.
var ErrPayloadParse = errors.New("domain: snapshot payload parse failure")

// ParsePayload decodes a stored snapshot payload. The materializer branches
// on the returned error instead of relying on panics or thrown exceptions;
// any decode problem is wrapped in ErrPayloadParse.
func ParsePayload(raw []byte) (*VersionPayload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrPayloadParse)
	}

	var p VersionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPayloadParse, err)
	}
	if p.Items == nil {
		p.Items = map[string]ItemRecord{}
	}
	return &p, nil
}

// EncodePayload serializes a payload envelope for storage.
func EncodePayload(p *VersionPayload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("domain.EncodePayload: %w", err)
	}
	return raw, nil
}

// CriticalityLabel maps the stored tri-state criticality value to its
// display form. Unknown values map to the empty string.
func CriticalityLabel(raw string) string {
	switch raw {
	case "1":
		return "Major"
	case "0":
		return "Minor"
	case "2":
		return "Not Applicable"
	default:
		return ""
	}
}

type VersionRepository interface {
	// Create inserts a new snapshot row. A duplicate (audit_id, label) pair
	// surfaces as ErrConflict so callers can re-allocate and retry.
	Create(ctx context.Context, v *AuditVersion) error
	// Latest returns the most recent active version for an audit across both
	// prefixes, ordered by creation time then label ordinal. ErrNotFound when
	// no version exists.
	Latest(ctx context.Context, auditID uuid.UUID) (*AuditVersion, error)
	// LatestByPrefix returns the highest-ordinal active version within one
	// prefix, creation time as tie-break. ErrNotFound when none exists.
	LatestByPrefix(ctx context.Context, auditID uuid.UUID, prefix string) (*AuditVersion, error)
	// ListLabels returns all labels (active or not) for an audit with the
	// given prefix. Labels are never reused, so the set only grows.
	ListLabels(ctx context.Context, auditID uuid.UUID, prefix string) ([]string, error)
	// ListByAudit returns versions for an audit, newest first. Inactive
	// versions are included only when includeInactive is set.
	ListByAudit(ctx context.Context, auditID uuid.UUID, includeInactive bool) ([]*AuditVersion, error)
	// Deactivate marks a version as excluded from default listing.
	Deactivate(ctx context.Context, auditID uuid.UUID, label string) error
}
