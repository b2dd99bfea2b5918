// Package proofs tracks proof versions sent to customers and the revision
// quota that bounds how often a customer may ask for changes.
package proofs

import "time"

// Status enumerates proof review states.
type Status string

const (
	StatusSent              Status = "SENT"
	StatusApproved          Status = "APPROVED"
	StatusRevisionRequested Status = "REVISION_REQUESTED"
)

// MaxCommentLength bounds a change-request comment, counted in characters.
const MaxCommentLength = 1000

// Proof is one numbered version of the artwork for an order.
type Proof struct {
	ID              int64      `json:"id"`
	OrderID         int64      `json:"order_id"`
	VersionNumber   int        `json:"version_number"`
	FileURL         string     `json:"file_url"`
	InternalNotes   string     `json:"internal_notes,omitempty"`
	Status          Status     `json:"status"`
	CustomerComment *string    `json:"customer_comment,omitempty"`
	CreatedBy       int64      `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// UploadInput describes a new proof version.
type UploadInput struct {
	FileURL       string
	InternalNotes string
}

// Quota is the number of change requests a tier allows.
type Quota struct {
	Limit     int
	Unlimited bool
}

// QuotaFromLimit maps a nullable tier limit to a quota.
func QuotaFromLimit(limit *int) Quota {
	if limit == nil {
		return Quota{Unlimited: true}
	}
	return Quota{Limit: *limit}
}

// Exhausted reports whether used revisions leave no room for another.
func (q Quota) Exhausted(used int) bool {
	return !q.Unlimited && used >= q.Limit
}

// Resolution is the customer's decision on a sent proof.
type Resolution struct {
	Status  Status
	Comment *string
	At      time.Time
}
