package dispute

import "time"

// Status represents the lifecycle of a dispute record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Record mirrors the disputes table. AdminResponse and ResolvedByAdminID stay
// NULL until an admin resolves the dispute.
type Record struct {
	ID                string
	PaymentID         string
	CitizenID         string
	Reason            string
	EvidencePhotoURL  *string
	Status            Status
	AdminResponse     *string
	ResolvedByAdminID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CreateParams struct {
	PaymentID        string
	CitizenID        string
	Reason           string
	EvidencePhotoURL *string
}

// ResolveParams overwrites the decision fields. A repeated resolve replaces
// the prior decision (last write wins).
type ResolveParams struct {
	ID                string
	Status            Status
	AdminResponse     *string
	ResolvedByAdminID string
}

// Filters narrows listings. Zero values skip the conjunct.
type Filters struct {
	CitizenID string
	Status    Status
}
