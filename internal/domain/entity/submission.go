package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filing submission statuses. A submission is created once per filing
// subject, mutated only by lifecycle transitions and never deleted: it is
// the audit-relevant record of every attempt.
const (
	StatusNotStarted  = "NOT_STARTED"  // record exists, nothing queued yet
	StatusQueued      = "QUEUED"       // payload snapshotted, awaiting submit
	StatusSubmitted   = "SUBMITTED"    // uploaded, awaiting async response
	StatusAccepted    = "ACCEPTED"     // accepted with a receipt id (terminal)
	StatusRejected    = "REJECTED"     // rejected with code/message
	StatusNeedsReview = "NEEDS_REVIEW" // manual attention required
)

// FilingSubmission is the persisted lifecycle record of one filing subject.
type FilingSubmission struct {
	ID                 string
	SubjectID          string
	Status             string
	Attempts           uint32
	RejectionCode      string // empty unless rejected
	RejectionMessage   string // empty unless rejected
	ReceiptID          string // assigned by the remote system on acceptance
	Filename           string // last uploaded document name
	PayloadSnapshot    []byte // document bytes as uploaded
	TotalConsideration decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
