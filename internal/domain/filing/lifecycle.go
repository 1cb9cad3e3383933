// Package filing holds the filing lifecycle state machine. Transitions are
// the only place submission state changes; each successful transition
// returns the StatusChange event the surrounding system consumes for
// notification and audit logging.
package filing

import (
	"errors"
	"fmt"
	"time"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
)

var (
	// ErrInvalidTransition is returned for any transition the machine does
	// not allow from the submission's current status.
	ErrInvalidTransition = errors.New("filing: invalid lifecycle transition")

	// ErrSubmissionInFlight is returned when a second enqueue/submit is
	// attempted while one is already outstanding. It must be rejected, not
	// silently queued twice.
	ErrSubmissionInFlight = errors.New("filing: a submission is already in flight for this subject")

	// ErrTerminal is returned for any transition out of ACCEPTED.
	ErrTerminal = errors.New("filing: submission is accepted and terminal")
)

// allowed maps each status to the statuses reachable from it.
var allowed = map[string][]string{
	entity.StatusNotStarted:  {entity.StatusQueued},
	entity.StatusQueued:      {entity.StatusSubmitted, entity.StatusRejected, entity.StatusNeedsReview},
	entity.StatusSubmitted:   {entity.StatusAccepted, entity.StatusRejected, entity.StatusNeedsReview},
	entity.StatusRejected:    {entity.StatusQueued},
	entity.StatusNeedsReview: {entity.StatusQueued},
	entity.StatusAccepted:    {},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to string) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

func guard(sub *entity.FilingSubmission, to string) error {
	if sub.Status == entity.StatusAccepted {
		return fmt.Errorf("%w: %s -> %s", ErrTerminal, sub.Status, to)
	}
	if !CanTransition(sub.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, to)
	}
	return nil
}

func change(sub *entity.FilingSubmission, to string) StatusChange {
	ev := StatusChange{
		SubjectID: sub.SubjectID,
		From:      sub.Status,
		To:        to,
		At:        time.Now().UTC(),
	}
	sub.Status = to
	sub.UpdatedAt = ev.At
	return ev
}

// Enqueue snapshots the outbound payload and clears prior rejection detail.
// From NOT_STARTED this is the first queue; while QUEUED or SUBMITTED it is
// an in-flight conflict, not an invalid transition.
func Enqueue(sub *entity.FilingSubmission, payload []byte, filename string) (StatusChange, error) {
	if sub.Status == entity.StatusQueued || sub.Status == entity.StatusSubmitted {
		return StatusChange{}, fmt.Errorf("%w (status %s)", ErrSubmissionInFlight, sub.Status)
	}
	if sub.Status != entity.StatusNotStarted {
		// Rejected / NeedsReview re-enter the queue only via Retry.
		return StatusChange{}, fmt.Errorf("%w: %s -> %s (use Retry)", ErrInvalidTransition, sub.Status, entity.StatusQueued)
	}
	sub.PayloadSnapshot = payload
	sub.Filename = filename
	sub.RejectionCode = ""
	sub.RejectionMessage = ""
	return change(sub, entity.StatusQueued), nil
}

// Retry re-queues a rejected or needs-review submission, incrementing the
// attempt counter by exactly one and clearing prior rejection detail. The
// payload is re-snapshotted: a retried filing is rebuilt from fresh data.
func Retry(sub *entity.FilingSubmission, payload []byte, filename string) (StatusChange, error) {
	if err := guard(sub, entity.StatusQueued); err != nil {
		return StatusChange{}, err
	}
	if sub.Status != entity.StatusRejected && sub.Status != entity.StatusNeedsReview {
		return StatusChange{}, fmt.Errorf("%w: retry from %s", ErrInvalidTransition, sub.Status)
	}
	sub.Attempts++
	sub.PayloadSnapshot = payload
	sub.Filename = filename
	sub.RejectionCode = ""
	sub.RejectionMessage = ""
	return change(sub, entity.StatusQueued), nil
}

// MarkSubmitted records the successful hand-off to the transport.
func MarkSubmitted(sub *entity.FilingSubmission) (StatusChange, error) {
	if err := guard(sub, entity.StatusSubmitted); err != nil {
		return StatusChange{}, err
	}
	if sub.Attempts == 0 {
		sub.Attempts = 1
	}
	return change(sub, entity.StatusSubmitted), nil
}

// Accept records the receipt id from the acknowledgment file. ACCEPTED is
// terminal; no transition leaves it.
func Accept(sub *entity.FilingSubmission, receiptID string) (StatusChange, error) {
	if err := guard(sub, entity.StatusAccepted); err != nil {
		return StatusChange{}, err
	}
	sub.ReceiptID = receiptID
	ev := change(sub, entity.StatusAccepted)
	ev.ReceiptID = receiptID
	return ev, nil
}

// Reject records the rejection code and message from the status-message
// file, or from a local validation failure.
func Reject(sub *entity.FilingSubmission, code, message string) (StatusChange, error) {
	if err := guard(sub, entity.StatusRejected); err != nil {
		return StatusChange{}, err
	}
	sub.RejectionCode = code
	sub.RejectionMessage = message
	ev := change(sub, entity.StatusRejected)
	ev.RejectionCode = code
	ev.RejectionMessage = message
	return ev, nil
}

// NeedsReview escalates a submission for manual attention, typically after
// transport retries are exhausted or a response could not be interpreted.
// The reason lands in the rejection message field for the operator but the
// primary status stays a generic "requires manual review" signal.
func NeedsReview(sub *entity.FilingSubmission, reason string) (StatusChange, error) {
	if err := guard(sub, entity.StatusNeedsReview); err != nil {
		return StatusChange{}, err
	}
	sub.RejectionMessage = reason
	return change(sub, entity.StatusNeedsReview), nil
}
