package filing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	lifecycle "github.com/tu-usuario/filing-pro/internal/domain/filing"
	"github.com/tu-usuario/filing-pro/internal/domain/repository"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/bsa"
	infrarerx "github.com/tu-usuario/filing-pro/internal/infrastructure/rerx"
	"github.com/tu-usuario/filing-pro/pkg/config"
	"github.com/tu-usuario/filing-pro/pkg/logger"
)

// Orchestrator drives the full pipeline for one filing subject:
//
//	Normalized transaction → Preflight → XML → Structural check → Upload → SUBMITTED
//
// Every state change goes through the lifecycle machine and is persisted
// before the next step runs; a crash mid-pipeline leaves the submission in a
// truthful state. Work is serialized per subject, so concurrent Submit calls
// for the same subject cannot interleave.
type Orchestrator struct {
	repo        repository.SubmissionRepository
	source      TransactionSource
	transport   Transport
	builder     *infrarerx.DocumentBuilder
	transmitter config.TransmitterConfig
	sendDir     string
	timeout     time.Duration
	listener    lifecycle.Listener
	locks       *subjectLocks
	log         *logger.Logger
}

// NewOrchestrator wires the orchestrator. listener may be nil; events are
// then discarded.
func NewOrchestrator(
	repo repository.SubmissionRepository,
	source TransactionSource,
	transport Transport,
	builder *infrarerx.DocumentBuilder,
	bsaCfg config.BSAConfig,
	txCfg config.TransmitterConfig,
	listener lifecycle.Listener,
	log *logger.Logger,
) *Orchestrator {
	if listener == nil {
		listener = lifecycle.NopListener{}
	}
	return &Orchestrator{
		repo:        repo,
		source:      source,
		transport:   transport,
		builder:     builder,
		transmitter: txCfg,
		sendDir:     bsaCfg.SubmissionsDir,
		timeout:     2 * time.Minute,
		listener:    listener,
		locks:       newSubjectLocks(),
		log:         log,
	}
}

// SubmitAsync runs Submit in an independent goroutine with its own timeout
// context, decoupled from the caller's request cycle.
func (o *Orchestrator) SubmitAsync(subjectID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		if err := o.Submit(ctx, subjectID); err != nil {
			o.log.Error().Err(err).Str("subject_id", subjectID).Msg("async submit failed")
		}
	}()
}

// Submit takes the subject from its current status to SUBMITTED. It enqueues
// a fresh submission, re-queues a rejected or needs-review one, and resumes a
// QUEUED one; a SUBMITTED submission is an in-flight conflict and an ACCEPTED
// one is terminal.
func (o *Orchestrator) Submit(ctx context.Context, subjectID string) error {
	unlock := o.locks.acquire(subjectID)
	defer unlock()

	log := o.log.With().Str("subject_id", subjectID).Logger()

	// ═══════════════════════════════════════════════════════════════════════
	// 0. Re-fetch fresh state (never act on a caller-supplied snapshot)
	// ═══════════════════════════════════════════════════════════════════════
	sub, err := o.repo.GetBySubject(ctx, subjectID)
	if err != nil {
		sub = &entity.FilingSubmission{
			SubjectID: subjectID,
			Status:    entity.StatusNotStarted,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := o.repo.Create(ctx, sub); err != nil {
			return fmt.Errorf("create submission record: %w", err)
		}
	}

	switch sub.Status {
	case entity.StatusSubmitted:
		return fmt.Errorf("%w (status %s)", lifecycle.ErrSubmissionInFlight, sub.Status)
	case entity.StatusAccepted:
		return fmt.Errorf("%w: receipt %s", lifecycle.ErrTerminal, sub.ReceiptID)
	}

	if sub.Status != entity.StatusQueued {
		// ═══════════════════════════════════════════════════════════════════
		// 1. Normalized transaction from the surrounding system
		// ═══════════════════════════════════════════════════════════════════
		txn, err := o.source.NormalizedTransaction(ctx, subjectID)
		if err != nil {
			return fmt.Errorf("fetch transaction: %w", err)
		}
		bctx := o.buildContext(txn)

		// ═══════════════════════════════════════════════════════════════════
		// 2. Preflight — fail closed before any XML exists
		// ═══════════════════════════════════════════════════════════════════
		if err := infrarerx.Preflight(bctx); err != nil {
			var pf *infrarerx.PreflightError
			if errors.As(err, &pf) {
				for _, v := range pf.Violations {
					log.Warn().Str("code", v.Code).Str("field", v.Field).Msg(v.Message)
				}
			}
			return err
		}

		// ═══════════════════════════════════════════════════════════════════
		// 3. Build the batch document
		// ═══════════════════════════════════════════════════════════════════
		result, err := o.builder.Build(bctx)
		if err != nil {
			return fmt.Errorf("build document: %w", err)
		}
		log.Debug().
			Int("parties", result.Summary.PartyCount).
			Int("associations", result.Summary.AssociationCount).
			Uint64("nodes", result.Summary.NodeCount).
			Bool("detail_sum_mismatch", result.Summary.DetailSumMismatch).
			Msg("document built")

		// ═══════════════════════════════════════════════════════════════════
		// 4. Independent structural check of the built bytes
		// ═══════════════════════════════════════════════════════════════════
		if err := infrarerx.ValidateDocument(result.XML); err != nil {
			// A structurally invalid document out of our own builder must
			// never reach the network.
			return fmt.Errorf("structural validation: %w", err)
		}

		// ═══════════════════════════════════════════════════════════════════
		// 5. Filename + queue transition, persisted before any network I/O
		// ═══════════════════════════════════════════════════════════════════
		// Always uniquified: two subjects filed by the same transmitter in
		// the same clock second must not collide on the remote drop.
		filename := infrarerx.BuildFilename(o.transmitter.TCC, time.Now().UTC(), true)
		sub.TotalConsideration = txn.ValueTransfer.TotalConsideration

		var ev lifecycle.StatusChange
		if sub.Status == entity.StatusNotStarted {
			ev, err = lifecycle.Enqueue(sub, result.XML, filename)
		} else {
			ev, err = lifecycle.Retry(sub, result.XML, filename)
		}
		if err != nil {
			return err
		}
		if err := o.repo.Update(ctx, sub); err != nil {
			return fmt.Errorf("persist queued: %w", err)
		}
		o.listener.OnStatusChange(ev)
	}

	// ═══════════════════════════════════════════════════════════════════════
	// 6. Scoped transport session
	// ═══════════════════════════════════════════════════════════════════════
	session, err := o.transport.Connect(ctx)
	if err != nil {
		o.escalate(ctx, sub, fmt.Sprintf("transport retries exhausted: %v", err))
		return fmt.Errorf("connect transport: %w", err)
	}
	defer session.Close()

	// ═══════════════════════════════════════════════════════════════════════
	// 7. Upload (re-check remote existence on ambiguous failure, never
	//    blindly re-upload)
	// ═══════════════════════════════════════════════════════════════════════
	if err := session.Upload(o.sendDir, sub.Filename, sub.PayloadSnapshot); err != nil {
		if bsa.IsRetryable(err) {
			exists, exErr := session.Exists(o.sendDir, sub.Filename)
			if exErr == nil && exists {
				log.Warn().Str("filename", sub.Filename).
					Msg("upload reported failure but remote file exists, treating as delivered")
			} else {
				o.escalate(ctx, sub, fmt.Sprintf("upload failed: %v", err))
				return fmt.Errorf("upload %s: %w", sub.Filename, err)
			}
		} else {
			o.escalate(ctx, sub, fmt.Sprintf("upload failed: %v", err))
			return fmt.Errorf("upload %s: %w", sub.Filename, err)
		}
	}

	// ═══════════════════════════════════════════════════════════════════════
	// 8. SUBMITTED
	// ═══════════════════════════════════════════════════════════════════════
	ev, err := lifecycle.MarkSubmitted(sub)
	if err != nil {
		return err
	}
	if err := o.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("persist submitted: %w", err)
	}
	o.listener.OnStatusChange(ev)

	log.Info().Str("filename", sub.Filename).Uint32("attempt", sub.Attempts).
		Msg("filing submitted")
	return nil
}

// escalate moves the submission to NEEDS_REVIEW and persists it. Used when
// the pipeline cannot decide the outcome on its own (transport exhausted,
// ambiguous upload). Escalation failure is logged, not returned; the original
// error is what the caller needs.
func (o *Orchestrator) escalate(ctx context.Context, sub *entity.FilingSubmission, reason string) {
	ev, err := lifecycle.NeedsReview(sub, reason)
	if err != nil {
		o.log.Error().Err(err).Str("subject_id", sub.SubjectID).Msg("cannot escalate to needs-review")
		return
	}
	if err := o.repo.Update(ctx, sub); err != nil {
		o.log.Error().Err(err).Str("subject_id", sub.SubjectID).Msg("persist needs-review failed")
		return
	}
	o.listener.OnStatusChange(ev)
}

func (o *Orchestrator) buildContext(txn *entity.NormalizedTransaction) *infrarerx.FilingBuildContext {
	return &infrarerx.FilingBuildContext{
		Transaction: txn,
		Transmitter: entity.Transmitter{
			TransmitterID: o.transmitter.TransmitterID,
			TCC:           o.transmitter.TCC,
			LegalName:     o.transmitter.LegalName,
			Address: entity.Address{
				Street:  o.transmitter.Street,
				City:    o.transmitter.City,
				State:   o.transmitter.State,
				ZIP:     o.transmitter.ZIP,
				Country: o.transmitter.Country,
			},
			Phone: o.transmitter.ContactPhone,
		},
		Contact: entity.TransmitterContact{
			Name:  o.transmitter.ContactName,
			Phone: o.transmitter.ContactPhone,
			Email: o.transmitter.ContactEmail,
		},
	}
}
