package filing

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	lifecycle "github.com/tu-usuario/filing-pro/internal/domain/filing"
	"github.com/tu-usuario/filing-pro/internal/domain/repository"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/bsa"
	"github.com/tu-usuario/filing-pro/pkg/config"
	"github.com/tu-usuario/filing-pro/pkg/logger"
)

// Poller reconciles asynchronous responses from the remote endpoint into the
// lifecycle. Each submitted filing eventually produces up to two files named
// after the uploaded batch: a status-message file (errors and warnings) and
// an acknowledgment file (the receipt id, on acceptance). A response that
// cannot be interpreted escalates that one filing to NEEDS_REVIEW and never
// blocks the others.
type Poller struct {
	repo      repository.SubmissionRepository
	transport Transport
	ackDir    string
	interval  time.Duration
	listener  lifecycle.Listener
	locks     *subjectLocks
	log       *logger.Logger
}

// NewPoller wires the poller. listener may be nil.
func NewPoller(
	repo repository.SubmissionRepository,
	transport Transport,
	bsaCfg config.BSAConfig,
	listener lifecycle.Listener,
	log *logger.Logger,
) *Poller {
	if listener == nil {
		listener = lifecycle.NopListener{}
	}
	return &Poller{
		repo:      repo,
		transport: transport,
		ackDir:    bsaCfg.AcknowledgmentsDir,
		interval:  bsaCfg.PollInterval,
		listener:  listener,
		locks:     newSubjectLocks(),
		log:       log,
	}
}

// Run polls until ctx is cancelled. Per-cycle errors are logged, not fatal.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil {
			p.log.Error().Err(err).Msg("poll cycle failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll runs one reconciliation pass over all SUBMITTED filings.
func (p *Poller) Poll(ctx context.Context) error {
	subs, err := p.repo.ListByStatus(ctx, entity.StatusSubmitted)
	if err != nil {
		return fmt.Errorf("list submitted filings: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	session, err := p.transport.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}
	defer session.Close()

	names, err := session.List(p.ackDir)
	if err != nil {
		return fmt.Errorf("list %s: %w", p.ackDir, err)
	}

	for _, sub := range subs {
		if err := p.reconcile(ctx, session, sub, names); err != nil {
			p.log.Error().Err(err).Str("subject_id", sub.SubjectID).
				Msg("reconcile failed, will retry next cycle")
		}
	}
	return nil
}

// reconcile downloads this filing's response files and folds them into one
// lifecycle transition. No matching files means the endpoint has not answered
// yet; the filing stays SUBMITTED.
func (p *Poller) reconcile(ctx context.Context, session TransportSession, sub *entity.FilingSubmission, names []string) error {
	base := strings.TrimSuffix(sub.Filename, ".xml")
	if base == "" {
		return nil
	}

	var msgFiles, ackFiles [][]byte
	for _, name := range names {
		if name == sub.Filename || !strings.HasPrefix(name, base) {
			continue
		}
		data, err := session.Download(p.ackDir, name)
		if err != nil {
			p.log.Warn().Err(err).Str("file", name).Msg("response download failed")
			continue
		}
		if isAcknowledgment(name, data) {
			ackFiles = append(ackFiles, data)
		} else {
			msgFiles = append(msgFiles, data)
		}
	}
	if len(msgFiles) == 0 && len(ackFiles) == 0 {
		return nil
	}

	unlock := p.locks.acquire(sub.SubjectID)
	defer unlock()

	// Fresh state under the lock; skip if something else already moved it.
	fresh, err := p.repo.GetBySubject(ctx, sub.SubjectID)
	if err != nil {
		return fmt.Errorf("refetch submission: %w", err)
	}
	if fresh.Status != entity.StatusSubmitted {
		return nil
	}

	receiptID := ""
	for _, data := range ackFiles {
		res := bsa.ParseAcknowledgment(data)
		for _, issue := range res.ParseIssues {
			p.log.Warn().Str("subject_id", sub.SubjectID).Msg(issue)
		}
		if receiptID == "" {
			receiptID = res.FirstReceiptID()
		}
	}

	status := bsa.StatusUnknown
	var firstErr bsa.StatusError
	for _, data := range msgFiles {
		res := bsa.ParseMessages(data)
		for _, issue := range res.ParseIssues {
			p.log.Warn().Str("subject_id", sub.SubjectID).Msg(issue)
		}
		for _, w := range res.Warnings {
			p.log.Warn().Str("subject_id", sub.SubjectID).Str("code", w.Code).
				Uint64("seq", w.SeqNum).Msg(w.Message)
		}
		status = mergeStatus(status, res.Status)
		if firstErr.Code == "" && len(res.Errors) > 0 {
			firstErr = res.FirstError()
		}
	}

	var ev lifecycle.StatusChange
	switch {
	case status == bsa.StatusRejected:
		ev, err = lifecycle.Reject(fresh, firstErr.Code, firstErr.Message)
	case status == bsa.StatusAccepted || status == bsa.StatusAcceptedWithWarnings:
		ev, err = lifecycle.Accept(fresh, receiptID)
	case len(msgFiles) == 0 && receiptID != "":
		// Acknowledgment arrived before (or without) the message file; a
		// receipt id only exists on acceptance.
		ev, err = lifecycle.Accept(fresh, receiptID)
	default:
		ev, err = lifecycle.NeedsReview(fresh, "response files could not be interpreted")
	}
	if err != nil {
		return err
	}
	if err := p.repo.Update(ctx, fresh); err != nil {
		return fmt.Errorf("persist reconciled status: %w", err)
	}
	p.listener.OnStatusChange(ev)

	p.log.Info().Str("subject_id", sub.SubjectID).Str("status", fresh.Status).
		Str("receipt_id", fresh.ReceiptID).Msg("filing reconciled")
	return nil
}

// mergeStatus folds statuses across multiple message files: any rejection
// dominates, warnings downgrade a plain acceptance.
func mergeStatus(a, b bsa.StatusCode) bsa.StatusCode {
	rank := map[bsa.StatusCode]int{
		bsa.StatusUnknown:              0,
		bsa.StatusAccepted:             1,
		bsa.StatusAcceptedWithWarnings: 2,
		bsa.StatusRejected:             3,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func isAcknowledgment(name string, data []byte) bool {
	if strings.Contains(strings.ToUpper(name), "ACKED") {
		return true
	}
	return bytes.Contains(data, []byte("Acknowledg")) || bytes.Contains(data, []byte("BSAIdentifier"))
}
