// Package pipeline sequences fetch → classify → extract → gate → dedup →
// write → trash → commit for each message, under the cross-run lock.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"apptrack/internal/classify"
	"apptrack/internal/ledger"
	"apptrack/internal/mail"
	"apptrack/internal/model"
	"apptrack/internal/resilience"
)

// MessageSource is the mailbox collaborator.
type MessageSource interface {
	Fetch(ctx context.Context, sel mail.Selector) ([]model.RawMessage, error)
	Trash(ctx context.Context, id string) error
}

// SheetWriter is the spreadsheet collaborator. Append must be safe to
// repeat: a retried run may append the same content again and the worst
// case is a visually duplicate row, never corruption.
type SheetWriter interface {
	EnsureHeaders() error
	Append(cells []string) error
}

// Ledger is the dedup store. Any error from it aborts the run.
type Ledger interface {
	Migrate(ctx context.Context) error
	IsDuplicate(ctx context.Context, emailID, company, position, date string) (bool, error)
	Commit(ctx context.Context, emailID, company, position, date string) error
}

// Classifier decides whether a message is an application confirmation.
type Classifier interface {
	Classify(ctx context.Context, msg model.RawMessage) classify.Decision
}

// Extractor turns a positive message into a candidate record.
type Extractor interface {
	Extract(ctx context.Context, msg model.RawMessage) (model.Candidate, error)
}

// Run statuses.
const (
	StatusOK     = "ok"
	StatusLocked = "locked"
)

// Skip reasons accumulated in the summary.
const (
	SkipNegative      = "classified-negative"
	SkipExtractFailed = "extraction-failed"
	SkipLowConfidence = "low-confidence"
	SkipDuplicate     = "duplicate"
	SkipWriteFailed   = "write-failed"
	SkipTrashFailed   = "trash-failed"
)

// Summary is the user-visible record of a run's outcome.
type Summary struct {
	Status      string
	Fetched     int
	Skipped     int
	Added       int
	Deleted     int
	SkipReasons map[string]int
}

func newSummary() Summary {
	return Summary{Status: StatusOK, SkipReasons: map[string]int{}}
}

func (s *Summary) skip(msg model.RawMessage, reason string) {
	s.Skipped++
	s.SkipReasons[reason]++
	zap.L().Info("pipeline: message skipped",
		zap.String("email_id", msg.ID),
		zap.String("reason", reason),
	)
}

// Orchestrator wires the collaborators together. All fields are
// required except where noted.
type Orchestrator struct {
	Source     MessageSource
	Sheet      SheetWriter
	Ledger     Ledger
	Classifier Classifier
	Extractor  Extractor

	// AcquireLock takes the cross-run lock, returning its release func.
	// It must return ledger.ErrLocked on contention.
	AcquireLock func() (release func() error, err error)

	Selector  mail.Selector
	Threshold float64
	Retry     resilience.RetryConfig
}

// Run processes one batch of messages, strictly one message at a time.
// A second run attempted while the lock is held gets Summary.Status ==
// StatusLocked, no error, and no side effects.
//
// Per message, Written happens before Trashed before Committed. Failure
// at any step leaves the message uncommitted: the next run sees it as
// new and attempts the sequence again.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	sum := newSummary()

	release, err := o.AcquireLock()
	if err != nil {
		if eris.Is(err, ledger.ErrLocked) {
			zap.L().Info("pipeline: another run is active, exiting")
			sum.Status = StatusLocked
			return sum, nil
		}
		return sum, eris.Wrap(err, "pipeline: acquire run lock")
	}
	defer func() {
		if err := release(); err != nil {
			zap.L().Error("pipeline: release run lock", zap.Error(err))
		}
	}()

	// Ledger schema and sheet headers are independent; verify both
	// before touching any message.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.Ledger.Migrate(gctx) })
	g.Go(func() error { return o.Sheet.EnsureHeaders() })
	if err := g.Wait(); err != nil {
		return sum, eris.Wrap(err, "pipeline: preflight")
	}

	msgs, err := resilience.DoVal(ctx, o.Retry, "fetch", func(ctx context.Context) ([]model.RawMessage, error) {
		return o.Source.Fetch(ctx, o.Selector)
	})
	if err != nil {
		return sum, eris.Wrap(err, "pipeline: fetch")
	}
	sum.Fetched = len(msgs)
	zap.L().Info("pipeline: fetched messages", zap.Int("count", len(msgs)))

	gate := Gate{Threshold: o.Threshold}

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		dec := o.Classifier.Classify(ctx, msg)
		if !dec.Positive {
			sum.skip(msg, SkipNegative)
			continue
		}
		zap.L().Debug("pipeline: classified positive",
			zap.String("email_id", msg.ID),
			zap.String("rule", dec.Rule),
		)

		cand, err := o.Extractor.Extract(ctx, msg)
		if err != nil {
			zap.L().Warn("pipeline: extraction failed",
				zap.String("email_id", msg.ID),
				zap.Error(err),
			)
			sum.skip(msg, SkipExtractFailed)
			continue
		}

		if !gate.Accept(cand) {
			// Deliberately left unmarked so a better template or a lower
			// threshold can pick the message up on a later run.
			zap.L().Info("pipeline: below confidence threshold",
				zap.String("email_id", msg.ID),
				zap.Float64("confidence", cand.Confidence),
				zap.Float64("threshold", o.Threshold),
			)
			sum.skip(msg, SkipLowConfidence)
			continue
		}

		dup, err := o.Ledger.IsDuplicate(ctx, msg.ID, cand.Company, cand.Position, cand.DateApplied)
		if err != nil {
			return sum, eris.Wrap(err, "pipeline: dedup check")
		}
		if dup {
			sum.skip(msg, SkipDuplicate)
			continue
		}

		if err := resilience.Do(ctx, o.Retry, "sheet-append", func(context.Context) error {
			return o.Sheet.Append(cand.Row())
		}); err != nil {
			zap.L().Error("pipeline: sheet append failed",
				zap.String("email_id", msg.ID),
				zap.Error(err),
			)
			sum.skip(msg, SkipWriteFailed)
			continue
		}

		if err := resilience.Do(ctx, o.Retry, "trash", func(ctx context.Context) error {
			return o.Source.Trash(ctx, msg.ID)
		}); err != nil {
			// Written but not trashed: stay uncommitted so the next run
			// retries. The sheet may show the row twice; the ledger never
			// records the application twice.
			zap.L().Error("pipeline: trash failed",
				zap.String("email_id", msg.ID),
				zap.Error(err),
			)
			sum.skip(msg, SkipTrashFailed)
			continue
		}

		if err := o.Ledger.Commit(ctx, msg.ID, cand.Company, cand.Position, cand.DateApplied); err != nil {
			if eris.Is(err, ledger.ErrExists) {
				sum.skip(msg, SkipDuplicate)
				continue
			}
			return sum, eris.Wrap(err, "pipeline: commit")
		}

		sum.Added++
		sum.Deleted++
		zap.L().Info("pipeline: application recorded",
			zap.String("email_id", msg.ID),
			zap.String("company", cand.Company),
			zap.String("position", cand.Position),
			zap.String("method", string(cand.Method)),
			zap.Float64("confidence", cand.Confidence),
		)
	}

	zap.L().Info("pipeline: run complete",
		zap.Int("fetched", sum.Fetched),
		zap.Int("skipped", sum.Skipped),
		zap.Int("added", sum.Added),
		zap.Int("deleted", sum.Deleted),
	)
	return sum, nil
}
