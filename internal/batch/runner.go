// Package batch posts a whole upload workbook according to a profile.
//
// Requests are posted one after another. For each request the steps of its
// tab are executed in order, all sharing one Ledger; when a step is
// rejected, everything the earlier steps created is rolled back before the
// runner moves on to the next request.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"b1poster/internal/journal"
	"b1poster/internal/logger"
	"b1poster/internal/posting"
	"b1poster/internal/profile"
	"b1poster/internal/servicelayer"
	"b1poster/internal/workbook"
	"b1poster/pkg/models"
)

// Status values of a request result.
const (
	StatusPosted     = "posted"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
	StatusRolledBack = "rolled_back"

	// StatusNeedsAttention marks a request skipped because an earlier
	// rollback of it was incomplete.
	StatusNeedsAttention = "needs_attention"
)

// Journal is the subset of journal.Store used by the runner.
type Journal interface {
	Get(key string) (*journal.Entry, error)
	Put(e *journal.Entry) (bool, error)
}

// Reporter receives the results of a run, e.g. to publish them to a sheet.
type Reporter interface {
	Report(ctx context.Context, results []Result) error
}

// Result is the outcome of one request.
type Result struct {
	Tab          string
	RefNo        string
	CardCode     string
	Status       string
	Message      string
	Steps        []journal.Step
	Compensation error
}

// Summary aggregates a run.
type Summary struct {
	Results              []Result
	Posted               int
	Failed               int
	Skipped              int
	CompensationFailures int
	Duration             time.Duration
}

// Runner executes profiles against workbooks.
type Runner struct {
	poster          *posting.Poster
	compensator     *posting.Compensator
	results         *posting.ResultProcessor
	journal         Journal
	reporter        Reporter
	externalLogging bool
	dryRun          bool
	log             zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithJournal makes the runner skip requests already posted and record new ones.
func WithJournal(j Journal) Option {
	return func(r *Runner) { r.journal = j }
}

// WithReporter publishes the results after the run.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// WithExternalLogging forwards progress events for posted documents.
func WithExternalLogging(enabled bool) Option {
	return func(r *Runner) { r.externalLogging = enabled }
}

// WithDryRun builds and validates every request without posting.
func WithDryRun(enabled bool) Option {
	return func(r *Runner) { r.dryRun = enabled }
}

// NewRunner creates a runner.
func NewRunner(poster *posting.Poster, compensator *posting.Compensator, results *posting.ResultProcessor, opts ...Option) *Runner {
	r := &Runner{
		poster:      poster,
		compensator: compensator,
		results:     results,
		log:         logger.WithComponent("batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run posts every request of wb whose tab is listed in p. Tabs without a
// profile entry are skipped with a warning. Only journal and reporter
// failures are returned as errors; rejected documents are part of the
// summary.
func (r *Runner) Run(ctx context.Context, wb *workbook.Workbook, p *profile.Profile) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	for _, sheet := range wb.Sheets {
		tab, ok := p.Tab(sheet.Name)
		if !ok {
			r.log.Warn().Str("tab", sheet.Name).Msg("No profile for tab, skipping")
			continue
		}

		log := logger.WithUpload("batch", wb.Serial, sheet.Name)
		log.Info().Int("requests", len(sheet.Requests)).Msg("Posting tab")

		for i := range sheet.Requests {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			result, err := r.runRequest(ctx, wb.Serial, tab, &sheet.Requests[i])
			if err != nil {
				return summary, err
			}
			summary.add(result)
		}
	}
	summary.Duration = time.Since(start)

	if r.reporter != nil && len(summary.Results) > 0 {
		if err := r.reporter.Report(ctx, summary.Results); err != nil {
			return summary, fmt.Errorf("report results: %w", err)
		}
	}

	r.log.Info().
		Int("posted", summary.Posted).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int("compensation_failures", summary.CompensationFailures).
		Dur("duration", summary.Duration).
		Msg("Batch finished")
	return summary, nil
}

func (r *Runner) runRequest(ctx context.Context, serial string, tab *profile.Tab, req *models.RequestContext) (Result, error) {
	result := Result{Tab: req.TabName, RefNo: req.RefNo, CardCode: req.CardCode}
	key := journal.Key(serial, req.TabName, req.RefNo)
	if req.RefNo == "" {
		key = journal.Key(serial, req.TabName, fmt.Sprintf("#%d", req.Count))
	}

	if r.journal != nil {
		entry, err := r.journal.Get(key)
		switch {
		case errors.Is(err, journal.ErrNotFound):
		case err != nil:
			return result, fmt.Errorf("journal lookup %s: %w", key, err)
		case entry.Valid:
			result.Status = StatusSkipped
			result.Message = "already posted"
			return result, nil
		case entry.NeedsAttention:
			result.Status = StatusNeedsAttention
			result.Message = entry.Message
			result.Steps = entry.Steps
			return result, nil
		}
	}

	if r.dryRun {
		return r.dryRunRequest(ctx, tab, req, result), nil
	}

	ledger := posting.NewLedger()
	result.Status = StatusPosted
	for _, step := range tab.Steps {
		stepReq := step.Apply(*req)
		if step.ApplyPrevious {
			applyPrevious(stepReq, ledger)
		}

		resp := r.poster.CreateDocument(ctx, step.Kind, stepReq, ledger)
		outcome := r.results.Process(ctx, resp, stepReq, r.externalLogging)
		result.Steps = append(result.Steps, journal.Step{
			Kind:     step.Kind.String(),
			DocEntry: outcome.DocEntry,
			Valid:    outcome.Valid,
			Message:  outcome.Message,
		})
		result.Message = outcome.Message

		if !outcome.Valid {
			result.Status = StatusFailed
			if ledger.Len() > 0 {
				result.Status = StatusRolledBack
				result.Compensation = r.compensator.CompensateAll(ctx, ledger)
			}
			break
		}
	}

	if r.journal != nil {
		entry := &journal.Entry{
			Key:         key,
			Serial:      serial,
			Tab:         req.TabName,
			RefNo:       req.RefNo,
			Valid:       result.Status == StatusPosted,
			Message:     result.Message,
			Steps:       result.Steps,
			Compensated: result.Status == StatusRolledBack,
			PostedAt:    time.Now().UTC(),

			NeedsAttention: result.Compensation != nil,
		}
		if entry.NeedsAttention {
			entry.Message = result.Message + "; rollback incomplete: " + result.Compensation.Error()
		}
		if _, err := r.journal.Put(entry); err != nil {
			return result, fmt.Errorf("journal write %s: %w", key, err)
		}
	}
	return result, nil
}

// dryRunRequest builds every step without submitting anything.
func (r *Runner) dryRunRequest(ctx context.Context, tab *profile.Tab, req *models.RequestContext, result Result) Result {
	poster := posting.NewPoster(dryRunClient{})
	ledger := posting.NewLedger()
	result.Status = StatusPosted
	for _, step := range tab.Steps {
		stepReq := step.Apply(*req)
		if step.ApplyPrevious {
			applyPrevious(stepReq, ledger)
		}
		outcome := posting.Classify(poster.CreateDocument(ctx, step.Kind, stepReq, ledger))
		result.Steps = append(result.Steps, journal.Step{Kind: step.Kind.String(), Valid: outcome.Valid, Message: outcome.Message})
		result.Message = outcome.Message
		if !outcome.Valid {
			result.Status = StatusFailed
			break
		}
	}
	return result
}

// applyPrevious settles the last created document with the actual deposit.
func applyPrevious(req *models.RequestContext, ledger *posting.Ledger) {
	prev, ok := ledger.Last()
	if !ok || req.ActualDeposit == nil {
		return
	}
	req.PaymentInvoices = []models.PaymentInvoice{{
		DocEntry:   prev.DocEntry,
		ObjectType: prev.Kind.ObjectType(),
		SumApplied: *req.ActualDeposit,
	}}
}

func (s *Summary) add(result Result) {
	s.Results = append(s.Results, result)
	switch result.Status {
	case StatusPosted:
		s.Posted++
	case StatusSkipped, StatusNeedsAttention:
		s.Skipped++
	default:
		s.Failed++
	}
	if result.Compensation != nil {
		s.CompensationFailures++
	}
}

// dryRunClient accepts every document without contacting the ERP.
type dryRunClient struct{}

func (dryRunClient) Create(context.Context, string, any) *servicelayer.Response {
	return &servicelayer.Response{}
}

func (dryRunClient) Cancel(context.Context, string) *servicelayer.Response {
	return &servicelayer.Response{}
}
