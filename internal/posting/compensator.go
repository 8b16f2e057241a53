package posting

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"b1poster/internal/document"
	"b1poster/internal/logger"
	"b1poster/internal/servicelayer"
)

// DocumentClient is the part of servicelayer.Client the poster relies on.
type DocumentClient interface {
	Create(ctx context.Context, resource string, payload any) *servicelayer.Response
	Cancel(ctx context.Context, resourcePath string) *servicelayer.Response
}

// Compensator reverses the documents recorded in a Ledger.
type Compensator struct {
	client DocumentClient
	log    zerolog.Logger
}

// NewCompensator creates a compensator that issues its requests through client.
func NewCompensator(client DocumentClient) *Compensator {
	return &Compensator{
		client: client,
		log:    logger.WithComponent("compensator"),
	}
}

// CompensateAll reverses every recorded document, most recent first, and
// empties the ledger. A nil or empty ledger is a no-op. A failed step does not stop the remaining ones; all
// failures are returned together as CompensationFailures.
func (c *Compensator) CompensateAll(ctx context.Context, ledger *Ledger) error {
	if ledger == nil || ledger.Len() == 0 {
		return nil
	}
	records := ledger.Records()
	ledger.Reset()

	c.log.Info().
		Int("documents", len(records)).
		Msg("Rolling back created documents")

	var failures CompensationFailures
	for i := len(records) - 1; i >= 0; i-- {
		if err := c.CompensateOne(ctx, records[i]); err != nil {
			var failure CompensationFailure
			if !errors.As(err, &failure) {
				failure = CompensationFailure{Kind: records[i].Kind, DocEntry: records[i].DocEntry, Message: err.Error()}
			}
			failures = append(failures, failure)
		}
	}

	if len(failures) == 0 {
		return nil
	}
	c.log.Error().
		Err(failures).
		Int("failed", len(failures)).
		Msg("Rollback finished with failures")
	return failures
}

// CompensateOne reverses a single document. Down payments are reversed with
// a credit memo based on the original payload; every other kind is
// cancelled.
func (c *Compensator) CompensateOne(ctx context.Context, record CreationRecord) error {
	var resp *servicelayer.Response
	if record.Kind == document.ARDownPayment {
		memo := CreditMemoForDownPayment(record.Payload, record.DocEntry)
		resp = c.client.Create(ctx, document.ARCreditMemo.ResourceName(), memo)
	} else {
		resp = c.client.Cancel(ctx, servicelayer.CancelPath(record.Kind.ResourceName(), record.DocEntry))
	}

	log := c.log.With().
		Str("kind", record.Kind.String()).
		Int("doc_entry", record.DocEntry).
		Logger()

	if resp.Failed() {
		log.Warn().
			Str("error", resp.ErrorMessage()).
			Msg("Failed to reverse document")
		return CompensationFailure{Kind: record.Kind, DocEntry: record.DocEntry, Message: resp.ErrorMessage()}
	}

	log.Info().Msg("Document reversed")
	return nil
}

// CreditMemoForDownPayment derives the credit memo that offsets a down
// payment. The journal memo is dropped and every line is based on the down
// payment's own lines. payload is left untouched.
func CreditMemoForDownPayment(payload document.Payload, docEntry int) document.Payload {
	memo := payload.Clone()
	delete(memo, document.FieldJournalMemo)
	for i, line := range memo.Lines() {
		line[document.FieldBaseEntry] = docEntry
		line[document.FieldBaseLine] = i
		line[document.FieldBaseType] = document.ARDownPayment.ObjectType()
	}
	return memo
}
