package posting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"b1poster/internal/logcollector"
	"b1poster/internal/logger"
	"b1poster/internal/servicelayer"
	"b1poster/pkg/models"
)

// SuccessMessage prefixes the message of every successful Outcome.
const SuccessMessage = "Operation completed successfully - "

// Outcome is the classified result of one Service Layer call.
type Outcome struct {
	Valid    bool                   `json:"valid"`
	Message  string                 `json:"msg"`
	DocEntry int                    `json:"docentry,omitempty"`
	Raw      *servicelayer.Response `json:"raw,omitempty"`
}

// EventSink receives progress events for successful postings.
type EventSink interface {
	Send(ctx context.Context, event logcollector.Event) error
}

// Classify turns a raw response into an Outcome.
func Classify(resp *servicelayer.Response) Outcome {
	if resp.Failed() {
		return Outcome{
			Valid:   false,
			Message: resp.ErrorMessage(),
			Raw:     resp,
		}
	}
	return Outcome{
		Valid:    true,
		Message:  fmt.Sprintf("%s%d", SuccessMessage, resp.DocEntry),
		DocEntry: resp.DocEntry,
	}
}

// ResultProcessor classifies responses and reports successful postings to
// an optional EventSink.
type ResultProcessor struct {
	sink EventSink
	log  zerolog.Logger
}

// NewResultProcessor creates a processor. sink may be nil.
func NewResultProcessor(sink EventSink) *ResultProcessor {
	return &ResultProcessor{
		sink: sink,
		log:  logger.WithComponent("result-processor"),
	}
}

// Process classifies resp. When the outcome is valid and externalLogging is
// set, a progress event is sent; a failed send is logged and does not change
// the outcome.
func (p *ResultProcessor) Process(ctx context.Context, resp *servicelayer.Response, req *models.RequestContext, externalLogging bool) Outcome {
	outcome := Classify(resp)
	if !outcome.Valid {
		p.log.Warn().
			Interface("code", resp.ErrorCode()).
			Str("error", outcome.Message).
			Msg("Posting rejected")
		return outcome
	}

	if !externalLogging || p.sink == nil || req == nil {
		return outcome
	}

	event := logcollector.Event{
		LogMessage: ProgressMessage(req, outcome.DocEntry),
		Serial:     req.Serial,
	}
	if err := p.sink.Send(ctx, event); err != nil {
		p.log.Warn().
			Err(err).
			Str("serial", req.Serial).
			Msg("Failed to forward progress event")
	}
	return outcome
}

// ProgressMessage formats the progress line reported for a posted document.
func ProgressMessage(req *models.RequestContext, docEntry int) string {
	return fmt.Sprintf("PROGRESS ~ %s ~ POSTED ~ %s (%d) ~ DocEntry:%d, RefNo:%s, %d line(s)",
		req.SourceFile, req.TabName, req.Count, docEntry, req.RefNo, len(req.DetailLines))
}
