package posting

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"b1poster/internal/document"
	"b1poster/internal/logger"
	"b1poster/internal/servicelayer"
	"b1poster/pkg/models"
)

// Poster builds documents and submits them to the Service Layer.
type Poster struct {
	client DocumentClient
	log    zerolog.Logger
}

// NewPoster creates a poster that submits through client.
func NewPoster(client DocumentClient) *Poster {
	return &Poster{
		client: client,
		log:    logger.WithComponent("poster"),
	}
}

// CreateDocument builds a document of the given kind from req, submits it
// and, on success, records it in ledger. It never returns an error or
// panics: build failures and unexpected faults are reported as failed
// responses so callers have a single failure path.
func (p *Poster) CreateDocument(ctx context.Context, kind document.Kind, req *models.RequestContext, ledger *Ledger) (resp *servicelayer.Response) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Str("kind", kind.String()).
				Interface("panic", r).
				Msg("Unexpected failure while posting document")
			resp = &servicelayer.Response{
				Error: &servicelayer.ErrorBody{
					Code: servicelayer.CodeUnknown,
					Message: servicelayer.Message{
						Value: fmt.Sprint(r),
						Raw:   fmt.Sprintf("%v\n%s", r, debug.Stack()),
					},
				},
			}
		}
	}()

	payload, err := document.Build(kind, req)
	if err != nil {
		p.log.Warn().
			Err(err).
			Str("kind", kind.String()).
			Msg("Rejected invalid posting request")
		return servicelayer.ErrorResponse(servicelayer.CodeInvalidRequest, err)
	}

	if req.PayloadHook != nil {
		req.PayloadHook.ProcessPayload(req, payload)
	}

	resp = p.client.Create(ctx, kind.ResourceName(), payload)
	if resp.Failed() {
		p.log.Warn().
			Str("kind", kind.String()).
			Str("card_code", req.CardCode).
			Str("ref_no", req.RefNo).
			Str("error", resp.ErrorMessage()).
			Msg("Document rejected by Service Layer")
		return resp
	}

	if ledger != nil {
		ledger.Record(kind, req, payload, resp.DocEntry)
	}

	p.log.Info().
		Str("kind", kind.String()).
		Int("doc_entry", resp.DocEntry).
		Str("ref_no", req.RefNo).
		Int("lines", len(req.DetailLines)).
		Msg("Document created")
	return resp
}
