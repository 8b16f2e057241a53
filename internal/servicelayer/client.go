// Package servicelayer talks to the SAP Business One Service Layer.
//
// The Client exposes the two calls the poster needs, create and cancel, on
// top of a Transport. HTTPTransport is the production transport: it posts
// JSON to https://<server>:<port>/b1s/v1/<path> with the B1SESSION cookie.
//
// Responses are status-agnostic. Callers inspect Response.Failed rather than
// the HTTP status, and transport failures are reported the same way so the
// caller has a single failure path.
package servicelayer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"b1poster/internal/logger"
)

// Client creates and cancels Service Layer documents.
type Client struct {
	transport Transport
	log       zerolog.Logger
}

// NewClient creates a client on top of transport.
func NewClient(transport Transport) *Client {
	return &Client{
		transport: transport,
		log:       logger.WithComponent("servicelayer"),
	}
}

// CancelPath returns the cancel action path of a document.
func CancelPath(resource string, docEntry int) string {
	return fmt.Sprintf("%s(%d)/Cancel", resource, docEntry)
}

// Create posts payload to the resource entity set.
func (c *Client) Create(ctx context.Context, resource string, payload any) *Response {
	return c.post(ctx, resource, payload)
}

// Cancel invokes the cancel action at resourcePath with an empty body.
func (c *Client) Cancel(ctx context.Context, resourcePath string) *Response {
	return c.post(ctx, resourcePath, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) *Response {
	resp, err := c.transport.Post(ctx, path, body)
	if err != nil {
		c.log.Error().
			Err(err).
			Str("path", path).
			Msg("Service Layer call failed")
		return ErrorResponse(CodeTransport, err)
	}
	if resp == nil {
		return &Response{}
	}
	return resp
}
