package servicelayer

import (
	"encoding/json"
	"fmt"
)

// Error codes set by this package when a response did not come from the ERP.
const (
	CodeTransport      = "transport"
	CodeInvalidRequest = "invalid_request"
	CodeUnknown        = "unknown"
)

// Message is the message object of a Service Layer error.
type Message struct {
	Lang  string `json:"lang,omitempty"`
	Value string `json:"value"`
	Raw   string `json:"raw,omitempty"`
}

// ErrorBody is the nested error object of a failed request.
type ErrorBody struct {
	Code    any     `json:"code"`
	Message Message `json:"message"`
}

// Response is the decoded body of a Service Layer call. A successful create
// carries DocEntry; a failure carries either Error or the top-level
// Code/Message pair.
type Response struct {
	DocEntry int         `json:"DocEntry,omitempty"`
	DocNum   int         `json:"DocNum,omitempty"`
	DocTotal json.Number `json:"DocTotal,omitempty"`

	Error   *ErrorBody `json:"error,omitempty"`
	Code    any        `json:"code,omitempty"`
	Message *Message   `json:"message,omitempty"`

	// Body holds the undecoded response, when there was one.
	Body json.RawMessage `json:"-"`
}

// Failed reports whether the response carries an error or code marker.
func (r *Response) Failed() bool {
	return r == nil || r.Error != nil || r.Code != nil
}

// ErrorMessage returns the error text of a failed response.
func (r *Response) ErrorMessage() string {
	switch {
	case r == nil:
		return "empty response"
	case r.Error != nil:
		return r.Error.Message.Value
	case r.Message != nil:
		return r.Message.Value
	case r.Code != nil:
		return fmt.Sprintf("error code %v", r.Code)
	default:
		return ""
	}
}

// ErrorCode returns the error code of a failed response.
func (r *Response) ErrorCode() any {
	if r == nil {
		return nil
	}
	if r.Error != nil {
		return r.Error.Code
	}
	return r.Code
}

// ErrorResponse builds a failed response that did not come from the ERP.
func ErrorResponse(code string, err error) *Response {
	return &Response{
		Error: &ErrorBody{
			Code: code,
			Message: Message{
				Value: err.Error(),
				Raw:   fmt.Sprintf("%+v", err),
			},
		},
	}
}
