package posting_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b1poster/internal/document"
	"b1poster/internal/logcollector"
	"b1poster/internal/posting"
	"b1poster/internal/servicelayer"
	"b1poster/pkg/models"
)

type call struct {
	Method  string
	Path    string
	Payload any
}

// fakeClient answers creates with increasing doc entries and fails the
// paths listed in failing.
type fakeClient struct {
	calls   []call
	next    int
	failing map[string]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{next: 100, failing: map[string]string{}}
}

func (f *fakeClient) Create(_ context.Context, resource string, payload any) *servicelayer.Response {
	f.calls = append(f.calls, call{Method: "create", Path: resource, Payload: payload})
	if msg, ok := f.failing[resource]; ok {
		return &servicelayer.Response{Error: &servicelayer.ErrorBody{Code: -5002, Message: servicelayer.Message{Value: msg}}}
	}
	f.next++
	return &servicelayer.Response{DocEntry: f.next}
}

func (f *fakeClient) Cancel(_ context.Context, path string) *servicelayer.Response {
	f.calls = append(f.calls, call{Method: "cancel", Path: path})
	if msg, ok := f.failing[path]; ok {
		return &servicelayer.Response{Code: -1, Message: &servicelayer.Message{Value: msg}}
	}
	return &servicelayer.Response{}
}

func (f *fakeClient) paths() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method + " " + c.Path
	}
	return out
}

func request() *models.RequestContext {
	return &models.RequestContext{
		CardCode:    "C1",
		TaxDate:     "2024-01-31",
		RefNo:       "R-1",
		JournalMemo: "memo",
		Serial:      "S-9",
		SourceFile:  "upload.xlsx",
		TabName:     "Sales",
		Count:       3,
		DetailLines: []models.DetailLine{
			{Quantity: decimal.NewFromInt(1), ItemCode: "A", Cost: decimal.NewFromInt(10)},
			{Quantity: decimal.NewFromInt(2), ItemCode: "B", Cost: decimal.NewFromInt(20)},
		},
	}
}

func TestCompensateAll_ReverseOrder(t *testing.T) {
	client := newFakeClient()
	ledger := posting.NewLedger()
	ledger.Record(document.ARInvoice, request(), document.Payload{}, 1)
	ledger.Record(document.GoodsReturn, request(), document.Payload{}, 2)
	ledger.Record(document.IncomingPayment, request(), document.Payload{}, 3)

	err := posting.NewCompensator(client).CompensateAll(context.Background(), ledger)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"cancel IncomingPayments(3)/Cancel",
		"cancel PurchaseReturns(2)/Cancel",
		"cancel Invoices(1)/Cancel",
	}, client.paths())
	assert.Equal(t, 0, ledger.Len())
}

func TestCompensateAll_SingleRecord(t *testing.T) {
	client := newFakeClient()
	ledger := posting.NewLedger()
	ledger.Record(document.GoodsReceiptPO, request(), document.Payload{}, 8)

	err := posting.NewCompensator(client).CompensateAll(context.Background(), ledger)

	require.NoError(t, err)
	assert.Equal(t, []string{"cancel PurchaseDeliveryNotes(8)/Cancel"}, client.paths())
}

func TestCompensateAll_TwoRecords(t *testing.T) {
	client := newFakeClient()
	ledger := posting.NewLedger()
	ledger.Record(document.ARInvoice, request(), document.Payload{}, 1)
	ledger.Record(document.ARCreditMemo, request(), document.Payload{}, 2)

	err := posting.NewCompensator(client).CompensateAll(context.Background(), ledger)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"cancel CreditNotes(2)/Cancel",
		"cancel Invoices(1)/Cancel",
	}, client.paths())
}

func TestCompensateAll_EmptyLedger(t *testing.T) {
	client := newFakeClient()

	err := posting.NewCompensator(client).CompensateAll(context.Background(), posting.NewLedger())

	assert.NoError(t, err)
	assert.Empty(t, client.calls)
}

func TestCompensateAll_NilLedger(t *testing.T) {
	client := newFakeClient()

	var ledger *posting.Ledger
	assert.NoError(t, posting.NewCompensator(client).CompensateAll(context.Background(), ledger))
	assert.Empty(t, client.calls)
	assert.Zero(t, ledger.Len())
	_, ok := ledger.Last()
	assert.False(t, ok)
}

func TestCompensateAll_ContinuesPastFailures(t *testing.T) {
	client := newFakeClient()
	client.failing["PurchaseReturns(2)/Cancel"] = "document already closed"
	ledger := posting.NewLedger()
	ledger.Record(document.ARInvoice, request(), document.Payload{}, 1)
	ledger.Record(document.GoodsReturn, request(), document.Payload{}, 2)
	ledger.Record(document.APCreditMemo, request(), document.Payload{}, 3)

	err := posting.NewCompensator(client).CompensateAll(context.Background(), ledger)

	require.Error(t, err)
	assert.Len(t, client.calls, 3)
	assert.ErrorIs(t, err, posting.ErrCompensationFailed)

	var failures posting.CompensationFailures
	require.True(t, errors.As(err, &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, document.GoodsReturn, failures[0].Kind)
	assert.Equal(t, 2, failures[0].DocEntry)
	assert.Equal(t, "document already closed", failures[0].Message)
	assert.Contains(t, err.Error(), "1 compensation step(s) failed")
}

func TestCompensateOne_DownPaymentIssuesCreditMemo(t *testing.T) {
	client := newFakeClient()
	payload, err := document.Build(document.ARDownPayment, request())
	require.NoError(t, err)

	record := posting.CreationRecord{Kind: document.ARDownPayment, Request: request(), Payload: payload, DocEntry: 555}
	require.NoError(t, posting.NewCompensator(client).CompensateOne(context.Background(), record))

	require.Len(t, client.calls, 1)
	c := client.calls[0]
	assert.Equal(t, "create", c.Method)
	assert.Equal(t, "CreditNotes", c.Path)

	memo, ok := c.Payload.(document.Payload)
	require.True(t, ok)
	assert.NotContains(t, memo, "JournalMemo")
	lines := memo.Lines()
	require.Len(t, lines, 2)
	for i, line := range lines {
		assert.Equal(t, 555, line["BaseEntry"])
		assert.Equal(t, i, line["BaseLine"])
		assert.Equal(t, 203, line["BaseType"])
	}

	// the recorded payload is left as it was created
	assert.Contains(t, payload, "JournalMemo")
	assert.NotContains(t, payload.Lines()[0], "BaseEntry")
}

type plainLinesHook struct{}

func (plainLinesHook) ProcessPayload(_ *models.RequestContext, payload map[string]any) {
	payload["DocumentLines"] = []map[string]any{
		{"ItemCode": "A", "Quantity": 1},
		{"ItemCode": "B", "Quantity": 2},
	}
}

func TestCompensateAll_DownPaymentWithHookLines(t *testing.T) {
	client := newFakeClient()
	ledger := posting.NewLedger()
	req := request()
	req.PayloadHook = plainLinesHook{}

	resp := posting.NewPoster(client).CreateDocument(context.Background(), document.ARDownPayment, req, ledger)
	require.False(t, resp.Failed())
	require.Equal(t, 1, ledger.Len())
	docEntry := resp.DocEntry

	require.NoError(t, posting.NewCompensator(client).CompensateAll(context.Background(), ledger))

	c := client.calls[len(client.calls)-1]
	assert.Equal(t, "CreditNotes", c.Path)
	memo, ok := c.Payload.(document.Payload)
	require.True(t, ok)
	lines := memo.Lines()
	require.Len(t, lines, 2)
	for i, line := range lines {
		assert.Equal(t, docEntry, line["BaseEntry"])
		assert.Equal(t, i, line["BaseLine"])
		assert.Equal(t, 203, line["BaseType"])
	}
}

func TestCompensateOne_DownPaymentFailure(t *testing.T) {
	client := newFakeClient()
	client.failing["CreditNotes"] = "period locked"
	record := posting.CreationRecord{Kind: document.ARDownPayment, Payload: document.Payload{}, DocEntry: 1}

	err := posting.NewCompensator(client).CompensateOne(context.Background(), record)

	assert.ErrorIs(t, err, posting.ErrCompensationFailed)
	assert.Contains(t, err.Error(), "period locked")
}

func TestCompensateAll_DownPaymentNotRecorded(t *testing.T) {
	client := newFakeClient()
	ledger := posting.NewLedger()
	ledger.Record(document.ARDownPayment, request(), document.Payload{"DocumentLines": []document.Payload{{}}}, 10)

	require.NoError(t, posting.NewCompensator(client).CompensateAll(context.Background(), ledger))

	assert.Equal(t, []string{"create CreditNotes"}, client.paths())
	assert.Equal(t, 0, ledger.Len())
}

func TestCreateDocument_RecordsSuccess(t *testing.T) {
	client := newFakeClient()
	ledger := posting.NewLedger()
	poster := posting.NewPoster(client)

	resp := poster.CreateDocument(context.Background(), document.ARInvoice, request(), ledger)

	require.False(t, resp.Failed())
	assert.Equal(t, 101, resp.DocEntry)
	require.Equal(t, 1, ledger.Len())
	rec, ok := ledger.Last()
	require.True(t, ok)
	assert.Equal(t, document.ARInvoice, rec.Kind)
	assert.Equal(t, 101, rec.DocEntry)
	assert.Equal(t, "C1", rec.Payload["CardCode"])
	assert.Equal(t, "Invoices", client.calls[0].Path)
}

func TestCreateDocument_FailureNotRecorded(t *testing.T) {
	client := newFakeClient()
	client.failing["Invoices"] = "bad"
	ledger := posting.NewLedger()

	resp := posting.NewPoster(client).CreateDocument(context.Background(), document.ARInvoice, request(), ledger)

	assert.True(t, resp.Failed())
	assert.Equal(t, "bad", resp.ErrorMessage())
	assert.Equal(t, 0, ledger.Len())
}

func TestCreateDocument_InvalidRequest(t *testing.T) {
	client := newFakeClient()
	req := request()
	req.CardCode = ""

	resp := posting.NewPoster(client).CreateDocument(context.Background(), document.ARInvoice, req, posting.NewLedger())

	require.True(t, resp.Failed())
	assert.Equal(t, servicelayer.CodeInvalidRequest, resp.ErrorCode())
	assert.Contains(t, resp.ErrorMessage(), "CardCode")
	assert.Empty(t, client.calls)
}

func TestCreateDocument_PanicBecomesResponse(t *testing.T) {
	client := newFakeClient()
	req := request()
	req.BaseLines = models.BaseLineFunc(func(*models.RequestContext, models.DetailLine) *models.BaseLineRef {
		panic("lookup table missing")
	})

	resp := posting.NewPoster(client).CreateDocument(context.Background(), document.ARInvoice, req, posting.NewLedger())

	require.True(t, resp.Failed())
	assert.Equal(t, servicelayer.CodeUnknown, resp.ErrorCode())
	assert.Equal(t, "lookup table missing", resp.ErrorMessage())
	assert.Contains(t, resp.Error.Message.Raw, "lookup table missing")
}

type hook struct{}

func (hook) ProcessPayload(_ *models.RequestContext, payload map[string]any) {
	payload["Comments"] = "hooked"
}

func TestCreateDocument_PayloadHook(t *testing.T) {
	client := newFakeClient()
	req := request()
	req.PayloadHook = hook{}

	posting.NewPoster(client).CreateDocument(context.Background(), document.ARInvoice, req, nil)

	payload := client.calls[0].Payload.(document.Payload)
	assert.Equal(t, "hooked", payload["Comments"])
}

type fakeSink struct {
	events []logcollector.Event
	err    error
}

func (s *fakeSink) Send(_ context.Context, event logcollector.Event) error {
	s.events = append(s.events, event)
	return s.err
}

func TestClassify(t *testing.T) {
	ok := posting.Classify(&servicelayer.Response{DocEntry: 42})
	assert.True(t, ok.Valid)
	assert.Contains(t, ok.Message, "42")
	assert.Equal(t, "Operation completed successfully - 42", ok.Message)
	assert.Equal(t, 42, ok.DocEntry)

	nested := posting.Classify(&servicelayer.Response{Error: &servicelayer.ErrorBody{Message: servicelayer.Message{Value: "bad"}}})
	assert.False(t, nested.Valid)
	assert.Equal(t, "bad", nested.Message)

	topLevel := posting.Classify(&servicelayer.Response{Code: 301, Message: &servicelayer.Message{Value: "Invalid session."}})
	assert.False(t, topLevel.Valid)
	assert.Equal(t, "Invalid session.", topLevel.Message)
}

func TestProcess_SendsProgressEvent(t *testing.T) {
	sink := &fakeSink{}
	processor := posting.NewResultProcessor(sink)

	outcome := processor.Process(context.Background(), &servicelayer.Response{DocEntry: 42}, request(), true)

	assert.True(t, outcome.Valid)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "S-9", sink.events[0].Serial)
	assert.Equal(t, "PROGRESS ~ upload.xlsx ~ POSTED ~ Sales (3) ~ DocEntry:42, RefNo:R-1, 2 line(s)", sink.events[0].LogMessage)
}

func TestProcess_SinkFailureDoesNotAffectOutcome(t *testing.T) {
	sink := &fakeSink{err: fmt.Errorf("collector down")}
	processor := posting.NewResultProcessor(sink)

	outcome := processor.Process(context.Background(), &servicelayer.Response{DocEntry: 7}, request(), true)

	assert.True(t, outcome.Valid)
	assert.Equal(t, "Operation completed successfully - 7", outcome.Message)
	assert.Len(t, sink.events, 1)
}

func TestProcess_NoEventWhenDisabledOrFailed(t *testing.T) {
	sink := &fakeSink{}
	processor := posting.NewResultProcessor(sink)

	processor.Process(context.Background(), &servicelayer.Response{DocEntry: 7}, request(), false)
	failed := processor.Process(context.Background(), &servicelayer.Response{Code: 1, Message: &servicelayer.Message{Value: "x"}}, request(), true)

	assert.False(t, failed.Valid)
	assert.Empty(t, sink.events)
}
