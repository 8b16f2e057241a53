package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"b1poster/internal/batch"
	"b1poster/internal/journal"
	"b1poster/internal/logger"
	"b1poster/internal/posting"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = extractSpreadsheetID("https://example.com/sheet")
	assert.Error(t, err)
}

func sampleResults() []batch.Result {
	return []batch.Result{
		{
			Tab: "Sales", RefNo: "R-1", CardCode: "C1", Status: batch.StatusPosted,
			Message: posting.SuccessMessage + "102",
			Steps: []journal.Step{
				{Kind: "ARInvoice", DocEntry: 101, Valid: true},
				{Kind: "IncomingPayment", DocEntry: 102, Valid: true},
			},
		},
		{
			Tab: "Sales", RefNo: "R-2", CardCode: "C2", Status: batch.StatusRolledBack,
			Message: "Cash account not found",
			Steps: []journal.Step{
				{Kind: "ARInvoice", DocEntry: 103, Valid: true},
				{Kind: "IncomingPayment", Valid: false},
			},
		},
		{
			Tab: "Sales", RefNo: "R-3", CardCode: "C3", Status: batch.StatusRolledBack,
			Compensation: posting.CompensationFailures{{DocEntry: 104, Message: "Document is already closed"}},
		},
	}
}

func TestConvertResults(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	rows := ConvertResults(sampleResults(), "SER-1", at)

	require.Len(t, rows, 3)
	assert.Equal(t, "101, 102", rows[0].DocEntries)
	assert.Equal(t, "ARInvoice, IncomingPayment", rows[0].Kinds)
	assert.Empty(t, rows[0].Rollback)
	assert.Equal(t, "SER-1", rows[0].Serial)
	assert.Equal(t, "2024-03-01 09:30:00", rows[0].ProcessedAt)

	assert.Equal(t, "103", rows[1].DocEntries)
	assert.Equal(t, "complete", rows[1].Rollback)

	assert.True(t, strings.HasPrefix(rows[2].Rollback, "incomplete: "))
	assert.Contains(t, rows[2].Rollback, "Document is already closed")

	assert.Len(t, rows[0].Values(), columnCount)
	assert.Len(t, headers, columnCount)
}

func TestReport_AppendsRows(t *testing.T) {
	require.NoError(t, logger.Setup(logger.DefaultConfig()))

	var appended sheets.ValueRange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
			require.NoError(t, json.NewDecoder(r.Body).Decode(&appended))
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
			_, _ = w.Write([]byte(`{"values": [["Tab"]]}`))
		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"sheets": [{"properties": {"title": "Postings", "sheetId": 7}}]}`))
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := sheets.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	reporter := (&Service{
		sheetsService: svc,
		spreadsheetID: "abc",
		worksheet:     "Postings",
		log:           logger.WithComponent("sheets"),
	}).WithSerial("SER-1")

	require.NoError(t, reporter.Report(ctx, sampleResults()))
	require.Len(t, appended.Values, 3)
	assert.Equal(t, "R-1", appended.Values[0][1])
	assert.Equal(t, "SER-1", appended.Values[2][8])
}

func TestNewSheetsService_RequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_CREDENTIALS", "")

	_, err := NewSheetsService(context.Background(), "https://docs.google.com/spreadsheets/d/abc/edit", "Postings")
	assert.ErrorContains(t, err, "GOOGLE_CREDENTIALS")
}
