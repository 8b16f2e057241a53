package logcollector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b1poster/internal/logcollector"
)

func TestSend(t *testing.T) {
	var got logcollector.Event
	var path, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := logcollector.NewClientWithHTTPClient(srv.URL+"/", srv.Client())
	err := client.Send(context.Background(), logcollector.Event{LogMessage: "PROGRESS ~ x", Serial: "S-1"})

	require.NoError(t, err)
	assert.Equal(t, "/log", path)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "PROGRESS ~ x", got.LogMessage)
	assert.Equal(t, "S-1", got.Serial)
}

func TestSend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := logcollector.NewClientWithHTTPClient(srv.URL, srv.Client())
	err := client.Send(context.Background(), logcollector.Event{Serial: "S-1"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := logcollector.NewClientWithHTTPClient(srv.URL, srv.Client())
	srv.Close()

	assert.Error(t, client.Send(context.Background(), logcollector.Event{}))
}

func TestEventJSON(t *testing.T) {
	body, err := json.Marshal(logcollector.Event{LogMessage: "m", Serial: "s"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"logMessage":"m","serial":"s"}`, string(body))
}
