package functions

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/atendimento-service/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.FunctionsConfig{BaseURL: srv.URL + "/", APIKey: "secret", TimeoutSeconds: 5})
}

func TestInvoke_DecodesData(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"agent_id":"agent-7"}}`))
	})

	queue := "q-1"
	agentID, err := AssignRoundRobin(context.Background(), client, "t-1", &queue)

	require.NoError(t, err)
	assert.Equal(t, "agent-7", agentID)
	assert.Equal(t, "/functions/assignTicketRoundRobin", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "q-1", gotBody["queue_id"])
}

func TestInvoke_RemoteError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"provider unavailable"}`))
	})

	_, err := CheckSignatureDocument(context.Background(), client, "doc-1")

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusBadGateway, remote.Status)
	assert.Equal(t, "provider unavailable", remote.Message)
}

func TestInvoke_MissingDataFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	_, err := CreateSignatureDocument(context.Background(), client, "t-1", "Joana", "joana@example.com")
	assert.Error(t, err)

	_, err = AssignRoundRobin(context.Background(), client, "t-1", nil)
	assert.Error(t, err)
}

func TestInvoke_NotConfigured(t *testing.T) {
	client := NewClient(config.FunctionsConfig{})
	err := client.Invoke(context.Background(), "x", nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInvoke_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Invoke(ctx, "x", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostJSON(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	client := NewClient(config.FunctionsConfig{BaseURL: srv.URL})

	require.NoError(t, client.PostJSON(context.Background(), srv.URL+"/ok", map[string]string{"a": "b"}))
	assert.Error(t, client.PostJSON(context.Background(), srv.URL+"/fail", nil))
	assert.Equal(t, 2, hits)
}
