package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/oni-chat/internal/domain"
)

func TestRelayClient_Complete(t *testing.T) {
	var got relayRequest
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"role":"assistant","content":"pong"}`)
	}))
	defer srv.Close()

	var streamed string
	c := NewRelayClient(srv.URL+"/", 0, nil)
	reply, err := c.Complete(context.Background(), []Message{{Role: domain.RoleUser, Content: "ping"}},
		Options{SystemPrompt: "custom"}, func(_, full string) { streamed = full })
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)
	assert.Equal(t, "pong", streamed)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "custom", got.SystemPrompt)
	require.Len(t, got.Messages, 1)
}

func TestRelayClient_ErrorSurfacesStatusAndBody(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":"upstream_error","detail":"busy"}`)
	}))
	defer srv.Close()

	_, err := NewRelayClient(srv.URL, 0, nil).Complete(context.Background(), nil, Options{}, nil)
	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, http.StatusBadGateway, aiErr.Code)
	assert.Equal(t, `{"error":"upstream_error","detail":"busy"}`, aiErr.Detail)
	assert.Equal(t, 1, calls, "no retries")
}
