package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RelayClient sends a thread's history to a relay server's /chat endpoint and
// returns the single assistant reply. One request per call, no retries.
type RelayClient struct {
	baseURL    string
	httpClient *http.Client
	logger     Logger
}

// NewRelayClient targets baseURL (e.g. http://localhost:3000). timeout bounds
// each call; zero means no bound.
func NewRelayClient(baseURL string, timeout time.Duration, logger Logger) *RelayClient {
	if logger == nil {
		logger = nopLogger{}
	}
	return &RelayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type relayRequest struct {
	Messages     []Message `json:"messages"`
	Temperature  *float32  `json:"temperature,omitempty"`
	MaxTokens    *int      `json:"max_tokens,omitempty"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
}

type relayReply struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete posts the history. onDelta, if set, is called once with the whole
// reply since the relay does not stream.
func (c *RelayClient) Complete(ctx context.Context, messages []Message, opts Options, onDelta DeltaFunc) (string, error) {
	body, err := json.Marshal(relayRequest{
		Messages:     messages,
		Temperature:  opts.Temperature,
		MaxTokens:    opts.MaxTokens,
		SystemPrompt: opts.SystemPrompt,
	})
	if err != nil {
		return "", &AIError{Type: ErrTypeValidation, Operation: "relay", Message: "could not encode request", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", &AIError{Type: ErrTypeConfig, Operation: "relay", Message: "invalid relay URL", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", &AIError{Type: ErrTypeTimeout, Operation: "relay", Message: "relay request cancelled", Cause: err}
		}
		return "", &AIError{Type: ErrTypeNetwork, Operation: "relay", Message: "relay request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", &AIError{Type: ErrTypeNetwork, Operation: "relay", Message: "could not read relay response", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("relay returned error", "status", resp.StatusCode)
		return "", NewUpstreamError("relay", resp.StatusCode, string(raw))
	}

	var reply relayReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", NewProviderError("relay", fmt.Sprintf("malformed relay reply (status %d)", resp.StatusCode), err)
	}
	if onDelta != nil && reply.Content != "" {
		onDelta(reply.Content, reply.Content)
	}
	return reply.Content, nil
}
