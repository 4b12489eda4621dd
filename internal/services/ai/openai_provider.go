// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider sends completions to an OpenAI-compatible hosted API.
type OpenAIProvider struct {
	config *Config
	client *openai.Client
	logger Logger
}

func NewOpenAIProvider(config *Config, logger Logger) *OpenAIProvider {
	if logger == nil {
		logger = nopLogger{}
	}
	llmConfig := openai.DefaultConfig(config.APIKey)
	llmConfig.BaseURL = config.BaseURL
	llmConfig.HTTPClient = &statusDoer{client: &http.Client{}}

	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(llmConfig),
		logger: logger,
	}
}

// Model returns the upstream model identifier.
func (p *OpenAIProvider) Model() string { return p.config.Model }

// CheckConfigured fails when no upstream credential is present.
func (p *OpenAIProvider) CheckConfigured() error {
	if strings.TrimSpace(p.config.APIKey) == "" {
		name := p.config.CredentialName
		if name == "" {
			name = "upstream credential"
		}
		return NewConfigError(name + " not configured")
	}
	return nil
}

func (p *OpenAIProvider) request(messages []Message, opts Options) openai.ChatCompletionRequest {
	history := WithSystemPrompt(messages, opts.SystemPrompt)
	req := openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(history)),
		Temperature: wireTemperature(p.config.Temperature),
		MaxTokens:   p.config.MaxTokens,
	}
	for _, m := range history {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	if opts.Temperature != nil {
		req.Temperature = wireTemperature(*opts.Temperature)
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	return req
}

// wireTemperature keeps an explicit zero on the wire. go-openai drops a zero
// Temperature through omitempty, and the upstream then applies its own default.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (p *OpenAIProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.Timeout > 0 {
		return context.WithTimeout(ctx, p.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// Complete issues one non-streaming request, or a streaming one when onDelta is
// set. No retries. An absent first choice yields an empty reply, not an error.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts Options, onDelta DeltaFunc) (string, error) {
	if err := p.CheckConfigured(); err != nil {
		return "", err
	}
	req := p.request(messages, opts)
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	if onDelta != nil {
		return p.stream(ctx, req, onDelta)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", p.classify(ctx, "completion", err)
	}
	if len(resp.Choices) == 0 {
		p.logger.Warn("upstream returned no choices", "model", p.config.Model)
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) stream(ctx context.Context, req openai.ChatCompletionRequest, onDelta DeltaFunc) (string, error) {
	req.Stream = true
	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", p.classify(ctx, "streaming", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return "", p.classify(ctx, "streaming", err)
		}
		if len(response.Choices) > 0 {
			if delta := response.Choices[0].Delta.Content; delta != "" {
				full.WriteString(delta)
				onDelta(delta, full.String())
			}
		}
	}
}

// classify maps transport failures onto the AIError taxonomy.
func (p *OpenAIProvider) classify(ctx context.Context, operation string, err error) error {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		aiErr.Operation = operation
		aiErr.Model = p.config.Model
		p.logger.Warn("upstream rejected request", "status", aiErr.Code, "model", p.config.Model)
		return aiErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &AIError{Type: ErrTypeTimeout, Operation: operation, Model: p.config.Model, Message: "upstream request timed out", Cause: err}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &AIError{Type: ErrTypeUpstream, Code: apiErr.HTTPStatusCode, Operation: operation, Model: p.config.Model, Message: apiErr.Message, Cause: err}
	}
	return &AIError{Type: ErrTypeNetwork, Operation: operation, Model: p.config.Model, Message: "upstream request failed", Cause: err}
}
