package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultAcceleratorDevices are the device nodes checked by DeviceProbe.
var DefaultAcceleratorDevices = []string{"/dev/dri", "/dev/nvidia0", "/dev/kfd"}

// DeviceProbe reports acceleration as available when any of the given device
// paths exists. ONI_ACCELERATOR=none forces the probe to fail, =any to pass.
func DeviceProbe(paths ...string) AcceleratorProbe {
	if len(paths) == 0 {
		paths = DefaultAcceleratorDevices
	}
	return func() error {
		switch strings.ToLower(os.Getenv("ONI_ACCELERATOR")) {
		case "none":
			return errors.New("acceleration disabled by ONI_ACCELERATOR")
		case "any":
			return nil
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return nil
			}
		}
		return fmt.Errorf("none of %v present", paths)
	}
}

// RuntimeLoader loads models served by a local OpenAI-compatible runtime such
// as Ollama or llama.cpp.
type RuntimeLoader struct {
	BaseURL string
}

func (l *RuntimeLoader) Load(ctx context.Context, model string, onProgress func(LoadProgress)) (Engine, error) {
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = l.BaseURL
	client := openai.NewClientWithConfig(cfg)

	onProgress(LoadProgress{Fraction: 0, Text: "contacting local runtime"})
	models, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models at %s: %w", l.BaseURL, err)
	}
	found := false
	for _, m := range models.Models {
		if m.ID == model {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("model %q is not available at %s", model, l.BaseURL)
	}
	onProgress(LoadProgress{Fraction: 1, Text: "model ready"})
	return &runtimeEngine{client: client, model: model}, nil
}

type runtimeEngine struct {
	client *openai.Client
	model  string
}

func (e *runtimeEngine) Stream(ctx context.Context, messages []Message, opts Options, onDelta DeltaFunc) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
		Stream:   true,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	if opts.Temperature != nil {
		req.Temperature = wireTemperature(*opts.Temperature)
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}

	stream, err := e.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", NewProviderError("streaming", "failed to create stream", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return "", NewProviderError("streaming", "stream receive error", err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		if delta := response.Choices[0].Delta.Content; delta != "" {
			full.WriteString(delta)
			if onDelta != nil {
				onDelta(delta, full.String())
			}
		}
	}
}
