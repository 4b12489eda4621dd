// File: cmd/diagnostic/llm_diagnostic.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iyunix/oni-chat/internal/config"
	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/services/ai"
)

const probeQuestion = "Reply with the single word: pong"

func main() {
	local := flag.Bool("local", false, "check the local engine instead of the hosted API")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	var completer ai.Completer
	if *local {
		fmt.Printf("🚀 Testing local engine %s at %s...\n", cfg.LocalModel, cfg.LocalEngineURL)
		completer = ai.NewLocalProvider(ai.LocalConfig{
			Model:       cfg.LocalModel,
			Temperature: 0.7,
			MaxTokens:   32,
			OnProgress: func(p ai.LoadProgress) {
				fmt.Printf("   %3.0f%% %s\n", p.Fraction*100, p.Text)
			},
		}, &ai.RuntimeLoader{BaseURL: cfg.LocalEngineURL}, ai.DeviceProbe(), nil)
	} else {
		fmt.Printf("🚀 Testing %s at %s...\n", cfg.GroqModel, cfg.GroqBaseURL)
		aiCfg := ai.DefaultConfig()
		aiCfg.APIKey = cfg.GroqAPIKey
		aiCfg.BaseURL = cfg.GroqBaseURL
		aiCfg.Model = cfg.GroqModel
		aiCfg.Timeout = cfg.UpstreamTimeout
		provider := ai.NewOpenAIProvider(aiCfg, nil)
		if err := provider.CheckConfigured(); err != nil {
			log.Fatalf("❌ %v", err)
		}
		completer = provider
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	reply, err := completer.Complete(ctx, []ai.Message{
		{Role: domain.RoleUser, Content: probeQuestion},
	}, ai.Options{}, nil)
	if err != nil {
		var aiErr *ai.AIError
		if errors.As(err, &aiErr) && aiErr.Detail != "" {
			fmt.Fprintf(os.Stderr, "   upstream status %d: %s\n", aiErr.Code, aiErr.Detail)
		}
		log.Fatalf("❌ Chat completion failed: %v", err)
	}

	fmt.Printf("✅ Response in %s: %s\n", time.Since(start).Round(time.Millisecond), reply)
}
