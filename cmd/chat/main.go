// File: cmd/chat/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/iyunix/oni-chat/internal/config"
	"github.com/iyunix/oni-chat/internal/kv"
	"github.com/iyunix/oni-chat/internal/services"
	"github.com/iyunix/oni-chat/internal/services/ai"
	"github.com/iyunix/oni-chat/internal/threadstore"
	"github.com/iyunix/oni-chat/internal/turn"
)

func main() {
	engine := flag.String("engine", "remote", "remote (relay server) or local (on-device runtime)")
	systemPrompt := flag.String("system", "", "system prompt sent with every turn")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}
	// logs go to a file so they do not interleave with the prompt
	logger := services.NewLoggerWithOptions("oni-chat", services.LoggerOptions{
		Level: "INFO",
		File:  filepath.Join(os.TempDir(), "oni_chat.log"),
	})
	defer func() { _ = logger.Sync() }()

	slot, err := kv.OpenSQLite(cfg.StorePath)
	if err != nil {
		log.Fatalf("Store Error: %v", err)
	}

	ctx := context.Background()
	store, err := threadstore.Open(ctx, slot, threadstore.WithLogger(logger))
	if err != nil {
		log.Fatalf("Store Error: %v", err)
	}

	sess := &session{store: store, out: os.Stdout, errOut: os.Stderr}
	var completer ai.Completer
	switch *engine {
	case "remote":
		completer = ai.NewRelayClient(cfg.RelayURL, cfg.UpstreamTimeout, logger)
	case "local":
		sess.local = ai.NewLocalProvider(ai.LocalConfig{
			Model:       cfg.LocalModel,
			Temperature: 0.7,
			MaxTokens:   768,
			OnProgress: func(p ai.LoadProgress) {
				fmt.Fprintf(os.Stderr, "[engine] %3.0f%% %s\n", p.Fraction*100, p.Text)
			},
		}, &ai.RuntimeLoader{BaseURL: cfg.LocalEngineURL}, ai.DeviceProbe(), logger)
		completer = sess.local
	default:
		log.Fatalf("unknown engine %q", *engine)
	}
	sess.turns = turn.NewController(completer, ai.Options{SystemPrompt: *systemPrompt}, logger)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	historyFile := filepath.Join(os.TempDir(), "oni_chat_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
		line.Close()
	}()

	fmt.Printf("OniAI chat (%s engine). Type /help for commands.\n", *engine)
	if active, err := store.Active(); err == nil {
		fmt.Printf("Active chat: %s\n", active.Title)
	}

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
			}
			return
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		// Ctrl+C while a turn runs cancels only that turn
		turnCtx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		turnCtx, cancelTimeout := context.WithTimeout(turnCtx, 3*time.Minute)
		keepGoing, err := sess.handle(turnCtx, input)
		cancelTimeout()
		cancel()
		if err != nil {
			fmt.Fprintf(sess.errOut, "[error] %v\n", err)
		}
		if !keepGoing {
			return
		}
	}
}
