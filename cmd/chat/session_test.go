package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/oni-chat/internal/kv"
	"github.com/iyunix/oni-chat/internal/services/ai"
	"github.com/iyunix/oni-chat/internal/threadstore"
	"github.com/iyunix/oni-chat/internal/turn"
)

type scriptedCompleter struct {
	reply string
	err   error
}

func (s *scriptedCompleter) Complete(_ context.Context, _ []ai.Message, _ ai.Options, onDelta ai.DeltaFunc) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if onDelta != nil {
		onDelta(s.reply, s.reply)
	}
	return s.reply, nil
}

func newTestSession(t *testing.T, completer ai.Completer) (*session, *bytes.Buffer) {
	t.Helper()
	n := 0
	store, err := threadstore.Open(context.Background(), kv.NewMemoryStore(),
		threadstore.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("c%d", n)
		}))
	require.NoError(t, err)

	var out bytes.Buffer
	return &session{
		store:  store,
		turns:  turn.NewController(completer, ai.Options{}, nil),
		out:    &out,
		errOut: &out,
	}, &out
}

func TestSession_SendStreamsAndPersists(t *testing.T) {
	ctx := context.Background()
	s, out := newTestSession(t, &scriptedCompleter{reply: "Hello from Oni"})

	keepGoing, err := s.handle(ctx, "hi there")
	require.NoError(t, err)
	assert.True(t, keepGoing)
	assert.Contains(t, out.String(), "oni> Hello from Oni\n")

	msgs, err := s.store.Messages(ctx, s.store.ActiveID())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi there", msgs[0].Content)
	assert.Equal(t, "Hello from Oni", msgs[1].Content)
}

func TestSession_UpstreamFailureIsDescribed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, &scriptedCompleter{err: ai.NewUpstreamError("relay", 502, `{"error":"upstream_error"}`)})

	_, err := s.handle(ctx, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay answered 502")

	msgs, err := s.store.Messages(ctx, s.store.ActiveID())
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSession_ThreadCommands(t *testing.T) {
	ctx := context.Background()
	s, out := newTestSession(t, &scriptedCompleter{reply: "ok"})
	first := s.store.ActiveID()

	_, err := s.handle(ctx, "/new")
	require.NoError(t, err)
	second := s.store.ActiveID()
	assert.NotEqual(t, first, second)

	out.Reset()
	_, err = s.handle(ctx, "/list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "*"))
	assert.True(t, strings.HasPrefix(lines[1], " "))

	_, err = s.handle(ctx, "/select 2")
	require.NoError(t, err)
	assert.Equal(t, first, s.store.ActiveID())

	_, err = s.handle(ctx, "/select "+second)
	require.NoError(t, err)
	assert.Equal(t, second, s.store.ActiveID())

	_, err = s.handle(ctx, "/select 9")
	assert.Error(t, err)
	_, err = s.handle(ctx, "/select nope")
	assert.ErrorIs(t, err, threadstore.ErrNotFound)

	_, err = s.handle(ctx, "/delete")
	require.NoError(t, err)
	require.Len(t, s.store.ListThreads(), 1)
	assert.Equal(t, first, s.store.ActiveID())
}

func TestSession_Export(t *testing.T) {
	ctx := context.Background()
	s, out := newTestSession(t, &scriptedCompleter{reply: "Use a starter."})

	_, err := s.handle(ctx, "What is sourdough?")
	require.NoError(t, err)

	out.Reset()
	_, err = s.handle(ctx, "/export")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "# What is sourdough?")
	assert.Contains(t, out.String(), "### OniAI\n\nUse a starter.")

	path := filepath.Join(t.TempDir(), "chat.html")
	_, err = s.handle(ctx, "/export html "+path)
	require.NoError(t, err)
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "<h3>OniAI</h3>")

	_, err = s.handle(ctx, "/export pdf")
	assert.Error(t, err)
}

func TestSession_MiscCommands(t *testing.T) {
	ctx := context.Background()
	s, out := newTestSession(t, &scriptedCompleter{reply: "ok"})

	_, err := s.handle(ctx, "/engine")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "remote relay")

	_, err = s.handle(ctx, "/reset")
	assert.Error(t, err)

	_, err = s.handle(ctx, "/bogus")
	assert.Error(t, err)

	keepGoing, err := s.handle(ctx, "   ")
	assert.NoError(t, err)
	assert.True(t, keepGoing)

	keepGoing, err = s.handle(ctx, "/quit")
	assert.NoError(t, err)
	assert.False(t, keepGoing)
}
