package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/kv"
	"github.com/iyunix/oni-chat/internal/services/ai"
	"github.com/iyunix/oni-chat/internal/threadstore"
)

type fakeCompleter struct {
	reply   string
	err     error
	block   chan struct{}
	entered chan struct{}

	mu   sync.Mutex
	seen [][]ai.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.Message, _ ai.Options, onDelta ai.DeltaFunc) (string, error) {
	f.mu.Lock()
	f.seen = append(f.seen, messages)
	f.mu.Unlock()
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if onDelta != nil {
		onDelta(f.reply, f.reply)
	}
	return f.reply, nil
}

func newStore(t *testing.T) (*threadstore.Store, string) {
	t.Helper()
	s, err := threadstore.Open(context.Background(), kv.NewMemoryStore())
	require.NoError(t, err)
	return s, s.ActiveID()
}

func TestSend_PersistsBothMessages(t *testing.T) {
	ctx := context.Background()
	store, id := newStore(t)
	comp := &fakeCompleter{reply: "hello back"}
	c := NewController(comp, ai.Options{}, nil)

	var deltas []string
	reply, err := c.Send(ctx, store, id, "  hello  ", func(delta, _ string) { deltas = append(deltas, delta) })
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, reply.Role)
	assert.Equal(t, []string{"hello back"}, deltas)

	msgs, err := store.Messages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hello back", msgs[1].Content)

	require.Len(t, comp.seen, 1)
	assert.Equal(t, []ai.Message{{Role: domain.RoleUser, Content: "hello"}}, comp.seen[0])
	assert.Equal(t, Replied, c.LastOutcome(id))
	assert.Equal(t, Idle, c.State(id))

	thread, err := store.Thread(id)
	require.NoError(t, err)
	assert.Equal(t, "hello", thread.Title)
}

func TestSend_FailureKeepsOnlyUserMessage(t *testing.T) {
	ctx := context.Background()
	store, id := newStore(t)
	upstream := ai.NewUpstreamError("relay", 502, "bad gateway")
	c := NewController(&fakeCompleter{err: upstream}, ai.Options{}, nil)

	_, err := c.Send(ctx, store, id, "hello", nil)
	require.Error(t, err)
	assert.True(t, ai.IsType(err, ai.ErrTypeUpstream))

	msgs, err := store.Messages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, Failed, c.LastOutcome(id))
	assert.Equal(t, Idle, c.State(id))
}

func TestSend_EmptyReplyIsFailure(t *testing.T) {
	ctx := context.Background()
	store, id := newStore(t)
	c := NewController(&fakeCompleter{reply: "   "}, ai.Options{}, nil)

	_, err := c.Send(ctx, store, id, "hello", nil)
	assert.ErrorIs(t, err, ErrEmptyReply)

	msgs, err := store.Messages(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSend_RejectsBlankText(t *testing.T) {
	store, id := newStore(t)
	comp := &fakeCompleter{reply: "x"}
	c := NewController(comp, ai.Options{}, nil)

	_, err := c.Send(context.Background(), store, id, " \n ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, comp.seen)
}

func TestSend_OneTurnPerThread(t *testing.T) {
	ctx := context.Background()
	store, id := newStore(t)
	comp := &fakeCompleter{reply: "done", block: make(chan struct{}), entered: make(chan struct{})}
	c := NewController(comp, ai.Options{}, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Send(ctx, store, id, "first", nil)
		errc <- err
	}()

	select {
	case <-comp.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never reached the completer")
	}
	assert.Equal(t, Sending, c.State(id))

	_, err := c.Send(ctx, store, id, "second", nil)
	assert.True(t, errors.Is(err, ErrTurnInProgress))

	close(comp.block)
	require.NoError(t, <-errc)

	msgs, err := store.Messages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
}

func TestSend_UnknownThread(t *testing.T) {
	store, _ := newStore(t)
	c := NewController(&fakeCompleter{reply: "x"}, ai.Options{}, nil)

	_, err := c.Send(context.Background(), store, "c_missing", "hi", nil)
	assert.ErrorIs(t, err, threadstore.ErrNotFound)
	assert.Equal(t, Failed, c.LastOutcome("c_missing"))
}
