package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/oni-chat/internal/domain"
)

type fakeEngine struct {
	active  int32
	overlap int32
	seen    [][]Message
	mu      sync.Mutex
}

func (e *fakeEngine) Stream(ctx context.Context, messages []Message, opts Options, onDelta DeltaFunc) (string, error) {
	if atomic.AddInt32(&e.active, 1) > 1 {
		atomic.StoreInt32(&e.overlap, 1)
	}
	defer atomic.AddInt32(&e.active, -1)
	time.Sleep(2 * time.Millisecond)

	e.mu.Lock()
	e.seen = append(e.seen, messages)
	e.mu.Unlock()

	if onDelta != nil {
		onDelta("ok", "ok")
	}
	return "ok", nil
}

type fakeLoader struct {
	calls  int32
	gate   chan struct{}
	engine Engine
	err    error
}

func (l *fakeLoader) Load(ctx context.Context, model string, onProgress func(LoadProgress)) (Engine, error) {
	atomic.AddInt32(&l.calls, 1)
	onProgress(LoadProgress{Fraction: 0.5, Text: "halfway"})
	if l.gate != nil {
		<-l.gate
	}
	return l.engine, l.err
}

func TestLocalProvider_UnsupportedEnvironment(t *testing.T) {
	loader := &fakeLoader{engine: &fakeEngine{}}
	p := NewLocalProvider(LocalConfig{Model: "m"}, loader, func() error { return errors.New("no gpu") }, nil)

	_, err := p.Complete(context.Background(), nil, Options{}, nil)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrTypeUnsupported))
	assert.Zero(t, atomic.LoadInt32(&loader.calls))
	assert.Equal(t, EngineUninitialized, p.State())
}

func TestLocalProvider_SingleConcurrentLoad(t *testing.T) {
	engine := &fakeEngine{}
	loader := &fakeLoader{engine: engine, gate: make(chan struct{})}
	var progress int32
	p := NewLocalProvider(LocalConfig{Model: "m", OnProgress: func(LoadProgress) { atomic.AddInt32(&progress, 1) }}, loader, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Complete(context.Background(), []Message{{Role: domain.RoleUser, Content: "hi"}}, Options{}, nil)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return p.State() == EngineInitializing }, time.Second, time.Millisecond)
	close(loader.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&progress))
	assert.Equal(t, EngineReady, p.State())
	assert.Zero(t, atomic.LoadInt32(&engine.overlap), "completions must not overlap")
	assert.Len(t, engine.seen, 8)
}

func TestLocalProvider_FailedIsStickyUntilReset(t *testing.T) {
	loader := &fakeLoader{err: errors.New("download failed")}
	p := NewLocalProvider(LocalConfig{Model: "m"}, loader, nil, nil)

	_, err := p.Complete(context.Background(), nil, Options{}, nil)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrTypeProvider))
	assert.Equal(t, EngineFailed, p.State())

	_, err = p.Complete(context.Background(), nil, Options{}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))

	loader.err = nil
	loader.engine = &fakeEngine{}
	p.Reset()
	reply, err := p.Complete(context.Background(), nil, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loader.calls))
}

func TestLocalProvider_WaiterContextCancelled(t *testing.T) {
	loader := &fakeLoader{engine: &fakeEngine{}, gate: make(chan struct{})}
	p := NewLocalProvider(LocalConfig{Model: "m"}, loader, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Ensure(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the load keeps going for later callers
	close(loader.gate)
	_, err = p.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))
}

func TestLocalProvider_PrependsSystemPrompt(t *testing.T) {
	engine := &fakeEngine{}
	p := NewLocalProvider(LocalConfig{Model: "m"}, &fakeLoader{engine: engine}, nil, nil)

	_, err := p.Complete(context.Background(), []Message{{Role: domain.RoleUser, Content: "hi"}}, Options{SystemPrompt: "sys"}, nil)
	require.NoError(t, err)
	require.Len(t, engine.seen, 1)
	require.Len(t, engine.seen[0], 2)
	assert.Equal(t, domain.RoleSystem, engine.seen[0][0].Role)
}

func TestDeviceProbe(t *testing.T) {
	t.Setenv("ONI_ACCELERATOR", "")
	dir := t.TempDir()
	assert.NoError(t, DeviceProbe(dir)())
	assert.Error(t, DeviceProbe(dir+"/missing")())

	t.Setenv("ONI_ACCELERATOR", "none")
	assert.Error(t, DeviceProbe(dir)())
	t.Setenv("ONI_ACCELERATOR", "any")
	assert.NoError(t, DeviceProbe(dir+"/missing")())
}

func TestLocalProvider_WaiterFollowsReloadAfterReset(t *testing.T) {
	engine := &fakeEngine{}
	p := NewLocalProvider(LocalConfig{Model: "m"}, &fakeLoader{engine: engine}, nil, nil)

	first := make(chan struct{})
	p.mu.Lock()
	p.state = EngineInitializing
	p.pending = first
	p.mu.Unlock()

	type result struct {
		engine Engine
		err    error
	}
	done := make(chan result, 1)
	go func() {
		e, err := p.Ensure(context.Background())
		done <- result{e, err}
	}()

	// the first load failed, someone reset, and a new load is running
	second := make(chan struct{})
	p.mu.Lock()
	p.pending = second
	p.mu.Unlock()
	close(first)

	select {
	case r := <-done:
		t.Fatalf("Ensure returned before the reload finished: engine=%v err=%v", r.engine, r.err)
	case <-time.After(20 * time.Millisecond):
	}

	p.mu.Lock()
	p.state = EngineReady
	p.engine = engine
	p.mu.Unlock()
	close(second)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, Engine(engine), r.engine)
}
