package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeHandle is a lightweight in-memory model handle used for tests.
type fakeHandle struct {
	mu       sync.Mutex
	comp     Completion
	err      error
	closeErr error
	// gate, when set, blocks Complete until closed.
	gate     chan struct{}
	started  chan struct{}
	requests []ChatRequest
	closed   atomic.Int32
}

func (h *fakeHandle) Complete(ctx context.Context, req ChatRequest) (Completion, error) {
	h.mu.Lock()
	h.requests = append(h.requests, req)
	gate, started := h.gate, h.started
	h.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		}
	}
	return h.comp, h.err
}

func (h *fakeHandle) Close() error {
	h.closed.Add(1)
	return h.closeErr
}

func (h *fakeHandle) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}

// fakeAcquirer records Acquire calls and replays scripted progress.
type fakeAcquirer struct {
	mu     sync.Mutex
	calls  int
	events []ProgressEvent
	handle *fakeHandle
	err    error
	// gate, when set, blocks Acquire (after replaying events) until closed.
	gate    chan struct{}
	started chan struct{}
	ctxs    []context.Context
}

func (a *fakeAcquirer) Acquire(ctx context.Context, modelID string, sink func(ProgressEvent)) (ModelHandle, error) {
	a.mu.Lock()
	a.calls++
	a.ctxs = append(a.ctxs, ctx)
	events, gate, started, h, err := a.events, a.gate, a.started, a.handle, a.err
	a.mu.Unlock()
	for _, ev := range events {
		sink(ev)
	}
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (a *fakeAcquirer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func okCompletion(text string) Completion { return Completion{Text: text, FinishReason: "stop"} }

func newTestSession(t *testing.T, acq Acquirer) *Session {
	t.Helper()
	s := New(Config{ModelID: "test-model", Acquirer: acq, SystemContext: "Thong builds React apps and designs in Figma."})
	t.Cleanup(s.Dispose)
	return s
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

// waitJoined waits until a second Load caller has joined the in-flight load.
func waitJoined(t *testing.T, pub *MemoryPublisher) {
	t.Helper()
	waitFor(t, func() bool {
		for _, n := range pub.Names() {
			if n == "load_join" {
				return true
			}
		}
		return false
	})
}
