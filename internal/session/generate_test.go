package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readySession(t *testing.T, h *fakeHandle) *Session {
	t.Helper()
	s := newTestSession(t, &fakeAcquirer{handle: h})
	require.NoError(t, s.Load(testCtx(t), nil))
	return s
}

func TestGenerate_RejectsBeforeReady(t *testing.T) {
	h := &fakeHandle{comp: okCompletion("Thong is a frontend developer.")}
	s := newTestSession(t, &fakeAcquirer{handle: h})
	_, err := s.Generate(testCtx(t), "hello")
	require.Error(t, err)
	assert.True(t, IsNotReady(err))
	assert.True(t, IsConcurrencyViolation(err))
	assert.Equal(t, 0, h.calls())
}

func TestGenerate_RejectsWhileLoading(t *testing.T) {
	h := &fakeHandle{comp: okCompletion("Thong is a frontend developer.")}
	acq := &fakeAcquirer{handle: h, gate: make(chan struct{}), started: make(chan struct{})}
	s := newTestSession(t, acq)
	go func() { _ = s.Load(context.Background(), nil) }()
	<-acq.started
	_, err := s.Generate(testCtx(t), "hello")
	assert.True(t, IsNotReady(err))
	close(acq.gate)
	waitFor(t, s.IsReady)
	assert.Equal(t, 0, h.calls())
}

func TestGenerate_SingleFlight(t *testing.T) {
	h := &fakeHandle{
		comp:    okCompletion("He is skilled in React and TypeScript."),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := readySession(t, h)

	type result struct {
		text string
		err  error
	}
	first := make(chan result, 1)
	go func() {
		txt, err := s.Generate(testCtx(t), "a")
		first <- result{txt, err}
	}()
	<-h.started
	assert.True(t, s.Snapshot().Generating)

	_, err := s.Generate(testCtx(t), "b")
	require.Error(t, err)
	assert.True(t, IsGenerationInFlight(err))
	assert.True(t, IsConcurrencyViolation(err))

	close(h.gate)
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, "He is skilled in React and TypeScript.", r.text)
	assert.Equal(t, 1, h.calls(), "rejected call must not reach the model")

	// Slot is free again.
	txt, err := s.Generate(testCtx(t), "c")
	require.NoError(t, err)
	assert.NotEmpty(t, txt)
	assert.False(t, s.Snapshot().Generating)
}

func TestGenerate_TrimsAndReturnsText(t *testing.T) {
	s := readySession(t, &fakeHandle{comp: okCompletion("  \n Thong works at TOT Digi.\n ")})
	txt, err := s.Generate(testCtx(t), "Where does he work?")
	require.NoError(t, err)
	assert.Equal(t, "Thong works at TOT Digi.", txt)
}

func TestGenerate_ConversationShape(t *testing.T) {
	comp := Completion{Messages: []Message{
		{Role: RoleSystem, Content: "ctx"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "He graduated from FPT University in 2024."},
	}}
	s := readySession(t, &fakeHandle{comp: comp})
	txt, err := s.Generate(testCtx(t), "Education?")
	require.NoError(t, err)
	assert.Equal(t, "He graduated from FPT University in 2024.", txt)
}

func TestGenerate_FallbackOnShortOutput(t *testing.T) {
	for _, out := range []string{"", "   ", "Yes.", "123456789"} {
		s := readySession(t, &fakeHandle{comp: okCompletion(out)})
		r, err := s.GenerateReply(testCtx(t), "anything")
		require.NoError(t, err)
		assert.True(t, r.Fallback, "output %q", out)
		assert.Equal(t, DefaultFallbackText, r.Text)
	}
}

func TestGenerate_MinLengthIsConfigurable(t *testing.T) {
	h := &fakeHandle{comp: okCompletion("Yes.")}
	s := New(Config{Acquirer: &fakeAcquirer{handle: h}, MinResponseLen: 4, FallbackText: "nope"})
	t.Cleanup(s.Dispose)
	require.NoError(t, s.Load(testCtx(t), nil))
	txt, err := s.Generate(testCtx(t), "Is he available?")
	require.NoError(t, err)
	assert.Equal(t, "Yes.", txt)

	h.comp = okCompletion("No")
	txt, err = s.Generate(testCtx(t), "Is he available?")
	require.NoError(t, err)
	assert.Equal(t, "nope", txt)
}

func TestGenerate_PropagatesErrorAndReleasesSlot(t *testing.T) {
	boom := errors.New("webgpu device lost")
	h := &fakeHandle{err: boom}
	s := readySession(t, h)
	pub := NewMemoryPublisher()
	s.SetEventPublisher(pub)

	_, err := s.Generate(testCtx(t), "q")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, pub.Names(), "generate_error")

	h.err = nil
	h.comp = okCompletion("Recovered answer text.")
	txt, err := s.Generate(testCtx(t), "q")
	require.NoError(t, err)
	assert.Equal(t, "Recovered answer text.", txt)
}

type panicHandle struct{}

func (panicHandle) Complete(context.Context, ChatRequest) (Completion, error) { panic("kaboom") }
func (panicHandle) Close() error                                            { return nil }

func TestGenerate_PanicReleasesSlot(t *testing.T) {
	s := newTestSession(t, AcquirerFunc(func(context.Context, string, func(ProgressEvent)) (ModelHandle, error) {
		return panicHandle{}, nil
	}))
	require.NoError(t, s.Load(testCtx(t), nil))
	for i := 0; i < 2; i++ {
		_, err := s.Generate(testCtx(t), "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kaboom")
		assert.False(t, IsGenerationInFlight(err))
	}
}

func TestGenerate_EmptyMessage(t *testing.T) {
	h := &fakeHandle{comp: okCompletion("irrelevant answer")}
	s := readySession(t, h)
	_, err := s.Generate(testCtx(t), " \t\n")
	assert.True(t, IsEmptyMessage(err))
	assert.Equal(t, 0, h.calls())
}

func TestGenerate_SendsBoundedRequest(t *testing.T) {
	h := &fakeHandle{comp: okCompletion("An answer long enough.")}
	s := New(Config{Acquirer: &fakeAcquirer{handle: h}, SystemContext: words(500)})
	t.Cleanup(s.Dispose)
	require.NoError(t, s.Load(testCtx(t), nil))
	_, err := s.Generate(testCtx(t), "What are his skills?")
	require.NoError(t, err)

	require.Len(t, h.requests, 1)
	req := h.requests[0]
	assert.Equal(t, 150, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, words(300)+"...", req.System())
	assert.Equal(t, "What are his skills?"+DefaultInstructionSuffix, req.User())
}
