package session

import "context"

// State represents the lifecycle state of a Session.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	// StateDisposed is transient: Dispose passes through it and settles on
	// StateUnloaded once the handle has been released.
	StateDisposed State = "disposed"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat conversation.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is the bounded request handed to a ModelHandle.
type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// System returns the system message content, if any.
func (r ChatRequest) System() string {
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// User returns the last user message content, if any.
func (r ChatRequest) User() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Completion is the normalized result of a chat completion. Runtimes fill
// either Text (flat string) or Messages (the conversation with the answer
// appended as the trailing assistant message).
type Completion struct {
	Text         string
	Messages     []Message
	FinishReason string
}

// Content extracts the generated text from whichever shape was filled.
func (c Completion) Content() string {
	if c.Text != "" {
		return c.Text
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i].Content
		}
	}
	return ""
}

// ProgressEvent is a single upstream progress notification, normalized at
// the runtime boundary. Total is 0 when the size of ResourceID is not known
// yet. Fraction is the runtime's own 0..1 estimate and is used only when no
// byte totals are available. Done is the runtime's completion signal.
type ProgressEvent struct {
	ResourceID string
	Loaded     int64
	Total      int64
	Fraction   float64
	Text       string
	Done       bool
}

// ProgressStatus tells observers whether acquisition has finished.
type ProgressStatus string

const (
	ProgressRunning ProgressStatus = "progress"
	ProgressDone    ProgressStatus = "done"
)

// FileProgress is the latest known counters for one resource.
type FileProgress struct {
	ResourceID string
	Loaded     int64
	Total      int64
}

// Progress is the aggregate view forwarded to observers.
type Progress struct {
	Percent    float64
	ResourceID string
	Text       string
	Status     ProgressStatus
	Loaded     int64
	Total      int64
	Files      []FileProgress
}

// ProgressFunc observes aggregate progress during Load. Implementations
// should return quickly; they run on the acquisition goroutine.
type ProgressFunc func(Progress)

// ModelHandle is a loaded model capable of chat completion.
type ModelHandle interface {
	Complete(ctx context.Context, req ChatRequest) (Completion, error)
	// Close releases resources held by the handle.
	Close() error
}

// Acquirer obtains a ModelHandle for modelID, reporting progress to sink in
// the order it happens. Implementations live in internal/runtime.
type Acquirer interface {
	Acquire(ctx context.Context, modelID string, sink func(ProgressEvent)) (ModelHandle, error)
}

// AcquirerFunc adapts a function to the Acquirer interface.
type AcquirerFunc func(ctx context.Context, modelID string, sink func(ProgressEvent)) (ModelHandle, error)

func (f AcquirerFunc) Acquire(ctx context.Context, modelID string, sink func(ProgressEvent)) (ModelHandle, error) {
	return f(ctx, modelID, sink)
}

// Snapshot is a read-only projection of the session state.
type Snapshot struct {
	ID         string
	State      State
	ModelID    string
	Err        string
	ErrKind    LoadErrorKind
	Progress   Progress
	Generating bool
}
