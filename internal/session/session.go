package session

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Session owns a single model handle and its lifecycle.
type Session struct {
	mu       sync.RWMutex
	id       string
	state    State
	modelID  string
	acquirer Acquirer
	handle   ModelHandle
	err      error

	// In-flight load, coalesced through group under the flight's unique key.
	group     *singleflight.Group
	flight    *loadFlight
	observers []*observer
	progress  Progress

	prompt         *PromptBuilder
	minResponseLen int
	fallbackText   string
	// genCh has capacity 1: a token in it means a generation is in flight.
	// Dispose replaces the channel so a stale generation never drains a
	// newer one's token.
	genCh chan struct{}

	log       zerolog.Logger
	publisher EventPublisher
}

// ID returns the session identifier used in logs and status.
func (s *Session) ID() string { return s.id }

// ModelID returns the model this session acquires.
func (s *Session) ModelID() string { return s.modelID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsReady reports whether Generate can be called.
func (s *Session) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateReady && s.handle != nil
}

// IsLoading reports whether a load is in flight.
func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateLoading
}

// Prompt exposes the request builder, mainly for diagnostics.
func (s *Session) Prompt() *PromptBuilder { return s.prompt }

// SetEventPublisher replaces the event sink. Passing nil restores the no-op.
func (s *Session) SetEventPublisher(p EventPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.publisher = noopPublisher{}
		return
	}
	s.publisher = p
}

func (s *Session) publish(name string, fields map[string]any) {
	s.mu.RLock()
	p := s.publisher
	s.mu.RUnlock()
	if fields == nil {
		fields = map[string]any{}
	}
	p.Publish(Event{Name: name, ModelID: s.modelID, Fields: fields})
}
