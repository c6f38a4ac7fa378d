package session

// Event represents a session lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
//
// Names: load_start, load_join, load_ready, load_failed, load_abandoned,
// generate_start, generate_done, generate_fallback, generate_error,
// generate_rejected, dispose_start, dispose_release_error, dispose_done.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the session. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
