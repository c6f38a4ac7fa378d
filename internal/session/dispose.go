package session

// Dispose releases the model handle and resets the session to unloaded,
// whatever its prior state. An in-flight load is cancelled and its waiters
// receive an error for which IsDisposed reports true. Release failures are
// logged, not returned. Safe to call repeatedly.
func (s *Session) Dispose() {
	s.mu.Lock()
	prev := s.state
	s.state = StateDisposed
	h := s.handle
	s.handle = nil
	f := s.flight
	s.flight = nil
	s.observers = nil
	s.err = nil
	s.progress = Progress{}
	s.genCh = make(chan struct{}, 1)
	s.mu.Unlock()

	s.log.Info().Str("event", "dispose_start").Str("from", string(prev)).Msg("disposing session")
	s.publish("dispose_start", map[string]any{"from": string(prev)})

	if f != nil {
		s.group.Forget(f.key)
		f.cancel()
	}
	if h != nil {
		if err := s.release(h); err != nil {
			s.log.Warn().Str("event", "dispose_release_error").Err(err).Msg("model release failed")
			s.publish("dispose_release_error", map[string]any{"error": err.Error()})
		}
	}

	s.mu.Lock()
	// A Load issued while the handle was being released owns the state now.
	if s.state == StateDisposed {
		s.state = StateUnloaded
	}
	s.mu.Unlock()
	s.publish("dispose_done", nil)
}

func (s *Session) release(h ModelHandle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return h.Close()
}
