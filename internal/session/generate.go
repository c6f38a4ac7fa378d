package session

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Reply is the cleaned outcome of a generation.
type Reply struct {
	Text string
	// Fallback is true when the model output was too short and Text is the
	// canned fallback string.
	Fallback bool
}

// Generate answers userMessage from the system context. See GenerateReply.
func (s *Session) Generate(ctx context.Context, userMessage string) (string, error) {
	r, err := s.GenerateReply(ctx, userMessage)
	return r.Text, err
}

// GenerateReply fails fast unless the session is ready and idle: a second
// concurrent call is rejected, not queued, because model handles are not
// reentrant. Completion errors are returned unchanged.
func (s *Session) GenerateReply(ctx context.Context, userMessage string) (Reply, error) {
	if strings.TrimSpace(userMessage) == "" {
		generationsTotal.WithLabelValues("empty").Inc()
		return Reply{}, emptyMessageError{}
	}

	s.mu.RLock()
	state, h, gen := s.state, s.handle, s.genCh
	s.mu.RUnlock()
	if state != StateReady || h == nil {
		generationsTotal.WithLabelValues("not_ready").Inc()
		s.publish("generate_rejected", map[string]any{"reason": "not_ready", "state": string(state)})
		return Reply{}, notReadyError{state: state}
	}

	select {
	case gen <- struct{}{}:
	default:
		generationsTotal.WithLabelValues("busy").Inc()
		s.publish("generate_rejected", map[string]any{"reason": "in_flight"})
		return Reply{}, generationBusyError{}
	}
	defer func() { <-gen }()

	start := time.Now()
	req := s.prompt.BuildRequest(userMessage)
	s.log.Debug().Str("event", "generate_start").Int("system_chars", len(req.System())).Msg("generating")
	s.publish("generate_start", nil)

	comp, err := s.complete(ctx, h, req)
	generationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		generationsTotal.WithLabelValues("error").Inc()
		s.log.Error().Str("event", "generate_error").Err(err).Msg("error generating response")
		s.publish("generate_error", map[string]any{"error": err.Error()})
		return Reply{}, err
	}

	text := strings.TrimSpace(comp.Content())
	if utf8.RuneCountInString(text) < s.minResponseLen {
		generationsTotal.WithLabelValues("fallback").Inc()
		s.log.Warn().Str("event", "generate_fallback").Int("len", utf8.RuneCountInString(text)).Msg("response below minimum length")
		s.publish("generate_fallback", map[string]any{"len": utf8.RuneCountInString(text)})
		return Reply{Text: s.fallbackText, Fallback: true}, nil
	}
	generationsTotal.WithLabelValues("ok").Inc()
	dur := time.Since(start)
	s.log.Info().Str("event", "generate_done").Dur("dur", dur).Str("finish_reason", comp.FinishReason).Msg("response generated")
	s.publish("generate_done", map[string]any{"dur_ms": int(dur / time.Millisecond), "finish_reason": comp.FinishReason})
	return Reply{Text: text}, nil
}

// complete invokes the handle, turning a runtime panic into an error so the
// in-flight slot is always released.
func (s *Session) complete(ctx context.Context, h ModelHandle, req ChatRequest) (c Completion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return h.Complete(ctx, req)
}
