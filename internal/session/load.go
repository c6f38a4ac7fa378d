package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// loadFlight is one model acquisition shared by every Load caller that
// arrives while it runs.
type loadFlight struct {
	key    string
	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes aggregation and delivery so observers see events in
	// upstream order.
	mu  sync.Mutex
	agg *progressAggregator
}

// observer wraps a caller's ProgressFunc so it can be detached by identity.
type observer struct{ fn ProgressFunc }

// Load acquires the model once. A ready session returns immediately; a
// loading session joins the in-flight acquisition and onProgress receives
// its remaining progress reports. All joined callers see the same result.
//
// The acquisition runs on a context detached from ctx: if ctx ends first the
// caller stops waiting and gets ctx.Err(), while the load keeps going and
// still updates the session. Only Dispose cancels it.
func (s *Session) Load(ctx context.Context, onProgress ProgressFunc) error {
	s.mu.Lock()
	if s.state == StateReady && s.handle != nil {
		s.mu.Unlock()
		return nil
	}
	var obs *observer
	if onProgress != nil {
		obs = &observer{fn: onProgress}
		s.observers = append(s.observers, obs)
	}
	joined := s.state == StateLoading && s.flight != nil
	if !joined {
		runCtx, cancel := context.WithCancel(context.Background())
		s.flight = &loadFlight{key: uuid.NewString(), ctx: runCtx, cancel: cancel, agg: newProgressAggregator()}
		s.state = StateLoading
		s.err = nil
		s.progress = Progress{Status: ProgressRunning}
	}
	f := s.flight
	// DoChan registers the key synchronously; calling it under s.mu means a
	// finishing flight cannot slip between reading s.flight and joining it.
	ch := s.group.DoChan(f.key, func() (any, error) {
		return nil, s.runLoad(f)
	})
	s.mu.Unlock()

	if joined {
		s.log.Debug().Str("event", "load_join").Str("load", f.key).Msg("joining in-flight load")
		s.publish("load_join", map[string]any{"load": f.key})
	}

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		s.detach(f, obs)
		s.log.Info().Str("event", "load_wait_abandoned").Str("load", f.key).Err(ctx.Err()).Msg("caller stopped waiting; load continues")
		return ctx.Err()
	}
}

// runLoad performs the single acquisition for flight f.
func (s *Session) runLoad(f *loadFlight) error {
	defer f.cancel()
	start := time.Now()
	s.log.Info().Str("event", "load_start").Str("load", f.key).Msg("acquiring model")
	s.publish("load_start", map[string]any{"load": f.key})

	var (
		handle ModelHandle
		err    error
	)
	if s.acquirer == nil {
		err = ErrUnsupportedEnvironment("no model runtime configured")
	} else {
		handle, err = s.acquire(f)
	}
	if err == nil && handle == nil {
		err = ErrLoadFailed(errors.New("runtime returned no model handle"))
	}

	s.mu.Lock()
	if s.flight != f {
		// Dispose abandoned this flight; never resurrect state.
		s.mu.Unlock()
		if handle != nil {
			if cerr := handle.Close(); cerr != nil {
				s.log.Warn().Err(cerr).Str("load", f.key).Msg("release of abandoned handle failed")
			}
		}
		loadsTotal.WithLabelValues("abandoned").Inc()
		s.log.Info().Str("event", "load_abandoned").Str("load", f.key).Msg("load finished after dispose")
		s.publish("load_abandoned", map[string]any{"load": f.key})
		return disposedError{}
	}
	s.flight = nil
	s.observers = nil
	if err != nil {
		err = errors.Wrap(Classify(err), "failed to load model")
		s.state = StateUnloaded
		s.handle = nil
		s.err = err
	} else {
		s.state = StateReady
		s.handle = handle
		s.err = nil
	}
	s.mu.Unlock()

	dur := time.Since(start)
	loadDuration.Observe(dur.Seconds())
	if err != nil {
		kind, _ := LoadErrorKindOf(err)
		loadsTotal.WithLabelValues(string(kind)).Inc()
		s.log.Error().Str("event", "load_failed").Str("load", f.key).Str("kind", string(kind)).Err(err).Msg("model load failed")
		s.publish("load_failed", map[string]any{"load": f.key, "kind": string(kind), "error": err.Error()})
		return err
	}
	loadsTotal.WithLabelValues("ok").Inc()
	s.log.Info().Str("event", "load_ready").Str("load", f.key).Dur("dur", dur).Msg("model ready")
	s.publish("load_ready", map[string]any{"load": f.key, "dur_ms": int(dur / time.Millisecond)})
	return nil
}

// acquire calls the runtime, converting a panic into a load failure so the
// session is never stuck in loading.
func (s *Session) acquire(f *loadFlight) (h ModelHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = errors.Errorf("runtime panicked during acquire: %v", r)
		}
	}()
	return s.acquirer.Acquire(f.ctx, s.modelID, func(ev ProgressEvent) { s.deliverProgress(f, ev) })
}

// deliverProgress aggregates ev and forwards it to every observer of flight
// f, in upstream order. Events from an abandoned flight are dropped.
func (s *Session) deliverProgress(f *loadFlight, ev ProgressEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.agg.add(ev)

	s.mu.Lock()
	if s.flight != f {
		s.mu.Unlock()
		return
	}
	s.progress = p
	observers := append([]*observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		s.notify(o.fn, p)
	}
}

// detach removes obs from flight f's fan-out. Holding f.mu waits out any
// delivery in progress, so obs is never called after detach returns.
func (s *Session) detach(f *loadFlight, obs *observer) {
	if obs == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flight != f {
		return
	}
	for i, o := range s.observers {
		if o == obs {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// notify calls an observer, isolating the load from observer panics.
func (s *Session) notify(fn ProgressFunc, p Progress) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("progress observer panicked")
		}
	}()
	fn(p)
}
