// Package llama acquires GGUF models in-process: shards are downloaded into
// a cache directory, then loaded with go-llama.cpp. Without the 'llama' build
// tag every acquisition fails with an unsupported-environment error.
package llama

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"askd/internal/common/fsutil"
	"askd/internal/fetch"
	"askd/internal/session"
	"askd/pkg/types"
)

const defaultContextSize = 2048

// Catalog resolves model IDs to their assets.
type Catalog interface {
	Lookup(id string) (types.Model, bool)
}

// Options configures an Acquirer.
type Options struct {
	Catalog  Catalog
	CacheDir string
	// ContextSize overrides the model's context window when > 0.
	ContextSize int
	Threads     int
	Fetch       fetch.Options
	Logger      *zerolog.Logger
}

// predictOptions are per-call sampling settings.
type predictOptions struct {
	MaxTokens   int
	Temperature float32
	Threads     int
	Stop        []string
}

// predictor is a loaded model.
type predictor interface {
	Predict(ctx context.Context, prompt string, o predictOptions) (string, error)
	Free()
}

type openFunc func(path string, contextSize int) (predictor, error)

// Acquirer implements session.Acquirer.
type Acquirer struct {
	catalog     Catalog
	cacheDir    string
	contextSize int
	threads     int
	fetchOpts   fetch.Options
	log         zerolog.Logger

	supported bool
	open      openFunc
}

var _ session.Acquirer = (*Acquirer)(nil)

// New constructs an Acquirer.
func New(opts Options) *Acquirer {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = max(1, runtime.NumCPU()/2)
	}
	fo := opts.Fetch
	if fo.Logger == nil {
		fo.Logger = &log
	}
	return &Acquirer{
		catalog:     opts.Catalog,
		cacheDir:    opts.CacheDir,
		contextSize: opts.ContextSize,
		threads:     threads,
		fetchOpts:   fo,
		log:         log.With().Str("runtime", "llama").Logger(),
		supported:   llamaBuilt,
		open:        openModel,
	}
}

// Acquire resolves modelID, downloads any missing files and loads the first
// file into memory.
func (a *Acquirer) Acquire(ctx context.Context, modelID string, sink func(session.ProgressEvent)) (session.ModelHandle, error) {
	if !a.supported {
		return nil, session.ErrUnsupportedEnvironment("llama support not built (missing 'llama' build tag)")
	}
	if a.catalog == nil {
		return nil, errors.New("no model catalog configured")
	}
	m, ok := a.catalog.Lookup(modelID)
	if !ok {
		return nil, errors.Errorf("model %q is not in the catalog", modelID)
	}
	paths, err := a.resolve(ctx, m, sink)
	if err != nil {
		return nil, classifyFetch(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctxSize := a.contextSize
	if ctxSize <= 0 {
		ctxSize = m.ContextWindow
	}
	if ctxSize <= 0 {
		ctxSize = defaultContextSize
	}
	sink(session.ProgressEvent{Fraction: 1, Text: "Loading model into memory"})
	a.log.Info().Str("model", m.ID).Str("path", paths[0]).Int("ctx", ctxSize).Msg("opening model")
	p, err := a.open(paths[0], ctxSize)
	if err != nil {
		return nil, session.Classify(errors.Wrapf(err, "open %s", filepath.Base(paths[0])))
	}
	sink(session.ProgressEvent{Fraction: 1, Text: "Model ready", Done: true})
	return &handle{p: p, threads: a.threads}, nil
}

// resolve returns local paths for every file of m, downloading into the cache
// unless the model is local.
func (a *Acquirer) resolve(ctx context.Context, m types.Model, sink func(session.ProgressEvent)) ([]string, error) {
	if m.Dir != "" {
		dir, err := fsutil.ExpandHome(m.Dir)
		if err != nil {
			return nil, err
		}
		paths := make([]string, len(m.Files))
		for i, f := range m.Files {
			p := filepath.Join(dir, f.Name)
			size, ok := fsutil.FileSize(p)
			if !ok {
				return nil, errors.Errorf("model file %s not found", p)
			}
			sink(session.ProgressEvent{ResourceID: f.Name, Loaded: size, Total: size})
			paths[i] = p
		}
		return paths, nil
	}

	cache, err := fsutil.ExpandHome(a.cacheDir)
	if err != nil {
		return nil, err
	}
	files := make([]fetch.File, len(m.Files))
	for i, f := range m.Files {
		files[i] = fetch.File{Name: f.Name, URL: f.URL, Size: f.Size}
	}
	f := fetch.New(filepath.Join(cache, m.ID), a.fetchOpts)
	return f.Fetch(ctx, files, func(p fetch.Progress) {
		text := fmt.Sprintf("Downloading %s", p.File)
		if p.Done {
			text = fmt.Sprintf("Downloaded %s", p.File)
		}
		sink(session.ProgressEvent{ResourceID: p.File, Loaded: p.Loaded, Total: p.Total, Text: text})
	})
}

// classifyFetch maps download failures onto the load error taxonomy.
// Transient HTTP statuses are network failures; other statuses are not.
func classifyFetch(err error) error {
	var se *fetch.StatusError
	if errors.As(err, &se) {
		if se.Transient() {
			return session.ErrNetworkFailure(err)
		}
		return session.ErrLoadFailed(err)
	}
	return session.Classify(err)
}

// handle is a loaded model. Calls are serialized by the session, the mutex
// only guards Close racing a completion.
type handle struct {
	mu      sync.Mutex
	p       predictor
	threads int
}

func (h *handle) Complete(ctx context.Context, req session.ChatRequest) (session.Completion, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.p == nil {
		return session.Completion{}, errors.New("llama model not initialized")
	}
	text, err := h.p.Predict(ctx, renderChatML(req.Messages), predictOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Threads:     h.threads,
		Stop:        chatMLStop,
	})
	if err != nil {
		return session.Completion{}, err
	}
	return session.Completion{Text: strings.TrimSuffix(text, chatMLEnd), FinishReason: "stop"}, nil
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.p != nil {
		h.p.Free()
		h.p = nil
	}
	return nil
}
