// Package fetch downloads model assets into a local cache directory,
// reporting byte-level progress per file.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when corresponding Options fields are unset.
const (
	defaultConcurrency = 4
	defaultRetryMax    = 3
	// reportEvery throttles progress callbacks during a download.
	reportEvery = 256 << 10
)

// File is one asset to download.
type File struct {
	Name string
	URL  string
	// Size is the expected size in bytes, 0 when unknown.
	Size int64
}

// Progress reports the state of one file.
type Progress struct {
	File   string
	Loaded int64
	// Total is 0 while the size is unknown.
	Total int64
	Done  bool
}

// Options configures a Fetcher.
type Options struct {
	Concurrency  int
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	HTTPClient   *http.Client
	Logger       *zerolog.Logger
}

// Fetcher downloads files into dir, skipping files already present.
type Fetcher struct {
	dir         string
	concurrency int
	client      *retryablehttp.Client
	log         zerolog.Logger
}

// New constructs a Fetcher writing into dir.
func New(dir string, opts Options) *Fetcher {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	c := retryablehttp.NewClient()
	c.RetryMax = defaultRetryMax
	if opts.RetryMax > 0 {
		c.RetryMax = opts.RetryMax
	}
	if opts.RetryWaitMin > 0 {
		c.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		c.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.HTTPClient != nil {
		c.HTTPClient = opts.HTTPClient
	}
	// Hand the final response back so the status code survives retries.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = leveledLogger{log: log.With().Str("component", "fetch").Logger()}

	n := opts.Concurrency
	if n <= 0 {
		n = defaultConcurrency
	}
	return &Fetcher{dir: dir, concurrency: n, client: c, log: log}
}

// Dir returns the cache directory.
func (f *Fetcher) Dir() string { return f.dir }

// Fetch downloads files in parallel and returns their local paths in the
// same order. onProgress is called serially; it may be nil.
func (f *Fetcher) Fetch(ctx context.Context, files []File, onProgress func(Progress)) ([]string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create cache dir")
	}
	var mu sync.Mutex
	report := func(p Progress) {
		if onProgress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onProgress(p)
	}

	paths := make([]string, len(files))
	for i, file := range files {
		if file.Name == "" || file.URL == "" {
			return nil, errors.Errorf("file %d needs a name and url", i)
		}
		paths[i] = filepath.Join(f.dir, filepath.Base(file.Name))
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			return f.fetchOne(gctx, file, paths[i], report)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, file File, dest string, report func(Progress)) error {
	if fi, err := os.Stat(dest); err == nil && !fi.IsDir() && (file.Size == 0 || fi.Size() == file.Size) {
		f.log.Debug().Str("file", file.Name).Msg("cached")
		report(Progress{File: file.Name, Loaded: fi.Size(), Total: fi.Size(), Done: true})
		return nil
	}
	report(Progress{File: file.Name, Total: file.Size})

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return errors.Wrapf(err, "request %s", file.Name)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "fetch %s", file.Name)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: file.URL, Code: resp.StatusCode}
	}

	total := file.Size
	if total == 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
	}
	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return errors.Wrapf(err, "create %s", part)
	}
	cw := &countingWriter{w: out, onWrite: func(n int64) {
		report(Progress{File: file.Name, Loaded: n, Total: total})
	}}
	n, copyErr := io.Copy(cw, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(part)
		return errors.Wrapf(copyErr, "download %s", file.Name)
	}
	if closeErr != nil {
		_ = os.Remove(part)
		return errors.Wrapf(closeErr, "write %s", file.Name)
	}
	if file.Size > 0 && n != file.Size {
		_ = os.Remove(part)
		return errors.Errorf("download %s: got %d bytes, want %d", file.Name, n, file.Size)
	}
	if err := os.Rename(part, dest); err != nil {
		return errors.Wrapf(err, "finalize %s", file.Name)
	}
	f.log.Info().Str("file", file.Name).Int64("bytes", n).Msg("downloaded")
	report(Progress{File: file.Name, Loaded: n, Total: n, Done: true})
	return nil
}

// StatusError is a non-2xx response to an asset request.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("GET %s: status %d", e.URL, e.Code) }

// Transient reports whether the status is worth retrying later.
func (e *StatusError) Transient() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

// IsTransientStatus reports whether err carries a retryable HTTP status.
func IsTransientStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Transient()
}

// countingWriter reports the running byte count every reportEvery bytes.
type countingWriter struct {
	w        io.Writer
	n        int64
	reported int64
	onWrite  func(int64)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if c.n-c.reported >= reportEvery {
		c.reported = c.n
		c.onWrite(c.n)
	}
	return n, err
}
