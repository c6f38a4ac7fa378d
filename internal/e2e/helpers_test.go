package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"askd/internal/httpapi"
	"askd/internal/session"
	"askd/pkg/types"
)

// scriptedHandle answers every completion with a fixed text.
type scriptedHandle struct {
	mu      sync.Mutex
	text    string
	prompts [][]session.Message
	closed  int
}

func (h *scriptedHandle) Complete(ctx context.Context, req session.ChatRequest) (session.Completion, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prompts = append(h.prompts, req.Messages)
	return session.Completion{Text: h.text, FinishReason: "stop"}, nil
}

func (h *scriptedHandle) Close() error {
	h.mu.Lock()
	h.closed++
	h.mu.Unlock()
	return nil
}

// twoFileAcquirer reports progress for two assets, then hands out h.
func twoFileAcquirer(h session.ModelHandle) session.Acquirer {
	return session.AcquirerFunc(func(ctx context.Context, id string, sink func(session.ProgressEvent)) (session.ModelHandle, error) {
		sink(session.ProgressEvent{ResourceID: "weights.gguf", Loaded: 0, Total: 300})
		sink(session.ProgressEvent{ResourceID: "tokenizer.json", Loaded: 100, Total: 100})
		sink(session.ProgressEvent{ResourceID: "weights.gguf", Loaded: 300, Total: 300})
		sink(session.ProgressEvent{Fraction: 1, Text: "Model ready", Done: true})
		return h, nil
	})
}

func newServer(t *testing.T, svc httpapi.Service) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

// loadStream posts /load and splits the NDJSON stream into progress lines
// and the final result.
func loadStream(t *testing.T, base string) ([]types.LoadProgress, types.LoadResult) {
	t.Helper()
	resp, body := postJSON(t, base+"/load", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/load status %d: %s", resp.StatusCode, body)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		t.Fatalf("/load returned no lines")
	}
	var progress []types.LoadProgress
	for _, l := range lines[:len(lines)-1] {
		var p types.LoadProgress
		if err := json.Unmarshal([]byte(l), &p); err != nil {
			t.Fatalf("progress line %q: %v", l, err)
		}
		progress = append(progress, p)
	}
	var res types.LoadResult
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &res); err != nil {
		t.Fatalf("result line: %v", err)
	}
	return progress, res
}
