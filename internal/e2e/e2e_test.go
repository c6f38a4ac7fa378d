package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"askd/internal/httpapi"
	"askd/internal/profile"
	"askd/internal/session"
	"askd/pkg/types"
)

func TestE2E_LoadChatDispose(t *testing.T) {
	httpapi.SetWelcome(profile.Welcome)
	t.Cleanup(func() { httpapi.SetWelcome("") })

	h := &scriptedHandle{text: "  He builds React apps and designs in Figma.  "}
	s := session.New(session.Config{
		ModelID:       "portfolio",
		Acquirer:      twoFileAcquirer(h),
		SystemContext: profile.SystemPrompt(profile.Document()),
	})
	t.Cleanup(s.Dispose)
	srv := newServer(t, s)

	// Chat before load is a caller error.
	resp, _ := postJSON(t, srv.URL+"/chat", `{"message":"hello"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("chat before load: status %d, want 409", resp.StatusCode)
	}

	progress, res := loadStream(t, srv.URL)
	if !res.Done || res.State != "ready" || res.Error != "" {
		t.Fatalf("unexpected load result %+v", res)
	}
	if res.Welcome != profile.Welcome {
		t.Fatalf("welcome not returned after load: %q", res.Welcome)
	}
	if len(progress) == 0 {
		t.Fatalf("expected progress lines")
	}
	prev := -1.0
	for _, p := range progress {
		if p.Progress < prev {
			t.Fatalf("progress went backwards: %v after %v", p.Progress, prev)
		}
		prev = p.Progress
	}
	if last := progress[len(progress)-1]; last.Status != "done" || last.Progress != 100 {
		t.Fatalf("last progress %+v, want done at 100", last)
	}

	// A second load is a no-op and streams only the result.
	progress, res = loadStream(t, srv.URL)
	if len(progress) != 0 || res.State != "ready" {
		t.Fatalf("reload: %d progress lines, result %+v", len(progress), res)
	}

	resp, body := postJSON(t, srv.URL+"/chat", `{"message":"What does he do?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status %d: %s", resp.StatusCode, body)
	}
	var chat types.ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		t.Fatal(err)
	}
	if chat.Reply != "He builds React apps and designs in Figma." || chat.Fallback {
		t.Fatalf("unexpected chat response %+v", chat)
	}

	h.mu.Lock()
	msgs := h.prompts[0]
	h.mu.Unlock()
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" || msgs[1].Content != "What does he do?"+session.DefaultInstructionSuffix {
		t.Fatalf("unexpected prompt %+v", msgs)
	}

	var st types.StatusResponse
	getJSON(t, srv.URL+"/status", &st)
	if !st.Ready || st.Generating {
		t.Fatalf("status after chat %+v", st)
	}

	resp, _ = postJSON(t, srv.URL+"/dispose", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("dispose status %d", resp.StatusCode)
	}
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed != 1 {
		t.Fatalf("handle closed %d times, want 1", closed)
	}
	getJSON(t, srv.URL+"/status", &st)
	if st.Ready {
		t.Fatalf("still ready after dispose")
	}
	resp, _ = postJSON(t, srv.URL+"/chat", `{"message":"hello"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("chat after dispose: status %d, want 409", resp.StatusCode)
	}
}

func TestE2E_ShortAnswerUsesFallback(t *testing.T) {
	s := session.New(session.Config{ModelID: "portfolio", Acquirer: twoFileAcquirer(&scriptedHandle{text: "Yes."})})
	t.Cleanup(s.Dispose)
	srv := newServer(t, s)
	if _, res := loadStream(t, srv.URL); res.State != "ready" {
		t.Fatalf("load: %+v", res)
	}
	_, body := postJSON(t, srv.URL+"/chat", `{"message":"Is he available?"}`)
	var chat types.ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		t.Fatal(err)
	}
	if !chat.Fallback || chat.Reply != session.DefaultFallbackText {
		t.Fatalf("want fallback, got %+v", chat)
	}
}

func TestE2E_LongContextIsTruncated(t *testing.T) {
	h := &scriptedHandle{text: "A sufficiently long answer."}
	long := strings.Repeat("word ", 2000)
	s := session.New(session.Config{
		ModelID:       "portfolio",
		Acquirer:      twoFileAcquirer(h),
		SystemContext: long,
		TokenCeiling:  100,
		WordsPerToken: 0.5,
	})
	t.Cleanup(s.Dispose)
	srv := newServer(t, s)
	loadStream(t, srv.URL)
	if resp, body := postJSON(t, srv.URL+"/chat", `{"message":"Summarize"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status %d: %s", resp.StatusCode, body)
	}
	h.mu.Lock()
	system := h.prompts[0][0].Content
	h.mu.Unlock()
	if !strings.HasSuffix(system, "...") {
		t.Fatalf("truncated context should end with an ellipsis")
	}
	words := len(strings.Fields(system))
	if words != 50 {
		t.Fatalf("context kept %d words, want 50", words)
	}
}
