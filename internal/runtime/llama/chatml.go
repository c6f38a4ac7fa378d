package llama

import (
	"strings"

	"askd/internal/session"
)

const (
	chatMLStart = "<|im_start|>"
	chatMLEnd   = "<|im_end|>"
)

var chatMLStop = []string{chatMLEnd}

// renderChatML lays messages out in the ChatML template used by Qwen
// instruct models and opens the assistant turn.
func renderChatML(msgs []session.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(chatMLStart)
		b.WriteString(string(m.Role))
		b.WriteByte('\n')
		b.WriteString(m.Content)
		b.WriteString(chatMLEnd)
		b.WriteByte('\n')
	}
	b.WriteString(chatMLStart)
	b.WriteString(string(session.RoleAssistant))
	b.WriteByte('\n')
	return b.String()
}
