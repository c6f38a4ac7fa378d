package session

import (
	"math"
	"strings"
)

// PromptBuilder combines the fixed system context with a question into a
// request that fits the model's context window. It holds no mutable state.
type PromptBuilder struct {
	systemContext string
	tokenCeiling  int
	wordsPerToken float64
	suffix        string
	maxTokens     int
	temperature   float32
}

// WordBudget is the number of context words allowed for the token ceiling.
func (b *PromptBuilder) WordBudget() int {
	return int(math.Floor(float64(b.tokenCeiling) * b.wordsPerToken))
}

// BuildRequest returns the system + user messages for userMessage.
func (b *PromptBuilder) BuildRequest(userMessage string) ChatRequest {
	return ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: TruncateWords(b.systemContext, b.WordBudget())},
			{Role: RoleUser, Content: userMessage + b.suffix},
		},
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
	}
}

// TruncateWords keeps the first maxWords whitespace-separated words of text,
// joined by single spaces and followed by "...". Text within budget is
// returned unchanged.
func TruncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	if maxWords < 0 {
		maxWords = 0
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
