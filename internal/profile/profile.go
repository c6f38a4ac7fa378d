// Package profile holds the fixed document the assistant answers from.
package profile

import (
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"
)

//go:embed profile.md
var document string

// Owner is the person the assistant represents.
const Owner = "Nguyen Trung Thong"

// Welcome is the greeting shown once the assistant is ready.
const Welcome = "Hi! I'm here to answer questions about Thong. Feel free to ask about his experience, skills, projects, or anything else!"

const preamble = "You are an AI assistant representing Nguyen Trung Thong, a passionate Frontend Developer with UX expertise. Answer questions based on the following professional information:"

const guidelines = `Important guidelines:
- Keep answers concise and accurate (2-4 sentences maximum)
- Be friendly and professional
- If asked about something not in the context, politely say you don't have that specific information
- Focus on Thong's skills, experience, and career goals
- When discussing projects, mention relevant technologies and achievements`

// Document returns the embedded professional profile.
func Document() string { return document }

// SystemPrompt wraps a profile document with the answering instructions.
func SystemPrompt(doc string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(doc))
	b.WriteString("\n\n")
	b.WriteString(guidelines)
	return b.String()
}

// Load returns the system prompt for the embedded profile, or for the
// document at path when path is set.
func Load(path string) (string, error) {
	if path == "" {
		return SystemPrompt(document), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read profile")
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errors.Errorf("profile %s is empty", path)
	}
	return SystemPrompt(string(b)), nil
}
