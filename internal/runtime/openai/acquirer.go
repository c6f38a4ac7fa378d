// Package openai acquires a model served by an OpenAI-compatible endpoint
// (llama.cpp server, LM Studio, Ollama). Nothing is downloaded; acquisition
// probes the server and completion is a chat completion request.
package openai

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	go_openai "github.com/sashabaranov/go-openai"

	"askd/internal/session"
)

// Options configures an Acquirer.
type Options struct {
	BaseURL string
	APIKey  string
	// Model overrides the model name sent upstream; the session model ID is
	// used when empty.
	Model      string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Acquirer implements session.Acquirer.
type Acquirer struct {
	client *go_openai.Client
	model  string
	log    zerolog.Logger
}

var _ session.Acquirer = (*Acquirer)(nil)

// New constructs an Acquirer.
func New(opts Options) *Acquirer {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	config := go_openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		config.HTTPClient = opts.HTTPClient
	}
	return &Acquirer{
		client: go_openai.NewClientWithConfig(config),
		model:  opts.Model,
		log:    log.With().Str("runtime", "openai").Logger(),
	}
}

// Acquire checks that the endpoint answers and reports a single completion
// event.
func (a *Acquirer) Acquire(ctx context.Context, modelID string, sink func(session.ProgressEvent)) (session.ModelHandle, error) {
	model := a.model
	if model == "" {
		model = modelID
	}
	sink(session.ProgressEvent{Text: "Connecting to model server"})
	list, err := a.client.ListModels(ctx)
	if err != nil {
		return nil, classify(errors.Wrap(err, "list models"))
	}
	found := false
	for _, m := range list.Models {
		if m.ID == model {
			found = true
			break
		}
	}
	if !found {
		// Single-model servers often report a file name rather than the
		// catalog ID; they still answer under any name.
		a.log.Warn().Str("model", model).Int("listed", len(list.Models)).Msg("model not listed by server")
	}
	sink(session.ProgressEvent{Fraction: 1, Text: "Model ready", Done: true})
	return &handle{client: a.client, model: model}, nil
}

type handle struct {
	client *go_openai.Client
	model  string
}

func (h *handle) Complete(ctx context.Context, req session.ChatRequest) (session.Completion, error) {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, go_openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	resp, err := h.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:       h.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return session.Completion{}, errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return session.Completion{}, errors.New("chat completion returned no choices")
	}
	c := resp.Choices[0]
	out := make([]session.Message, 0, len(req.Messages)+1)
	out = append(out, req.Messages...)
	out = append(out, session.Message{Role: session.Role(c.Message.Role), Content: c.Message.Content})
	return session.Completion{Messages: out, FinishReason: string(c.FinishReason)}, nil
}

// Close is a no-op: the server owns the model.
func (h *handle) Close() error { return nil }

// classify maps HTTP status codes reported by the client onto the load
// error taxonomy before falling back to session.Classify.
func classify(err error) error {
	code := 0
	var apiErr *go_openai.APIError
	var reqErr *go_openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		code = reqErr.HTTPStatusCode
	}
	switch {
	case code >= 500, code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return session.ErrNetworkFailure(err)
	case code != 0:
		return session.ErrLoadFailed(err)
	}
	return session.Classify(err)
}
