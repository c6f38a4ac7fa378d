//go:build llama

package llama

import (
	"context"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

type llamaModel struct {
	m *llama.LLama
}

func openModel(path string, contextSize int) (predictor, error) {
	m, err := llama.New(path, llama.SetContext(contextSize))
	if err != nil {
		return nil, err
	}
	return &llamaModel{m: m}, nil
}

func (l *llamaModel) Predict(ctx context.Context, prompt string, o predictOptions) (string, error) {
	// Returning false from the callback stops prediction.
	l.m.SetTokenCallback(func(string) bool { return ctx.Err() == nil })
	po := []llama.PredictOption{
		llama.SetTokens(max(1, o.MaxTokens)),
		llama.SetThreads(max(1, o.Threads)),
		llama.SetTemperature(o.Temperature),
	}
	if len(o.Stop) > 0 {
		po = append(po, llama.SetStopWords(o.Stop...))
	}
	text, err := l.m.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (l *llamaModel) Free() { l.m.Free() }
