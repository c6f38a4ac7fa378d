//go:build !llama

package llama

import "askd/internal/session"

// llamaBuilt is false in default builds, keeping them CGO-free.
const llamaBuilt = false

func openModel(path string, contextSize int) (predictor, error) {
	return nil, session.ErrUnsupportedEnvironment("llama support not built (missing 'llama' build tag)")
}
