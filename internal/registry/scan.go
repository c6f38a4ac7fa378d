package registry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"askd/internal/common/fsutil"
	"askd/pkg/types"
)

// LoadDir scans a directory for *.gguf files and returns one local model per
// file. The ID is the filename without extension; nothing is downloaded.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.Wrap(err, "abs path")
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.Wrap(err, "read dir")
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(ext, ".gguf") {
			continue
		}
		var size int64
		if fi, err := e.Info(); err == nil {
			size = fi.Size()
		}
		id := strings.TrimSuffix(name, ext)
		models = append(models, types.Model{
			ID:    id,
			Name:  id,
			Dir:   abs,
			Files: []types.ModelFile{{Name: name, Size: size}},
		})
	}
	return models, nil
}
