// Package registry holds the catalog of models the service can acquire.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"askd/internal/common/fsutil"
	"askd/pkg/types"
)

// DefaultModelID is the model the portfolio widget ships with.
const DefaultModelID = "qwen2.5-0.5b-instruct-q4_k_m"

// builtin is used when no catalog file is configured.
var builtin = []types.Model{{
	ID:            DefaultModelID,
	Name:          "Qwen2.5 0.5B Instruct (Q4_K_M)",
	Quant:         "Q4_K_M",
	Family:        "qwen",
	ContextWindow: 4096,
	Files: []types.ModelFile{{
		Name: "qwen2.5-0.5b-instruct-q4_k_m.gguf",
		URL:  "https://huggingface.co/Qwen/Qwen2.5-0.5B-Instruct-GGUF/resolve/main/qwen2.5-0.5b-instruct-q4_k_m.gguf",
	}},
}}

// Catalog is an immutable set of models keyed by ID.
type Catalog struct {
	byID map[string]types.Model
}

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	c, _ := New(builtin)
	return c
}

// New validates models and builds a catalog. IDs must be unique and every
// model needs at least one named file.
func New(models []types.Model) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]types.Model, len(models))}
	for i, m := range models {
		if strings.TrimSpace(m.ID) == "" {
			return nil, errors.Errorf("model %d: empty id", i)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, errors.Errorf("model %s: duplicate id", m.ID)
		}
		if len(m.Files) == 0 {
			return nil, errors.Errorf("model %s: no files", m.ID)
		}
		for j, f := range m.Files {
			if f.Name == "" {
				return nil, errors.Errorf("model %s: file %d has no name", m.ID, j)
			}
			if f.URL == "" && m.Dir == "" {
				return nil, errors.Errorf("model %s: file %s has no url", m.ID, f.Name)
			}
		}
		c.byID[m.ID] = m
	}
	return c, nil
}

// catalogFile is the on-disk layout.
type catalogFile struct {
	Models []types.Model `json:"models" yaml:"models"`
}

// LoadFile reads a catalog from a .yaml/.yml or .json file.
func LoadFile(path string) (*Catalog, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	var cf catalogFile
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cf)
	case ".json":
		err = json.Unmarshal(b, &cf)
	default:
		return nil, errors.Errorf("unsupported catalog extension: %s", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse catalog %s", p)
	}
	return New(cf.Models)
}

// Lookup returns the model with the given ID.
func (c *Catalog) Lookup(id string) (types.Model, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Models returns every model sorted by ID.
func (c *Catalog) Models() []types.Model {
	out := make([]types.Model, 0, len(c.byID))
	for _, m := range c.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Merge returns a catalog holding c's models plus extra. Entries in extra
// replace same-ID entries of c.
func (c *Catalog) Merge(extra []types.Model) (*Catalog, error) {
	all := make(map[string]types.Model, len(c.byID)+len(extra))
	for id, m := range c.byID {
		all[id] = m
	}
	for _, m := range extra {
		all[m.ID] = m
	}
	list := make([]types.Model, 0, len(all))
	for _, m := range all {
		list = append(list, m)
	}
	return New(list)
}
