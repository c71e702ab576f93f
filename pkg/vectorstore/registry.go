package vectorstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const DefaultRegistryPath = "utils/vector_store_ids_list.txt"

// Registry remembers the IDs of stores created by setup, one assignment per
// line, e.g. "my_docs_vector_id = 'vs_abc'".
type Registry struct {
	Path string
}

func NewRegistry(path string) *Registry {
	if path == "" {
		path = DefaultRegistryPath
	}
	return &Registry{Path: path}
}

// Save appends an entry for the store, creating the file if needed.
func (r *Registry) Save(name, id string) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return errors.Wrap(err, "creating registry directory")
	}
	f, err := os.OpenFile(r.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening registry")
	}
	if _, err := fmt.Fprintf(f, "%s_vector_id = '%s'\n", entryName(name), id); err != nil {
		f.Close()
		return errors.Wrap(err, "writing registry")
	}
	return errors.Wrap(f.Close(), "closing registry")
}

func entryName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
