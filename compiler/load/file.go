package load

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Metadata is the document form of a set of schemas, as served by data
// services and stored on disk.
type Metadata struct {
	Namespace string    `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Schemas   []*Schema `json:"schemas" yaml:"schemas"`
}

// ParseJSON decodes a JSON metadata document.
func ParseJSON(data []byte) ([]*Schema, error) {
	var md Metadata
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&md); err != nil {
		return nil, fmt.Errorf("load: decode json metadata: %w", err)
	}
	return md.normalize()
}

// ParseYAML decodes a YAML metadata document.
func ParseYAML(data []byte) ([]*Schema, error) {
	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("load: decode yaml metadata: %w", err)
	}
	return md.normalize()
}

// ParseFile reads a metadata document, choosing the decoder by extension.
func ParseFile(path string) ([]*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("load: unsupported metadata file extension %q", ext)
	}
}

// MarshalYAML encodes schemas as a YAML metadata document.
func MarshalYAML(schemas []*Schema) ([]byte, error) {
	return yaml.Marshal(&Metadata{Schemas: schemas})
}

func (md *Metadata) normalize() ([]*Schema, error) {
	for i, s := range md.Schemas {
		if s == nil || s.Name == "" {
			return nil, fmt.Errorf("load: schema at position %d has no name", i)
		}
		if err := s.defaults(); err != nil {
			return nil, err
		}
	}
	return md.Schemas, nil
}

// Watch calls fn with the parsed contents of the metadata file at path
// every time the file is written or replaced, until ctx is done. The
// parent directory is watched so editors that rename over the file are
// observed too.
func Watch(ctx context.Context, path string, fn func([]*Schema, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("load: create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("load: watch %s: %w", path, err)
	}
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fn(ParseFile(path))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fn(nil, err)
		}
	}
}
