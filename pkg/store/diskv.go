package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/presetswitch/pkg/graph"
)

// ErrNotFound is returned when a workflow is not in the library.
var ErrNotFound = errors.New("store: workflow not found")

// Persistence is the workflow document library.
type Persistence interface {
	Names(ctx context.Context) []string
	Has(name string) bool
	Load(name string, schema *graph.Schema) (*graph.Document, error)
	Save(name string, d *graph.Document) error
	Import(name string, data []byte, schema *graph.Schema) error
	Export(name string) ([]byte, error)
	Delete(name string) error
	Watch(ctx context.Context) (<-chan Event, error)
}

const (
	workflowsDir = "workflows"
	tempDir      = ".tmp"
	fileSuffix   = ".json"
)

// Load creates a Persistence backed by diskv at cfg's base path.
func Load(cfg Config) (Persistence, error) {
	if cfg == nil || cfg.BasePath() == "" {
		return nil, errors.New("store: persistence base path unknown")
	}
	basePath := cfg.BasePath()
	return &persistence{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		TempDir:           filepath.Join(basePath, tempDir),
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		// Workflows are also written by the editor, so reads must not be
		// served from a cache.
		CacheSizeMax: 0,
	}), basePath: basePath}, nil
}

type persistence struct {
	d        *diskv.Diskv
	basePath string
}

func (p *persistence) Names(ctx context.Context) []string {
	names := make([]string, 0)
	for key := range p.d.Keys(ctx.Done()) {
		name, ok := nameForKey(key)
		if !ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *persistence) Has(name string) bool {
	return p.d.Has(toKey(name))
}

func (p *persistence) Load(name string, schema *graph.Schema) (*graph.Document, error) {
	data, err := p.Export(name)
	if err != nil {
		return nil, err
	}
	d, err := graph.Parse(data, schema)
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", name, err)
	}
	return d, nil
}

func (p *persistence) Save(name string, d *graph.Document) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("store: workflow name required")
	}
	data, err := d.MarshalJSON()
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", name, err)
	}
	if err := p.d.WriteStream(toKey(name), bytes.NewReader(data), true); err != nil {
		return fmt.Errorf("store: save %q: %w", name, err)
	}
	d.ClearDirty()
	return nil
}

func (p *persistence) Import(name string, data []byte, schema *graph.Schema) error {
	d, err := graph.Parse(data, schema)
	if err != nil {
		return fmt.Errorf("store: import %q: %w", name, err)
	}
	return p.Save(name, d)
}

func (p *persistence) Export(name string) ([]byte, error) {
	data, err := p.d.Read(toKey(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("store: read %q: %w", name, err)
	}
	return data, nil
}

func (p *persistence) Delete(name string) error {
	if !p.Has(name) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p.d.Erase(toKey(name))
}

// keys are "workflows/<encoded name>"; the encoding never contains a slash.
func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1] + fileSuffix,
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	file := strings.TrimSuffix(pathKey.FileName, fileSuffix)
	return strings.Join(append(append([]string(nil), pathKey.Path...), file), "/")
}

func toKey(name string) string {
	return workflowsDir + "/" + toName(name)
}

func nameForKey(key string) (string, bool) {
	dir, encoded, ok := strings.Cut(key, "/")
	if !ok || dir != workflowsDir {
		return "", false
	}
	return fromName(encoded)
}

func toName(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func fromName(s string) (string, bool) {
	name, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", false
	}
	return string(name), true
}

// nameForPath derives the workflow name from a file path under basePath.
func (p *persistence) nameForPath(path string) string {
	rel, err := filepath.Rel(p.basePath, path)
	if err != nil || rel == "." {
		return ""
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	if len(parts) != 2 || parts[0] != workflowsDir || !strings.HasSuffix(parts[1], fileSuffix) {
		return ""
	}
	name, ok := fromName(strings.TrimSuffix(parts[1], fileSuffix))
	if !ok {
		return ""
	}
	return name
}
