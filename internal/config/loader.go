package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	filePrefix = "config-"
	fileSuffix = ".yaml"
)

// Loader resolves variant documents from a configs directory. Each Loader
// owns its resolution cache; two Loaders never share state.
type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]map[string]any
}

// NewLoader creates a Loader reading from the given configs directory.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: make(map[string]map[string]any),
	}
}

// Dir returns the configs directory this loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Path returns the source file path for a variant name.
func (l *Loader) Path(name string) string {
	return filepath.Join(l.dir, filePrefix+name+fileSuffix)
}

// Exists reports whether a source document exists for the variant name.
func (l *Loader) Exists(name string) bool {
	_, err := os.Stat(l.Path(name))
	return err == nil
}

// List returns the names of all variants in the configs directory, sorted.
func (l *Loader) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to scan configs directory: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, NormalizeName(filepath.Base(m)))
	}
	sort.Strings(names)
	return names, nil
}

// Resolve loads the named variant and flattens its extends chain into a
// single document. The result is cached; callers must not mutate it.
func (l *Loader) Resolve(name string) (map[string]any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolve(name, nil)
}

// Invalidate drops all cached resolutions, forcing the next Resolve to
// re-read source documents.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]map[string]any)
}

// resolve does the recursive work. chain holds the names currently being
// resolved, used to reject extends cycles.
func (l *Loader) resolve(name string, chain []string) (map[string]any, error) {
	if doc, ok := l.cache[name]; ok {
		return doc, nil
	}
	if slices.Contains(chain, name) {
		return nil, &CycleError{Chain: append(append([]string{}, chain...), name)}
	}

	doc, err := l.read(name)
	if err != nil {
		return nil, err
	}

	if ref, ok := doc["extends"]; ok {
		ancestorRef, ok := ref.(string)
		if !ok {
			return nil, fmt.Errorf("variant %s: extends must be a string, got %T", name, ref)
		}
		ancestor := NormalizeName(ancestorRef)

		// The extends key is inheritance metadata, never document content.
		delete(doc, "extends")

		if !l.Exists(ancestor) {
			return nil, &MissingAncestorError{Name: name, Ancestor: ancestor}
		}
		base, err := l.resolve(ancestor, append(chain, name))
		if err != nil {
			return nil, err
		}
		doc = Merge(base, doc)
	}

	l.cache[name] = doc
	return doc, nil
}

// read loads and decodes a single source document without resolving
// inheritance.
func (l *Loader) read(name string) (map[string]any, error) {
	data, err := os.ReadFile(l.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, fmt.Errorf("failed to read variant %s: %w", name, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse variant %s: %w", name, err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

// NormalizeName strips the file naming decoration from an extends reference
// or file name, so "config-base.yaml", "base.yaml", and "base" all refer to
// the same variant.
func NormalizeName(ref string) string {
	name := strings.TrimPrefix(ref, filePrefix)
	name = strings.TrimSuffix(name, fileSuffix)
	name = strings.TrimSuffix(name, ".yml")
	return name
}
