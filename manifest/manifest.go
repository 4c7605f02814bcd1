// Package manifest implements .mdtl.lock, a record of which source revision
// each translated file was produced from. It lets a build report (and
// optionally re-translate) targets whose source changed after translation.
//
// The manifest is stored alongside mdtl.yaml in the project root.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZaguanLabs/mdtl"
)

// FileName is the default manifest file name.
const FileName = ".mdtl.lock"

// Version is the manifest format version.
const Version = 1

// Entry describes one translated target.
type Entry struct {
	SourceHash   string    `yaml:"source_hash"`
	Backend      string    `yaml:"backend,omitempty"`
	TranslatedAt time.Time `yaml:"translated_at"`
}

// Manifest maps target paths (relative to the content root, slash separated)
// to the source revision they were translated from.
type Manifest struct {
	Version int               `yaml:"version"`
	Targets map[string]*Entry `yaml:"targets"`

	mu    sync.Mutex `yaml:"-"`
	path  string     `yaml:"-"`
	dirty bool       `yaml:"-"`
	now   func() time.Time
}

var _ mdtl.Manifest = (*Manifest)(nil)

// Load reads the manifest from dir. A missing file yields an empty manifest.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads the manifest from an explicit path.
func LoadFile(path string) (*Manifest, error) {
	m := &Manifest{
		Version: Version,
		Targets: make(map[string]*Entry),
		path:    path,
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m.Version > Version {
		return nil, fmt.Errorf("%s: unsupported manifest version %d", path, m.Version)
	}
	if m.Targets == nil {
		m.Targets = make(map[string]*Entry)
	}
	m.Version = Version

	return m, nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return m.path
}

// SourceHash returns the recorded source hash for target.
func (m *Manifest) SourceHash(target string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.Targets[filepath.ToSlash(target)]
	if !ok || e == nil {
		return "", false
	}
	return e.SourceHash, true
}

// Record stores the source hash a target was just translated from.
func (m *Manifest) Record(target, sourceHash, backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Targets[filepath.ToSlash(target)] = &Entry{
		SourceHash:   sourceHash,
		Backend:      backend,
		TranslatedAt: m.clock().UTC().Truncate(time.Second),
	}
	m.dirty = true
}

// Remove forgets a target.
func (m *Manifest) Remove(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := filepath.ToSlash(target)
	if _, ok := m.Targets[key]; ok {
		delete(m.Targets, key)
		m.dirty = true
	}
}

// Prune removes entries whose target no longer exists under root and
// returns the removed targets.
func (m *Manifest) Prune(root string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for target := range m.Targets {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(target))); os.IsNotExist(err) {
			delete(m.Targets, target)
			removed = append(removed, target)
		}
	}
	if len(removed) > 0 {
		m.dirty = true
	}
	sort.Strings(removed)
	return removed
}

// Save writes the manifest when it changed since loading.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return fmt.Errorf("manifest path not set")
	}
	if !m.dirty {
		return nil
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := mdtl.WriteFileAtomic(m.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}

	m.dirty = false
	return nil
}

// TargetPaths returns the sorted list of recorded targets.
func (m *Manifest) TargetPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.Targets))
	for t := range m.Targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of recorded targets.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Targets)
}

func (m *Manifest) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}
