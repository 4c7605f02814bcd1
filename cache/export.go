package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/ZaguanLabs/mdtl"
)

// FormatVersion is written to every export.
const FormatVersion = "1.0"

// ExportFormat represents the JSON structure for cache export/import.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Entries    []ExportEntry     `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExportEntry represents a single cache entry.
type ExportEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Exporter provides cache export functionality.
type Exporter struct {
	cache TranslationCache
}

// NewExporter creates a new cache exporter.
func NewExporter(cache TranslationCache) *Exporter {
	return &Exporter{cache: cache}
}

// Export writes the cache contents to a writer in JSON format. Entries are
// sorted by key so exports of the same cache are identical.
func (e *Exporter) Export(w io.Writer, metadata map[string]string) error {
	entries, err := e.entries()
	if err != nil {
		return &mdtl.CacheError{Message: "reading entries", Cause: err}
	}

	export := ExportFormat{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    entries,
		Metadata:   metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return &mdtl.CacheError{Message: "encoding JSON", Cause: err}
	}

	return nil
}

// ExportToFile exports the cache to a file, replacing it atomically.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter) ExportToFile(path string, metadata map[string]string) error {
	var buf bytes.Buffer
	if err := e.Export(&buf, metadata); err != nil {
		return err
	}
	if err := mdtl.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return &mdtl.CacheError{Message: "writing " + path, Cause: err}
	}
	return nil
}

func (e *Exporter) entries() ([]ExportEntry, error) {
	exportable, ok := e.cache.(ExportableCache)
	if !ok {
		return nil, fmt.Errorf("cache type %T does not support export", e.cache)
	}

	data, err := exportable.Entries()
	if err != nil {
		return nil, err
	}

	entries := make([]ExportEntry, 0, len(data))
	for key, value := range data {
		entries = append(entries, ExportEntry{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return entries, nil
}

// Importer provides cache import functionality.
type Importer struct {
	cache TranslationCache
}

// NewImporter creates a new cache importer.
func NewImporter(cache TranslationCache) *Importer {
	return &Importer{cache: cache}
}

// Import reads cache entries from a reader and loads them into the cache.
func (i *Importer) Import(r io.Reader) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, &mdtl.CacheError{Message: "decoding JSON", Cause: err}
	}

	result := &ImportResult{
		Version:  export.Version,
		Metadata: export.Metadata,
	}

	for _, entry := range export.Entries {
		if entry.Key == "" {
			result.Failed++
			continue
		}
		if err := i.cache.Set(entry.Key, entry.Value); err != nil {
			result.Failed++
			continue
		}
		result.Imported++
	}

	return result, nil
}

// ImportFromFile imports cache entries from a file.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer) ImportFromFile(path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, &mdtl.CacheError{Message: "opening " + path, Cause: err}
	}
	defer f.Close()

	return i.Import(f)
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Failed   int
}

// LoadSnapshot imports path into cache when the file exists. A missing
// snapshot is not an error; the first run simply starts empty.
func LoadSnapshot(cache TranslationCache, path string) (*ImportResult, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &ImportResult{}, nil
	}
	return NewImporter(cache).ImportFromFile(path)
}

// SaveSnapshot exports cache to path.
func SaveSnapshot(cache TranslationCache, path string, metadata map[string]string) error {
	return NewExporter(cache).ExportToFile(path, metadata)
}
