package mdtl

import (
	"fmt"
	"strings"
)

// ContentFile is a markdown document in the primary locale.
type ContentFile struct {
	RelPath string // Path relative to the content root, slash separated
	Locale  string // Locale code taken from the file name
	Text    string // Raw file content, filled when the job runs
}

// LocaleSpec describes one configured language.
type LocaleSpec struct {
	Code    string // Locale code used in file names (e.g. "de", "pt_BR")
	Name    string // Human-readable name
	Build   bool   // Whether the site is built (and therefore translated) for this locale
	Default bool   // Primary locale authors write in
}

// JobState tracks a TranslationJob through a run.
type JobState string

const (
	// StateDiscovered is the initial state after a scan.
	StateDiscovered JobState = "discovered"
	// StateTranslating means the backend call is in flight.
	StateTranslating JobState = "translating"
	// StateWritten is terminal: the target file exists.
	StateWritten JobState = "written"
	// StateFailed is terminal: nothing was written.
	StateFailed JobState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s JobState) Terminal() bool {
	return s == StateWritten || s == StateFailed
}

// TranslationJob is one (source file, target locale) pair that needs a file.
type TranslationJob struct {
	Source       ContentFile
	TargetLocale string
	TargetPath   string // Relative to the content root, slash separated
	State        JobState
	Refresh      bool // Target exists but its source changed since the last translation
}

// String renders the job as "src -> dst".
func (j TranslationJob) String() string {
	return j.Source.RelPath + " -> " + j.TargetPath
}

// TranslationResult is the outcome of a single job.
type TranslationResult struct {
	Job    TranslationJob
	Text   string // Text written to disk (empty on failure)
	Cached bool   // Served from the translation cache, no backend call
	Err    error
}

// Report summarizes a dispatcher run.
type Report struct {
	Discovered int      // Jobs created by the scan
	Written    int      // Files written (including cache hits)
	Cached     int      // Files written from cache
	Failed     int      // Jobs that ended in StateFailed
	Skipped    int      // Pairs skipped because the target already exists
	Stale      []string // Existing targets whose source changed since translation
	Results    []TranslationResult
}

// Failures returns the failed results in job order.
func (r *Report) Failures() []TranslationResult {
	var out []TranslationResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Summary returns a one-line human-readable summary.
func (r *Report) Summary() string {
	parts := []string{
		fmt.Sprintf("%d written", r.Written),
		fmt.Sprintf("%d from cache", r.Cached),
		fmt.Sprintf("%d failed", r.Failed),
		fmt.Sprintf("%d already present", r.Skipped),
	}
	if len(r.Stale) > 0 {
		parts = append(parts, fmt.Sprintf("%d stale", len(r.Stale)))
	}
	return strings.Join(parts, ", ")
}

// IgnoredDirs contains directory names never descended into during a scan.
var IgnoredDirs = map[string]bool{
	".git":         true,
	".cache":       true,
	"node_modules": true,
	"__pycache__":  true,
}
