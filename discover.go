package mdtl

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanResult is the outcome of Discover.
type ScanResult struct {
	Jobs     []TranslationJob // Pairs whose target is missing
	Existing []TranslationJob // Pairs whose target already exists
	Sources  int              // Primary-locale files found
}

// Discover walks root and returns one job for every source file in the
// primary locale and every buildable target locale whose sibling file is
// missing. Sources are files named "<name>.<primary>.md". The target for
// locale L is "<name>.<L>.md" in the same directory.
//
// Jobs are ordered by source path, then target locale.
func Discover(root, primary string, locales []LocaleSpec) (*ScanResult, error) {
	primary = strings.TrimSpace(primary)
	if primary == "" {
		return nil, &ConfigError{Field: "i18n.languages", Message: "no default language"}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &SourceError{Path: root, Message: "content root not accessible", Cause: err}
	}
	if !info.IsDir() {
		return nil, &SourceError{Path: root, Message: "content root is not a directory"}
	}

	targets := TargetLocales(primary, locales)
	suffix := "." + primary + ".md"
	result := &ScanResult{}

	err = filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if p != root && skipDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), suffix) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		base := strings.TrimSuffix(rel, suffix)
		if base == "" || strings.HasSuffix(base, "/") {
			return nil
		}
		result.Sources++

		for _, locale := range targets {
			job := TranslationJob{
				Source:       ContentFile{RelPath: rel, Locale: primary},
				TargetLocale: locale,
				TargetPath:   base + "." + locale + ".md",
				State:        StateDiscovered,
			}
			exists, err := fileExists(filepath.Join(root, filepath.FromSlash(job.TargetPath)))
			if err != nil {
				return err
			}
			if exists {
				result.Existing = append(result.Existing, job)
			} else {
				result.Jobs = append(result.Jobs, job)
			}
		}
		return nil
	})
	if err != nil {
		return nil, &SourceError{Path: root, Message: "scanning content", Cause: err}
	}

	sortJobs(result.Jobs)
	sortJobs(result.Existing)
	return result, nil
}

// TargetLocales returns the codes of every locale that is built and is not
// the primary locale, in configuration order without duplicates.
func TargetLocales(primary string, locales []LocaleSpec) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range locales {
		code := strings.TrimSpace(l.Code)
		if code == "" || !l.Build || SameLocale(code, primary) {
			continue
		}
		key := NormalizeLocale(code)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, code)
	}
	return out
}

func skipDir(name string) bool {
	return IgnoredDirs[name] || strings.HasPrefix(name, ".")
}

func fileExists(p string) (bool, error) {
	_, err := os.Lstat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func sortJobs(jobs []TranslationJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Source.RelPath != jobs[j].Source.RelPath {
			return jobs[i].Source.RelPath < jobs[j].Source.RelPath
		}
		return jobs[i].TargetLocale < jobs[j].TargetLocale
	})
}
