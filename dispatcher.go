package mdtl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaguanLabs/mdtl/logging"
	"github.com/ZaguanLabs/mdtl/markdown"
)

// Backend is the interface for translation services.
type Backend interface {
	// Translate returns the full translated document. An empty result is a
	// failure.
	Translate(ctx context.Context, req TranslateRequest) (string, error)
	// Name identifies the backend in cache keys, manifests and logs.
	Name() string
}

// TranslateRequest contains the parameters for a translation request.
type TranslateRequest struct {
	Text       string // Complete markdown document, front matter included
	SourceLang string
	TargetLang string
	Path       string // Source path relative to the content root, for logging
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Manifest records which source revision each target was translated from.
type Manifest interface {
	SourceHash(target string) (string, bool)
	Record(target, sourceHash, backend string)
	Save() error
}

// NoticeFunc decorates a translated document, e.g. with an "automatically
// translated" note.
type NoticeFunc func(content, sourceLang, targetLang string) string

// Dispatcher finds missing translations under a content root and produces
// them through a Backend.
type Dispatcher struct {
	root         string
	primary      string
	locales      []LocaleSpec
	backend      Backend
	cache        TranslationCache
	manifest     Manifest
	notice       NoticeFunc
	logger       logging.Logger
	workers      int
	dryRun       bool
	refreshStale bool
	retry        *RetryConfig
	rateLimit    *RateLimitConfig
}

// DispatcherOption is a functional option for configuring the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of concurrent jobs. Values below 1 mean 1.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.workers = n
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) DispatcherOption {
	return func(d *Dispatcher) {
		d.cache = cache
	}
}

// WithManifest enables source tracking for written targets.
func WithManifest(m Manifest) DispatcherOption {
	return func(d *Dispatcher) {
		d.manifest = m
	}
}

// WithNotice sets a decorator applied to every translated document before it
// is written.
func WithNotice(fn NoticeFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.notice = fn
	}
}

// WithLogger sets the logger. The default drops everything.
func WithLogger(logger logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDryRun makes Run report the jobs it would execute without calling the
// backend or writing files.
func WithDryRun(dryRun bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.dryRun = dryRun
	}
}

// WithRefreshStale re-translates existing targets whose source changed since
// they were recorded in the manifest.
func WithRefreshStale(refresh bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.refreshStale = refresh
	}
}

// WithRetryPolicy retries retryable backend failures with exponential backoff.
func WithRetryPolicy(cfg RetryConfig) DispatcherOption {
	return func(d *Dispatcher) {
		d.retry = &cfg
	}
}

// WithRateLimit caps the rate of backend calls.
func WithRateLimit(cfg RateLimitConfig) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimit = &cfg
	}
}

// NewDispatcher creates a Dispatcher for the content root, the primary locale
// authors write in and the configured locales.
func NewDispatcher(root, primary string, locales []LocaleSpec, backend Backend, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		root:    root,
		primary: primary,
		locales: locales,
		backend: backend,
		logger:  logging.NoOp(),
		workers: 1,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.workers < 1 {
		d.workers = 1
	}
	if d.backend != nil && d.rateLimit != nil && d.rateLimit.RequestsPerMinute > 0 {
		d.backend = NewRateLimitedBackend(d.backend, *d.rateLimit)
	}
	if d.backend != nil && d.retry != nil && d.retry.MaxRetries > 0 {
		d.backend = NewRetryableBackend(d.backend, *d.retry)
	}

	return d
}

// Backend returns the backend used for translation, including any retry or
// rate limit wrappers.
func (d *Dispatcher) Backend() Backend {
	return d.backend
}

// Scan discovers missing pairs and, when a manifest is configured, existing
// targets whose source has changed. It never calls the backend.
func (d *Dispatcher) Scan() (*ScanResult, []string, error) {
	scan, err := Discover(d.root, d.primary, d.locales)
	if err != nil {
		return nil, nil, err
	}
	stale := d.staleTargets(scan.Existing)
	return scan, stale, nil
}

// Run discovers missing translations and produces them. Per-job failures are
// recorded in the report and never abort the run; the returned error is
// non-nil only when discovery fails or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) (*Report, error) {
	if d.backend == nil && !d.dryRun {
		return nil, &ConfigError{Field: "translate.service", Message: "no translation backend configured"}
	}

	scan, stale, err := d.Scan()
	if err != nil {
		return nil, err
	}

	jobs := scan.Jobs
	if d.refreshStale {
		for _, job := range scan.Existing {
			if containsString(stale, job.TargetPath) {
				job.Refresh = true
				jobs = append(jobs, job)
			}
		}
		sortJobs(jobs)
	}

	report := &Report{
		Discovered: len(jobs),
		Skipped:    len(scan.Existing),
		Stale:      stale,
		Results:    make([]TranslationResult, len(jobs)),
	}
	for i, job := range jobs {
		report.Results[i] = TranslationResult{Job: job}
	}

	d.logger.Info("scan.completed",
		"root", d.root,
		"jobs", len(jobs),
		"existing", len(scan.Existing),
		"stale", len(stale),
	)

	if d.dryRun {
		for _, job := range jobs {
			d.logger.Info("translation.planned", "source", job.Source.RelPath, "target", job.TargetPath)
		}
		return report, nil
	}

	runParallel(ctx, d.workers, len(jobs), func(ctx context.Context, i int) {
		report.Results[i] = d.runJob(ctx, jobs[i])
	})

	cancelErr := ctx.Err()
	for i := range report.Results {
		res := &report.Results[i]
		if !res.Job.State.Terminal() {
			res.Job.State = StateFailed
			res.Err = cancelErr
		}
		switch {
		case res.Job.State == StateWritten:
			report.Written++
			if res.Cached {
				report.Cached++
			}
		case res.Job.State == StateFailed:
			report.Failed++
		}
	}

	if d.manifest != nil && report.Written > 0 {
		if err := d.manifest.Save(); err != nil {
			d.logger.Warn("manifest.save_failed", "error", err)
		}
	}

	d.logger.Info("run.completed",
		"written", report.Written,
		"cached", report.Cached,
		"failed", report.Failed,
	)

	if cancelErr != nil {
		return report, cancelErr
	}
	return report, nil
}

// runJob takes a single job from Discovered to a terminal state.
func (d *Dispatcher) runJob(ctx context.Context, job TranslationJob) TranslationResult {
	logger := logging.WithJob(d.logger, job.Source.RelPath, job.TargetLocale, job.TargetPath)
	result := TranslationResult{Job: job}

	fail := func(err error) TranslationResult {
		result.Job.State = StateFailed
		result.Err = err
		var srcErr *SourceError
		if errors.As(err, &srcErr) {
			logger.Warn("source.skipped", "error", err)
		} else {
			logger.Warn("translation.failed", "error", err)
		}
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Job.State = StateFailed
		result.Err = err
		return result
	}

	text, err := d.readSource(job.Source.RelPath)
	if err != nil {
		return fail(err)
	}
	result.Job.Source.Text = text

	sourceHash := HashText(text)
	backendName := d.backend.Name()
	cacheKey := CacheKeyExtended(sourceHash, d.primary, job.TargetLocale, backendName)

	result.Job.State = StateTranslating

	var translated string
	if d.cache != nil {
		if cached, ok := d.cache.Get(cacheKey); ok && strings.TrimSpace(cached) != "" {
			translated = cached
			result.Cached = true
			logger.Debug("cache.hit")
		}
	}

	if !result.Cached {
		logger.Debug("translation.started", "backend", backendName)
		translated, err = d.backend.Translate(ctx, TranslateRequest{
			Text:       text,
			SourceLang: d.primary,
			TargetLang: job.TargetLocale,
			Path:       job.Source.RelPath,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Job.State = StateFailed
				result.Err = ctxErr
				return result
			}
			return fail(err)
		}
		if strings.TrimSpace(translated) == "" {
			return fail(&ProviderError{Backend: backendName, Message: "empty translation"})
		}
	}

	output := translated
	if d.notice != nil {
		output = d.notice(output, d.primary, job.TargetLocale)
	}

	targetPath := filepath.Join(d.root, filepath.FromSlash(job.TargetPath))
	if err := WriteFileAtomic(targetPath, []byte(output), 0o644); err != nil {
		return fail(&WriteError{Path: job.TargetPath, Cause: err})
	}

	if d.cache != nil && !result.Cached {
		if err := d.cache.Set(cacheKey, translated); err != nil {
			logger.Warn("cache.set_failed", "error", err)
		}
	}
	if d.manifest != nil {
		d.manifest.Record(job.TargetPath, sourceHash, backendName)
	}

	result.Job.State = StateWritten
	result.Text = output
	logger.Info("translation.written", "cached", result.Cached, "refresh", job.Refresh)
	return result
}

// readSource loads and validates a source document.
func (d *Dispatcher) readSource(rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", &SourceError{Path: rel, Message: "reading source", Cause: err}
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", &SourceError{Path: rel, Message: "empty document"}
	}
	if _, err := markdown.Split(text); err != nil {
		return "", &SourceError{Path: rel, Message: "invalid front matter", Cause: err}
	}
	return text, nil
}

// staleTargets lists existing targets whose recorded source hash no longer
// matches the source. Targets the manifest does not know are not stale.
func (d *Dispatcher) staleTargets(existing []TranslationJob) []string {
	if d.manifest == nil {
		return nil
	}
	var stale []string
	for _, job := range existing {
		recorded, ok := d.manifest.SourceHash(job.TargetPath)
		if !ok {
			continue
		}
		text, err := d.readSource(job.Source.RelPath)
		if err != nil {
			continue
		}
		if recorded != HashText(text) {
			stale = append(stale, job.TargetPath)
		}
	}
	return stale
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
