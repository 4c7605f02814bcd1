package mdtl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ZaguanLabs/mdtl/logging"
)

// mockBackend is a mock translation backend for testing.
type mockBackend struct {
	mu       sync.Mutex
	calls    int
	requests []TranslateRequest
	failOn   map[string]error // keyed by source path
	empty    bool
	hook     func(req TranslateRequest)
}

func newMockBackend() *mockBackend {
	return &mockBackend{failOn: make(map[string]error)}
}

func (m *mockBackend) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	hook := m.hook
	err := m.failOn[req.Path]
	empty := m.empty
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err != nil {
		return "", err
	}
	if empty {
		return "   ", nil
	}
	return "[" + req.TargetLang + "] " + req.Text, nil
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockCache is a mock translation cache for testing.
type mockCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func (c *mockCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	return val, ok
}

func (c *mockCache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

// mockManifest is an in-memory Manifest.
type mockManifest struct {
	mu      sync.Mutex
	entries map[string]string
	saves   int
}

func newMockManifest() *mockManifest {
	return &mockManifest{entries: make(map[string]string)}
}

func (m *mockManifest) SourceHash(target string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.entries[target]
	return h, ok
}

func (m *mockManifest) Record(target, sourceHash, backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[target] = sourceHash
}

func (m *mockManifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

var twoLocales = []LocaleSpec{
	{Code: "en", Build: true, Default: true},
	{Code: "de", Build: true},
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

func TestDispatcher_WritesMissingTargets(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"setup.en.md":        "# Setup\n",
		"guides/start.en.md": "# Start\n",
	})
	backend := newMockBackend()

	d := NewDispatcher(root, "en", testLocales, backend)
	report, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Written != 4 || report.Failed != 0 {
		t.Fatalf("unexpected report: %s", report.Summary())
	}
	if got := readFile(t, root, "setup.de.md"); got != "[de] # Setup\n" {
		t.Errorf("setup.de.md = %q", got)
	}
	if got := readFile(t, root, "guides/start.fr.md"); got != "[fr] # Start\n" {
		t.Errorf("guides/start.fr.md = %q", got)
	}
	if got := readFile(t, root, "setup.en.md"); got != "# Setup\n" {
		t.Errorf("source modified: %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "setup.es.md")); !os.IsNotExist(err) {
		t.Error("unbuilt locale must not be written")
	}
	for _, res := range report.Results {
		if res.Job.State != StateWritten {
			t.Errorf("%s: state = %s", res.Job, res.Job.State)
		}
	}
}

func TestDispatcher_SecondRunMakesNoCalls(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"index.en.md": "# Home\n"})
	backend := newMockBackend()

	d := NewDispatcher(root, "en", twoLocales, backend)
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := backend.Calls()

	report, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if backend.Calls() != first {
		t.Errorf("second run made %d extra calls", backend.Calls()-first)
	}
	if report.Discovered != 0 || report.Skipped != 1 {
		t.Errorf("unexpected second report: %+v", report)
	}
}

func TestDispatcher_ExistingTargetUntouched(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.en.md": "# Home\n",
		"index.de.md": "hand written",
	})
	backend := newMockBackend()

	if _, err := NewDispatcher(root, "en", twoLocales, backend).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if backend.Calls() != 0 {
		t.Errorf("expected no calls, got %d", backend.Calls())
	}
	if got := readFile(t, root, "index.de.md"); got != "hand written" {
		t.Errorf("existing target overwritten: %q", got)
	}
}

func TestDispatcher_FailureIsolation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.en.md": "# A\n",
		"b.en.md": "# B\n",
		"c.en.md": "# C\n",
	})
	backend := newMockBackend()
	backend.failOn["b.en.md"] = &ProviderError{Backend: "mock", Message: "quota exceeded", StatusCode: 456}
	rec := logging.NewRecorder()

	d := NewDispatcher(root, "en", twoLocales, backend, WithLogger(rec), WithWorkers(2))
	report, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("per-job failure must not fail the run: %v", err)
	}

	if report.Written != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %s", report.Summary())
	}
	if _, err := os.Stat(filepath.Join(root, "b.de.md")); !os.IsNotExist(err) {
		t.Error("failed job must not leave a file")
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].Job.Source.RelPath != "b.en.md" {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	var providerErr *ProviderError
	if !errors.As(failures[0].Err, &providerErr) {
		t.Errorf("expected ProviderError, got %T", failures[0].Err)
	}
	if warns := rec.Messages("warn"); len(warns) != 1 || warns[0] != "translation.failed" {
		t.Errorf("expected one failure warning, got %v", warns)
	}

	// The failed pair is picked up again on the next run.
	delete(backend.failOn, "b.en.md")
	report, err = NewDispatcher(root, "en", twoLocales, backend).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Written != 1 || report.Results[0].Job.TargetPath != "b.de.md" {
		t.Errorf("expected retry of b.de.md, got %s", report.Summary())
	}
}

func TestDispatcher_EmptyTranslationFails(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"index.en.md": "# Home\n"})
	backend := newMockBackend()
	backend.empty = true

	report, err := NewDispatcher(root, "en", twoLocales, backend).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected failure, got %s", report.Summary())
	}
	if _, err := os.Stat(filepath.Join(root, "index.de.md")); !os.IsNotExist(err) {
		t.Error("empty translation must not be written")
	}
}

func TestDispatcher_MalformedSourceSkipped(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"bad.en.md":   "---\ntitle: [unclosed\n---\n# Bad\n",
		"empty.en.md": "  \n",
		"good.en.md":  "---\ntitle: Good\n---\n# Good\n",
	})
	backend := newMockBackend()
	rec := logging.NewRecorder()

	report, err := NewDispatcher(root, "en", twoLocales, backend, WithLogger(rec)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Written != 1 || report.Failed != 2 {
		t.Fatalf("unexpected report: %s", report.Summary())
	}
	if backend.Calls() != 1 {
		t.Errorf("malformed sources must not reach the backend, got %d calls", backend.Calls())
	}
	for _, res := range report.Failures() {
		var srcErr *SourceError
		if !errors.As(res.Err, &srcErr) {
			t.Errorf("%s: expected SourceError, got %v", res.Job, res.Err)
		}
	}
	if warns := rec.Messages("warn"); len(warns) != 2 || warns[0] != "source.skipped" {
		t.Errorf("expected source warnings, got %v", warns)
	}
}

func TestDispatcher_CacheHitSkipsBackend(t *testing.T) {
	root := t.TempDir()
	source := "# Home\n"
	writeTree(t, root, map[string]string{"index.en.md": source})
	backend := newMockBackend()
	cache := newMockCache()
	_ = cache.Set(CacheKeyExtended(HashText(source), "en", "de", "mock"), "# Startseite\n")

	report, err := NewDispatcher(root, "en", twoLocales, backend, WithCache(cache)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if backend.Calls() != 0 {
		t.Errorf("cache hit must not call the backend, got %d calls", backend.Calls())
	}
	if report.Cached != 1 || report.Written != 1 {
		t.Errorf("unexpected report: %s", report.Summary())
	}
	if got := readFile(t, root, "index.de.md"); got != "# Startseite\n" {
		t.Errorf("index.de.md = %q", got)
	}
}

func TestDispatcher_CacheFilledOnMiss(t *testing.T) {
	root := t.TempDir()
	source := "# Home\n"
	writeTree(t, root, map[string]string{"index.en.md": source})
	cache := newMockCache()

	notice := func(content, src, tgt string) string { return content + "\n(auto)\n" }
	_, err := NewDispatcher(root, "en", twoLocales, newMockBackend(), WithCache(cache), WithNotice(notice)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	cached, ok := cache.Get(CacheKeyExtended(HashText(source), "en", "de", "mock"))
	if !ok {
		t.Fatal("expected cache entry after translation")
	}
	if strings.Contains(cached, "(auto)") {
		t.Error("cache must hold the raw translation without the notice")
	}
	if got := readFile(t, root, "index.de.md"); !strings.HasSuffix(got, "(auto)\n") {
		t.Errorf("notice not applied: %q", got)
	}
}

func TestDispatcher_DryRun(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"index.en.md": "# Home\n"})
	backend := newMockBackend()

	report, err := NewDispatcher(root, "en", twoLocales, backend, WithDryRun(true)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Discovered != 1 || report.Written != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	if backend.Calls() != 0 {
		t.Error("dry run must not call the backend")
	}
	if _, err := os.Stat(filepath.Join(root, "index.de.md")); !os.IsNotExist(err) {
		t.Error("dry run must not write")
	}
}

func TestDispatcher_StaleDetectionAndRefresh(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.en.md": "# A\n",
		"b.en.md": "# B\n",
	})
	backend := newMockBackend()
	manifest := newMockManifest()

	if _, err := NewDispatcher(root, "en", twoLocales, backend, WithManifest(manifest)).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if manifest.saves != 1 {
		t.Errorf("expected manifest save, got %d", manifest.saves)
	}

	writeTree(t, root, map[string]string{"a.en.md": "# A, revised\n"})
	before := backend.Calls()

	// Without refresh the stale target is only reported.
	report, err := NewDispatcher(root, "en", twoLocales, backend, WithManifest(manifest)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(report.Stale, []string{"a.de.md"}) {
		t.Errorf("stale = %v", report.Stale)
	}
	if backend.Calls() != before {
		t.Error("stale targets must not be re-translated without refresh")
	}

	report, err = NewDispatcher(root, "en", twoLocales, backend, WithManifest(manifest), WithRefreshStale(true)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if backend.Calls() != before+1 {
		t.Errorf("expected exactly one refresh call, got %d", backend.Calls()-before)
	}
	if report.Written != 1 || !report.Results[0].Job.Refresh {
		t.Errorf("unexpected refresh report: %+v", report)
	}
	if got := readFile(t, root, "a.de.md"); got != "[de] # A, revised\n" {
		t.Errorf("a.de.md = %q", got)
	}

	report, err = NewDispatcher(root, "en", twoLocales, backend, WithManifest(manifest)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Stale) != 0 {
		t.Errorf("expected nothing stale after refresh, got %v", report.Stale)
	}
}

func TestDispatcher_Cancellation(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		files[name+".en.md"] = "# " + name + "\n"
	}
	writeTree(t, root, files)

	ctx, cancel := context.WithCancel(context.Background())
	backend := newMockBackend()
	backend.hook = func(req TranslateRequest) {
		if req.Path == "b.en.md" {
			cancel()
		}
	}

	report, err := NewDispatcher(root, "en", twoLocales, backend).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil {
		t.Fatal("expected partial report")
	}

	if got := readFile(t, root, "a.de.md"); got != "[de] # a\n" {
		t.Errorf("completed file damaged: %q", got)
	}
	for _, res := range report.Results {
		if !res.Job.State.Terminal() {
			t.Errorf("%s left in state %s", res.Job, res.Job.State)
		}
	}
	if report.Written+report.Failed != report.Discovered {
		t.Errorf("results do not add up: %s", report.Summary())
	}
	if _, err := os.Stat(filepath.Join(root, "e.de.md")); !os.IsNotExist(err) {
		t.Error("jobs after cancellation must not be written")
	}
}

func TestDispatcher_WrapsRetryAndRateLimit(t *testing.T) {
	d := NewDispatcher(t.TempDir(), "en", twoLocales, newMockBackend(),
		WithRetryPolicy(RetryConfig{MaxRetries: 2}),
		WithRateLimit(RateLimitConfig{RequestsPerMinute: 30}),
	)
	retry, ok := d.Backend().(*RetryableBackend)
	if !ok {
		t.Fatalf("expected retry wrapper, got %T", d.Backend())
	}
	if _, ok := retry.backend.(*RateLimitedBackend); !ok {
		t.Errorf("expected rate limiter inside retry, got %T", retry.backend)
	}
	if d.Backend().Name() != "mock" {
		t.Errorf("wrappers must keep the backend name, got %q", d.Backend().Name())
	}

	plain := NewDispatcher(t.TempDir(), "en", twoLocales, newMockBackend(), WithRetryPolicy(RetryConfig{}))
	if _, ok := plain.Backend().(*mockBackend); !ok {
		t.Errorf("zero retries must not wrap, got %T", plain.Backend())
	}
}

func TestDispatcher_NoBackend(t *testing.T) {
	_, err := NewDispatcher(t.TempDir(), "en", twoLocales, nil).Run(context.Background())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}
