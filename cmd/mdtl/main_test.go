package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfig = `
theme: mkdocs
translate:
  service: simpleen
  api_key_env: MDTL_TEST_KEY
  base_url: %s
cache:
  type: memory
  file: cache.json
i18n:
  languages:
    - {locale: en, default: true}
    - {locale: de, build: true}
    - {locale: fr, build: true}
log:
  level: error
`

// newTranslationServer answers like Simpleen, tagging the text with the
// target language.
func newTranslationServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("auth_key") != "test-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var body struct {
			TargetLanguage string `json:"target_language"`
			Text           string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode("[" + body.TargetLanguage + "] " + body.Text)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSite(t *testing.T, docs map[string]string) string {
	t.Helper()
	t.Setenv("MDTL_TEST_KEY", "test-key")
	srv := newTranslationServer(t)
	return writeSite(t, fmt.Sprintf(testConfig, srv.URL), docs)
}

func writeSite(t *testing.T, cfg string, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mdtl.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	for rel, content := range docs {
		path := filepath.Join(dir, "docs", filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "mdtl") {
		t.Errorf("expected version output, got: %s", stdout.String())
	}
}

func TestRun_VersionFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "version") {
		t.Errorf("expected version output, got: %s", stdout.String())
	}
}

func TestRun_MissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"build", "--root", t.TempDir()}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "no configuration file") {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}
}

func TestRun_Build(t *testing.T) {
	dir := newSite(t, map[string]string{
		"index.en.md":       "# Home\n\nWelcome.\n",
		"guide/start.en.md": "# Start\n",
		"index.fr.md":       "# Accueil\n",
	})

	var stdout, stderr bytes.Buffer
	if code := run([]string{"build", "--root", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "3 written") {
		t.Errorf("unexpected summary: %s", stdout.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, "docs", "guide", "start.de.md"))
	if err != nil {
		t.Fatalf("missing target: %v", err)
	}
	if !strings.Contains(string(data), "> **") || !strings.Contains(string(data), "[DE] # Start") {
		t.Errorf("expected translated text with blockquote notice, got %q", data)
	}

	fr, _ := os.ReadFile(filepath.Join(dir, "docs", "index.fr.md"))
	if string(fr) != "# Accueil\n" {
		t.Errorf("existing translation modified: %q", fr)
	}
}

func TestRun_DryRun(t *testing.T) {
	dir := newSite(t, map[string]string{"index.en.md": "# Home\n"})

	var stdout, stderr bytes.Buffer
	if code := run([]string{"build", "--root", dir, "--dry-run"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "would translate index.en.md -> index.de.md") || !strings.Contains(out, "2 planned") {
		t.Errorf("unexpected dry-run output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "docs", "index.de.md")); !os.IsNotExist(err) {
		t.Error("dry run wrote a file")
	}
}

func TestRun_Strict(t *testing.T) {
	dir := newSite(t, map[string]string{
		"index.en.md": "# Home\n",
		"empty.en.md": "   \n",
	})

	var stdout, stderr bytes.Buffer
	if code := run([]string{"build", "--root", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("per-file failures should not fail the build, exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "failed empty.en.md") {
		t.Errorf("expected failure listing, got: %s", stdout.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run([]string{"build", "--root", dir, "--strict"}, &stdout, &stderr); code != 1 {
		t.Fatalf("--strict should exit 1, got %d", code)
	}
}

func TestRun_StatusJSON(t *testing.T) {
	dir := newSite(t, map[string]string{
		"index.en.md": "# Home\n",
		"index.de.md": "# Startseite\n",
	})

	var stdout, stderr bytes.Buffer
	if code := run([]string{"status", "--root", dir, "--json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}

	var out statusOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout.String())
	}
	if out.Sources != 1 || out.Existing != 1 {
		t.Errorf("unexpected status: %+v", out)
	}
	if len(out.Missing) != 1 || out.Missing[0] != "index.fr.md" {
		t.Errorf("missing = %v", out.Missing)
	}
}

func TestRun_Serve(t *testing.T) {
	dir := newSite(t, map[string]string{"index.en.md": "# Home\n"})

	var stdout, stderr bytes.Buffer
	if code := run([]string{"serve", "--root", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "translation skipped") {
		t.Errorf("unexpected output: %s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "docs", "index.de.md")); !os.IsNotExist(err) {
		t.Error("serve wrote a translation")
	}
}

func TestRun_CacheExportImport(t *testing.T) {
	dir := newSite(t, map[string]string{"index.en.md": "# Home\n"})

	var stdout, stderr bytes.Buffer
	if code := run([]string{"build", "--root", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("build exit %d: %s", code, stderr.String())
	}

	export := filepath.Join(t.TempDir(), "export.json")
	stdout.Reset()
	if code := run([]string{"cache", "export", export, "--root", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("export exit %d: %s", code, stderr.String())
	}
	data, err := os.ReadFile(export)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	if strings.Count(string(data), `"key"`) != 2 {
		t.Errorf("expected 2 entries, got %s", data)
	}

	if err := os.Remove(filepath.Join(dir, "cache.json")); err != nil {
		t.Fatal(err)
	}
	stdout.Reset()
	if code := run([]string{"cache", "import", export, "--root", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("import exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "imported 2 entries") {
		t.Errorf("unexpected output: %s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "cache.json")); err != nil {
		t.Errorf("snapshot not rewritten: %v", err)
	}
}

const keylessConfig = `
translate:
  service: deepl
  api_key_env: MDTL_TEST_UNSET_KEY
i18n:
  languages:
    - {locale: en, default: true}
    - {locale: de, build: true}
log:
  level: error
`

func TestRun_StatusAndServeNeedNoKey(t *testing.T) {
	t.Setenv("MDTL_TEST_UNSET_KEY", "")
	dir := writeSite(t, keylessConfig, map[string]string{"index.en.md": "# Home\n"})

	var stdout, stderr bytes.Buffer
	if code := run([]string{"status", "--root", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("status without key: exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "1 missing") {
		t.Errorf("unexpected status: %s", stdout.String())
	}
	if code := run([]string{"serve", "--root", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("serve without key: exit %d: %s", code, stderr.String())
	}
	if code := run([]string{"build", "--root", dir, "--dry-run"}, &stdout, &stderr); code != 0 {
		t.Fatalf("dry run without key: exit %d: %s", code, stderr.String())
	}

	stderr.Reset()
	if code := run([]string{"build", "--root", dir}, &stdout, &stderr); code != 1 {
		t.Fatalf("build without key should exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "translate.api_key_env") {
		t.Errorf("expected api key error, got: %s", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "docs", "index.de.md")); !os.IsNotExist(err) {
		t.Error("build without key wrote a translation")
	}
}

func TestRun_MockServiceRejected(t *testing.T) {
	cfg := strings.Replace(keylessConfig, "service: deepl", "service: mock", 1)
	dir := writeSite(t, cfg, map[string]string{"index.en.md": "# Home\n"})

	var stdout, stderr bytes.Buffer
	if code := run([]string{"build", "--root", dir}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "translate.service") {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}
}

func TestRun_CacheImportWithoutSnapshotFile(t *testing.T) {
	cfg := strings.Replace(testConfig, "  file: cache.json\n", "", 1)
	dir := writeSite(t, fmt.Sprintf(cfg, "http://127.0.0.1:1"), map[string]string{"index.en.md": "# Home\n"})

	export := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(export, []byte(`{"version":"1","entries":[{"key":"k","value":"v"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"cache", "import", export, "--root", dir}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d: %s", code, stdout.String())
	}
	if !strings.Contains(stderr.String(), "cache.file") {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}
	if strings.Contains(stdout.String(), "imported") {
		t.Errorf("nothing should be reported as imported: %s", stdout.String())
	}
}
