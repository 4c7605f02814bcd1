package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ZaguanLabs/mdtl"
)

// MockBackend is a deterministic backend for tests. It is not selectable from
// configuration; hand it to the plugin or dispatcher directly. Known
// texts map to fixed translations; anything else is returned tagged with the
// target language.
type MockBackend struct {
	Translations map[string]string // Map of source text to translation
	Err          error             // Returned by every call when set

	mu          sync.Mutex
	callCount   int
	lastRequest *mdtl.TranslateRequest
}

// NewMockBackend creates a mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{Translations: map[string]string{}}
}

// Name implements mdtl.Backend.
func (m *MockBackend) Name() string {
	return "mock"
}

// Translate returns mock translations.
func (m *MockBackend) Translate(ctx context.Context, req mdtl.TranslateRequest) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastRequest = &req
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if translation, ok := m.Translations[req.Text]; ok {
		return translation, nil
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(mdtl.ToBCP47(req.TargetLang)), req.Text), nil
}

// CallCount returns the number of Translate calls.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent request, or nil.
func (m *MockBackend) LastRequest() *mdtl.TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Reset resets the call count and last request.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastRequest = nil
}

var _ mdtl.Backend = (*MockBackend)(nil)
