package mdtl

import "fmt"

// ProviderError indicates a backend failure (API error, rate limit, etc.).
type ProviderError struct {
	Backend    string // Backend name ("deepl", "chat", ...)
	Message    string
	StatusCode int // HTTP status when known, 0 otherwise
	Cause      error
	Retryable  bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	prefix := "provider error"
	if e.Backend != "" {
		prefix = fmt.Sprintf("provider error (%s)", e.Backend)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// ConfigError indicates an invalid or incomplete configuration.
// It is raised before any job runs.
type ConfigError struct {
	Field   string // Offending setting, e.g. "translate.service"
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	msg := "config error"
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", msg, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// SourceError indicates a source file that could not be read or parsed.
type SourceError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("source error (%s): %s", e.Path, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// WriteError indicates the translated file could not be persisted.
type WriteError struct {
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write error (%s): %v", e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
