// Package logging defines the leveled logging contract used across mdtl.
//
// The interface mirrors github.com/goliatone/go-logger so its loggers plug in
// through the gologger adapter. Library code defaults to NoOp so callers that
// do not care about logs get none.
package logging

import (
	"context"
	"maps"
	"strings"
)

// Logger is the leveled logging contract. Args are alternating key/value
// pairs.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// Provider exposes named loggers.
type Provider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is an optional extension for attaching persistent structured
// fields to a logger.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}

const (
	rootModule       = "mdtl"
	dispatcherModule = "mdtl.dispatcher"
	providerModule   = "mdtl.provider"
	pluginModule     = "mdtl.plugin"
)

const (
	fieldPath   = "path"
	fieldLocale = "locale"
	fieldTarget = "target"
)

// WithFields attaches structured fields when the logger supports it.
func WithFields(logger Logger, fields map[string]any) Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}

	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		copied := make(map[string]any, len(fields))
		maps.Copy(copied, fields)
		return fieldsLogger.WithFields(copied)
	}

	return logger
}

// ModuleLogger returns a module-scoped logger, defaulting to NoOp when no
// provider is supplied.
func ModuleLogger(provider Provider, module string) Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{"module": module})
}

// DispatcherLogger returns the logger namespace for translation runs.
func DispatcherLogger(provider Provider) Logger {
	return ModuleLogger(provider, dispatcherModule)
}

// ProviderLogger returns the logger namespace for translation backends.
func ProviderLogger(provider Provider) Logger {
	return ModuleLogger(provider, providerModule)
}

// PluginLogger returns the logger namespace for lifecycle hooks.
func PluginLogger(provider Provider) Logger {
	return ModuleLogger(provider, pluginModule)
}

// WithJob enriches the logger with source path, target locale and target
// path. Empty values are ignored.
func WithJob(logger Logger, path, locale, target string) Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		fields[fieldPath] = trimmed
	}
	if trimmed := strings.TrimSpace(locale); trimmed != "" {
		fields[fieldLocale] = trimmed
	}
	if trimmed := strings.TrimSpace(target); trimmed != "" {
		fields[fieldTarget] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every entry.
func NoOp() Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) Logger {
	return n
}
