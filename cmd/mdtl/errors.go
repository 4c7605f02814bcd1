package main

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"

	"github.com/ZaguanLabs/mdtl"
)

// errTranslationsFailed reports per-page failures under --strict.
func errTranslationsFailed(n int) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("%d translation(s) failed", n), goerrors.CategoryCommand).
		WithTextCode("STRICT")
}

// classify tags a command failure with a category before it is printed.
func classify(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var (
		tagged   *goerrors.Error
		cfgErr   *mdtl.ConfigError
		srcErr   *mdtl.SourceError
		cacheErr *mdtl.CacheError
	)
	switch {
	case errors.As(err, &tagged):
		return tagged
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryOperation, "interrupted")
	case errors.As(err, &cfgErr):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration")
	case errors.As(err, &srcErr):
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "unreadable content")
	case errors.As(err, &cacheErr):
		return goerrors.Wrap(err, goerrors.CategoryExternal, "cache unavailable")
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command failed")
}
