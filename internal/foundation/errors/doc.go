// Package errors provides foundational, type-safe error primitives used across vaultsite.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, parse, slug, emit, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for exit codes and presentation
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryParse, "front matter unreadable").
//		Warning().
//		WithContext("path", relPath).
//		Build()
package errors
