// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize is the default maximum file size for CUE parsing (5MB).
// This limit prevents OOM attacks from maliciously large test-case files.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// Option configures a ParseAndDecode call.
type Option func(*options)

type options struct {
	filename    string
	maxFileSize int64
	concrete    bool
}

func defaultOptions() options {
	return options{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithFilename sets the filename reported in validation error messages.
func WithFilename(filename string) Option {
	return func(o *options) { o.filename = filename }
}

// WithMaxFileSize overrides the default maximum accepted document size.
func WithMaxFileSize(maxSize int64) Option {
	return func(o *options) { o.maxFileSize = maxSize }
}

// WithConcrete controls whether Validate requires all values to be
// concrete (no unresolved disjunctions or references). Defaults to true;
// schemas that intentionally leave some fields open should pass false.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}
