package tarview

import "log/slog"

// DefaultMaxSize is the default cap on an archive's decompressed size.
const DefaultMaxSize int64 = 1 << 30

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger used for load and lookup events.
// A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithDecompression controls whether gzip and zstd archives are unwrapped
// before indexing (default: true).
func WithDecompression(enabled bool) Option {
	return func(a *Archive) {
		a.decompress = enabled
	}
}

// WithMaxSize limits the size of the (decompressed) archive buffer.
// Set limit to 0 to disable the limit.
func WithMaxSize(limit int64) Option {
	return func(a *Archive) {
		if limit < 0 {
			limit = 0
		}
		a.maxSize = limit
	}
}

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	contentType string
	sniff       bool
}

// WithContentType attaches a media type to the returned payload. It does not
// change which bytes are returned.
func WithContentType(contentType string) ExtractOption {
	return func(c *extractConfig) {
		c.contentType = contentType
	}
}

// WithSniffContentType fills the payload media type from the entry extension,
// or from the content when the extension is unknown. An explicit
// WithContentType takes precedence.
func WithSniffContentType() ExtractOption {
	return func(c *extractConfig) {
		c.sniff = true
	}
}

// CopyOption configures CopyTo and CopyAll.
type CopyOption func(*copyConfig)

// defaultCopyWorkers is used when no CopyWithWorkers option is set.
const defaultCopyWorkers = 4

type copyConfig struct {
	overwrite bool
	workers   int
}

// CopyWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func CopyWithOverwrite(overwrite bool) CopyOption {
	return func(c *copyConfig) {
		c.overwrite = overwrite
	}
}

// CopyWithWorkers sets the number of files written concurrently.
// Values <= 0 use the default (4).
func CopyWithWorkers(n int) CopyOption {
	return func(c *copyConfig) {
		c.workers = n
	}
}
