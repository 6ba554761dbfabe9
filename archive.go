package tarview

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/tarview/internal/compress"
	"github.com/meigma/tarview/internal/lazy"
	"github.com/meigma/tarview/internal/ustar"
)

// Archive provides read access to the entries of a tar archive.
//
// The source is fetched and indexed on first use. After that the buffer and
// index are immutable, so an Archive is safe for concurrent use.
type Archive struct {
	src        Source
	logger     *slog.Logger
	decompress bool
	maxSize    int64
	contents   *lazy.Value[*contents]
}

// contents is the result of a completed decode.
type contents struct {
	buf     []byte
	entries []Entry
	digest  digest.Digest
}

// New creates an Archive reading from src. Nothing is fetched until the
// first call that needs the index.
func New(src Source, opts ...Option) *Archive {
	a := &Archive{
		src:        src,
		decompress: true,
		maxSize:    DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.contents = lazy.New(a.load)
	return a
}

// Open creates an Archive and waits for it to load.
func Open(ctx context.Context, src Source, opts ...Option) (*Archive, error) {
	a := New(src, opts...)
	if err := a.Load(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// SourceID returns the identifier of the underlying source.
func (a *Archive) SourceID() string {
	return a.src.SourceID()
}

// Load fetches and indexes the archive if that has not happened yet.
//
// Concurrent callers share a single load. A failed load is not retried; every
// later call returns the same error.
func (a *Archive) Load(ctx context.Context) error {
	_, err := a.contents.Get(ctx)
	return err
}

func (a *Archive) load(ctx context.Context) (*contents, error) {
	id := a.src.SourceID()
	a.log().Debug("loading archive", "source", id)

	raw, err := a.src.Fetch(ctx)
	if err != nil {
		return nil, &SourceReadError{SourceID: id, Err: err}
	}

	buf := raw
	if a.decompress {
		var format compress.Format
		buf, format, err = compress.Decompress(raw, a.maxSize)
		if err != nil {
			return nil, err
		}
		if format != compress.None {
			a.log().Debug("decompressed archive", "source", id, "format", format.String(),
				"compressed", len(raw), "size", len(buf))
		}
	} else if a.maxSize > 0 && int64(len(buf)) > a.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrTooLarge, len(buf), a.maxSize)
	}

	entries, err := ustar.Index(buf)
	if err != nil {
		a.log().Debug("index failed", "source", id, "error", err)
		return nil, err
	}

	a.log().Debug("loaded archive", "source", id, "size", len(buf), "entries", len(entries))
	return &contents{
		buf:     buf,
		entries: entries,
		digest:  digest.FromBytes(buf),
	}, nil
}

// Names returns the stored names of all entries in archive order.
// The returned slice is a fresh copy.
func (a *Archive) Names(ctx context.Context) ([]string, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return nil, err
	}
	return c.names(), nil
}

// Entries returns all entries in archive order.
// The returned slice is a fresh copy.
func (a *Archive) Entries(ctx context.Context) ([]Entry, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return nil, err
	}
	return append([]Entry(nil), c.entries...), nil
}

// Len returns the number of entries.
func (a *Archive) Len(ctx context.Context) (int, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return 0, err
	}
	return len(c.entries), nil
}

// Size returns the size of the (decompressed) archive buffer in bytes.
func (a *Archive) Size(ctx context.Context) (int64, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(c.buf)), nil
}

// Digest returns the sha256 digest of the (decompressed) archive buffer.
func (a *Archive) Digest(ctx context.Context) (digest.Digest, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return "", err
	}
	return c.digest, nil
}

// Lookup returns the first entry, in archive order, whose normalized name
// equals name. Matching is exact and case-sensitive.
func (a *Archive) Lookup(ctx context.Context, name string) (Entry, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return Entry{}, err
	}
	return c.lookup(name)
}

// FindSuffix returns the first entry whose stored name ends with suffix.
func (a *Archive) FindSuffix(ctx context.Context, suffix string) (Entry, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range c.entries {
		if strings.HasSuffix(e.Name, suffix) {
			return e, nil
		}
	}
	return Entry{}, &NotFoundError{Name: "*" + suffix, Known: c.names()}
}

// Extract returns the payload of the entry whose normalized name equals name.
//
// The payload bytes are copied out of the archive buffer. Options only
// decorate the payload; they never change which bytes are returned.
func (a *Archive) Extract(ctx context.Context, name string, opts ...ExtractOption) (*Payload, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := c.lookup(name)
	if err != nil {
		a.log().Debug("extract miss", "name", name)
		return nil, err
	}

	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := c.payload(entry)
	if err != nil {
		a.log().Debug("extract failed", "name", name, "error", err)
		return nil, err
	}
	contentType := cfg.contentType
	if contentType == "" && cfg.sniff {
		contentType = sniffContentType(entry.Name, data)
	}
	return &Payload{
		Entry:       entry,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ReadFile returns the payload bytes of the entry whose normalized name
// equals name.
func (a *Archive) ReadFile(ctx context.Context, name string) ([]byte, error) {
	p, err := a.Extract(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Data, nil
}

// DataURL returns the entry as a base64 data URL, with the media type
// derived from its extension or content.
func (a *Archive) DataURL(ctx context.Context, name string) (string, error) {
	p, err := a.Extract(ctx, name, WithSniffContentType())
	if err != nil {
		return "", err
	}
	return p.DataURL(), nil
}

func (c *contents) names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

func (c *contents) lookup(name string) (Entry, error) {
	for _, e := range c.entries {
		if e.NormalizedName() == name {
			return e, nil
		}
	}
	return Entry{}, &NotFoundError{Name: name, Known: c.names()}
}

// payload copies the entry bytes out of the buffer.
func (c *contents) payload(e Entry) ([]byte, error) {
	data, err := ustar.Payload(c.buf, e)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(data), nil
}
