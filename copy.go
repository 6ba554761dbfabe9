package tarview

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/tarview/internal/sink"
)

// CopyStats contains statistics about a copy operation.
type CopyStats struct {
	FileCount  int   // files written
	TotalBytes int64 // payload bytes written
	Skipped    int   // files left alone because they already existed
}

// CopyTo writes the named entries below destDir.
//
// Names are lookup keys, matched like Extract. Each file lands at its
// normalized name relative to destDir; parent directories are created as
// needed. An unknown name fails the whole call before anything is written.
//
// By default existing files are skipped (use CopyWithOverwrite to replace
// them) and four files are written concurrently (use CopyWithWorkers).
func (a *Archive) CopyTo(ctx context.Context, destDir string, names []string, opts ...CopyOption) (CopyStats, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return CopyStats{}, err
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		e, err := c.lookup(name)
		if err != nil {
			return CopyStats{}, err
		}
		entries = append(entries, e)
	}
	return a.copyEntries(ctx, c, destDir, entries, opts)
}

// CopyAll writes every regular file entry below destDir, at its normalized
// name. Directories and other entry kinds are not materialized. When several
// files share a normalized name, the first in archive order is written, the
// same entry Extract returns.
func (a *Archive) CopyAll(ctx context.Context, destDir string, opts ...CopyOption) (CopyStats, error) {
	c, err := a.contents.Get(ctx)
	if err != nil {
		return CopyStats{}, err
	}
	entries := make([]Entry, 0, len(c.entries))
	seen := make(map[string]struct{}, len(c.entries))
	for _, e := range c.entries {
		name := e.NormalizedName()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if e.Kind.IsFile() {
			entries = append(entries, e)
		}
	}
	return a.copyEntries(ctx, c, destDir, entries, opts)
}

func (a *Archive) copyEntries(ctx context.Context, c *contents, destDir string, entries []Entry, opts []CopyOption) (CopyStats, error) {
	cfg := copyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	workers := cfg.workers
	if workers <= 0 {
		workers = defaultCopyWorkers
	}

	fileSink := sink.New(destDir, sink.WithOverwrite(cfg.overwrite))
	var files, skipped atomic.Int32
	var written atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := e.NormalizedName()
			if !fileSink.ShouldWrite(name) {
				skipped.Add(1)
				return nil
			}
			data, err := c.payload(e)
			if err != nil {
				return err
			}
			if err := fileSink.Write(name, data); err != nil {
				return err
			}
			files.Add(1)
			written.Add(e.Size)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats := CopyStats{
		FileCount:  int(files.Load()),
		TotalBytes: written.Load(),
		Skipped:    int(skipped.Load()),
	}
	a.log().Debug("copied entries", "dest", destDir, "files", stats.FileCount,
		"bytes", stats.TotalBytes, "skipped", stats.Skipped)
	return stats, err
}
