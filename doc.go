// Package tarview reads USTAR archives held in memory.
//
// An [Archive] fetches its [Source] once, unwraps gzip or zstd compression
// when present, and indexes the 512-byte header blocks. Entries are then
// looked up by their normalized name: the stored name with its leading path
// segment removed, so "recording/logs/run.log" is found as "logs/run.log".
//
// # Quick Start
//
//	archive := tarview.New(tarview.NewFileSource("upload.tar"))
//	names, err := archive.Names(ctx)
//	if err != nil {
//	    return err
//	}
//	payload, err := archive.Extract(ctx, "config/robot.json",
//	    tarview.WithContentType("application/json"),
//	)
//
// Decoding happens on first use and is shared: concurrent callers wait for
// the same load, and the result or error is kept for the life of the Archive.
// Every read after that is a lookup over an immutable buffer, so an Archive
// is safe for concurrent use.
//
// Remote archives can be read with the [github.com/meigma/tarview/http] and
// [github.com/meigma/tarview/registry] sources.
package tarview
