package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/meigma/tarview"
	"github.com/meigma/tarview/records"
)

type command func(ctx context.Context, a *tarview.Archive, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"ls":      runList,
	"cat":     runCat,
	"extract": runExtract,
	"records": runRecords,
	"url":     runURL,
	"digest":  runDigest,
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func runList(ctx context.Context, a *tarview.Archive, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("ls", stderr)
	long := fs.Bool("l", false, "show kind, size, and header offset")
	if err := parse(fs, args); err != nil {
		return err
	}

	entries, err := a.Entries(ctx)
	if err != nil {
		return err
	}
	if !*long {
		for _, e := range entries {
			fmt.Fprintln(stdout, e.Name)
		}
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", e.Kind, e.Size, e.HeaderOffset, e.Name)
	}
	return tw.Flush()
}

func runCat(ctx context.Context, a *tarview.Archive, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("cat", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: want exactly one entry name", errUsage)
	}
	p, err := a.Extract(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	_, err = io.Copy(stdout, p.Reader())
	return err
}

func runExtract(ctx context.Context, a *tarview.Archive, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("extract", stderr)
	overwrite := fs.Bool("overwrite", false, "replace existing files")
	workers := fs.Int("workers", 0, "files written concurrently (0 = default)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: want a destination directory", errUsage)
	}
	dest, names := fs.Arg(0), fs.Args()[1:]
	opts := []tarview.CopyOption{
		tarview.CopyWithOverwrite(*overwrite),
		tarview.CopyWithWorkers(*workers),
	}

	var (
		stats tarview.CopyStats
		err   error
	)
	if len(names) == 0 {
		stats, err = a.CopyAll(ctx, dest, opts...)
	} else {
		stats, err = a.CopyTo(ctx, dest, names, opts...)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d files (%d bytes), skipped %d\n", stats.FileCount, stats.TotalBytes, stats.Skipped)
	return nil
}

func runRecords(ctx context.Context, a *tarview.Archive, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("records", stderr)
	dump := fs.Bool("x", false, "hex dump each record")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: at most one entry name", errUsage)
	}

	var name string
	if fs.NArg() == 1 {
		name = fs.Arg(0)
	} else {
		e, err := a.FindSuffix(ctx, ".log")
		if err != nil {
			return err
		}
		name = e.NormalizedName()
	}
	data, err := a.ReadFile(ctx, name)
	if err != nil {
		return err
	}

	n := 0
	for rec, err := range records.All(data) {
		if err != nil {
			return fmt.Errorf("%s: record %d: %w", name, n, err)
		}
		fmt.Fprintf(stdout, "%d\t%d\n", n, len(rec))
		if *dump {
			fmt.Fprint(stdout, hex.Dump(rec))
		}
		n++
	}
	return nil
}

func runURL(ctx context.Context, a *tarview.Archive, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("url", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: want exactly one entry name", errUsage)
	}
	url, err := a.DataURL(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, url)
	return nil
}

func runDigest(ctx context.Context, a *tarview.Archive, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("digest", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	dgst, err := a.Digest(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, dgst)
	return nil
}
