package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rdiffweb/rdiffbrowse/internal/archive"
	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	"github.com/rdiffweb/rdiffbrowse/internal/restorer"
	"github.com/rdiffweb/rdiffbrowse/internal/ui"
)

func newRestoreCommand() *cobra.Command {
	opts := RestoreOptions{Archive: archive.Zip}

	cmd := &cobra.Command{
		Use:   "restore [flags] path...",
		Short: "Restore files as of a backup",
		Long: `
The "restore" command restores files and directories as they were in a
backup using rdiff-backup. Directories are packed into an archive.

A single path is written to stdout unless --target is given. Multiple paths
require --target, which names a directory the restored files are saved in.
Archives are never written to a terminal.

The backup is selected with --as-of, which is either "latest" or a date in
local time as "2006-01-02 15:04:05". rdiff-backup restores the state of the
most recent backup at or before that date.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 10 if the repository or a path does not exist.
Exit status is 11 if access to a path is denied.
Exit status is 12 if rdiff-backup failed.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd.Context(), opts, globalOptions, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.AsOf, "as-of", "latest", "restore as of `date`")
	f.StringVarP(&opts.Target, "target", "t", "", "write the output to target `path`")
	f.VarP(&opts.Archive, "archive", "a", "set archive `format` for directories as \"zip\", \"tar\" or \"tar.gz\"")
	return cmd
}

// RestoreOptions collects all options for the restore command.
type RestoreOptions struct {
	AsOf    string
	Target  string
	Archive archive.Kind
}

func restoreDate(repo *repository.Repository, asOf string) (time.Time, error) {
	if asOf == "" || asOf == "latest" {
		last, ok := repo.LastBackupDate()
		if !ok {
			return time.Time{}, errors.Fatal("repository contains no backups")
		}
		return last, nil
	}

	return parseDate(asOf)
}

func runRestore(ctx context.Context, opts RestoreOptions, gopts GlobalOptions, args []string) error {
	if len(args) == 0 {
		return errors.Fatal("no path specified")
	}
	if len(args) > 1 && opts.Target == "" {
		return errors.Fatal("multiple paths can only be restored to a --target directory")
	}
	if _, err := archive.ParseKind(string(opts.Archive)); err != nil {
		return errors.Fatalf("%v", err)
	}

	repo, err := OpenRepository(gopts)
	if err != nil {
		return err
	}

	date, err := restoreDate(repo, opts.AsOf)
	if err != nil {
		return err
	}
	debug.Log("restore %v as of %v", args, date)

	// the repository must not be used concurrently, so all lookups happen
	// before the first restore starts
	entries := make([]*repository.Entry, 0, len(args))
	for _, arg := range args {
		e, err := repo.GetPath(arg)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}

	r := newRestorer(gopts)
	defer writeMetrics(gopts)

	if len(args) == 1 && opts.Target == "" {
		e := entries[0]
		if e.IsDir() && isTerminal(gopts.stdout) {
			return errors.Fatal("stdout is the terminal, please redirect output")
		}
		return restoreTo(ctx, r, e, date, opts.Archive, func(string) (io.WriteCloser, error) {
			return nopWriteCloser{gopts.stdout}, nil
		})
	}

	dir := opts.Target
	if len(args) == 1 {
		// a single path may name the output file itself
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			return restoreTo(ctx, r, entries[0], date, opts.Archive, func(string) (io.WriteCloser, error) {
				return os.Create(opts.Target)
			})
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Fatalf("cannot create target directory: %v", err)
	}

	wg, ctx := errgroup.WithContext(ctx)
	wg.SetLimit(gopts.MaxRestores)
	for _, e := range entries {
		e := e
		wg.Go(func() error {
			return restoreTo(ctx, r, e, date, opts.Archive, func(filename string) (io.WriteCloser, error) {
				target := filepath.Join(dir, filename)
				gopts.Verbosef("restoring %s to %s\n", ui.Quote("/"+strings.TrimPrefix(e.Path(), "/")), ui.Quote(target))
				return os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
			})
		})
	}
	return wg.Wait()
}

// restoreTo restores e and writes the result to the writer returned by
// create, which is called with the name of the restored data.
func restoreTo(ctx context.Context, r *restorer.Restorer, e *repository.Entry, date time.Time, kind archive.Kind, create func(filename string) (io.WriteCloser, error)) error {
	filename, rd, err := r.RestoreEntry(ctx, e, date, kind)
	if err != nil {
		return err
	}
	defer func() {
		_ = rd.Close()
	}()

	w, err := create(filename)
	if err != nil {
		return errors.Fatalf("cannot write %v: %v", filename, err)
	}

	_, err = io.Copy(w, rd)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
