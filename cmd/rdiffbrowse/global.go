package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/rdiffweb/rdiffbrowse/internal/charset"
	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/limiter"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	"github.com/rdiffweb/rdiffbrowse/internal/restorer"
)

var version = "0.4.0-dev (compiled manually)"

// TimeFormat is the format used for all timestamps printed by rdiffbrowse.
const TimeFormat = "2006-01-02 15:04:05"

// GlobalOptions hold all global options for rdiffbrowse.
type GlobalOptions struct {
	Repo        string
	Encoding    string
	RdiffBackup string
	MaxRestores int
	TempDir     string
	MetricsFile string
	Quiet       bool
	Verbose     int
	JSON        bool

	limiter.Limits

	stdout io.Writer
	stderr io.Writer

	// verbosity is set as follows:
	//  0 means: don't print any messages except errors, this is used when --quiet is specified
	//  1 is the default: print essential messages
	//  2 means: print more messages, this is used when --verbose is specified
	verbosity uint
}

var globalOptions = GlobalOptions{
	stdout: os.Stdout,
	stderr: os.Stderr,
}

func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.Repo, "repo", "r", "", "rdiff-backup `repository` to browse (default: $RDIFFBROWSE_REPOSITORY)")
	f.StringVar(&opts.Encoding, "encoding", "", "default `encoding` of file names for repositories without one configured (default: $RDIFFBROWSE_ENCODING or the locale)")
	f.StringVar(&opts.RdiffBackup, "rdiff-backup", restorer.DefaultCommand, "rdiff-backup `command` used for restores (default: $RDIFFBROWSE_RDIFF_BACKUP)")
	f.IntVar(&opts.MaxRestores, "max-restores", restorer.DefaultMaxConcurrent, "maximum `number` of concurrent restores")
	f.StringVar(&opts.TempDir, "tmp-dir", "", "`directory` for staging restores (default: system temp directory)")
	f.IntVar(&opts.Limits.DownloadKb, "limit-download", 0, "limits restore output to a maximum `rate` in KiB/s. (default: unlimited)")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "write restore metrics in Prometheus text format to `file` (default: $RDIFFBROWSE_METRICS_FILE)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "only print errors")
	f.CountVarP(&opts.Verbose, "verbose", "v", "be verbose")
	f.BoolVar(&opts.JSON, "json", false, "set output mode to JSON for commands that support it")

	opts.Repo = os.Getenv("RDIFFBROWSE_REPOSITORY")
	opts.Encoding = os.Getenv("RDIFFBROWSE_ENCODING")
	opts.MetricsFile = os.Getenv("RDIFFBROWSE_METRICS_FILE")
	if cmd := os.Getenv("RDIFFBROWSE_RDIFF_BACKUP"); cmd != "" {
		opts.RdiffBackup = cmd
	}
	// on error the default value will be used
	if n, err := strconv.Atoi(os.Getenv("RDIFFBROWSE_MAX_RESTORES")); err == nil && n > 0 {
		opts.MaxRestores = n
	}
}

func (opts *GlobalOptions) PreRun() error {
	// set verbosity, default is one
	opts.verbosity = 1
	if opts.Quiet && opts.Verbose > 0 {
		return errors.Fatal("--quiet and --verbose cannot be specified at the same time")
	}

	switch {
	case opts.Verbose > 0:
		opts.verbosity = 2
	case opts.Quiet:
		opts.verbosity = 0
	}

	if opts.Encoding == "" {
		opts.Encoding = charset.FromLocale(os.Getenv)
	}
	if _, err := charset.Lookup(opts.Encoding); err != nil {
		return errors.Fatalf("invalid encoding %q: %v", opts.Encoding, err)
	}

	if opts.MaxRestores < 1 {
		return errors.Fatal("--max-restores must be at least 1")
	}

	return nil
}

// Printf writes the message to the configured stdout stream.
func (opts *GlobalOptions) Printf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(opts.stdout, format, args...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "unable to write to stdout: %v\n", err)
	}
}

// Verbosef calls Printf to write the message when the verbose flag is set.
func (opts *GlobalOptions) Verbosef(format string, args ...interface{}) {
	if opts.verbosity >= 2 {
		opts.Printf(format, args...)
	}
}

// Warnf writes the message to the configured stderr stream.
func (opts *GlobalOptions) Warnf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(opts.stderr, format, args...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "unable to write to stderr: %v\n", err)
	}
}

// OpenRepository opens the repository given with --repo.
func OpenRepository(opts GlobalOptions) (*repository.Repository, error) {
	if opts.Repo == "" {
		return nil, errors.Fatal("Please specify repository location (-r or $RDIFFBROWSE_REPOSITORY)")
	}

	repo, err := repository.Open(opts.Repo, repository.Options{DefaultEncoding: opts.Encoding})
	if repository.IsNotFound(err) {
		return nil, errors.Fatalf("%v is not an rdiff-backup repository: %v", opts.Repo, err)
	}
	if err != nil {
		return nil, err
	}

	debug.Log("opened repository %v, encoding %v", repo.FullPath(), repo.Encoding())
	return repo, nil
}

// newRestorer returns a restorer configured by the global options.
func newRestorer(opts GlobalOptions) *restorer.Restorer {
	ropts := restorer.Options{
		Command:       opts.RdiffBackup,
		MaxConcurrent: opts.MaxRestores,
		TempDir:       opts.TempDir,
	}
	if opts.Limits.DownloadKb > 0 {
		ropts.Limiter = limiter.NewStaticLimiter(opts.Limits)
	}
	return restorer.New(ropts)
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeMetrics writes the restore metrics to --metrics-file, if given.
// Failing to do so does not fail the command.
func writeMetrics(opts GlobalOptions) {
	if opts.MetricsFile == "" {
		return
	}
	if err := restorer.WriteMetrics(opts.MetricsFile); err != nil {
		opts.Warnf("unable to write metrics: %v\n", err)
	}
}
