package main

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/restorer"
	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

func TestAddFlagsEnvironment(t *testing.T) {
	t.Setenv("RDIFFBROWSE_REPOSITORY", "/backups/host")
	t.Setenv("RDIFFBROWSE_ENCODING", "latin1")
	t.Setenv("RDIFFBROWSE_RDIFF_BACKUP", "/opt/bin/rdiff-backup")
	t.Setenv("RDIFFBROWSE_MAX_RESTORES", "7")
	t.Setenv("RDIFFBROWSE_METRICS_FILE", "/var/lib/node_exporter/rdiffbrowse.prom")

	var opts GlobalOptions
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(f)

	rtest.Equals(t, "/backups/host", opts.Repo)
	rtest.Equals(t, "latin1", opts.Encoding)
	rtest.Equals(t, "/opt/bin/rdiff-backup", opts.RdiffBackup)
	rtest.Equals(t, 7, opts.MaxRestores)
	rtest.Equals(t, "/var/lib/node_exporter/rdiffbrowse.prom", opts.MetricsFile)

	// flags override the environment
	rtest.OK(t, f.Parse([]string{"-r", "/other", "--max-restores", "1"}))
	rtest.Equals(t, "/other", opts.Repo)
	rtest.Equals(t, 1, opts.MaxRestores)
}

func TestAddFlagsDefaults(t *testing.T) {
	t.Setenv("RDIFFBROWSE_REPOSITORY", "")
	t.Setenv("RDIFFBROWSE_RDIFF_BACKUP", "")
	t.Setenv("RDIFFBROWSE_MAX_RESTORES", "invalid")

	var opts GlobalOptions
	opts.AddFlags(pflag.NewFlagSet("test", pflag.ContinueOnError))

	rtest.Equals(t, "", opts.Repo)
	rtest.Equals(t, restorer.DefaultCommand, opts.RdiffBackup)
	rtest.Equals(t, restorer.DefaultMaxConcurrent, opts.MaxRestores)
}

func TestPreRun(t *testing.T) {
	var tests = []struct {
		opts      GlobalOptions
		verbosity uint
		fatal     bool
	}{
		{GlobalOptions{Encoding: "utf-8", MaxRestores: 1}, 1, false},
		{GlobalOptions{Encoding: "utf-8", MaxRestores: 1, Quiet: true}, 0, false},
		{GlobalOptions{Encoding: "utf-8", MaxRestores: 1, Verbose: 2}, 2, false},
		{GlobalOptions{Encoding: "utf-8", MaxRestores: 1, Quiet: true, Verbose: 1}, 0, true},
		{GlobalOptions{Encoding: "no-such-encoding", MaxRestores: 1}, 0, true},
		{GlobalOptions{Encoding: "utf-8", MaxRestores: 0}, 0, true},
	}

	for _, test := range tests {
		t.Run("", func(t *testing.T) {
			opts := test.opts
			err := opts.PreRun()
			if test.fatal {
				rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
				return
			}
			rtest.OK(t, err)
			rtest.Equals(t, test.verbosity, opts.verbosity)
		})
	}
}

func TestPreRunEncodingFromLocale(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_CTYPE", "fr_CA.ISO-8859-1")

	opts := GlobalOptions{MaxRestores: 1}
	rtest.OK(t, opts.PreRun())
	rtest.Equals(t, "iso-8859-1", opts.Encoding)
}

func TestOpenRepositoryErrors(t *testing.T) {
	gopts, _, _ := testGlobalOptions("")
	_, err := OpenRepository(gopts)
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)

	gopts.Repo = rtest.TempDir(t)
	_, err = OpenRepository(gopts)
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
	rtest.Equals(t, 10, exitCode(err))
}

func TestPrintHelpers(t *testing.T) {
	gopts, stdout, stderr := testGlobalOptions("")

	gopts.Printf("a %d\n", 1)
	gopts.Verbosef("hidden\n")
	gopts.Warnf("warning\n")
	gopts.verbosity = 2
	gopts.Verbosef("shown\n")

	rtest.Equals(t, "a 1\nshown\n", stdout.String())
	rtest.Equals(t, "warning\n", stderr.String())
}
