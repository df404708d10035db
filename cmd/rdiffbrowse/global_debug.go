//go:build debug

package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

type profileOptions struct {
	listen       string
	memPath      string
	cpuPath      string
	traceProfile string
	blockProfile string
}

var prof interface{ Stop() }

func registerProfiling(cmd *cobra.Command) {
	var opts profileOptions

	f := cmd.PersistentFlags()
	f.StringVar(&opts.listen, "listen-profile", "", "listen on this `address:port` for memory profiling")
	f.StringVar(&opts.memPath, "mem-profile", "", "write memory profile to `dir`")
	f.StringVar(&opts.cpuPath, "cpu-profile", "", "write cpu profile to `dir`")
	f.StringVar(&opts.traceProfile, "trace-profile", "", "write trace to `dir`")
	f.StringVar(&opts.blockProfile, "block-profile", "", "write block profile to `dir`")

	origPreRun := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if origPreRun != nil {
			if err := origPreRun(c, args); err != nil {
				return err
			}
		}
		return opts.start()
	}

	origPostRun := cmd.PersistentPostRun
	cmd.PersistentPostRun = func(c *cobra.Command, args []string) {
		if prof != nil {
			prof.Stop()
		}
		if origPostRun != nil {
			origPostRun(c, args)
		}
	}
}

func (opts profileOptions) start() error {
	if opts.listen != "" {
		fmt.Fprintf(os.Stderr, "running profile HTTP server on %v\n", opts.listen)
		go func() {
			err := http.ListenAndServe(opts.listen, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "profile HTTP server listen failed: %v\n", err)
			}
		}()
	}

	profilesEnabled := 0
	if opts.memPath != "" {
		profilesEnabled++
	}
	if opts.cpuPath != "" {
		profilesEnabled++
	}
	if opts.traceProfile != "" {
		profilesEnabled++
	}
	if opts.blockProfile != "" {
		profilesEnabled++
	}

	if profilesEnabled > 1 {
		return errors.Fatal("only one profile (memory, CPU, trace, or block) may be activated at the same time")
	}

	switch {
	case opts.memPath != "":
		prof = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.MemProfile, profile.ProfilePath(opts.memPath))
	case opts.cpuPath != "":
		prof = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.CPUProfile, profile.ProfilePath(opts.cpuPath))
	case opts.traceProfile != "":
		prof = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.TraceProfile, profile.ProfilePath(opts.traceProfile))
	case opts.blockProfile != "":
		prof = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.BlockProfile, profile.ProfilePath(opts.blockProfile))
	}

	return nil
}
