package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	"github.com/rdiffweb/rdiffbrowse/internal/restorer"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rdiffbrowse",
		Short: "Browse and restore rdiff-backup repositories",
		Long: `
rdiffbrowse lists the files of an rdiff-backup repository, including files
which were deleted since, shows their history and the backups of the
repository, and restores files and directories as of any backup.

Paths are given relative to the repository root as they are stored on disk,
including rdiff-backup's ;NNN quoting.
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return globalOptions.PreRun()
		},
	}

	globalOptions.AddFlags(cmd.PersistentFlags())

	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newEncodingCommand(),
		newHistoryCommand(),
		newLsCommand(),
		newRestoreCommand(),
		newStatCommand(),
		newStatusCommand(),
		newVersionCommand(),
	)

	registerProfiling(cmd)

	return cmd
}

func printExitError(code int, message string) {
	if globalOptions.JSON {
		type jsonExitError struct {
			MessageType string `json:"message_type"` // exit_error
			Code        int    `json:"code"`
			Message     string `json:"message"`
		}

		jsonS := jsonExitError{
			MessageType: "exit_error",
			Code:        code,
			Message:     message,
		}

		err := json.NewEncoder(globalOptions.stderr).Encode(jsonS)
		if err != nil {
			globalOptions.Warnf("JSON encode failed: %v\n", err)
			return
		}
	} else {
		_, _ = fmt.Fprintf(globalOptions.stderr, "%v\n", message)
	}
}

// exitCode maps err to the exit status of the program.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case repository.IsNotFound(err):
		return 10
	case repository.IsAccessDenied(err):
		return 11
	case restorer.IsExecuteError(err):
		return 12
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

func main() {
	// install custom global logger into a buffer, if an error occurs
	// we can show the logs
	logBuffer := bytes.NewBuffer(nil)
	log.SetOutput(logBuffer)

	debug.Log("main %#v", os.Args)
	debug.Log("rdiffbrowse %s compiled with %v on %v/%v",
		version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	ctx := createGlobalContext()
	err := newRootCommand().ExecuteContext(ctx)
	if err == nil {
		err = ctx.Err()
	}

	var exitMessage string
	switch {
	case errors.IsFatal(err):
		exitMessage = err.Error()
	case repository.IsNotFound(err), repository.IsAccessDenied(err), restorer.IsExecuteError(err):
		exitMessage = fmt.Sprintf("Fatal: %v", err)
	case err != nil:
		exitMessage = fmt.Sprintf("%+v", err)

		if logBuffer.Len() > 0 {
			exitMessage += "also, the following messages were logged by a library:\n"
			sc := bufio.NewScanner(logBuffer)
			for sc.Scan() {
				exitMessage += fmt.Sprintln(sc.Text())
			}
		}
	}

	code := exitCode(err)
	if code != 0 {
		printExitError(code, exitMessage)
	}
	Exit(code)
}
