package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	"github.com/rdiffweb/rdiffbrowse/internal/ui"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a summary of the repository",
		Long: `
The "status" command prints the number of backups in the repository, the
dates of the first and the last backup, and whether a backup is currently
running.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 10 if the repository does not exist.
`,
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runStatus(globalOptions, args)
		},
	}
	return cmd
}

type repoStatus struct {
	MessageType string     `json:"message_type"` // "status"
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	Encoding    string     `json:"encoding"`
	Backups     int        `json:"backups"`
	FirstBackup *time.Time `json:"first_backup,omitempty"`
	LastBackup  *time.Time `json:"last_backup,omitempty"`
	LastSize    int64      `json:"last_size"`
	LastErrors  bool       `json:"last_errors"`
	InProgress  bool       `json:"in_progress"`
}

func runStatus(gopts GlobalOptions, args []string) error {
	if len(args) > 0 {
		return errors.Fatal("the status command expects no arguments, only options")
	}

	repo, err := OpenRepository(gopts)
	if err != nil {
		return err
	}

	dates := repo.BackupDates()
	st := repoStatus{
		MessageType: "status",
		Path:        repo.FullPath(),
		Name:        repo.DisplayName(),
		Encoding:    repo.Encoding(),
		Backups:     len(dates),
		InProgress:  repo.InProgress(),
	}
	if len(dates) > 0 {
		st.FirstBackup = &dates[0]
		st.LastBackup = &dates[len(dates)-1]
	}
	if last := repo.History(repository.HistoryOptions{Limit: 1, Reverse: true}); len(last) == 1 {
		st.LastSize = last[0].Size()
		st.LastErrors = last[0].HasErrors()
	}

	if gopts.JSON {
		return json.NewEncoder(gopts.stdout).Encode(st)
	}

	gopts.Printf("repository %s at %s\n", ui.Quote(st.Name), ui.Quote(st.Path))
	gopts.Printf("  encoding:     %s\n", st.Encoding)
	gopts.Printf("  backups:      %d\n", st.Backups)
	if st.FirstBackup != nil {
		gopts.Printf("  first backup: %s\n", st.FirstBackup.Local().Format(TimeFormat))
		gopts.Printf("  last backup:  %s\n", st.LastBackup.Local().Format(TimeFormat))
		gopts.Printf("  last size:    %s\n", ui.FormatBytes(st.LastSize))
		if st.LastErrors {
			gopts.Printf("  last backup logged errors\n")
		}
	}
	if st.InProgress {
		gopts.Printf("  a backup is in progress\n")
	}
	return nil
}
