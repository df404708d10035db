package main

import (
	"encoding/json"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	"github.com/rdiffweb/rdiffbrowse/internal/ui"
)

func newStatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat [flags] path...",
		Short: "Show details and change dates of files",
		Long: `
The "stat" command prints the type, size and the dates of the backups in
which a file or directory changed. The date of a deletion is the date of
the first backup which no longer contained the file.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 10 if the repository or a path does not exist.
Exit status is 11 if access to a path is denied.
`,
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runStat(globalOptions, args)
		},
	}
	return cmd
}

type statNode struct {
	MessageType string      `json:"message_type"` // "stat"
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	Type        string      `json:"type"`
	Exists      bool        `json:"exists"`
	Size        int64       `json:"size"`
	Increments  int         `json:"increments"`
	ChangeDates []time.Time `json:"change_dates"`
}

func newStatNode(e *repository.Entry) statNode {
	dates := e.ChangeDates()
	if dates == nil {
		dates = []time.Time{}
	}

	n := statNode{
		MessageType: "stat",
		Name:        e.DisplayName(),
		Path:        e.Path(),
		Type:        entryType(e),
		Exists:      e.Exists(),
		Increments:  len(e.Increments()),
		ChangeDates: dates,
	}
	if !e.IsDir() {
		n.Size = e.Size()
	}
	return n
}

func runStat(gopts GlobalOptions, args []string) error {
	if len(args) == 0 {
		return errors.Fatal("no path specified")
	}

	repo, err := OpenRepository(gopts)
	if err != nil {
		return err
	}

	var enc *json.Encoder
	if gopts.JSON {
		enc = json.NewEncoder(gopts.stdout)
	}

	for i, arg := range args {
		e, err := repo.GetPath(arg)
		if err != nil {
			return err
		}
		n := newStatNode(e)

		if enc != nil {
			if err := enc.Encode(n); err != nil {
				return errors.Wrap(err, "JSON encode")
			}
			continue
		}

		if i > 0 {
			gopts.Printf("\n")
		}
		gopts.Printf("  Path: %s\n", ui.Quote(path.Join("/", n.Path)))
		gopts.Printf("  Name: %s\n", ui.Quote(n.Name))
		gopts.Printf("  Type: %s\n", n.Type)
		gopts.Printf("Exists: %v\n", n.Exists)
		if !e.IsDir() {
			gopts.Printf("  Size: %s\n", ui.FormatBytes(n.Size))
		}
		gopts.Printf("Changes:\n")
		for _, date := range n.ChangeDates {
			gopts.Printf("  %s\n", date.Local().Format(TimeFormat))
		}
		gopts.Verbosef("Increments:\n")
		for _, inc := range e.Increments() {
			gopts.Verbosef("  %s\n", ui.Quote(inc.Name))
		}
	}

	return nil
}
