package main

import (
	"encoding/json"
	"path"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	"github.com/rdiffweb/rdiffbrowse/internal/ui"
	"github.com/rdiffweb/rdiffbrowse/internal/ui/table"
)

func newLsCommand() *cobra.Command {
	var opts LsOptions

	cmd := &cobra.Command{
		Use:   "ls [flags] [dir]",
		Short: "List files in the repository",
		Long: `
The "ls" command lists the files and directories of a directory in the
repository, by default the repository root. Files which were deleted since
the last backup are listed as well, they are marked as deleted in the long
listing format.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 10 if the repository or the directory does not exist.
Exit status is 11 if access to the directory is denied.
`,
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runLs(opts, globalOptions, args)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.ListLong, "long", "l", false, "use a long listing format showing type, size and last change")
	f.BoolVar(&opts.HumanReadable, "human-readable", false, "print sizes in human readable format")
	f.BoolVar(&opts.Deleted, "deleted", true, "include files which no longer exist")
	return cmd
}

// LsOptions collects all options for the ls command.
type LsOptions struct {
	ListLong      bool
	HumanReadable bool
	Deleted       bool
}

type lsNode struct {
	MessageType string     `json:"message_type"` // "node"
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	Exists      bool       `json:"exists"`
	Size        int64      `json:"size"`
	LastChange  *time.Time `json:"last_change,omitempty"`
}

func entryType(e *repository.Entry) string {
	if e.IsDir() {
		return "dir"
	}
	return "file"
}

func newLsNode(e *repository.Entry) lsNode {
	n := lsNode{
		MessageType: "node",
		Name:        e.DisplayName(),
		Path:        e.Path(),
		Type:        entryType(e),
		Exists:      e.Exists(),
	}
	if !e.IsDir() {
		n.Size = e.Size()
	}
	if last, ok := e.LastChangeDate(); ok {
		n.LastChange = &last
	}
	return n
}

func formatSize(size int64, humanReadable bool) string {
	if humanReadable {
		return ui.FormatBytes(size)
	}
	return strconv.FormatInt(size, 10)
}

func runLs(opts LsOptions, gopts GlobalOptions, args []string) error {
	if len(args) > 1 {
		return errors.Fatal("ls accepts at most one directory")
	}

	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}

	repo, err := OpenRepository(gopts)
	if err != nil {
		return err
	}
	if repo.InProgress() {
		gopts.Warnf("warning: a backup is in progress, the listing may be incomplete\n")
	}

	parent, err := repo.GetPath(dir)
	if err != nil {
		return err
	}
	if !parent.IsDir() {
		return errors.Fatalf("%v is not a directory", path.Join("/", parent.Path()))
	}

	entries, err := parent.Children()
	if err != nil {
		return err
	}
	repository.SortEntries(entries)

	if gopts.JSON {
		enc := json.NewEncoder(gopts.stdout)
		for _, e := range entries {
			if !opts.Deleted && !e.Exists() {
				continue
			}
			if err := enc.Encode(newLsNode(e)); err != nil {
				return errors.Wrap(err, "JSON encode")
			}
		}
		return nil
	}

	if !opts.ListLong {
		for _, e := range entries {
			if !opts.Deleted && !e.Exists() {
				continue
			}
			name := ui.Quote(e.DisplayName())
			if e.IsDir() {
				name += "/"
			}
			gopts.Printf("%s\n", name)
		}
		return nil
	}

	tab := table.New()
	tab.AddColumn("Type")
	tab.AddColumn("Size")
	tab.AddColumn("Last change")
	tab.AddColumn("Name")
	for _, e := range entries {
		if !opts.Deleted && !e.Exists() {
			continue
		}

		n := newLsNode(e)
		size := ""
		if !e.IsDir() {
			size = formatSize(n.Size, opts.HumanReadable)
		}
		lastChange := ""
		if n.LastChange != nil {
			lastChange = n.LastChange.Local().Format(TimeFormat)
		}
		name := ui.Quote(n.Name)
		if !n.Exists {
			name += " (deleted)"
		}
		tab.AddRow(n.Type, size, lastChange, name)
	}

	return tab.Write(gopts.stdout)
}
