package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	"github.com/rdiffweb/rdiffbrowse/internal/ui"
	"github.com/rdiffweb/rdiffbrowse/internal/ui/table"
)

func newHistoryCommand() *cobra.Command {
	var opts HistoryOptions

	cmd := &cobra.Command{
		Use:   "history [flags]",
		Short: "List the backups in the repository",
		Long: `
The "history" command lists the backups of the repository together with the
size of the backed up data, the size of the increments they wrote and
whether errors were logged.

Dates for --earliest and --latest are given in local time as
"2006-01-02" or "2006-01-02 15:04:05".

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 10 if the repository does not exist.
`,
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runHistory(opts, globalOptions, args)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.Limit, "limit", "n", 0, "only show the last `n` backups")
	f.StringVar(&opts.Earliest, "earliest", "", "only show backups at or after `date`")
	f.StringVar(&opts.Latest, "latest", "", "only show backups at or before `date`")
	f.BoolVar(&opts.Reverse, "reverse", false, "show the newest backup first")
	f.BoolVar(&opts.ShowErrors, "errors", false, "print the error logs of the backups")
	return cmd
}

// HistoryOptions collects all options for the history command.
type HistoryOptions struct {
	Limit      int
	Earliest   string
	Latest     string
	Reverse    bool
	ShowErrors bool
}

// parseDate parses a date given on the command line in local time.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{TimeFormat, "2006-01-02 15:04", "2006-01-02"} {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Fatalf("invalid date %q", s)
}

func (opts HistoryOptions) repositoryOptions() (repository.HistoryOptions, error) {
	hopts := repository.HistoryOptions{Reverse: opts.Reverse}

	if opts.Earliest != "" {
		t, err := parseDate(opts.Earliest)
		if err != nil {
			return hopts, err
		}
		hopts.Earliest = t
	}
	if opts.Latest != "" {
		t, err := parseDate(opts.Latest)
		if err != nil {
			return hopts, err
		}
		// a date without time covers the whole day
		if !strings.Contains(opts.Latest, " ") {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		hopts.Latest = t
	}
	if !hopts.Earliest.IsZero() && !hopts.Latest.IsZero() && hopts.Latest.Before(hopts.Earliest) {
		return hopts, errors.Fatal("--latest is before --earliest")
	}

	return hopts, nil
}

type historyEntry struct {
	MessageType   string    `json:"message_type"` // "backup"
	Date          time.Time `json:"date"`
	Size          int64     `json:"size"`
	IncrementSize int64     `json:"increment_size"`
	HasErrors     bool      `json:"has_errors"`
	Errors        string    `json:"errors,omitempty"`
}

func runHistory(opts HistoryOptions, gopts GlobalOptions, args []string) error {
	if len(args) > 0 {
		return errors.Fatal("the history command expects no arguments, only options")
	}
	if opts.Limit < 0 {
		return errors.Fatal("--limit must not be negative")
	}

	hopts, err := opts.repositoryOptions()
	if err != nil {
		return err
	}

	repo, err := OpenRepository(gopts)
	if err != nil {
		return err
	}

	// --limit selects the most recent backups, whichever order they are
	// printed in
	entries := repo.History(repository.HistoryOptions{
		Limit:    opts.Limit,
		Earliest: hopts.Earliest,
		Latest:   hopts.Latest,
		Reverse:  true,
	})
	if !hopts.Reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	items := make([]historyEntry, 0, len(entries))
	for _, h := range entries {
		item := historyEntry{
			MessageType:   "backup",
			Date:          h.Date,
			Size:          h.Size(),
			IncrementSize: h.IncrementSize(),
			HasErrors:     h.HasErrors(),
		}
		if opts.ShowErrors && item.HasErrors {
			item.Errors, err = h.Errors()
			if err != nil {
				gopts.Warnf("unable to read error log of backup %v: %v\n", h.Date.Local().Format(TimeFormat), err)
			}
		}
		items = append(items, item)
	}

	if gopts.JSON {
		enc := json.NewEncoder(gopts.stdout)
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return errors.Wrap(err, "JSON encode")
			}
		}
		return nil
	}

	tab := table.New()
	tab.AddColumn("Date")
	tab.AddColumn("Size")
	tab.AddColumn("Increments")
	tab.AddColumn("Errors")
	for _, item := range items {
		errs := ""
		if item.HasErrors {
			errs = "yes"
		}
		tab.AddRow(item.Date.Local().Format(TimeFormat), ui.FormatBytes(item.Size), ui.FormatBytes(item.IncrementSize), errs)
	}
	if err := tab.Write(gopts.stdout); err != nil {
		return err
	}
	gopts.Verbosef("%d backups\n", len(items))

	for _, item := range items {
		if item.Errors == "" {
			continue
		}
		gopts.Printf("\nerrors of backup %s:\n%s", item.Date.Local().Format(TimeFormat), item.Errors)
		if !strings.HasSuffix(item.Errors, "\n") {
			gopts.Printf("\n")
		}
	}

	return nil
}
