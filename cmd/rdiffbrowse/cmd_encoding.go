package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rdiffweb/rdiffbrowse/internal/charset"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

func newEncodingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encoding [flags] [name]",
		Short: "Show or set the encoding of file names",
		Long: `
The "encoding" command prints the encoding used to display the file names
of the repository. If a name such as "latin1" or "utf-8" is given, it is
stored in the repository and used from then on.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 10 if the repository does not exist.
`,
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runEncoding(globalOptions, args)
		},
	}
	return cmd
}

func runEncoding(gopts GlobalOptions, args []string) error {
	if len(args) > 1 {
		return errors.Fatal("only one encoding may be specified")
	}

	repo, err := OpenRepository(gopts)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		err := repo.SetEncoding(args[0])
		if errors.Is(err, charset.ErrUnknownEncoding) {
			return errors.Fatalf("unknown encoding %q", args[0])
		}
		if err != nil {
			return err
		}
		gopts.Verbosef("encoding of %v set to %v\n", repo.FullPath(), repo.Encoding())
	}

	if gopts.JSON {
		type jsonEncoding struct {
			MessageType string `json:"message_type"` // "encoding"
			Encoding    string `json:"encoding"`
		}
		return json.NewEncoder(gopts.stdout).Encode(jsonEncoding{MessageType: "encoding", Encoding: repo.Encoding()})
	}

	gopts.Printf("%s\n", repo.Encoding())
	return nil
}
