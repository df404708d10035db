package main

import (
	"context"
	"testing"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	"github.com/rdiffweb/rdiffbrowse/internal/restorer"
	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

func TestExitCode(t *testing.T) {
	var tests = []struct {
		err  error
		code int
	}{
		{nil, 0},
		{errors.New("other"), 1},
		{errors.Fatal("fatal"), 1},
		{&repository.NotFoundError{Path: "x"}, 10},
		{errors.Wrap(&repository.NotFoundError{Path: "x"}, "GetPath"), 10},
		{&repository.AccessDeniedError{Path: ".."}, 11},
		{&restorer.ExecuteError{ExitCode: 1, Err: errors.New("exit status 1")}, 12},
		{context.Canceled, 130},
	}

	for _, test := range tests {
		rtest.Equals(t, test.code, exitCode(test.err))
	}
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	rtest.Equals(t, []string{"encoding", "history", "ls", "restore", "stat", "status", "version"}, names)
}
