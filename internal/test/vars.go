package test

import (
	"fmt"
	"os"
)

var (
	TestCleanupTempDirs = boolVar("RDIFFBROWSE_TEST_CLEANUP", true)
	TestTempDir         = os.Getenv("RDIFFBROWSE_TEST_TMPDIR")
	RunIntegrationTest  = boolVar("RDIFFBROWSE_TEST_INTEGRATION", true)

	// TestRdiffBackup is the rdiff-backup binary used by integration tests,
	// they are skipped when it cannot be found.
	TestRdiffBackup = stringVar("RDIFFBROWSE_TEST_RDIFF_BACKUP", "rdiff-backup")
)

func stringVar(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func boolVar(name string, def bool) bool {
	switch v := os.Getenv(name); v {
	case "":
		return def
	case "1", "true":
		return true
	case "0", "false":
		return false
	default:
		fmt.Fprintf(os.Stderr, "invalid value %q for %v, using default\n", v, name)
		return def
	}
}
