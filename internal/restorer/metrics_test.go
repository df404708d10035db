package restorer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rdiffweb/rdiffbrowse/internal/archive"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

func TestRestoreStatus(t *testing.T) {
	rtest.Equals(t, "ok", restoreStatus(nil))
	rtest.Equals(t, "execute_error", restoreStatus(&ExecuteError{ExitCode: 1}))
	rtest.Equals(t, "unexpected_state", restoreStatus(&UnexpectedStateError{}))
	rtest.Equals(t, "error", restoreStatus(context.Canceled))
}

func TestMetricsCounted(t *testing.T) {
	f := newFixture(t)
	command, _ := fakeRdiffBackup(t, copySource)

	ok := restoresTotal.WithLabelValues("ok")
	okBefore := testutil.ToFloat64(ok)
	bytesBefore := testutil.ToFloat64(restoreBytes)

	_, rd, err := f.restorer(command).Restore(context.TODO(), f.repo, "file.txt", repository.TestTime(2000), archive.Zip)
	rtest.OK(t, err)
	buf, err := readAll(t, rd)
	rtest.OK(t, err)

	rtest.Equals(t, okBefore+1, testutil.ToFloat64(ok))
	rtest.Equals(t, bytesBefore+float64(len(buf)), testutil.ToFloat64(restoreBytes))

	failed := restoresTotal.WithLabelValues("execute_error")
	failedBefore := testutil.ToFloat64(failed)

	command, _ = fakeRdiffBackup(t, "echo broken >&2; exit 1")
	_, rd, err = f.restorer(command).Restore(context.TODO(), f.repo, "file.txt", repository.TestTime(2000), archive.Zip)
	rtest.OK(t, err)
	_, err = readAll(t, rd)
	rtest.Assert(t, IsExecuteError(err), "expected ExecuteError, got %v", err)

	rtest.Equals(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestWriteMetrics(t *testing.T) {
	restoresTotal.WithLabelValues("ok")
	filename := filepath.Join(rtest.TempDir(t), "rdiffbrowse.prom")

	rtest.OK(t, WriteMetrics(filename))

	buf, err := os.ReadFile(filename)
	rtest.OK(t, err)
	for _, name := range []string{
		"rdiffbrowse_restores_total",
		"rdiffbrowse_restores_running",
		"rdiffbrowse_restore_duration_seconds",
		"rdiffbrowse_restore_bytes_total",
	} {
		rtest.Assert(t, strings.Contains(string(buf), "# TYPE "+name+" "), "metric %v missing in\n%s", name, buf)
	}
	// no runtime metrics
	rtest.Assert(t, !strings.Contains(string(buf), "go_goroutines"), "unexpected runtime metrics in\n%s", buf)

	err = WriteMetrics(filepath.Join(rtest.TempDir(t), "missing", "rdiffbrowse.prom"))
	rtest.Assert(t, err != nil, "writing to a missing directory succeeded")
}
