package restorer

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// Registry holds the restore metrics. It contains no Go runtime or process
// metrics, those say nothing about a short lived command.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	restoresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdiffbrowse_restores_total",
			Help: "Total number of finished restores",
		},
		[]string{"status"},
	)

	restoresRunning = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "rdiffbrowse_restores_running",
			Help: "Number of restores currently running",
		},
	)

	restoreDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rdiffbrowse_restore_duration_seconds",
			Help:    "Time from starting rdiff-backup until the stream is closed",
			Buckets: prometheus.DefBuckets,
		},
	)

	restoreBytes = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "rdiffbrowse_restore_bytes_total",
			Help: "Total bytes streamed to clients by restores",
		},
	)
)

// restoreStatus maps the result of a restore to the status label.
func restoreStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsExecuteError(err):
		return "execute_error"
	case IsUnexpectedState(err):
		return "unexpected_state"
	default:
		return "error"
	}
}

// countingWriter counts the bytes written to the stream.
type countingWriter struct {
	w io.Writer
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	restoreBytes.Add(float64(n))
	return n, err
}

// WriteMetrics writes all restore metrics to filename in the text exposition
// format, e.g. for the textfile collector of the node exporter. The file is
// replaced atomically.
func WriteMetrics(filename string) error {
	err := prometheus.WriteToTextfile(filename, Registry)
	if err != nil {
		return errors.Wrap(err, "WriteToTextfile")
	}
	return nil
}
