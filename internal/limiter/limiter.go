// Package limiter caps the rate at which restored data is handed out.
package limiter

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Limiter limits the throughput of restored data.
type Limiter interface {
	// Reader returns a reader which delivers the data of r no faster than
	// the configured rate. Waiting is aborted once ctx is cancelled.
	Reader(ctx context.Context, r io.Reader) io.Reader
}

// Limits represents the configured rate limits, zero means unlimited.
type Limits struct {
	// DownloadKb is the download rate in KiB/s.
	DownloadKb int
}

type staticLimiter struct {
	bucket *rate.Limiter
}

// NewStaticLimiter returns a Limiter with a fixed download rate. A zero
// rate returns readers unchanged.
func NewStaticLimiter(l Limits) Limiter {
	if l.DownloadKb <= 0 {
		return staticLimiter{}
	}
	bytesPerSec := l.DownloadKb * 1024
	return staticLimiter{bucket: rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)}
}

func (l staticLimiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if l.bucket == nil {
		return r
	}
	return &rateLimitedReader{ctx: ctx, rd: r, bucket: l.bucket}
}

type rateLimitedReader struct {
	ctx    context.Context
	rd     io.Reader
	bucket *rate.Limiter
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	// never read more than a single wait can pay for
	if burst := r.bucket.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := r.rd.Read(p)
	if n > 0 {
		if werr := r.bucket.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
