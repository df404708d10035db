package limiter

import (
	"context"
	"io"
)

// LimitReadCloser wraps rc so that reads are limited by l. Closing the
// result closes rc.
func LimitReadCloser(ctx context.Context, rc io.ReadCloser, l Limiter) io.ReadCloser {
	limited := l.Reader(ctx, rc)
	if _, ok := limited.(*rateLimitedReader); !ok {
		return rc
	}
	return limitedReadCloser{Reader: limited, closer: rc}
}

type limitedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (l limitedReadCloser) Close() error {
	return l.closer.Close()
}
