package common

import (
	"context"
	"time"
)

const (
	DefaultRequestTimeout  = 10 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
	DefaultUploadTimeout   = 10 * time.Minute
)

// ContextWithTimeout derives a context bounded by timeout. A non-positive timeout leaves ctx unbounded.
func ContextWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
