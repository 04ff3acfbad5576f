package stream

import (
	"context"
	"time"

	"github.com/c360/replaystream/sample"
)

// SampleStream is one open sampling session against a table. Sessions let
// the server pin a snapshot; the worker pool bounds how many items it
// draws from one session before closing it and opening a fresh one.
type SampleStream interface {
	// Next requests up to maxItems prioritized items. rateLimiterTimeout
	// bounds how long the server-side rate limiter may defer admission: a
	// negative value waits indefinitely, zero fails immediately when the
	// table cannot admit a sample right now. A timeout is reported as
	// errors.ErrRateLimiterTimeout. A nil error implies at least one item.
	Next(ctx context.Context, maxItems int, rateLimiterTimeout time.Duration) ([]sample.PrioritizedItem, error)

	// Close releases the session. Safe to call more than once.
	Close() error
}

// Client is the remote replay service as seen by a stream. The tableclient
// package provides the NATS implementation; streamtest provides an
// in-memory fake.
type Client interface {
	// OpenSampleStream starts a sampling session against a table.
	OpenSampleStream(ctx context.Context, table string) (SampleStream, error)

	// ServerInfo returns the metadata of every table the server declares,
	// keyed by table name.
	ServerInfo(ctx context.Context) (map[string]sample.TableInfo, error)
}
