// Package tableclient implements the replay service protocol over NATS
// request/reply. It satisfies stream.Client, so a stream built on it
// samples from a real remote table.
package tableclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/metric"
	"github.com/c360/replaystream/pkg/retry"
	"github.com/c360/replaystream/sample"
	"github.com/c360/replaystream/stream"
)

// Transport sends one request and returns the raw reply. Satisfied by
// *natsclient.Client.
type Transport interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// Notifier is the push side of a Transport: a subscription to a broadcast
// subject. *natsclient.Client implements it; WatchTables requires it.
type Notifier interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
}

const defaultRequestTimeout = 10 * time.Second

// Client talks the replay protocol over a Transport.
type Client struct {
	transport      Transport
	logger         *slog.Logger
	metrics        *metric.Metrics
	retryCfg       retry.Config
	requestTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger; nil keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request counts and latencies into the registry's
// core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Client) {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
	}
}

// WithRequestTimeout bounds metadata and session-control round trips.
// Sampling requests are bounded separately, by their rate limiter budget.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithRetry overrides the backoff used when opening sampling sessions.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// New creates a replay client over the given transport.
func New(transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.InvalidArgumentf("transport must not be nil")
	}

	c := &Client{
		transport:      transport,
		logger:         slog.Default().With("component", "tableclient"),
		retryCfg:       retry.Transport(),
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request performs one round trip: encode, send, decode into out. Every
// response type embeds a *wireError; whether to surface it is the
// caller's business, so it is not inspected here.
func (c *Client) request(ctx context.Context, operation, subject string, req, out any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return errors.WrapFatal(err, "Client", operation, "encode request")
	}

	start := time.Now()
	reply, err := c.transport.Request(ctx, subject, payload)
	if c.metrics != nil {
		c.metrics.RecordRequestDuration(operation, time.Since(start))
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordRequest(operation, "transport_error")
		}
		return err
	}

	if err := json.Unmarshal(reply, out); err != nil {
		if c.metrics != nil {
			c.metrics.RecordRequest(operation, "decode_error")
		}
		return errors.WrapFatal(err, "Client", operation, "decode response")
	}
	if c.metrics != nil {
		c.metrics.RecordRequest(operation, "ok")
	}
	return nil
}

// ServerInfo implements stream.Client.
func (c *Client) ServerInfo(ctx context.Context) (map[string]sample.TableInfo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var resp infoResponse
	if err := c.request(reqCtx, "info", subjectInfo, struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.toError()
	}

	tables := make(map[string]sample.TableInfo, len(resp.Tables))
	for name, w := range resp.Tables {
		info, err := decodeTableInfo(w)
		if err != nil {
			return nil, errors.WrapFatal(err, "Client", "ServerInfo", "decode table info")
		}
		tables[name] = info
	}
	return tables, nil
}

// OpenSampleStream implements stream.Client. The stream id is generated
// client-side so retried opens are idempotent on the server.
func (c *Client) OpenSampleStream(ctx context.Context, table string) (stream.SampleStream, error) {
	if table == "" {
		return nil, errors.InvalidArgumentf("table must not be empty")
	}
	streamID := uuid.NewString()

	err := retry.Do(ctx, c.retryCfg, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()

		var resp openResponse
		if err := c.request(reqCtx, "open", subjectSampleOpen,
			openRequest{Table: table, StreamID: streamID}, &resp); err != nil {
			return err
		}
		if resp.Error != nil {
			return retry.NonRetryable(resp.Error.toError())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("opened sample stream", "table", table, "stream_id", streamID)
	return &session{client: c, table: table, id: streamID}, nil
}

// Reset clears all data of a table. Destructive; exposed for tooling and
// tests rather than for training loops.
func (c *Client) Reset(ctx context.Context, table string) error {
	if table == "" {
		return errors.InvalidArgumentf("table must not be empty")
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var resp resetResponse
	if err := c.request(reqCtx, "reset", subjectReset, resetRequest{Table: table}, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error.toError()
	}
	return nil
}

// WatchTables registers fn to run whenever the server announces a table
// lifecycle change. fn receives the names of the affected tables; callers
// typically follow up with ServerInfo to refresh cached metadata. The
// subscription lives until the transport closes. Requires a Transport that
// also implements Notifier.
func (c *Client) WatchTables(ctx context.Context, fn func(tables []string)) error {
	if fn == nil {
		return errors.InvalidArgumentf("fn must not be nil")
	}
	notifier, ok := c.transport.(Notifier)
	if !ok {
		return errors.InvalidArgumentf("transport does not support subscriptions")
	}

	return notifier.Subscribe(ctx, subjectTablesChanged, func(_ context.Context, data []byte) {
		var ev tablesChangedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Debug("discarding malformed table change event", "error", err)
			return
		}
		fn(ev.Tables)
	})
}

// session is one open sampling stream.
type session struct {
	client *Client
	table  string
	id     string

	closeOnce sync.Once
	closeErr  error
}

// Next implements stream.SampleStream. The request context budget covers
// the declared rate limiter wait plus one ordinary round trip; an
// unbounded wait sends timeout_ms -1 and leaves the deadline to the
// caller's context.
func (s *session) Next(ctx context.Context, maxItems int, rateLimiterTimeout time.Duration) ([]sample.PrioritizedItem, error) {
	if maxItems < 1 {
		return nil, errors.InvalidArgumentf("maxItems (%d) must be a positive integer", maxItems)
	}

	req := nextRequest{StreamID: s.id, MaxItems: maxItems, TimeoutMS: -1}
	reqCtx := ctx
	if rateLimiterTimeout >= 0 {
		req.TimeoutMS = rateLimiterTimeout.Milliseconds()
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, rateLimiterTimeout+s.client.requestTimeout)
		defer cancel()
	}

	var resp nextResponse
	if err := s.client.request(reqCtx, "sample", subjectSampleNext, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.toError()
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("replay service returned an empty batch")
	}

	items := make([]sample.PrioritizedItem, len(resp.Items))
	for i, w := range resp.Items {
		item, err := decodeItem(w)
		if err != nil {
			return nil, errors.WrapFatal(err, "session", "Next", "decode item")
		}
		items[i] = item
	}
	return items, nil
}

// Close implements stream.SampleStream. Best-effort: the server also
// reaps idle streams, so a failed close is logged, not escalated.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.client.requestTimeout)
		defer cancel()

		var resp closeResponse
		err := s.client.request(ctx, "close", subjectSampleClose, closeRequest{StreamID: s.id}, &resp)
		if err == nil && resp.Error != nil {
			err = resp.Error.toError()
		}
		if err != nil {
			s.client.logger.Debug("close sample stream failed",
				"table", s.table, "stream_id", s.id, "error", err)
			s.closeErr = err
		}
	})
	return s.closeErr
}
