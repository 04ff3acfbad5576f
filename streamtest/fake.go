// Package streamtest provides an in-memory fake of the replay service for
// testing stream consumers without a server.
package streamtest

import (
	"context"
	"sync"
	"time"

	"github.com/c360/replaystream/element"
	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/sample"
	"github.com/c360/replaystream/stream"
)

// Table configures one fake table. Items are delivered in order for a
// FIFO sampler and cycled with replacement otherwise. When all items of a
// FIFO table are consumed further sampling waits on the rate limiter.
type Table struct {
	Name      string
	Sampler   string
	Signature *element.Spec
	Items     []sample.PrioritizedItem
}

type tableState struct {
	cfg  Table
	next int
}

// Client is a fake stream.Client backed by in-memory tables.
type Client struct {
	mu     sync.Mutex
	tables map[string]*tableState

	// InfoErr, OpenErr and NextErr inject failures into the respective
	// calls. InfoDelay delays ServerInfo to exercise resolve deadlines.
	InfoErr   error
	OpenErr   error
	NextErr   error
	InfoDelay time.Duration

	opened int
	closed int
}

// NewClient creates a fake client serving the given tables.
func NewClient(tables ...Table) *Client {
	c := &Client{tables: make(map[string]*tableState)}
	for _, t := range tables {
		cfg := t
		c.tables[t.Name] = &tableState{cfg: cfg}
	}
	return c
}

// OpenedStreams reports how many sampling sessions were opened.
func (c *Client) OpenedStreams() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// ClosedStreams reports how many sampling sessions were closed.
func (c *Client) ClosedStreams() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ServerInfo implements stream.Client.
func (c *Client) ServerInfo(ctx context.Context) (map[string]sample.TableInfo, error) {
	c.mu.Lock()
	delay := c.InfoDelay
	infoErr := c.InfoErr
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if infoErr != nil {
		return nil, infoErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	info := make(map[string]sample.TableInfo, len(c.tables))
	for name, ts := range c.tables {
		info[name] = sample.TableInfo{
			Name:        name,
			Sampler:     ts.cfg.Sampler,
			MaxSize:     int64(len(ts.cfg.Items)),
			CurrentSize: int64(len(ts.cfg.Items) - ts.next),
			Signature:   ts.cfg.Signature,
		}
	}
	return info, nil
}

// OpenSampleStream implements stream.Client.
func (c *Client) OpenSampleStream(ctx context.Context, table string) (stream.SampleStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	ts, ok := c.tables[table]
	if !ok {
		return nil, errors.ErrTableNotFound
	}
	c.opened++
	return &session{client: c, table: ts}, nil
}

type session struct {
	client *Client
	table  *tableState
}

// Next draws up to maxItems from the fake table. An empty table, or a
// FIFO table that has been fully consumed, behaves like a table below its
// rate limiter's minimum: the call waits for rateLimiterTimeout (or the
// context) and reports a rate limiter timeout.
func (s *session) Next(ctx context.Context, maxItems int, rateLimiterTimeout time.Duration) ([]sample.PrioritizedItem, error) {
	s.client.mu.Lock()
	if err := s.client.NextErr; err != nil {
		s.client.mu.Unlock()
		return nil, err
	}

	t := s.table
	fifo := t.cfg.Sampler == sample.SamplerFIFO || t.cfg.Sampler == ""
	exhausted := len(t.cfg.Items) == 0 || (fifo && t.next >= len(t.cfg.Items))
	if exhausted {
		s.client.mu.Unlock()
		if rateLimiterTimeout < 0 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		select {
		case <-time.After(rateLimiterTimeout):
			return nil, errors.ErrRateLimiterTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	items := make([]sample.PrioritizedItem, 0, maxItems)
	for len(items) < maxItems {
		if fifo {
			if t.next >= len(t.cfg.Items) {
				break
			}
			items = append(items, t.cfg.Items[t.next])
			t.next++
		} else {
			if len(t.cfg.Items) == 0 {
				break
			}
			items = append(items, t.cfg.Items[t.next%len(t.cfg.Items)])
			t.next++
		}
	}
	s.client.mu.Unlock()
	return items, nil
}

func (s *session) Close() error {
	s.client.mu.Lock()
	s.client.closed++
	s.client.mu.Unlock()
	return nil
}
