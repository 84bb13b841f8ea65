// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/sirupsen/logrus"
)

// Client defaults
const (
	DefaultEndpoint = "http://localhost:8001/log"
	DefaultRetry    = 2 * time.Second
	DefaultQueueLen = 1024
	postTimeout     = 2 * time.Second
)

// Client posts events to a collector. Events are queued locally; while
// the collector is unreachable the client stays offline and keeps the
// queue, retrying on every new event and on a timer.
type Client struct {
	endpoint string
	retry    time.Duration
	maxQueue int
	http     *http.Client

	mu      sync.Mutex
	queue   []queued
	seq     uint64
	online  bool
	dropped uint64
	wake    chan struct{}
}

type queued struct {
	seq uint64
	ev  Event
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRetry sets the offline retry interval
func WithRetry(d time.Duration) ClientOption {
	return func(c *Client) { c.retry = d }
}

// WithQueueLen bounds the local queue. The oldest events are dropped first.
func WithQueueLen(n int) ClientOption {
	return func(c *Client) { c.maxQueue = n }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for endpoint. Call Run to start delivery.
func NewClient(endpoint string, options ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		retry:    DefaultRetry,
		maxQueue: DefaultQueueLen,
		http:     &http.Client{Timeout: postTimeout},
		wake:     make(chan struct{}, 1),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Send queues an event for delivery. It never blocks on the network.
func (c *Client) Send(typ, message string, data interface{}) {
	c.enqueue(NewEvent(typ, message, data))
}

func (c *Client) enqueue(ev Event) {
	c.mu.Lock()
	if len(c.queue) >= c.maxQueue {
		c.queue = c.queue[1:]
		c.dropped++
	}
	c.seq++
	c.queue = append(c.queue, queued{seq: c.seq, ev: ev})
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Dropped returns the number of events discarded because the queue was full
func (c *Client) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Online reports whether the last delivery attempt succeeded
func (c *Client) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Pending returns the number of queued events
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Run announces the client and delivers queued events until ctx ends
func (c *Client) Run(ctx context.Context) {
	c.Send(TypeInfo, "Frontend connected", nil)

	ticker := time.NewTicker(c.retry)
	defer ticker.Stop()

	for {
		c.flush(ctx)
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		case <-ticker.C:
		}
	}
}

// flush posts queued events in order, stopping at the first failure
func (c *Client) flush(ctx context.Context) {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		head := c.queue[0]
		c.mu.Unlock()

		if err := c.post(ctx, head.ev); err != nil {
			c.mu.Lock()
			wasOnline := c.online
			c.online = false
			c.mu.Unlock()
			if wasOnline {
				logrus.WithError(err).Debug("Debug backend not available, queueing events")
			}
			return
		}

		c.mu.Lock()
		if !c.online {
			logrus.Debug("Debug backend connected")
		}
		c.online = true
		// The head may have been dropped by an overflowing enqueue meanwhile.
		if len(c.queue) > 0 && c.queue[0].seq == head.seq {
			c.queue = c.queue[1:]
		}
		c.mu.Unlock()
	}
}

func (c *Client) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		// Undeliverable; report it as a plain error event instead.
		body, _ = json.Marshal(NewEvent(TypeError, "unencodable event: "+ev.Message, nil))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("collector returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// SerialSend implements ircam.Sink
func (c *Client) SerialSend(command string, frame []byte) {
	values := make([]int, len(frame))
	for i, b := range frame {
		values[i] = int(b)
	}
	c.Send(TypeSerialSend, command, map[string]interface{}{
		"data": values,
		"hex":  ircam.FormatHex(frame),
	})
}

// SerialReceive implements ircam.Sink
func (c *Client) SerialReceive(data string) {
	c.Send(TypeSerialRecv, "Serial data received", map[string]interface{}{
		"raw":    data,
		"length": len(data),
	})
}

// CommandChain implements ircam.Sink
func (c *Client) CommandChain(origin string, steps []ircam.Step) {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.String()
	}
	c.Send(TypeCommandChain, origin, map[string]interface{}{"commands": names})
}

// Error implements ircam.Sink
func (c *Client) Error(message string, data map[string]interface{}) {
	var d interface{}
	if data != nil {
		d = data
	}
	c.Send(TypeError, message, d)
}

var _ ircam.Sink = (*Client)(nil)
