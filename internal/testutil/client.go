// Package testutil holds in-memory connection handles for realtime tests.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrPushRefused = errors.New("push refused")

// FakeClient is a contracts.Client that records every frame it is sent.
type FakeClient struct {
	id     string
	userID string

	mu     sync.Mutex
	frames [][]byte
	closed bool
	block  bool
	fail   bool
	notify chan struct{}
}

func NewFakeClient(userID string) *FakeClient {
	return &FakeClient{
		id:     uuid.NewString(),
		userID: userID,
		notify: make(chan struct{}, 1024),
	}
}

// Blocking makes Send hang until its context is cancelled, like a peer that stopped reading.
func (c *FakeClient) Blocking() *FakeClient {
	c.block = true
	return c
}

// Failing makes Send return an error immediately.
func (c *FakeClient) Failing() *FakeClient {
	c.fail = true
	return c
}

func (c *FakeClient) ID() string     { return c.id }
func (c *FakeClient) UserID() string { return c.userID }

func (c *FakeClient) Send(ctx context.Context, data []byte) error {
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if c.fail {
		return ErrPushRefused
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("client closed")
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

func (c *FakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *FakeClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *FakeClient) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

// Events decodes every recorded frame into a generic map.
func (c *FakeClient) Events() []map[string]any {
	var out []map[string]any
	for _, f := range c.Frames() {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// LastOfType returns the most recent event with the given "type" field.
func (c *FakeClient) LastOfType(kind string) (map[string]any, bool) {
	events := c.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i]["type"] == kind {
			return events[i], true
		}
	}
	return nil, false
}

// WaitFrames blocks until at least n frames were recorded or the timeout expires.
func (c *FakeClient) WaitFrames(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		c.mu.Lock()
		got := len(c.frames)
		c.mu.Unlock()
		if got >= n {
			return true
		}
		select {
		case <-c.notify:
		case <-deadline:
			return false
		}
	}
}

// Online extracts the roster from a presence.update event.
func Online(event map[string]any) []string {
	raw, _ := event["online"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
