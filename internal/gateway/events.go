package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"degradation_monitor/internal/models"

	"github.com/cenkalti/backoff/v4"
)

const (
	opSubscribe = "subscribe"

	eventsPath   = "/events"
	eventBuffer  = 16
	maxEventLine = 64 * 1024

	// reconnectedData marks the synthetic update emitted after a reconnect,
	// since notifications may have been missed while disconnected.
	reconnectedData = "reconnected"
)

var errStreamClosed = errors.New("event stream closed by server")

type reconnectPolicy struct {
	initial time.Duration
	max     time.Duration
}

var defaultReconnect = reconnectPolicy{initial: 500 * time.Millisecond, max: 30 * time.Second}

func (p reconnectPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initial
	b.MaxInterval = p.max
	b.MaxElapsedTime = 0 // retry until the context ends
	b.Reset()
	return b
}

// Subscribe opens the server-push channel and returns a stream of events.
// The first connection is established synchronously so setup failures are
// reported to the caller. Afterwards the stream reconnects with exponential
// backoff. The channel is closed once ctx is done; cancelling ctx is the only
// way to release the subscription.
func (c *Client) Subscribe(ctx context.Context) (<-chan models.PushEvent, error) {
	body, err := c.openStream(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan models.PushEvent, eventBuffer)
	go c.pump(ctx, body, out)
	return out, nil
}

// Follow is Subscribe for long-running listeners: the first connection is
// retried with the same backoff as later reconnects instead of failing, so
// an analysis API that comes up late is still followed. The channel is
// closed once ctx is done.
func (c *Client) Follow(ctx context.Context) <-chan models.PushEvent {
	out := make(chan models.PushEvent, eventBuffer)
	go c.pump(ctx, nil, out)
	return out
}

// pump reads first, if any, then keeps reconnecting. Every connection after
// the first one is announced with a synthetic update.
func (c *Client) pump(ctx context.Context, first io.ReadCloser, out chan<- models.PushEvent) {
	defer close(out)

	connected := first != nil
	b := c.reconnect.backOff()
	op := func() error {
		stream := first
		first = nil
		if stream == nil {
			s, err := c.openStream(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(ctx.Err())
				}
				return err
			}
			stream = s
			b.Reset()
			if connected && !send(ctx, out, models.PushEvent{Name: models.PushEventDashboardUpdated, Data: reconnectedData}) {
				_ = stream.Close()
				return backoff.Permanent(ctx.Err())
			}
			connected = true
		}
		err := readEvents(ctx, stream, out)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if c.log != nil {
			c.log.Infow("push_channel_reconnecting", "err", err, "wait", wait, "ever_connected", connected)
		}
	}
	_ = backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

func (c *Client) openStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+eventsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opSubscribe, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opSubscribe, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, &StatusError{Op: opSubscribe, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp.Body, nil
}

// readEvents decodes text/event-stream frames from body until it ends. It
// always closes body and never returns nil. Frames are delivered as each
// terminating blank line arrives; sse.Decode buffers to EOF and cannot
// serve a stream that stays open.
func readEvents(ctx context.Context, body io.ReadCloser, out chan<- models.PushEvent) error {
	defer func() { _ = body.Close() }()

	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 4096), maxEventLine)

	var (
		name string
		data []string
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if name != "" || len(data) > 0 {
				ev := models.PushEvent{Name: name, Data: strings.Join(data, "\n")}
				if ev.Name == "" {
					ev.Name = "message"
				}
				if !send(ctx, out, ev) {
					return ctx.Err()
				}
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // comment / keep-alive
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errStreamClosed
}

func send(ctx context.Context, out chan<- models.PushEvent, ev models.PushEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
