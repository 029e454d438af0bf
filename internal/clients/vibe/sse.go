package vibe

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// maxSSERetries bounds the reconnect loop (spec §4.9: capped exponential
// backoff, <=10 retries). Once they are used up, Stream sends a Transient
// error on its error channel and stops; there is no polling fallback.
const maxSSERetries = 10

// sseHeartbeatTimeout is the "stale" threshold of the connection state
// machine in spec §4.9 (disconnected -> connecting -> connected -> stale ->
// disconnected): no line at all — data or a ":"-prefixed keepalive comment —
// within this long forces a reconnect, since a half-open TCP stream can stop
// emitting data without the read ever erroring or hitting EOF on its own.
// A var, not a const, so tests can shrink it instead of waiting out the
// production timeout.
var sseHeartbeatTimeout = 45 * time.Second

// StreamEvent is a single decoded SSE "data:" payload, already shaped as the
// patch op the controller (C6) understands.
type StreamEvent struct {
	Patch types.EventPatch
}

// Stream connects to Vibe Kanban's SSE endpoint and delivers decoded events
// on the returned channel until ctx is canceled or the retry budget is
// exhausted. No SSE client library appears anywhere in the retrieval pack,
// so this reader is hand-rolled stdlib (bufio.Scanner over a "text/event-
// stream" body) — see DESIGN.md for that justification.
func (c *Client) Stream(ctx context.Context, projectID string) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		attempt := 0
		for {
			if ctx.Err() != nil {
				return
			}
			err := c.streamOnce(ctx, projectID, events)
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				// Server closed the stream cleanly; treat as reconnect-worthy.
				err = fmt.Errorf("sse stream closed")
			}
			attempt++
			if attempt > maxSSERetries {
				errs <- types.NewTrackerError(types.ErrKindTransient, "Stream", fmt.Errorf("exceeded %d reconnect attempts: %w", maxSSERetries, err))
				return
			}
			delay := backoffDelay(attempt)
			slog.Warn("vibe sse disconnected, reconnecting", "project", projectID, "attempt", attempt, "delay", delay, "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}()

	return events, errs
}

// backoffDelay is 1,2,4,8,16s capped at 16s, plus up to 20% jitter.
func backoffDelay(attempt int) time.Duration {
	base := 1 << (attempt - 1)
	if base > 16 {
		base = 16
	}
	d := time.Duration(base) * time.Second
	jitter := time.Duration(rand.Int63n(int64(d) / 5))
	return d + jitter
}

func (c *Client) streamOnce(ctx context.Context, projectID string, events chan<- StreamEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/events?project_id=%s", c.URL, projectID), nil)
	if err != nil {
		return fmt.Errorf("build sse request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sse connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sse connect: unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// scanner.Scan() blocks on the underlying read with no deadline of its
	// own, so a half-open connection that stops emitting anything — without
	// the TCP stream actually closing — would hang this goroutine forever.
	// Running the scan on a separate goroutine lets the select below race
	// it against a heartbeat timer and force a reconnect by closing the
	// response body out from under it.
	lines := make(chan string)
	scanDone := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanDone <- scanner.Err()
	}()

	timer := time.NewTimer(sseHeartbeatTimeout)
	defer timer.Stop()

	var dataLines []string
	flush := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]
		var patch types.EventPatch
		if err := json.Unmarshal([]byte(payload), &patch); err != nil {
			slog.Warn("vibe sse: skipping undecodable event", "err", err)
			return nil
		}
		select {
		case events <- StreamEvent{Patch: patch}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				if err := flush(); err != nil {
					return err
				}
				return <-scanDone
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(sseHeartbeatTimeout)

			switch {
			case line == "":
				if err := flush(); err != nil {
					return err
				}
			case strings.HasPrefix(line, "data:"):
				dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			case strings.HasPrefix(line, ":"):
				// comment/keepalive line: no payload, but it still counts as a
				// heartbeat and already reset the timer above.
			default:
				// event:/id:/retry: fields are not needed by the controller
			}

		case <-timer.C:
			_ = resp.Body.Close()
			return fmt.Errorf("sse stream stale: no heartbeat within %s", sseHeartbeatTimeout)

		case <-ctx.Done():
			_ = resp.Body.Close()
			return ctx.Err()
		}
	}
}
