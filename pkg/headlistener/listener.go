// Copyright 2025 Certen Protocol
//
// Package headlistener subscribes to the source chain's head event stream
// and delivers parsed HeadEvents to the Control Loop over a bounded
// channel. Run-loop shape (stopCh/doneCh, state, mutex-guarded) follows
// pkg/batch.Scheduler; connection handling follows pkg/ethereum.Client's
// context-aware-client idiom, generalized to a long-lived SSE stream.

package headlistener

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/certen/beacon-relay/pkg/beacon"
)

// State mirrors pkg/batch.SchedulerState's vocabulary for a long-running
// background component.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Listener consumes GET /eth/v1/events?topics=head and delivers parsed
// events to Events(). Backpressure: Events is bounded; when full, Listener
// blocks rather than dropping events, because the Control Loop is fast
// relative to slot cadence (§4.2).
type Listener struct {
	mu sync.RWMutex

	baseURL string
	http    *http.Client
	events  chan beacon.HeadEvent

	state  State
	stopCh chan struct{}
	doneCh chan struct{}

	// lastObserved is exposed through LastObserved without touching the
	// Control Loop's channel.
	lastObserved *beacon.HeadEvent

	logger *log.Logger
}

// New constructs a Listener against baseURL (BEACON_RPC_URL), with an
// Events channel of the given buffer size.
func New(baseURL string, bufferSize int) *Listener {
	return &Listener{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{}, // no timeout: this is a long-lived stream
		events:  make(chan beacon.HeadEvent, bufferSize),
		state:   StateStopped,
		logger:  log.New(log.Writer(), "[HeadListener] ", log.LstdFlags),
	}
}

// Events returns the channel the Control Loop reads from.
func (l *Listener) Events() <-chan beacon.HeadEvent {
	return l.events
}

// LastObserved returns the most recently delivered event, or nil if none
// has arrived yet.
func (l *Listener) LastObserved() *beacon.HeadEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastObserved
}

// Start begins the connect-stream-reconnect loop in a background goroutine.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	if l.state == StateRunning {
		l.mu.Unlock()
		return
	}
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.state = StateRunning
	l.mu.Unlock()

	go l.run(ctx)
}

// Stop signals the run loop to exit and waits for it to finish.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.state != StateRunning {
		l.mu.Unlock()
		return
	}
	close(l.stopCh)
	l.state = StateStopped
	l.mu.Unlock()

	<-l.doneCh
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.doneCh)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		default:
		}

		err := l.streamOnce(ctx)
		if err == nil {
			// Stream ended cleanly (EOF); reset backoff and reconnect.
			backoff = initialBackoff
			continue
		}

		l.logger.Printf("stream error: %v; reconnecting in %s", err, backoff)
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// streamOnce opens one connection to the head event stream and delivers
// events until the stream ends or an error occurs.
func (l *Listener) streamOnce(ctx context.Context) error {
	// Cancel the request when Stop is called, so a read blocked on an idle
	// stream returns instead of holding up Stop.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.stopCh:
			cancel()
		case <-streamCtx.Done():
		}
	}()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, l.baseURL+"/eth/v1/events?topics=head", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := l.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("head event stream: unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		event, err := parseHeadEvent(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		if err != nil {
			l.logger.Printf("dropping malformed head frame: %v", err)
			continue
		}

		l.mu.Lock()
		l.lastObserved = event
		l.mu.Unlock()

		// Blocks rather than drops on backpressure, per §4.2.
		select {
		case l.events <- *event:
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		}
	}

	return scanner.Err()
}

func parseHeadEvent(raw string) (*beacon.HeadEvent, error) {
	var body struct {
		Slot            string `json:"slot"`
		Block           string `json:"block"`
		EpochTransition bool   `json:"epoch_transition"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, fmt.Errorf("parse head event: %w", err)
	}

	slot, err := strconv.ParseInt(body.Slot, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse head event slot: %w", err)
	}

	return &beacon.HeadEvent{
		Slot:            slot,
		Block:           body.Block,
		EpochTransition: body.EpochTransition,
	}, nil
}
