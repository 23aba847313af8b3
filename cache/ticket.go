package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-errors"
)

type ticketState int32

const (
	ticketPending ticketState = iota
	ticketDone
	ticketFailed
)

// flightResult is what a completed ticket broadcasts to its waiters.
type flightResult struct {
	entry *Entry
	stale bool
	err   error
}

// ticket tracks one in-flight computation. Exactly one ticket may exist per
// fingerprint at any instant; waiters suspend on the done channel and the
// close broadcasts completion to all of them at once.
type ticket struct {
	fingerprint string
	done        chan struct{}

	mu     sync.Mutex
	state  ticketState
	result flightResult

	waiters atomic.Int64
}

func newTicket(fingerprint string) *ticket {
	return &ticket{
		fingerprint: fingerprint,
		done:        make(chan struct{}),
	}
}

// resolve completes the ticket with a usable entry; stale marks a degraded
// fallback value. No-op if already completed.
func (t *ticket) resolve(entry *Entry, stale bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != ticketPending {
		return
	}
	t.state = ticketDone
	t.result = flightResult{entry: entry, stale: stale}
	close(t.done)
}

// fail completes the ticket with an error for every waiter.
func (t *ticket) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != ticketPending {
		return
	}
	t.state = ticketFailed
	t.result = flightResult{err: err}
	close(t.done)
}

// await suspends until the ticket completes, the waiter's own timeout fires,
// or the waiter's context is cancelled. Neither outcome affects the shared
// computation, which continues and still populates the cache.
func (t *ticket) await(ctx context.Context, timeout time.Duration) (flightResult, error) {
	t.waiters.Add(1)
	defer t.waiters.Add(-1)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		return t.result, nil
	case <-timer.C:
		return flightResult{}, errors.New(ErrComputeTimeout.Message, errors.CategoryOperation).
			WithTextCode(ErrComputeTimeout.TextCode).
			WithMetadata(map[string]any{"fingerprint": t.fingerprint, "timeout": timeout.String()})
	case <-ctx.Done():
		return flightResult{}, errors.Wrap(ctx.Err(), errors.CategoryOperation, "caller gone while waiting for computation")
	}
}

// waiterCount is a diagnostic for stats and tests.
func (t *ticket) waiterCount() int64 {
	return t.waiters.Load()
}

// ticketTable is the single point of mutual exclusion for single-flight:
// create-or-join is atomic under its lock.
type ticketTable struct {
	mu      sync.Mutex
	flights map[string]*ticket
}

func newTicketTable() *ticketTable {
	return &ticketTable{flights: make(map[string]*ticket)}
}

// acquire returns the ticket for the fingerprint and whether the caller
// became the owner (created it) or joined an existing flight.
func (tt *ticketTable) acquire(fingerprint string) (*ticket, bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if t, ok := tt.flights[fingerprint]; ok {
		return t, false
	}
	t := newTicket(fingerprint)
	tt.flights[fingerprint] = t
	return t, true
}

// remove destroys the ticket entry. The owner calls it before broadcasting
// completion, which keeps the at-most-one-ticket invariant while letting the
// next request start a fresh flight.
func (tt *ticketTable) remove(fingerprint string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	delete(tt.flights, fingerprint)
}

func (tt *ticketTable) inflight() int {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return len(tt.flights)
}

// waiters sums the callers currently suspended on in-flight computations.
func (tt *ticketTable) waiters() int64 {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	var total int64
	for _, t := range tt.flights {
		total += t.waiterCount()
	}
	return total
}
