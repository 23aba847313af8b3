package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-errors"
)

// staleFetchTimeout bounds the durable-tier lookup for a stale fallback
// after a failed computation.
const staleFetchTimeout = 5 * time.Second

// ComputeFunc produces the analysis payload for a scope on a cache miss.
type ComputeFunc func(ctx context.Context) (json.RawMessage, error)

// Logger is the minimal logging surface the orchestrator needs; any
// structured logger with slog-style variadic attrs satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options tune a single GetOrCompute call.
type Options struct {
	// TTL overrides the orchestrator default for this entry. Zero means use
	// the default.
	TTL time.Duration
	// ForceRefresh bypasses both read tiers; the recomputed value still goes
	// through single-flight and is written back.
	ForceRefresh bool
	// WaitTimeout overrides the per-waiter default for this call.
	WaitTimeout time.Duration
}

// Stats is a point-in-time snapshot of orchestrator counters.
type Stats struct {
	MemoryHits      uint64 `json:"memory_hits"`
	DurableHits     uint64 `json:"durable_hits"`
	Misses          uint64 `json:"misses"`
	Computations    uint64 `json:"computations"`
	ComputeFailures uint64 `json:"compute_failures"`
	StaleServed     uint64 `json:"stale_served"`
	JoinedFlights   uint64 `json:"joined_flights"`
	Invalidations   uint64 `json:"invalidations"`
	InFlight        int    `json:"in_flight"`
	Waiters         int64  `json:"waiters"`
	MemoryEntries   int    `json:"memory_entries"`
}

// Orchestrator coordinates the two cache tiers with single-flight
// recomputation. All methods are safe for concurrent use.
type Orchestrator struct {
	memory  *MemoryTier
	durable DurableTier
	tickets *ticketTable

	epochMu sync.Mutex
	epochs  map[string]uint64

	defaultTTL     time.Duration
	waitTimeout    time.Duration
	computeTimeout time.Duration
	staleRetention time.Duration

	logger Logger
	now    func() time.Time

	memoryHits      atomic.Uint64
	durableHits     atomic.Uint64
	misses          atomic.Uint64
	computations    atomic.Uint64
	computeFailures atomic.Uint64
	staleServed     atomic.Uint64
	joinedFlights   atomic.Uint64
	invalidations   atomic.Uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(l Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDefaultTTL sets the logical TTL applied when a call does not override it.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.defaultTTL = ttl
		}
	}
}

// WithWaitTimeout sets how long a joining caller waits on an in-flight
// computation before giving up.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.waitTimeout = d
		}
	}
}

// WithComputeTimeout bounds the computation itself. Zero leaves it unbounded.
func WithComputeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.computeTimeout = d
	}
}

// WithStaleRetention sets how long past its logical TTL an entry stays in
// the durable tier as a stale-fallback candidate.
func WithStaleRetention(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.staleRetention = d
		}
	}
}

// WithMemoryHorizon caps how long entries live in the in-process tier.
func WithMemoryHorizon(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.memory = NewMemoryTier(d)
	}
}

func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New builds an orchestrator over the given durable tier.
func New(durable DurableTier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		memory:         NewMemoryTier(5 * time.Minute),
		durable:        durable,
		tickets:        newTicketTable(),
		epochs:         make(map[string]uint64),
		defaultTTL:     7 * 24 * time.Hour,
		waitTimeout:    30 * time.Second,
		staleRetention: 24 * time.Hour,
		logger:         noopLogger{},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetOrCompute returns the cached payload for the scope, or computes it
// exactly once across all concurrent callers of the same fingerprint.
//
// Backend failures on the durable tier degrade to compute-without-caching;
// compute failures fall back to a logically expired entry when one survives,
// marked Stale.
func (o *Orchestrator) GetOrCompute(ctx context.Context, key ScopeKey, opts Options, fn ComputeFunc) (Result, error) {
	fingerprint := key.Fingerprint()
	now := o.now()

	var staleCandidate *Entry

	if !opts.ForceRefresh {
		if entry := o.memory.Get(fingerprint, now); entry != nil {
			o.memoryHits.Add(1)
			return hitResult(entry), nil
		}

		epoch := o.epochSnapshot(fingerprint)
		entry, err := o.durable.Get(ctx, fingerprint)
		switch {
		case err != nil:
			o.logger.Warn("durable tier read failed, degrading to compute",
				"fingerprint", fingerprint, "error", err)
		case entry != nil && entry.PipelineVersion != key.Version():
			// Written by an older pipeline; ignore entirely.
		case entry != nil && !entry.Expired(now):
			o.durableHits.Add(1)
			// Skip the backfill when the scope was invalidated while the read
			// was in flight; a stale value must not re-enter the memory tier.
			if o.epochSnapshot(fingerprint) == epoch {
				o.memory.Set(entry, key.DimensionTags(), now)
			}
			return hitResult(entry), nil
		case entry != nil:
			staleCandidate = entry
		}
	}

	o.misses.Add(1)

	t, owner := o.tickets.acquire(fingerprint)
	if !owner {
		o.joinedFlights.Add(1)
		waitTimeout := o.waitTimeout
		if opts.WaitTimeout > 0 {
			waitTimeout = opts.WaitTimeout
		}
		res, err := t.await(ctx, waitTimeout)
		if err != nil {
			return Result{}, err
		}
		if res.err != nil {
			return Result{}, res.err
		}
		if res.stale {
			o.staleServed.Add(1)
		}
		return Result{
			Payload:    res.entry.Payload,
			ComputedAt: res.entry.ComputedAt,
			Stale:      res.stale,
		}, nil
	}

	return o.runFlight(ctx, key, fingerprint, opts, fn, t, staleCandidate)
}

// runFlight executes the computation as the flight owner and broadcasts the
// outcome. The ticket is removed from the table before resolution so the
// next request after completion starts a fresh flight.
func (o *Orchestrator) runFlight(ctx context.Context, key ScopeKey, fingerprint string, opts Options, fn ComputeFunc, t *ticket, staleCandidate *Entry) (Result, error) {
	epoch := o.epochSnapshot(fingerprint)
	o.computations.Add(1)

	// The computation is shared across waiters, so the owner's disconnect
	// must not kill it. It runs detached from the caller's cancellation,
	// bounded only by the compute timeout.
	computeCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if o.computeTimeout > 0 {
		computeCtx, cancel = context.WithTimeout(computeCtx, o.computeTimeout)
	}
	defer cancel()

	payload, err := fn(computeCtx)
	if err != nil {
		o.computeFailures.Add(1)
		if staleCandidate == nil {
			// computeCtx may already be past its deadline when the failure was
			// the compute timeout itself, so the fallback read gets its own
			// short-lived context.
			staleCtx, staleCancel := context.WithTimeout(context.WithoutCancel(ctx), staleFetchTimeout)
			staleCandidate = o.fetchStale(staleCtx, fingerprint, key.Version())
			staleCancel()
		}
		if staleCandidate != nil {
			o.staleServed.Add(1)
			o.logger.Warn("computation failed, serving stale entry",
				"fingerprint", fingerprint,
				"computed_at", staleCandidate.ComputedAt,
				"error", err)
			o.tickets.remove(fingerprint)
			t.resolve(staleCandidate, true)
			return Result{
				Payload:    staleCandidate.Payload,
				ComputedAt: staleCandidate.ComputedAt,
				Stale:      true,
			}, nil
		}

		failure := errors.Wrap(err, errors.CategoryInternal, ErrComputeFailed.Message).
			WithTextCode(ErrComputeFailed.TextCode).
			WithMetadata(map[string]any{"fingerprint": fingerprint})
		o.tickets.remove(fingerprint)
		t.fail(failure)
		return Result{}, failure
	}

	now := o.now()
	ttl := o.defaultTTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	entry := &Entry{
		Fingerprint:     fingerprint,
		Payload:         payload,
		ComputedAt:      now,
		TTLExpiresAt:    now.Add(ttl),
		PipelineVersion: key.Version(),
	}

	if o.epochSnapshot(fingerprint) == epoch {
		tags := key.DimensionTags()
		if err := o.durable.Set(computeCtx, entry, ttl+o.staleRetention, tags); err != nil {
			o.logger.Warn("durable tier write failed, serving uncached result",
				"fingerprint", fingerprint, "error", err)
		}
		o.memory.Set(entry, tags, now)
	} else {
		o.logger.Info("scope invalidated during computation, discarding write",
			"fingerprint", fingerprint)
	}

	o.tickets.remove(fingerprint)
	t.resolve(entry, false)
	return Result{Payload: entry.Payload, ComputedAt: entry.ComputedAt}, nil
}

// fetchStale retrieves a logically expired entry still inside its retention
// window, for use as a compute-failure fallback.
func (o *Orchestrator) fetchStale(ctx context.Context, fingerprint string, version int) *Entry {
	entry, err := o.durable.Get(ctx, fingerprint)
	if err != nil || entry == nil || entry.PipelineVersion != version {
		return nil
	}
	return entry
}

func (o *Orchestrator) epochSnapshot(fingerprint string) uint64 {
	o.epochMu.Lock()
	defer o.epochMu.Unlock()
	return o.epochs[fingerprint]
}

func (o *Orchestrator) bumpEpochs(fingerprints []string) {
	o.epochMu.Lock()
	defer o.epochMu.Unlock()
	for _, fp := range fingerprints {
		o.epochs[fp]++
	}
}

// Stats snapshots the orchestrator counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		MemoryHits:      o.memoryHits.Load(),
		DurableHits:     o.durableHits.Load(),
		Misses:          o.misses.Load(),
		Computations:    o.computations.Load(),
		ComputeFailures: o.computeFailures.Load(),
		StaleServed:     o.staleServed.Load(),
		JoinedFlights:   o.joinedFlights.Load(),
		Invalidations:   o.invalidations.Load(),
		InFlight:        o.tickets.inflight(),
		Waiters:         o.tickets.waiters(),
		MemoryEntries:   o.memory.Len(),
	}
}

// Ping reports durable-tier connectivity.
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.durable.Ping(ctx)
}

func hitResult(entry *Entry) Result {
	return Result{
		Payload:    entry.Payload,
		ComputedAt: entry.ComputedAt,
		CacheHit:   true,
	}
}
