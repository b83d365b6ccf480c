package sources

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DispatcherOptions groups dependencies for a Dispatcher.
type DispatcherOptions struct {
	// HTTPClient is shared by all adapters; defaults to a 30s-timeout client.
	HTTPClient *http.Client
	// Cache optionally short-circuits repeat lookups. Nil disables caching.
	Cache LookupCache
	// CacheTTL bounds how long a cached payload may serve; defaults to 1h.
	CacheTTL time.Duration
}

// Dispatcher builds the Verifier for a source spec. New jurisdictions are added
// by extending the registry's spec table, never by branching in the job runner.
type Dispatcher struct {
	http     *http.Client
	cache    LookupCache
	cacheTTL time.Duration

	// Per-source semaphores for rate-sensitive sites (Spec.Concurrency > 0).
	// Shared across runs so the cap holds process-wide.
	mu   sync.Mutex
	sems map[string]chan struct{}
}

// NewDispatcher constructs a Dispatcher with the given options.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Dispatcher{
		http:     client,
		cache:    opts.Cache,
		cacheTTL: ttl,
		sems:     make(map[string]chan struct{}),
	}
}

// VerifierFor returns the adapter for a source spec, capped to the spec's
// per-source concurrency and wrapped with the lookup cache when one is
// configured. The cache sits outermost so a cache hit never consumes a slot.
//
//nolint:ireturn // the adapter family is selected at runtime from the source Spec
func (d *Dispatcher) VerifierFor(spec *Spec) (Verifier, error) {
	if spec == nil {
		return nil, UnsupportedError("no source spec")
	}

	var inner Verifier
	switch spec.Kind {
	case KindAPI:
		inner = newAPIVerifier(*spec, d.http)
	case KindScrape:
		inner = newScrapeVerifier(*spec, d.http)
	default:
		return nil, UnsupportedError(fmt.Sprintf("unknown source kind %q", spec.Kind))
	}

	if spec.Concurrency > 0 {
		inner = &limitedVerifier{inner: inner, sem: d.semFor(spec.SourceID, spec.Concurrency)}
	}
	if d.cache == nil {
		return inner, nil
	}
	return newCachedVerifier(inner, d.cache, d.cacheTTL), nil
}

func (d *Dispatcher) semFor(sourceID string, n int) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sem, ok := d.sems[sourceID]; ok {
		return sem
	}
	sem := make(chan struct{}, n)
	d.sems[sourceID] = sem
	return sem
}

// limitedVerifier bounds in-flight lookups against one source. Waiting for a
// slot still honors cancellation, reported as a transient failure so the
// license retries on the next run.
type limitedVerifier struct {
	inner Verifier
	sem   chan struct{}
}

func (v *limitedVerifier) SourceID() string { return v.inner.SourceID() }

func (v *limitedVerifier) Lookup(ctx context.Context, identity Identity) (*LookupResult, error) {
	select {
	case v.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, TransientError("waiting for source slot", ctx.Err())
	}
	defer func() { <-v.sem }()
	return v.inner.Lookup(ctx, identity)
}
