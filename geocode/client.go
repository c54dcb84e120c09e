// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"log"
	"maps"
	"slices"
	"sync"
	"time"
)

// Defaults for ClientOptions zero values.
const (
	DefaultRetries = 3
	DefaultTimeout = 10 * time.Second
	DefaultBackoff = time.Second
)

// ClientOptions configuration for Client.
type ClientOptions struct {
	// Maximum number of attempts per location name
	Retries int

	// Per-attempt timeout
	Timeout time.Duration

	// Pause after a transient failure before the next attempt
	Backoff time.Duration

	// Optional persistent cache, preloaded at construction. Only results and
	// not-found answers are saved to it.
	Store CacheStore
}

// Stats tracks cache and remote usage of a Client.
type Stats struct {
	Hits     int // lookups answered from the cache
	Misses   int // lookups that reached the provider
	Attempts int // provider calls, including retries
	Failures int // misses that ended in a negative entry
}

// Entry is one cached lookup. A nil Result is a negative entry.
type Entry struct {
	Name   string  `json:"name"`
	Result *Result `json:"result"`
}

// Client memoizes a Geocoder by location name and retries transient
// failures. Entries, positive or negative, are never overwritten, so each
// distinct name triggers at most one attempt sequence per process.
// Client is safe for concurrent use.
type Client struct {
	provider Geocoder
	options  ClientOptions
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	entries  map[string]*Result
	inflight map[string]chan struct{}
	stats    Stats
}

// NewClient wraps provider. When options.Store is set its entries are
// loaded first; a failing store is logged and ignored.
func NewClient(ctx context.Context, provider Geocoder, options ClientOptions) *Client {
	if options.Retries <= 0 {
		options.Retries = DefaultRetries
	}

	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}

	if options.Backoff <= 0 {
		options.Backoff = DefaultBackoff
	}

	c := &Client{
		provider: provider,
		options:  options,
		sleep:    sleepContext,
		entries:  make(map[string]*Result),
		inflight: make(map[string]chan struct{}),
	}

	if options.Store != nil {
		entries, err := options.Store.LoadEntries(ctx)
		if err != nil {
			log.Printf("Loading geocode cache failed, starting empty - %s", err)
		}

		for _, e := range entries {
			c.entries[e.Name] = e.Result
		}
	}

	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Geocode resolves name, or returns nil when the place is unknown or the
// provider kept failing. It never returns an error; a canceled ctx yields nil
// without caching anything.
func (c *Client) Geocode(ctx context.Context, name string) *Result {
	for {
		c.mu.Lock()

		if r, ok := c.entries[name]; ok {
			c.stats.Hits++
			c.mu.Unlock()

			return r.clone()
		}

		if wait, ok := c.inflight[name]; ok {
			c.mu.Unlock()

			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		done := make(chan struct{})
		c.inflight[name] = done
		c.stats.Misses++
		c.mu.Unlock()

		result, final, durable := c.lookup(ctx, name)

		c.mu.Lock()
		delete(c.inflight, name)

		stored := final && c.putLocked(name, result)

		c.mu.Unlock()
		close(done)

		if stored && durable {
			c.persist(ctx, name, result)
		}

		return result.clone()
	}
}

// lookup runs the bounded retry loop. final is false when ctx ended the loop
// early, in which case nothing must be cached. durable is true only for
// answers that may outlive the process: results and definitive not-found.
// Negatives caused by outages, quota or bad requests stay in memory.
func (c *Client) lookup(ctx context.Context, name string) (result *Result, final, durable bool) {
	var lastErr error

	for attempt := 1; attempt <= c.options.Retries; attempt++ {
		c.mu.Lock()
		c.stats.Attempts++
		c.mu.Unlock()

		r, err := c.attempt(ctx, name)
		if err == nil {
			return r, true, true
		}

		if ctx.Err() != nil {
			return nil, false, false
		}

		lastErr = err
		if !IsTransient(err) {
			if IsNotFoundError(err) {
				return nil, true, true
			}

			log.Printf("Geocoding failed for %q - %s", name, err)

			return nil, true, false
		}

		if attempt < c.options.Retries {
			if err := c.sleep(ctx, c.options.Backoff); err != nil {
				return nil, false, false
			}
		}
	}

	log.Printf("Geocoding failed for %q after %d attempts - %s", name, c.options.Retries, lastErr)

	c.mu.Lock()
	c.stats.Failures++
	c.mu.Unlock()

	return nil, true, false
}

func (c *Client) attempt(ctx context.Context, name string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.options.Timeout)
	defer cancel()

	result, err := c.provider.Geocode(ctx, name)
	if err != nil {
		return nil, err
	}

	if result == nil {
		return nil, notFound(name)
	}

	return result, nil
}

// putLocked stores the first answer for name; later ones are dropped.
func (c *Client) putLocked(name string, result *Result) bool {
	if _, ok := c.entries[name]; ok {
		return false
	}

	c.entries[name] = result

	return true
}

func (c *Client) persist(ctx context.Context, name string, result *Result) {
	if c.options.Store == nil {
		return
	}

	if err := c.options.Store.SaveEntry(context.WithoutCancel(ctx), Entry{Name: name, Result: result}); err != nil {
		log.Printf("Persisting geocode cache entry %q failed - %s", name, err)
	}
}

// Lookup returns the cached entry for name without contacting the provider.
// ok is false when name was never looked up; a nil Result with ok true is a
// negative entry.
func (c *Client) Lookup(name string) (result *Result, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.entries[name]

	return r.clone(), ok
}

// Entries returns every cached entry sorted by name.
func (c *Client) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := slices.Sorted(maps.Keys(c.entries))
	out := make([]Entry, len(names))

	for i, name := range names {
		out[i] = Entry{Name: name, Result: c.entries[name].clone()}
	}

	return out
}

// Stats returns a snapshot of the usage counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}
