package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// ErrUnknownEngine is returned by FetchWith for an unregistered engine name.
var ErrUnknownEngine = errors.New("engine: unknown engine")

// Observer receives the outcome of every engine attempt. Implementations
// must be safe for concurrent use.
type Observer interface {
	Fetched(engine string, err error)
}

// Dispatcher coordinates multi-engine racing with staged escalation.
// It starts the first engine immediately and progressively starts the others
// if earlier ones fail or are slow.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
	limiter          *HostLimiter
	observer         Observer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHostLimiter throttles every dispatched fetch per host.
func WithHostLimiter(l *HostLimiter) DispatcherOption {
	return func(d *Dispatcher) { d.limiter = l }
}

// WithObserver reports every engine attempt to o.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) { d.observer = o }
}

// NewDispatcher creates a Dispatcher with the given engines and escalation delays.
// engines[i] starts after escalationDelays[i] from the race beginning; missing
// delays default to 0.
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory, opts ...DispatcherOption) *Dispatcher {
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	d := &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Names lists the registered engines in escalation order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// FetchWith fetches with the named engine only, bypassing the race and
// domain memory.
func (d *Dispatcher) FetchWith(ctx context.Context, name string, req *FetchRequest) (*FetchResult, error) {
	for _, eng := range d.engines {
		if eng.Name() != name {
			continue
		}
		if err := d.limiter.Wait(ctx, extractDomain(req.URL)); err != nil {
			return nil, err
		}
		return d.fetch(ctx, eng, req)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

// Dispatch runs the multi-engine race for the given request and returns
// the first successful result. If all engines fail, it returns the last error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	domain := extractDomain(req.URL)
	if err := d.limiter.Wait(ctx, domain); err != nil {
		return nil, err
	}

	// Check domain memory for a previously successful engine.
	if remembered := d.memory.Get(domain); remembered != "" {
		for _, eng := range d.engines {
			if eng.Name() != remembered {
				continue
			}
			slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
			result, err := d.fetch(ctx, eng, req)
			if err == nil {
				return result, nil
			}
			if ctx.Err() != nil {
				return nil, err
			}
			slog.Info("domain memory miss (engine failed), running full race",
				"domain", domain, "engine", remembered, "error", err)
			d.memory.Delete(domain)
			break
		}
	}

	return d.race(ctx, req, domain)
}

func (d *Dispatcher) fetch(ctx context.Context, eng Engine, req *FetchRequest) (*FetchResult, error) {
	result, err := eng.Fetch(ctx, req)
	if d.observer != nil {
		d.observer.Fetched(eng.Name(), err)
	}
	return result, err
}

// race runs all engines with staged delays and returns the first success.
func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, domain string) (*FetchResult, error) {
	type raceResult struct {
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	results := make(chan raceResult, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		delay := d.escalationDelays[i]
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}

			// Another engine may already have won.
			if raceCtx.Err() != nil {
				return
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := d.fetch(raceCtx, e, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{result: result, err: err}
		}(eng, delay)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = rr.err
			continue
		}
		raceCancel()
		slog.Info("engine won race", "engine", rr.result.EngineName, "url", req.URL)
		d.memory.Set(domain, rr.result.EngineName)
		return rr.result, nil
	}

	if lastErr == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, lastErr
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
