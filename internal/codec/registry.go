package codec

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vrsandeep/squish-go/internal/models"
)

// DefaultLoadTimeout bounds a single backend load when no timeout is configured.
const DefaultLoadTimeout = 10 * time.Second

type entry struct {
	codec     Codec
	state     models.LoadState
	available bool
	lastErr   error
	// inflight is set while a backend Load call has not returned, including
	// one that was abandoned after its deadline.
	inflight bool
}

// Registry tracks the load state of every registered codec. A format's entry is
// owned by whichever caller moved it to loading; concurrent callers observe the
// loading state and return without issuing a second backend load. A load that
// timed out blocks new loads of its format until the backend call returns.
type Registry struct {
	mu      sync.Mutex
	entries map[models.Format]*entry
	order   []models.Format
	timeout time.Duration
}

// NewRegistry creates an empty registry. A non-positive timeout falls back to DefaultLoadTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Registry{
		entries: make(map[models.Format]*entry),
		timeout: timeout,
	}
}

// Register adds a codec. Registering two codecs for one format is a setup error and panics.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := c.Format()
	if _, exists := r.entries[f]; exists {
		panic(fmt.Sprintf("codec for format '%s' is already registered", f))
	}
	r.entries[f] = &entry{codec: c, state: models.LoadUninitiated}
	r.order = append(r.order, f)
}

// Codec returns the codec registered for a format.
func (r *Registry) Codec(f models.Format) (Codec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[f]
	if !ok {
		return nil, false
	}
	return e.codec, true
}

// Timeout returns the per-format load deadline.
func (r *Registry) Timeout() time.Duration { return r.timeout }

// EnsureLoaded reports whether the codec for f is available, loading it first if needed.
// It returns false without blocking when another caller is already loading f.
func (r *Registry) EnsureLoaded(ctx context.Context, f models.Format) bool {
	return r.ensureLoaded(ctx, f, r.timeout)
}

func (r *Registry) ensureLoaded(ctx context.Context, f models.Format, timeout time.Duration) bool {
	r.mu.Lock()
	e, ok := r.entries[f]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if e.available {
		r.mu.Unlock()
		return true
	}
	if e.state == models.LoadLoading || e.inflight {
		r.mu.Unlock()
		return false
	}
	prevState, prevErr := e.state, e.lastErr
	e.state = models.LoadLoading
	e.lastErr = nil
	e.inflight = true
	c := e.codec
	r.mu.Unlock()

	outcome, err := attemptLoad(ctx, c, timeout, func() {
		r.mu.Lock()
		e.inflight = false
		r.mu.Unlock()
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	switch outcome {
	case loadSucceeded:
		e.state = models.LoadAvailable
		e.available = true
		return true
	case loadAbandoned:
		// The caller went away; the backend has not failed.
		e.state = prevState
		e.lastErr = prevErr
		log.Printf("Codec %s load abandoned: %v", f, err)
		return false
	case loadTimedOut:
		log.Printf("Codec %s did not load within %s", f, timeout)
	default:
		log.Printf("Codec %s failed to load: %v", f, err)
	}
	e.state = models.LoadFailed
	e.available = false
	e.lastErr = err
	return false
}

// InitializeAll loads every registered codec concurrently, each bounded by timeout.
// Failures are isolated per format; the call returns once every attempt resolved.
func (r *Registry) InitializeAll(ctx context.Context, timeout time.Duration) map[models.Format]bool {
	if timeout <= 0 {
		timeout = r.timeout
	}
	formats := r.Formats()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[models.Format]bool, len(formats))
	)
	for _, f := range formats {
		wg.Add(1)
		go func(f models.Format) {
			defer wg.Done()
			ok := r.ensureLoaded(ctx, f, timeout)
			mu.Lock()
			results[f] = ok
			mu.Unlock()
		}(f)
	}
	wg.Wait()

	loaded := 0
	for _, ok := range results {
		if ok {
			loaded++
		}
	}
	log.Printf("Codec initialization finished: %d/%d available", loaded, len(formats))
	return results
}

// Reload retries a codec. Failed and uninitiated codecs go back through loading;
// an available codec is left untouched.
func (r *Registry) Reload(ctx context.Context, f models.Format) bool {
	return r.EnsureLoaded(ctx, f)
}

// RetryFailed retries every codec currently in the failed state and returns how many recovered.
func (r *Registry) RetryFailed(ctx context.Context) int {
	var failed []models.Format
	r.mu.Lock()
	for _, f := range r.order {
		if r.entries[f].state == models.LoadFailed {
			failed = append(failed, f)
		}
	}
	r.mu.Unlock()

	recovered := 0
	for _, f := range failed {
		if r.EnsureLoaded(ctx, f) {
			log.Printf("Codec %s recovered on retry", f)
			recovered++
		}
	}
	return recovered
}

// MarkUnavailable disables a codec after its runtime broke mid-use. The next
// EnsureLoaded call for the format attempts a fresh load.
func (r *Registry) MarkUnavailable(f models.Format, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[f]
	if !ok {
		return
	}
	e.available = false
	e.state = models.LoadFailed
	e.lastErr = cause
}

// Formats returns the registered formats in registration order.
func (r *Registry) Formats() []models.Format {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Format, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptor returns the current descriptor for one format.
func (r *Registry) Descriptor(f models.Format) (models.CodecDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[f]
	if !ok {
		return models.CodecDescriptor{}, false
	}
	return describe(f, e), true
}

// Descriptors returns a descriptor for every registered format.
func (r *Registry) Descriptors() []models.CodecDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CodecDescriptor, 0, len(r.order))
	for _, f := range r.order {
		out = append(out, describe(f, r.entries[f]))
	}
	return out
}

func describe(f models.Format, e *entry) models.CodecDescriptor {
	d := models.CodecDescriptor{
		Format:    f,
		LoadState: e.state,
		Available: e.available,
	}
	if e.lastErr != nil {
		d.LastError = e.lastErr.Error()
	}
	return d
}
