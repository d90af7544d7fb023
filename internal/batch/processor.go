// Package batch tracks the session worklist and compresses its items one at a
// time, publishing the full worklist to observers after every transition.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/vrsandeep/squish-go/internal/models"
)

// ErrAlreadyRunning is returned when a batch is started while another is in flight.
// The call has no effect on the worklist.
var ErrAlreadyRunning = errors.New("a batch is already running")

// Compressor compresses a single image.
type Compressor interface {
	Compress(ctx context.Context, src []byte, format models.Format, quality int) (*models.CompressionResult, error)
}

// Summary describes the outcome of one batch run.
type Summary struct {
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Skipped   int                   `json:"skipped"`
	Canceled  bool                  `json:"canceled"`
	Items     []models.ItemSnapshot `json:"items"`
}

// Processor runs batches over a worklist with a concurrency of one.
type Processor struct {
	mu       sync.Mutex
	running  bool
	worklist *Worklist
	engine   Compressor
}

// NewProcessor creates a processor for the worklist.
func NewProcessor(worklist *Worklist, engine Compressor) *Processor {
	return &Processor{worklist: worklist, engine: engine}
}

// Worklist returns the worklist the processor drains.
func (p *Processor) Worklist() *Worklist { return p.worklist }

// Running reports whether a batch is in flight.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ProcessAll compresses every pending or queued item in worklist order.
// Completed and failed items are left alone.
func (p *Processor) ProcessAll(ctx context.Context, format models.Format, quality int) (Summary, error) {
	return p.Process(ctx, nil, format, quality)
}

// Process compresses the given items, or every eligible item when ids is nil.
// Items are compressed strictly one after another. A failed item is recorded on
// the item and never stops the batch. Cancelling ctx stops the batch before the
// next item starts; queued items keep their state and are picked up by the next run.
func (p *Processor) Process(ctx context.Context, ids []string, format models.Format, quality int) (Summary, error) {
	c, err := p.Claim()
	if err != nil {
		return Summary{}, err
	}
	defer c.Release()
	return c.Process(ctx, ids, format, quality), nil
}

// Claim holds the processor's single batch slot.
type Claim struct {
	p    *Processor
	once sync.Once
}

// Claim takes the batch slot without compressing anything, so a caller can
// report ErrAlreadyRunning synchronously and run the batch later. The slot is
// held until Release.
func (p *Processor) Claim() (*Claim, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil, ErrAlreadyRunning
	}
	p.running = true
	return &Claim{p: p}, nil
}

// Process runs one batch under the claim. It must not be called after Release.
func (c *Claim) Process(ctx context.Context, ids []string, format models.Format, quality int) Summary {
	return c.p.run(ctx, ids, format, quality)
}

// Release frees the batch slot. Calling it more than once is harmless.
func (c *Claim) Release() {
	c.once.Do(func() {
		c.p.mu.Lock()
		c.p.running = false
		c.p.mu.Unlock()
	})
}

func (p *Processor) run(ctx context.Context, ids []string, format models.Format, quality int) Summary {
	work, skipped := p.selectWork(ids)
	summary := Summary{Skipped: skipped}
	if len(work) == 0 {
		return summary
	}

	log.Printf("Starting batch: %d images to %s at quality %d", len(work), format, quality)
	for _, id := range work {
		if err := p.worklist.markQueued(id); err != nil && !errors.Is(err, ErrInvalidTransition) {
			log.Printf("Could not queue image %s: %v", id, err)
		}
	}

	for _, id := range work {
		if ctx.Err() != nil {
			summary.Canceled = true
			break
		}
		snap, ok := p.processOne(ctx, id, format, quality)
		if !ok {
			continue
		}
		if snap.Status == models.StatusComplete {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Items = append(summary.Items, snap)
	}

	log.Printf("Finished batch: %d succeeded, %d failed, %d skipped", summary.Succeeded, summary.Failed, summary.Skipped)
	return summary
}

// selectWork returns the ids to compress and the number of requested ids skipped.
func (p *Processor) selectWork(ids []string) ([]string, int) {
	eligible := p.worklist.idsWithStatus(models.StatusPending, models.StatusQueued)
	if ids == nil {
		return eligible, p.worklist.Len() - len(eligible)
	}
	allowed := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		allowed[id] = true
	}
	var work []string
	skipped := 0
	for _, id := range ids {
		if allowed[id] {
			work = append(work, id)
			delete(allowed, id)
		} else {
			skipped++
		}
	}
	return work, skipped
}

// processOne drives a single item through processing to a terminal state.
// It returns false when the item vanished or could not enter processing.
func (p *Processor) processOne(ctx context.Context, id string, format models.Format, quality int) (models.ItemSnapshot, bool) {
	src, err := p.worklist.markProcessing(id)
	if err != nil {
		log.Printf("Skipping image %s: %v", id, err)
		return models.ItemSnapshot{}, false
	}

	// An item that has started runs to completion even if the batch is cancelled.
	res, err := p.compress(context.WithoutCancel(ctx), src, format, quality)
	if err != nil {
		log.Printf("Image %s failed: %v", id, err)
		err = p.worklist.markError(id, format, err.Error())
	} else {
		err = p.worklist.markComplete(id, format, res)
	}
	if err != nil {
		// The item was removed while it was being compressed.
		log.Printf("Discarding result for image %s: %v", id, err)
		return models.ItemSnapshot{}, false
	}

	item, ok := p.worklist.Get(id)
	if !ok {
		return models.ItemSnapshot{}, false
	}
	return item.Snapshot(), true
}

func (p *Processor) compress(ctx context.Context, src []byte, format models.Format, quality int) (res *models.CompressionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("compression panicked: %v", r)
		}
	}()
	return p.engine.Compress(ctx, src, format, quality)
}
