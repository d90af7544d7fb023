package batch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vrsandeep/squish-go/internal/models"
)

var (
	ErrItemNotFound      = errors.New("image not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Observer receives an event after every worklist transition. Publish is called
// synchronously in transition order and must not mutate the worklist.
type Observer interface {
	Publish(event models.WorklistEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event models.WorklistEvent)

func (f ObserverFunc) Publish(event models.WorklistEvent) { f(event) }

// PreviewReleaser frees the display handle of a removed item.
type PreviewReleaser interface {
	Release(handle string)
}

// Worklist is the ordered, in-memory set of images tracked for the session.
type Worklist struct {
	mu    sync.RWMutex
	items []*models.ImageItem
	index map[string]*models.ImageItem

	// pubMu serializes mutation and delivery so observers see transitions in order.
	pubMu     sync.Mutex
	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int

	releaser PreviewReleaser
	now      func() time.Time
}

// NewWorklist creates an empty worklist.
func NewWorklist() *Worklist {
	return &Worklist{
		index:     make(map[string]*models.ImageItem),
		observers: make(map[int]Observer),
		now:       time.Now,
	}
}

// SetPreviewReleaser sets the collaborator that frees preview handles on removal.
func (w *Worklist) SetPreviewReleaser(r PreviewReleaser) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.releaser = r
}

// Subscribe registers an observer and returns a function that removes it.
func (w *Worklist) Subscribe(o Observer) func() {
	w.obsMu.Lock()
	id := w.nextObsID
	w.nextObsID++
	w.observers[id] = o
	w.obsMu.Unlock()
	return func() {
		w.obsMu.Lock()
		delete(w.observers, id)
		w.obsMu.Unlock()
	}
}

// Add appends a pending item. data is owned by the item until it is removed.
func (w *Worklist) Add(name string, data []byte, previewHandle string) models.ItemSnapshot {
	var snap models.ItemSnapshot
	w.mutate(models.EventItemAdded, func() (string, error) {
		now := w.now()
		item := &models.ImageItem{
			ID:            uuid.NewString(),
			Name:          name,
			Source:        data,
			OriginalSize:  int64(len(data)),
			PreviewHandle: previewHandle,
			Status:        models.StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		w.items = append(w.items, item)
		w.index[item.ID] = item
		snap = item.Snapshot()
		return item.ID, nil
	})
	return snap
}

// Remove deletes an item and releases its preview handle.
func (w *Worklist) Remove(id string) error {
	var handle string
	err := w.mutate(models.EventItemRemoved, func() (string, error) {
		item, ok := w.index[id]
		if !ok {
			return "", ErrItemNotFound
		}
		handle = item.PreviewHandle
		delete(w.index, id)
		for i, it := range w.items {
			if it.ID == id {
				w.items = append(w.items[:i], w.items[i+1:]...)
				break
			}
		}
		return id, nil
	})
	if err != nil {
		return err
	}
	w.mu.RLock()
	releaser := w.releaser
	w.mu.RUnlock()
	if releaser != nil && handle != "" {
		releaser.Release(handle)
	}
	return nil
}

// Reset returns a finished item to pending so it is compressed again by the next run.
func (w *Worklist) Reset(id string) error {
	return w.transition(id, func(item *models.ImageItem) error {
		if !item.Status.IsTerminal() {
			return fmt.Errorf("%w: cannot reset %s item", ErrInvalidTransition, item.Status)
		}
		clearOutcome(item)
		item.Status = models.StatusPending
		return nil
	})
}

// Get returns a copy of the item.
func (w *Worklist) Get(id string) (models.ImageItem, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	item, ok := w.index[id]
	if !ok {
		return models.ImageItem{}, false
	}
	return *item, true
}

// Len returns the number of tracked items.
func (w *Worklist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}

// Items returns copies of every item in worklist order.
func (w *Worklist) Items() []models.ImageItem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]models.ImageItem, len(w.items))
	for i, item := range w.items {
		out[i] = *item
	}
	return out
}

// Snapshots returns the observable view of every item in worklist order.
func (w *Worklist) Snapshots() []models.ItemSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotsLocked()
}

func (w *Worklist) snapshotsLocked() []models.ItemSnapshot {
	out := make([]models.ItemSnapshot, len(w.items))
	for i, item := range w.items {
		out[i] = item.Snapshot()
	}
	return out
}

// idsWithStatus lists, in order, the ids of items in any of the given states.
func (w *Worklist) idsWithStatus(statuses ...models.ImageStatus) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var ids []string
	for _, item := range w.items {
		for _, s := range statuses {
			if item.Status == s {
				ids = append(ids, item.ID)
				break
			}
		}
	}
	return ids
}

func (w *Worklist) markQueued(id string) error {
	return w.transition(id, func(item *models.ImageItem) error {
		if item.Status != models.StatusPending {
			return fmt.Errorf("%w: %s -> queued", ErrInvalidTransition, item.Status)
		}
		item.Status = models.StatusQueued
		return nil
	})
}

func (w *Worklist) markProcessing(id string) ([]byte, error) {
	var src []byte
	err := w.transition(id, func(item *models.ImageItem) error {
		if item.Status != models.StatusPending && item.Status != models.StatusQueued {
			return fmt.Errorf("%w: %s -> processing", ErrInvalidTransition, item.Status)
		}
		item.Status = models.StatusProcessing
		src = item.Source
		return nil
	})
	return src, err
}

func (w *Worklist) markComplete(id string, requested models.Format, res *models.CompressionResult) error {
	return w.transition(id, func(item *models.ImageItem) error {
		if item.Status != models.StatusProcessing {
			return fmt.Errorf("%w: %s -> complete", ErrInvalidTransition, item.Status)
		}
		clearOutcome(item)
		item.Status = models.StatusComplete
		item.Result = res.Data
		item.CompressedSize = res.Size
		item.CompressionRatio = res.CompressionRatio
		item.MimeType = res.MimeType
		item.OutputFormat = res.Format
		item.RequestedFormat = requested
		item.UsedFallback = res.UsedFallback
		return nil
	})
}

func (w *Worklist) markError(id string, requested models.Format, msg string) error {
	return w.transition(id, func(item *models.ImageItem) error {
		if item.Status != models.StatusProcessing {
			return fmt.Errorf("%w: %s -> error", ErrInvalidTransition, item.Status)
		}
		clearOutcome(item)
		item.Status = models.StatusError
		item.RequestedFormat = requested
		item.Error = msg
		return nil
	})
}

func clearOutcome(item *models.ImageItem) {
	item.Result = nil
	item.CompressedSize = 0
	item.CompressionRatio = 0
	item.MimeType = ""
	item.OutputFormat = ""
	item.UsedFallback = false
	item.Error = ""
}

func (w *Worklist) transition(id string, fn func(item *models.ImageItem) error) error {
	return w.mutate(models.EventItemUpdated, func() (string, error) {
		item, ok := w.index[id]
		if !ok {
			return "", ErrItemNotFound
		}
		if err := fn(item); err != nil {
			return "", err
		}
		item.UpdatedAt = w.now()
		return id, nil
	})
}

// mutate applies fn under the write lock and, when it succeeds, publishes the
// resulting full worklist to every observer before any later mutation can run.
func (w *Worklist) mutate(eventType string, fn func() (string, error)) error {
	w.pubMu.Lock()
	defer w.pubMu.Unlock()

	w.mu.Lock()
	id, err := fn()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	event := models.WorklistEvent{Type: eventType, ItemID: id, Items: w.snapshotsLocked()}
	w.mu.Unlock()

	w.obsMu.RLock()
	observers := make([]Observer, 0, len(w.observers))
	for i := 0; i < w.nextObsID; i++ {
		if o, ok := w.observers[i]; ok {
			observers = append(observers, o)
		}
	}
	w.obsMu.RUnlock()

	for _, o := range observers {
		o.Publish(event)
	}
	return nil
}
