package batch_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/squish-go/internal/batch"
	"github.com/vrsandeep/squish-go/internal/models"
)

// recorder collects every published event.
type recorder struct {
	mu     sync.Mutex
	events []models.WorklistEvent
}

func (r *recorder) Publish(e models.WorklistEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []models.WorklistEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.WorklistEvent(nil), r.events...)
}

// statusesOf returns, per event concerning id, the status id had after the transition.
func (r *recorder) statusesOf(id string) []models.ImageStatus {
	var out []models.ImageStatus
	for _, e := range r.Events() {
		if e.ItemID != id {
			continue
		}
		for _, item := range e.Items {
			if item.ID == id {
				out = append(out, item.Status)
			}
		}
	}
	return out
}

type releaser struct {
	released []string
}

func (r *releaser) Release(handle string) { r.released = append(r.released, handle) }

func TestWorklist_Add(t *testing.T) {
	w := batch.NewWorklist()
	rec := &recorder{}
	w.Subscribe(rec)

	a := w.Add("a.png", []byte("aaaa"), "preview-a")
	b := w.Add("b.png", []byte("bb"), "")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Equal(t, int64(4), a.OriginalSize)
	assert.Equal(t, 2, w.Len())

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventItemAdded, events[1].Type)
	assert.Equal(t, b.ID, events[1].ItemID)
	// Every event carries the whole worklist in order.
	require.Len(t, events[1].Items, 2)
	assert.Equal(t, "a.png", events[1].Items[0].Name)
	assert.Equal(t, "b.png", events[1].Items[1].Name)

	item, ok := w.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, []byte("aaaa"), item.Source)
}

func TestWorklist_Remove(t *testing.T) {
	w := batch.NewWorklist()
	rel := &releaser{}
	w.SetPreviewReleaser(rel)
	rec := &recorder{}

	a := w.Add("a.png", []byte("a"), "preview-a")
	b := w.Add("b.png", []byte("b"), "")
	w.Subscribe(rec)

	require.NoError(t, w.Remove(a.ID))
	require.NoError(t, w.Remove(b.ID))
	assert.Equal(t, []string{"preview-a"}, rel.released)
	assert.Equal(t, 0, w.Len())

	assert.ErrorIs(t, w.Remove(a.ID), batch.ErrItemNotFound)

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventItemRemoved, events[0].Type)
	assert.Len(t, events[0].Items, 1)
	assert.Empty(t, events[1].Items)
}

func TestWorklist_Unsubscribe(t *testing.T) {
	w := batch.NewWorklist()
	rec := &recorder{}
	unsubscribe := w.Subscribe(rec)

	w.Add("a.png", []byte("a"), "")
	unsubscribe()
	w.Add("b.png", []byte("b"), "")

	assert.Len(t, rec.Events(), 1)
}

func TestWorklist_ResetRequiresFinishedItem(t *testing.T) {
	w := batch.NewWorklist()
	a := w.Add("a.png", []byte("a"), "")

	assert.ErrorIs(t, w.Reset(a.ID), batch.ErrInvalidTransition)
	assert.ErrorIs(t, w.Reset("missing"), batch.ErrItemNotFound)
}

func TestWorklist_ObserverFunc(t *testing.T) {
	w := batch.NewWorklist()
	var types []string
	w.Subscribe(batch.ObserverFunc(func(e models.WorklistEvent) { types = append(types, e.Type) }))

	a := w.Add("a.png", []byte("a"), "")
	require.NoError(t, w.Remove(a.ID))
	assert.Equal(t, []string{models.EventItemAdded, models.EventItemRemoved}, types)
}
