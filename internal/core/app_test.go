package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/squish-go/internal/batch"
	"github.com/vrsandeep/squish-go/internal/config"
	"github.com/vrsandeep/squish-go/internal/core"
	"github.com/vrsandeep/squish-go/internal/models"
	"github.com/vrsandeep/squish-go/internal/testutil"
)

func TestNewWithCodecs_RejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Codecs.FallbackOrder = []string{"JPEG", "GIF"}
	_, err := core.NewWithCodecs(cfg, nil)
	assert.ErrorIs(t, err, models.ErrUnknownFormat)

	cfg = config.Default()
	cfg.Export.ArchiveFormat = "rar"
	_, err = core.NewWithCodecs(cfg, nil)
	assert.ErrorContains(t, err, "export")
}

func TestSettings(t *testing.T) {
	app, _ := testutil.SetupTestApp(t)

	format, quality := app.Settings()
	assert.Equal(t, models.AVIF, format)
	assert.Equal(t, 50, quality)

	require.NoError(t, app.SetSettings(models.WEBP, 80))
	format, quality = app.Settings()
	assert.Equal(t, models.WEBP, format)
	assert.Equal(t, 80, quality)

	assert.Error(t, app.SetSettings(models.WEBP, 0))
	assert.Error(t, app.SetSettings(models.WEBP, 101))
	assert.ErrorIs(t, app.SetSettings(models.Format("GIF"), 50), models.ErrUnknownFormat)
	format, quality = app.Settings()
	assert.Equal(t, models.WEBP, format, "rejected settings leave the previous ones in place")
	assert.Equal(t, 80, quality)
}

func TestIngest(t *testing.T) {
	app, _ := testutil.SetupTestApp(t)

	var mu sync.Mutex
	var events []models.WorklistEvent
	unsubscribe := app.Subscribe(batch.ObserverFunc(func(e models.WorklistEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))
	defer unsubscribe()

	good := app.Ingest("photo.png", testutil.PNGBytes(t, 8, 8))
	bad := app.Ingest("notes.txt", testutil.CorruptImage)

	assert.Equal(t, models.StatusPending, good.Status)
	assert.NotEmpty(t, good.PreviewHandle)
	assert.Empty(t, bad.PreviewHandle, "undecodable files are still tracked without a preview")
	assert.Equal(t, 2, app.Worklist().Len())
	assert.Equal(t, 1, app.Previews().Len())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventItemAdded, events[1].Type)
	assert.Len(t, events[1].Items, 2)
}

func TestProcessPendingAndExport(t *testing.T) {
	app, fakes := testutil.SetupTestApp(t)
	require.NoError(t, app.SetSettings(models.JXL, 40))
	fakes[models.JXL].FailLoad(errors.New("no runtime"))

	app.Ingest("a.png", testutil.PNGBytes(t, 8, 8))
	app.Ingest("b.png", testutil.PNGBytes(t, 8, 8))

	summary, err := app.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	for _, item := range summary.Items {
		assert.Equal(t, models.JPEG, item.OutputFormat)
		assert.True(t, item.UsedFallback)
	}

	download, err := app.Export(context.Background())
	require.NoError(t, err)
	require.NotNil(t, download)
	assert.Equal(t, "compressed_images.zip", download.Name)
	assert.Equal(t, 2, download.Count)
}

func TestStartProcessing(t *testing.T) {
	app, _ := testutil.SetupTestApp(t)
	app.Ingest("a.png", testutil.PNGBytes(t, 8, 8))

	require.NoError(t, app.StartProcessing())
	require.Eventually(t, func() bool {
		items := app.Worklist().Items()
		return len(items) == 1 && items[0].Status == models.StatusComplete && !app.Processor().Running()
	}, 2*time.Second, 5*time.Millisecond)

	// Items added later are picked up either by the loop still draining or by the next call.
	app.Ingest("b.png", testutil.PNGBytes(t, 8, 8))
	require.Eventually(t, func() bool { return app.StartProcessing() == nil }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, item := range app.Worklist().Items() {
			if item.Status != models.StatusComplete {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartProcessing_AlreadyRunning(t *testing.T) {
	app, fakes := testutil.SetupTestApp(t)
	release := fakes[models.AVIF].BlockLoad()
	defer release()

	app.Ingest("a.png", testutil.PNGBytes(t, 8, 8))
	require.NoError(t, app.StartProcessing())
	require.Eventually(t, app.Processor().Running, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, app.StartProcessing(), batch.ErrAlreadyRunning)
	release()
	require.Eventually(t, func() bool { return !app.Processor().Running() }, 2*time.Second, 5*time.Millisecond)
}

func TestStartProcessing_ConcurrentCallsStartOneBatch(t *testing.T) {
	app, fakes := testutil.SetupTestApp(t)
	release := fakes[models.AVIF].BlockLoad()
	defer release()
	app.Ingest("a.png", testutil.PNGBytes(t, 8, 8))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		started  int
		rejected int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := app.StartProcessing()
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				started++
			} else if errors.Is(err, batch.ErrAlreadyRunning) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	assert.Equal(t, 7, rejected)
	assert.True(t, app.Processor().Running(), "the slot is taken before StartProcessing returns")

	release()
	require.Eventually(t, func() bool { return !app.Processor().Running() }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, fakes[models.AVIF].Loads())
}

func TestEngineUsesConfiguredCodecs(t *testing.T) {
	app, fakes := testutil.SetupTestApp(t)

	res, err := app.Engine().Compress(context.Background(), testutil.PNGBytes(t, 4, 4), models.PNG, 50)
	require.NoError(t, err)
	assert.Equal(t, models.PNG, res.Format)
	assert.Equal(t, 1, fakes[models.PNG].Encodes())
}
