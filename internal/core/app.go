package core

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-co-op/gocron"
	"github.com/vrsandeep/squish-go/internal/batch"
	"github.com/vrsandeep/squish-go/internal/codec"
	"github.com/vrsandeep/squish-go/internal/compression"
	"github.com/vrsandeep/squish-go/internal/config"
	"github.com/vrsandeep/squish-go/internal/export"
	"github.com/vrsandeep/squish-go/internal/jobs"
	"github.com/vrsandeep/squish-go/internal/models"
	"github.com/vrsandeep/squish-go/internal/preview"
	"github.com/vrsandeep/squish-go/internal/websocket"
)

// Version is set at build time.
var Version = "dev"

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	config     *config.Config
	codecs     *codec.Registry
	engine     *compression.Engine
	worklist   *batch.Worklist
	processor  *batch.Processor
	exporter   *export.Aggregator
	previews   *preview.Store
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
	scheduler  *gocron.Scheduler

	mu      sync.RWMutex
	format  models.Format
	quality int
}

// New sets up and returns a new App instance using config.yml and the real codec backends.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithCodecs(cfg, codec.Defaults())
}

// NewWithCodecs builds an App around the given codec backends.
func NewWithCodecs(cfg *config.Config, codecs []codec.Codec) (*App, error) {
	order, err := cfg.FallbackFormats()
	if err != nil {
		return nil, err
	}
	exporter, err := export.NewAggregator(cfg.Export.ArchiveName, cfg.Export.ArchiveFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to configure export: %w", err)
	}

	registry := codec.NewRegistry(cfg.LoadTimeout())
	for _, c := range codecs {
		registry.Register(c)
	}
	engine := compression.NewEngine(registry, codec.NewResolver(registry, order), compression.NewDecoder(cfg.Compression.MaxPixels))

	previews := preview.NewStore()
	worklist := batch.NewWorklist()
	worklist.SetPreviewReleaser(previews)

	hub := websocket.NewHub()
	go hub.Run()
	worklist.Subscribe(hub)

	app := &App{
		config:    cfg,
		codecs:    registry,
		engine:    engine,
		worklist:  worklist,
		processor: batch.NewProcessor(worklist, engine),
		exporter:  exporter,
		previews:  previews,
		wsHub:     hub,
		format:    cfg.DefaultFormat(),
		quality:   compression.ClampQuality(cfg.Compression.DefaultQuality),
	}
	app.jobManager = jobs.NewManager(app)
	jobs.RegisterAll(app.jobManager)

	log.Println("Core application setup complete.")
	return app, nil
}

func (a *App) Config() *config.Config            { return a.config }
func (a *App) Codecs() *codec.Registry           { return a.codecs }
func (a *App) Engine() *compression.Engine       { return a.engine }
func (a *App) Worklist() *batch.Worklist         { return a.worklist }
func (a *App) Processor() *batch.Processor       { return a.processor }
func (a *App) Exporter() *export.Aggregator      { return a.exporter }
func (a *App) Previews() *preview.Store          { return a.previews }
func (a *App) WsHub() *websocket.Hub             { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager      { return a.jobManager }
func (a *App) SetScheduler(s *gocron.Scheduler)  { a.scheduler = s }
func (a *App) SetConfig(cfg *config.Config)      { a.config = cfg }
func (a *App) Subscribe(o batch.Observer) func() { return a.worklist.Subscribe(o) }

// Settings returns the selected output format and quality.
func (a *App) Settings() (models.Format, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.format, a.quality
}

// SetSettings changes the selected output format and quality.
func (a *App) SetSettings(f models.Format, quality int) error {
	if quality < compression.MinQuality || quality > compression.MaxQuality {
		return fmt.Errorf("quality must be between %d and %d, got %d", compression.MinQuality, compression.MaxQuality, quality)
	}
	if _, err := models.ParseFormat(string(f)); err != nil {
		return err
	}
	a.mu.Lock()
	a.format = f
	a.quality = quality
	a.mu.Unlock()
	return nil
}

// Ingest adds a file to the worklist with a preview. A file whose preview cannot
// be generated is still added; the decoder reports the problem when it is compressed.
func (a *App) Ingest(name string, data []byte) models.ItemSnapshot {
	handle, err := a.previews.Create(data)
	if err != nil {
		log.Printf("No preview for %s: %v", name, err)
		handle = ""
	}
	return a.worklist.Add(name, data, handle)
}

// ProcessPending compresses every pending item with the selected settings.
func (a *App) ProcessPending(ctx context.Context) (batch.Summary, error) {
	format, quality := a.Settings()
	return a.processor.ProcessAll(ctx, format, quality)
}

// StartProcessing compresses pending items in the background, repeating until a
// run finds nothing left so images added mid-batch are picked up too. The batch
// slot is taken before it returns; it returns batch.ErrAlreadyRunning when a
// batch is in flight.
func (a *App) StartProcessing() error {
	claim, err := a.processor.Claim()
	if err != nil {
		return err
	}
	go func() {
		defer claim.Release()
		for {
			format, quality := a.Settings()
			summary := claim.Process(context.Background(), nil, format, quality)
			if summary.Succeeded+summary.Failed == 0 {
				return
			}
		}
	}()
	return nil
}

// Export packages every completed item.
func (a *App) Export(ctx context.Context) (*export.Download, error) {
	return a.exporter.ExportAll(ctx, a.worklist.Items())
}

// Close stops background scheduling and cancels the running job.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.jobManager.Stop()
}
