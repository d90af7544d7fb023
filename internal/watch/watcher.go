// Package watch compresses images dropped into a folder. It uses OS-level file
// system events to pick up new files and writes each result to an output folder.
package watch

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vrsandeep/squish-go/internal/batch"
	"github.com/vrsandeep/squish-go/internal/core"
	"github.com/vrsandeep/squish-go/internal/export"
	"github.com/vrsandeep/squish-go/internal/models"
	"github.com/vrsandeep/squish-go/internal/util"
)

// DefaultDebounce is how long the watcher waits after the last change before compressing.
const DefaultDebounce = time.Second

var supportedExtensions = map[string]bool{
	".avif": true, ".bmp": true, ".gif": true, ".jpeg": true, ".jpg": true,
	".jxl": true, ".png": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsSupportedImage reports whether name has an extension the decoder accepts.
func IsSupportedImage(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Result describes one file the watcher finished with.
type Result struct {
	Source string
	Output string
	Err    error
}

// WatcherService watches an input directory and compresses new images into
// an output directory using the app's current settings.
type WatcherService struct {
	app       *core.App
	inputDir  string
	outputDir string
	watcher   *fsnotify.Watcher

	mu            sync.Mutex
	changedPaths  map[string]bool
	debounceTimer *time.Timer
	debounceDelay time.Duration
	runMu         sync.Mutex

	results  chan Result
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWatcherService creates a watcher from inputDir to outputDir.
func NewWatcherService(app *core.App, inputDir, outputDir string) *WatcherService {
	return &WatcherService{
		app:           app,
		inputDir:      filepath.Clean(inputDir),
		outputDir:     filepath.Clean(outputDir),
		changedPaths:  make(map[string]bool),
		debounceDelay: DefaultDebounce,
		results:       make(chan Result, 64),
		stopChan:      make(chan struct{}),
	}
}

// SetDebounce changes the quiet period before a batch starts.
func (w *WatcherService) SetDebounce(d time.Duration) { w.debounceDelay = d }

// Results delivers one Result per handled file. Results are dropped when nobody reads them.
func (w *WatcherService) Results() <-chan Result { return w.results }

// Start begins watching the input directory. Subdirectories are not watched.
func (w *WatcherService) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.inputDir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	log.Printf("Watching %s, writing results to %s", w.inputDir, w.outputDir)
	go w.processEvents()
	return nil
}

// Stop stops the watcher. Files already being compressed are finished.
func (w *WatcherService) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}

func (w *WatcherService) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *WatcherService) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !IsSupportedImage(event.Name) || w.isOutput(event.Name) {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return
	}
	w.Enqueue(event.Name)
}

// isOutput reports whether path lives in the output directory, so results
// written inside the input directory are not compressed again.
func (w *WatcherService) isOutput(path string) bool {
	return filepath.Dir(filepath.Clean(path)) == w.outputDir
}

// Enqueue schedules path for compression after the debounce delay.
func (w *WatcherService) Enqueue(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.changedPaths[path] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

// flush compresses every path collected since the last flush.
func (w *WatcherService) flush() {
	w.mu.Lock()
	if len(w.changedPaths) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.changedPaths))
	for path := range w.changedPaths {
		paths = append(paths, path)
	}
	w.changedPaths = make(map[string]bool)
	w.mu.Unlock()

	util.SortPaths(paths)
	log.Printf("File watcher detected %d new image(s)", len(paths))
	w.compress(context.Background(), paths)
}

func (w *WatcherService) compress(ctx context.Context, paths []string) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	sources := make(map[string]string, len(paths))
	ids := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			w.report(Result{Source: path, Err: err})
			continue
		}
		item := w.app.Ingest(filepath.Base(path), data)
		sources[item.ID] = path
		ids = append(ids, item.ID)
	}
	if len(ids) == 0 {
		return
	}

	format, quality := w.app.Settings()
	_, err := w.app.Processor().Process(ctx, ids, format, quality)
	for errors.Is(err, batch.ErrAlreadyRunning) {
		select {
		case <-time.After(100 * time.Millisecond):
		case <-w.stopChan:
			return
		}
		_, err = w.app.Processor().Process(ctx, ids, format, quality)
	}

	// Inputs that share a stem, like a.png and a.jpg, get distinct output files.
	items := make([]models.ImageItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := w.app.Worklist().Get(id); ok {
			item.Name = util.SanitizeFileName(item.Name)
			items = append(items, item)
		}
	}
	done := export.Qualifying(items)
	names := make(map[string]string, len(done))
	for i, name := range export.UniqueNames(done) {
		names[done[i].ID] = name
	}

	for _, id := range ids {
		w.report(w.write(id, sources[id], names[id]))
		if err := w.app.Worklist().Remove(id); err != nil {
			log.Printf("Could not drop %s from the worklist: %v", sources[id], err)
		}
	}
}

// write persists the result of one item to the output directory under name.
func (w *WatcherService) write(id, source, name string) Result {
	res := Result{Source: source}
	item, ok := w.app.Worklist().Get(id)
	if !ok {
		res.Err = batch.ErrItemNotFound
		return res
	}
	if item.Error != "" {
		res.Err = errors.New(item.Error)
		return res
	}
	download, err := w.app.Exporter().ExportOne(item)
	if err != nil {
		res.Err = err
		return res
	}
	if name == "" {
		name = util.SanitizeFileName(export.OutputName(item.Name, item.OutputFormat))
	}
	res.Output = filepath.Join(w.outputDir, name)
	if err := os.WriteFile(res.Output, download.Data, 0644); err != nil {
		res.Err = err
		return res
	}
	log.Printf("Compressed %s -> %s (%s)", filepath.Base(source), filepath.Base(res.Output), item.Snapshot().SizeLabel)
	return res
}

func (w *WatcherService) report(r Result) {
	if r.Err != nil {
		log.Printf("Could not compress %s: %v", r.Source, r.Err)
	}
	select {
	case w.results <- r:
	default:
	}
}
