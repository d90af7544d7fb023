// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vrsandeep/squish-go/internal/core"
)

// maxUploadBytes caps a single multipart upload request.
const maxUploadBytes = 256 << 20

// Server holds the dependencies for our API.
type Server struct {
	app *core.App
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{app: app}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleGetVersion)
		r.Get("/config", s.handleGetConfig)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		// Worklist Routes
		r.With(LimitBody(maxUploadBytes)).Post("/images", s.handleUploadImages)
		r.Get("/images", s.handleListImages)
		r.Delete("/images/{imageID}", s.handleRemoveImage)
		r.Get("/images/{imageID}/preview", s.handleGetPreview)
		r.Get("/images/{imageID}/download", s.handleDownloadImage)
		r.Post("/images/{imageID}/reset", s.handleResetImage)

		r.Post("/process", s.handleProcess)
		r.Get("/export", s.handleExport)

		// Codec Routes
		r.Get("/codecs", s.handleListCodecs)
		r.Post("/codecs/{format}/reload", s.handleReloadCodec)

		// Job Routes
		r.Get("/jobs/status", s.handleGetJobsStatus)
		r.Post("/jobs/run", s.handleRunJob)
	})

	// WebSocket route
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	return r
}
