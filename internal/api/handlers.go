package api

import (
	"encoding/json"
	"net/http"

	"github.com/vrsandeep/squish-go/internal/compression"
	"github.com/vrsandeep/squish-go/internal/core"
	"github.com/vrsandeep/squish-go/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": core.Version})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.app.Config()
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"formats":         models.AllFormats,
		"default_format":  cfg.DefaultFormat(),
		"default_quality": cfg.Compression.DefaultQuality,
		"auto_process":    cfg.Compression.AutoProcess,
		"min_quality":     compression.MinQuality,
		"max_quality":     compression.MaxQuality,
	})
}

type settingsPayload struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	format, quality := s.app.Settings()
	RespondWithJSON(w, http.StatusOK, settingsPayload{Format: string(format), Quality: quality})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.applySettings(payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.handleGetSettings(w, r)
}

// applySettings validates and stores a settings payload. Empty fields keep the current value.
func (s *Server) applySettings(payload settingsPayload) error {
	format, quality := s.app.Settings()
	if payload.Format != "" {
		f, err := models.ParseFormat(payload.Format)
		if err != nil {
			return err
		}
		format = f
	}
	if payload.Quality != 0 {
		quality = payload.Quality
	}
	return s.app.SetSettings(format, quality)
}
