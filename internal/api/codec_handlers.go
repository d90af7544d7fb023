package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/squish-go/internal/models"
)

func (s *Server) handleListCodecs(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Codecs().Descriptors())
}

// handleReloadCodec retries a codec load and blocks until it resolves or times out.
func (s *Server) handleReloadCodec(w http.ResponseWriter, r *http.Request) {
	format, err := models.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	registry := s.app.Codecs()
	if _, ok := registry.Descriptor(format); !ok {
		RespondWithError(w, http.StatusNotFound, "No codec registered for "+string(format))
		return
	}

	registry.Reload(r.Context(), format)
	d, _ := registry.Descriptor(format)
	RespondWithJSON(w, http.StatusOK, d)
}
