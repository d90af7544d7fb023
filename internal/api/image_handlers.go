package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/squish-go/internal/export"
	"github.com/vrsandeep/squish-go/internal/models"
)

func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		RespondWithError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	added := make([]models.ItemSnapshot, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Could not read "+header.Filename)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Could not read "+header.Filename)
			return
		}
		added = append(added, s.app.Ingest(header.Filename, data))
	}

	if s.app.Config().Compression.AutoProcess {
		if err := s.app.StartProcessing(); err != nil {
			log.Printf("Auto-processing deferred: %v", err)
		}
	}
	RespondWithJSON(w, http.StatusCreated, added)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Worklist().Snapshots())
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "imageID")
	if err := s.app.Worklist().Remove(id); err != nil {
		RespondWithErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "imageID")
	if err := s.app.Worklist().Reset(id); err != nil {
		RespondWithErr(w, err)
		return
	}
	item, _ := s.app.Worklist().Get(id)
	RespondWithJSON(w, http.StatusOK, item.Snapshot())
}

func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	item, ok := s.app.Worklist().Get(chi.URLParam(r, "imageID"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Image not found")
		return
	}
	uri, ok := s.app.Previews().Get(item.PreviewHandle)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "No preview available")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"preview": uri})
}

func (s *Server) handleDownloadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.app.Worklist().Get(chi.URLParam(r, "imageID"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Image not found")
		return
	}
	download, err := s.app.Exporter().ExportOne(item)
	if err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	writeDownload(w, download)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 {
		var payload settingsPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := s.applySettings(payload); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := s.app.StartProcessing(); err != nil {
		RespondWithErr(w, err)
		return
	}
	format, quality := s.app.Settings()
	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": fmt.Sprintf("Processing pending images as %s at quality %d.", format, quality),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	download, err := s.app.Export(r.Context())
	if err != nil {
		RespondWithErr(w, err)
		return
	}
	if download == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeDownload(w, download)
}

func writeDownload(w http.ResponseWriter, d *export.Download) {
	w.Header().Set("Content-Type", d.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(d.Data)
}
