package delivery

import (
	"errors"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/infra"
	"github.com/Vovarama1992/watchparty/internal/ports"
	"github.com/go-chi/chi/v5"
)

const formMemory = 32 << 20

type MediaHandler struct {
	uploads   ports.UploadService
	files     ports.BlobStore
	maxUpload int64
	log       *logger.ZapLogger
}

func NewMediaHandler(uploads ports.UploadService, files ports.BlobStore, maxUpload int64, log *logger.ZapLogger) *MediaHandler {
	return &MediaHandler{
		uploads:   uploads,
		files:     files,
		maxUpload: maxUpload,
		log:       log,
	}
}

type movieDTO struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// POST /upload
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file")
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file")
		return
	}

	media, err := h.uploads.Upload(r.Context(), ports.UploadRequest{
		Filename:  header.Filename,
		Body:      file,
		NoConvert: r.FormValue("no_convert") == "1",
	})
	if err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "upload failed",
			Fields:  map[string]any{"filename": header.Filename},
			Error:   err,
		})
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": media.URL})
}

// GET /uploads/{filename}
func (h *MediaHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	f, err := h.files.Open(name)
	if err != nil {
		if errors.Is(err, infra.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "open upload failed",
			Fields:  map[string]any{"filename": name},
			Error:   err,
		})
		writeError(w, http.StatusInternalServerError, "cannot open file")
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot stat file")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeContent(w, r, name, st.ModTime(), f)
}

// GET /movies
func (h *MediaHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	media, err := h.uploads.ListMedia(r.Context())
	if err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "list media failed",
			Error:   err,
		})
		writeError(w, http.StatusInternalServerError, "failed to list movies")
		return
	}

	out := make([]movieDTO, 0, len(media))
	for _, m := range media {
		out = append(out, movieDTO{Title: m.Title, URL: m.URL})
	}
	writeJSON(w, http.StatusOK, out)
}
