package delivery

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r chi.Router, hMedia *MediaHandler, hNotes *NotesHandler, ws http.HandlerFunc, static fs.FS) {

	// client page
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "index.html")
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	// media
	r.Post("/upload", hMedia.Upload)
	r.Get("/uploads/{filename}", hMedia.ServeFile)
	r.Get("/movies", hMedia.ListMovies)

	// chat history
	r.Get("/notes", hNotes.List)

	// push channel
	r.Get("/ws", ws)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
}
