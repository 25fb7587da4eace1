package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/puntomapa/puntomapa/internal/service"
	"github.com/puntomapa/puntomapa/internal/upload"
)

func addRoutes(r chi.Router, logger zerolog.Logger, svc *service.MarkerService, gateway upload.Gateway, uploadsDir string) {
	r.Get("/healthz", handleHealth())

	r.Route("/markers", func(r chi.Router) {
		r.Get("/", handleListMarkers(svc))
		r.Post("/", handleCreateMarker(svc))
		r.Get("/{id}", handleGetMarker(svc))
		r.Put("/{id}", handleUpdateMarker(svc))
		r.Delete("/{id}", handleDeleteMarker(svc))
	})

	r.Post("/upload", handleUpload(logger, gateway))

	// Uploaded local files are served by path; the cloud strategy serves
	// its own URLs.
	if uploadsDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir)))
		r.Handle("/uploads/*", fs)
	}
}
