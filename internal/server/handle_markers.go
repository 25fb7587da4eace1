package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/puntomapa/puntomapa/internal/service"
	"github.com/puntomapa/puntomapa/pkg/core"
)

// markerRequest is the flat wire shape of create and update bodies.
// Pointers distinguish "absent" from "zero" so updates can be partial.
type markerRequest struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Image       *string  `json:"image"`
	Audio       *string  `json:"audio"`
}

func handleCreateMarker(svc *service.MarkerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		draft := core.Draft{}
		if req.Lat != nil && req.Lng != nil {
			draft.Location = &core.Location{Lat: *req.Lat, Lng: *req.Lng}
		}
		if req.Name != nil {
			draft.Name = *req.Name
		}
		if req.Description != nil {
			draft.Description = *req.Description
		}
		if req.Category != nil {
			draft.Category = core.Category(*req.Category)
		}
		if req.Image != nil {
			draft.Image = *req.Image
		}
		if req.Audio != nil {
			draft.Audio = *req.Audio
		}

		created, err := svc.Create(r.Context(), draft)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func handleListMarkers(svc *service.MarkerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		markers, err := svc.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, markers)
	}
}

func handleGetMarker(svc *service.MarkerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marker, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, marker)
	}
}

func handleUpdateMarker(svc *service.MarkerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if (req.Lat == nil) != (req.Lng == nil) {
			writeError(w, http.StatusBadRequest, "lat and lng must be provided together")
			return
		}

		patch := core.MarkerPatch{
			Name:        req.Name,
			Description: req.Description,
			Image:       req.Image,
			Audio:       req.Audio,
		}
		if req.Lat != nil && req.Lng != nil {
			patch.Location = &core.Location{Lat: *req.Lat, Lng: *req.Lng}
		}
		if req.Category != nil {
			cat := core.Category(*req.Category)
			patch.Category = &cat
		}

		updated, err := svc.Update(r.Context(), chi.URLParam(r, "id"), service.Change{Patch: patch})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteMarker(svc *service.MarkerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "marker deleted"})
	}
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Raw transport and repository errors never reach the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "marker no longer exists")
		return
	}
	var ue *core.UploadError
	if errors.As(err, &ue) {
		writeError(w, http.StatusInternalServerError, ue.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
