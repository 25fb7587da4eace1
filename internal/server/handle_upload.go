package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/puntomapa/puntomapa/internal/upload"
)

const maxUploadSize = 32 << 20 // 32 MiB

// handleUpload accepts a single multipart file and stores it through the
// active gateway, returning the retrieval URL. The kind partition is
// inferred from the file's content type, like the original disk layout.
func handleUpload(logger zerolog.Logger, gateway upload.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		defer file.Close()

		kind := upload.KindAudio
		if strings.HasPrefix(header.Header.Get("Content-Type"), "image") {
			kind = upload.KindImage
		}

		res, err := gateway.Upload(r.Context(), file, header.Filename, kind)
		if err != nil {
			logger.Error().Err(err).Str("filename", header.Filename).Msg("Upload failed")
			writeError(w, http.StatusInternalServerError, "upload failed")
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}
