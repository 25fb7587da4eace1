package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/puntomapa/puntomapa/internal/config"
	"github.com/puntomapa/puntomapa/pkg/core"
)

// Cloud posts files to a remote object-storage provider and returns the
// provider's canonical secure URL.
type Cloud struct {
	url        string
	preset     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewCloud creates the remote object-storage backend.
func NewCloud(cfg config.CloudUploadConfig, log zerolog.Logger) *Cloud {
	return &Cloud{
		url:        cfg.URL,
		preset:     cfg.Preset,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// cloudResponse is the provider's success shape. Anything without a
// secure_url is treated as a failed upload even if the status was 2xx.
type cloudResponse struct {
	SecureURL string `json:"secure_url"`
}

// Upload sends the file as a multipart form with the configured preset.
func (c *Cloud) Upload(ctx context.Context, file io.Reader, filename string, kind Kind) (core.UploadResult, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		err := writeForm(writer, c.preset, file, filename)
		// a failed close propagates through the pipe so the transport
		// sees the error instead of a truncated body
		pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		pr.Close() // unblock the writer goroutine
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "could not build request", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "could not stream file", Err: writeErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.UploadResult{}, &core.UploadError{
			Kind:  string(kind),
			Cause: fmt.Sprintf("provider returned status %d", resp.StatusCode),
		}
	}

	var body cloudResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "unreadable provider response", Err: err}
	}
	if body.SecureURL == "" {
		// A success-shaped response without a URL is a hard failure, not
		// "no media".
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "provider response missing secure_url"}
	}

	c.log.Debug().Str("url", body.SecureURL).Msg("Stored cloud upload")
	return core.UploadResult{URL: body.SecureURL}, nil
}

// writeForm streams the multipart body: preset field, then the file part.
func writeForm(writer *multipart.Writer, preset string, file io.Reader, filename string) error {
	if err := writer.WriteField("upload_preset", preset); err != nil {
		return fmt.Errorf("failed to write preset field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return writer.Close()
}
