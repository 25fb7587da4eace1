// Package client is the Go client for the marker HTTP API. It covers the
// full marker lifecycle plus the standalone upload endpoint, and plugs
// directly into the wizard as its uploader and submitter.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/puntomapa/puntomapa/pkg/core"
)

// Client talks to a running marker service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the service at baseURL. token may be empty; when
// set it is sent as a bearer token on every request.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck reports whether the service is reachable and healthy.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// ListMarkers fetches every marker in creation order.
func (c *Client) ListMarkers(ctx context.Context) ([]core.Marker, error) {
	var markers []core.Marker
	if err := c.doJSON(ctx, http.MethodGet, "/markers", nil, &markers); err != nil {
		return nil, err
	}
	return markers, nil
}

// GetMarker fetches a single marker. A missing ID yields core.ErrNotFound.
func (c *Client) GetMarker(ctx context.Context, id string) (core.Marker, error) {
	var m core.Marker
	if err := c.doJSON(ctx, http.MethodGet, "/markers/"+id, nil, &m); err != nil {
		return core.Marker{}, err
	}
	return m, nil
}

// CreateMarker submits a complete draft. Media must already be resolved to
// URLs; the wizard takes care of that before calling here.
func (c *Client) CreateMarker(ctx context.Context, draft core.Draft) (core.Marker, error) {
	body := map[string]any{
		"name":        draft.Name,
		"description": draft.Description,
		"category":    draft.Category,
	}
	if draft.Location != nil {
		body["lat"] = draft.Location.Lat
		body["lng"] = draft.Location.Lng
	}
	if draft.Image != "" {
		body["image"] = draft.Image
	}
	if draft.Audio != "" {
		body["audio"] = draft.Audio
	}

	var m core.Marker
	if err := c.doJSON(ctx, http.MethodPost, "/markers", body, &m); err != nil {
		return core.Marker{}, err
	}
	return m, nil
}

// UpdateMarker sends a partial update. Fields missing from the patch are
// left untouched on the server, stored media URLs included.
func (c *Client) UpdateMarker(ctx context.Context, id string, patch core.MarkerPatch) (core.Marker, error) {
	body := map[string]any{}
	if patch.Location != nil {
		body["lat"] = patch.Location.Lat
		body["lng"] = patch.Location.Lng
	}
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Category != nil {
		body["category"] = *patch.Category
	}
	if patch.Image != nil {
		body["image"] = *patch.Image
	}
	if patch.Audio != nil {
		body["audio"] = *patch.Audio
	}

	var m core.Marker
	if err := c.doJSON(ctx, http.MethodPut, "/markers/"+id, body, &m); err != nil {
		return core.Marker{}, err
	}
	return m, nil
}

// DeleteMarker removes a marker. Deleting an already-removed ID succeeds.
func (c *Client) DeleteMarker(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/markers/"+id, nil, nil)
}

// Upload streams a media file to the service and returns its retrieval URL.
// kind ("image" or "audio") sets the part's content type so the server files
// it under the right partition.
func (c *Client) Upload(ctx context.Context, file io.Reader, filename string, kind string) (core.UploadResult, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		err := func() error {
			part, err := createMediaPart(writer, filename, kind)
			if err != nil {
				return fmt.Errorf("failed to create form file: %w", err)
			}
			if _, err := io.Copy(part, file); err != nil {
				return fmt.Errorf("failed to copy file: %w", err)
			}
			return writer.Close()
		}()
		// a failed close propagates through the pipe so the transport
		// sees the error instead of a truncated body
		pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		pr.Close() // unblock the writer goroutine
		return core.UploadResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.UploadResult{}, &core.UploadError{Kind: kind, Cause: "transport", Err: err}
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return core.UploadResult{}, &core.UploadError{Kind: kind, Cause: "read", Err: writeErr}
	}
	if resp.StatusCode != http.StatusOK {
		return core.UploadResult{}, &core.UploadError{
			Kind:  kind,
			Cause: "status",
			Err:   fmt.Errorf("upload returned status %d", resp.StatusCode),
		}
	}

	var res core.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return core.UploadResult{}, &core.UploadError{Kind: kind, Cause: "decode", Err: err}
	}
	if res.URL == "" {
		return core.UploadResult{}, &core.UploadError{
			Kind:  kind,
			Cause: "response",
			Err:   fmt.Errorf("upload response carried no url"),
		}
	}
	return res, nil
}

// createMediaPart builds a form file part with an explicit content type, so
// the server can tell image and audio uploads apart.
func createMediaPart(w *multipart.Writer, filename, kind string) (io.Writer, error) {
	contentType := "audio/mpeg"
	if kind == "image" {
		contentType = "image/jpeg"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// doJSON performs a JSON request/response round trip and translates the
// error body into the shared taxonomy.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError maps HTTP failures back onto the shared error types so callers
// can branch with errors.Is/As exactly like in-process service users do.
func apiError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusBadRequest:
		return &core.ValidationError{Field: "request", Reason: body.Message}
	default:
		return fmt.Errorf("request returned status %d: %s", resp.StatusCode, body.Message)
	}
}
