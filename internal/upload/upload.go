// Package upload is the uniform interface over the two media storage
// backends: local disk and remote object storage. Which backend is active is
// a deployment-time configuration choice; callers hold only the Gateway
// interface and never branch on the strategy.
package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/puntomapa/puntomapa/internal/config"
	"github.com/puntomapa/puntomapa/pkg/core"
)

// Kind distinguishes the two media types a marker can carry.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Folder returns the storage partition for this kind.
func (k Kind) Folder() string {
	if k == KindAudio {
		return "audios"
	}
	return "images"
}

// Gateway accepts a raw file blob and returns a stable retrieval URL.
// Failures are reported as *core.UploadError; a success never carries an
// empty URL. Gateways do not retry — retry policy belongs to the caller.
type Gateway interface {
	Upload(ctx context.Context, file io.Reader, filename string, kind Kind) (core.UploadResult, error)
}

// New creates an upload gateway based on configuration.
func New(cfg config.UploadConfig, log zerolog.Logger) (Gateway, error) {
	switch cfg.Strategy {
	case "local":
		return NewLocal(cfg.Local, log)
	case "cloud":
		return NewCloud(cfg.Cloud, log), nil
	default:
		return nil, fmt.Errorf("unknown upload strategy: %s", cfg.Strategy)
	}
}
