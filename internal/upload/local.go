package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/puntomapa/puntomapa/internal/config"
	"github.com/puntomapa/puntomapa/pkg/core"
)

// Local writes files to a filesystem path partitioned by kind and returns a
// path-derived URL served by the static file server.
type Local struct {
	dir     string
	baseURL string
	log     zerolog.Logger
}

// NewLocal creates the local-disk backend, ensuring the per-kind folders exist.
func NewLocal(cfg config.LocalUploadConfig, log zerolog.Logger) (*Local, error) {
	for _, kind := range []Kind{KindImage, KindAudio} {
		if err := os.MkdirAll(filepath.Join(cfg.Dir, kind.Folder()), 0755); err != nil {
			return nil, fmt.Errorf("creating upload dir for %s: %w", kind, err)
		}
	}
	return &Local{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     log,
	}, nil
}

// Upload writes the file under <dir>/<kind-folder>/ with a timestamped name.
// A partially written file is removed before the error is returned.
func (l *Local) Upload(ctx context.Context, file io.Reader, filename string, kind Kind) (core.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "canceled", Err: err}
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeFilename(filename))
	dest := filepath.Join(l.dir, kind.Folder(), name)

	out, err := os.Create(dest)
	if err != nil {
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "could not create file", Err: err}
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "could not write file", Err: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return core.UploadResult{}, &core.UploadError{Kind: string(kind), Cause: "could not close file", Err: err}
	}

	url := fmt.Sprintf("%s/uploads/%s/%s", l.baseURL, kind.Folder(), name)
	l.log.Debug().Str("path", dest).Str("url", url).Msg("Stored local upload")
	return core.UploadResult{URL: url}, nil
}

// sanitizeFilename keeps only the base name and replaces characters that are
// unsafe in URLs or paths.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
