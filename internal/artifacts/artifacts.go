// Package artifacts stores generated subtitle files, either on a shared
// filesystem or in a Cloud Storage bucket.
package artifacts

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Extension of every subtitle artifact.
const Extension = ".srt"

// Store writes and reads subtitle artifacts by name.
type Store interface {
	// Create opens a streaming writer; the artifact is visible once the
	// writer is closed without error.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	// Put writes a complete artifact in one call.
	Put(ctx context.Context, name, content string) error
	// Open returns models.ErrNotFound when the artifact does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Name derives the artifact name from the media filename. A language code is
// added as a suffix when several language variants of one job coexist.
func Name(mediaFilename, language string) string {
	base := filepath.Base(mediaFilename)
	base = strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "subtitles"
	}
	if language != "" {
		return base + "." + language + Extension
	}
	return base + Extension
}
