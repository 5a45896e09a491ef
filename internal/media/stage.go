package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const maxFilenameLength = 200

var unsafeFilenameRunes = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeFilename reduces a client-supplied name to a safe ASCII basename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameRunes.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	if len(name) > maxFilenameLength {
		name = name[len(name)-maxFilenameLength:]
	}
	return name
}

// UniqueName prefixes the sanitized name with the upload time so that two
// uploads of the same file never collide.
func UniqueName(filename string, now time.Time) string {
	return now.Format("20060102_150405") + "_" + SanitizeFilename(filename)
}

// StageUpload copies r into dir under a unique name and returns that name
// and the full path.
func StageUpload(dir, filename string, r io.Reader, now time.Time) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload directory: %w", err)
	}
	name := UniqueName(filename, now)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("create staged file %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", "", fmt.Errorf("copy upload into %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close staged file %s: %w", name, err)
	}
	return name, path, nil
}
