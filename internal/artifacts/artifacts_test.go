package artifacts

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// TestName checks deterministic naming with and without a language suffix.
func TestName(t *testing.T) {
	cases := []struct {
		media, lang, want string
	}{
		{"20240101_120000_talk.mp4", "", "20240101_120000_talk.srt"},
		{"/uploads/talk.final.mov", "es", "talk.final.es.srt"},
		{"noext", "pt", "noext.pt.srt"},
		{".mp4", "", "subtitles.srt"},
		{"", "", "subtitles.srt"},
	}
	for _, tc := range cases {
		if got := Name(tc.media, tc.lang); got != tc.want {
			t.Fatalf("Name(%q, %q) = %q, want %q", tc.media, tc.lang, got, tc.want)
		}
	}
}

// TestLocalStoreRoundTrip checks streaming writes, Put and Open.
func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	w, err := store.Create(ctx, "a.srt")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, _ = io.WriteString(w, "part one ")
	_, _ = io.WriteString(w, "part two")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := readAll(t, store, "a.srt"); got != "part one part two" {
		t.Fatalf("content = %q", got)
	}

	if err := store.Put(ctx, "../escape.srt", "x"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if got := readAll(t, store, "escape.srt"); got != "x" {
		t.Fatalf("content = %q, want artifact kept inside the store", got)
	}
}

// TestLocalStoreOpenMissing maps a missing file to ErrNotFound.
func TestLocalStoreOpenMissing(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())
	if _, err := store.Open(context.Background(), "nope.srt"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Open() error = %v, want ErrNotFound", err)
	}
}

func readAll(t *testing.T, store Store, name string) string {
	t.Helper()
	r, err := store.Open(context.Background(), name)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}
