package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRunner returns a canned ffprobe response.
type fakeRunner struct {
	result commandResult
	err    error
	args   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	f.args = append([]string{name}, args...)
	return f.result, f.err
}

// TestProberDuration parses ffprobe output.
func TestProberDuration(t *testing.T) {
	runner := &fakeRunner{result: commandResult{Stdout: "125.040000\n"}}
	p := &Prober{ffprobePath: "ffprobe-custom", runner: runner}

	got, err := p.Duration(context.Background(), "/media/a.mp4")
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if got != 125.04 {
		t.Fatalf("Duration() = %v, want 125.04", got)
	}
	if runner.args[0] != "ffprobe-custom" || runner.args[len(runner.args)-1] != "/media/a.mp4" {
		t.Fatalf("args = %v", runner.args)
	}
}

// TestProberDurationErrors covers command failure and junk output.
func TestProberDurationErrors(t *testing.T) {
	failing := &Prober{runner: &fakeRunner{result: commandResult{Stderr: "no such file", ExitCode: 1}, err: errors.New("exit status 1")}}
	if _, err := failing.Duration(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "no such file") {
		t.Fatalf("Duration() error = %v, want stderr in message", err)
	}

	for _, out := range []string{"N/A", "inf", "-Inf", "NaN", "-1"} {
		junk := &Prober{runner: &fakeRunner{result: commandResult{Stdout: out}}}
		if _, err := junk.Duration(context.Background(), "x"); err == nil {
			t.Fatalf("expected error for duration %q", out)
		}
	}
}

// TestSanitizeFilename mirrors secure-filename behaviour.
func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"my talk.mp4":          "my_talk.mp4",
		"../../etc/passwd":     "passwd",
		`C:\videos\clip 1.mov`: "clip_1.mov",
		"ünïcode.wav":          "ncode.wav",
		"...":                  "upload",
		"":                     "upload",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestStageUpload writes the upload under a timestamped name.
func TestStageUpload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	name, path, err := StageUpload(dir, "my talk.mp4", strings.NewReader("media"), now)
	if err != nil {
		t.Fatalf("StageUpload() error = %v", err)
	}
	if name != "20240309_140507_my_talk.mp4" {
		t.Fatalf("name = %q", name)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "media" {
		t.Fatalf("staged content = %q, %v", data, err)
	}

	if _, _, err := StageUpload(dir, "my talk.mp4", strings.NewReader("again"), now); err == nil {
		t.Fatal("expected collision error for identical name and time")
	}
}
