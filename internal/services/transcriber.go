package services

import (
	"context"
	"strings"

	"github.com/Lllllllleong/subtitleflow/internal/models"
	"github.com/Lllllllleong/subtitleflow/internal/subtitle"
)

// Transcription is the result of one transcription call. Cue timings are in
// seconds from the start of the media.
type Transcription struct {
	Cues             []subtitle.Cue
	DetectedLanguage string
}

// TranscriptionEngine turns a media file into timed text.
type TranscriptionEngine interface {
	// Transcribe may be given an empty languageHint when the spoken
	// language is unknown.
	Transcribe(ctx context.Context, mediaPath, languageHint string) (Transcription, error)
}

// transcriptionHint reduces a target language to the base code the
// transcription engine understands, e.g. "pt_BR" becomes "pt".
func transcriptionHint(targetLanguage string) string {
	if targetLanguage == "" || strings.EqualFold(targetLanguage, models.UnknownLanguage) {
		return ""
	}
	base, _, _ := strings.Cut(NormalizeLanguageCode(targetLanguage), "_")
	return base
}
