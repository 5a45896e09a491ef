package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/subtitleflow/internal/models"
	"github.com/Lllllllleong/subtitleflow/internal/subtitle"
)

// DefaultChunkLength is the largest piece of text sent in one translation call.
const DefaultChunkLength = 5000

// TranslationEngine is the text-translation provider.
type TranslationEngine interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	Detect(ctx context.Context, text string) (string, error)
}

// languageAliases maps regional variants to the base code the provider
// translates into. Keys are in normalized (lower-case, underscore) form.
var languageAliases = map[string]string{
	"pt_br": "pt",
	"zh_cn": "zh",
	"zh_tw": "zh",
	"en_us": "en",
	"en_gb": "en",
}

// NormalizeLanguageCode lower-cases code, uses '_' as the region separator
// and folds known regional variants onto their base language. Unknown codes
// pass through; an empty code means English.
func NormalizeLanguageCode(code string) string {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(code)), "-", "_")
	if normalized == "" {
		return "en"
	}
	if base, ok := languageAliases[normalized]; ok {
		return base
	}
	return normalized
}

// Translator adapts a TranslationEngine to subtitle documents.
type Translator struct {
	engine         TranslationEngine
	maxChunkLength int
}

// NewTranslator uses DefaultChunkLength when maxChunkLength is not positive.
func NewTranslator(engine TranslationEngine, maxChunkLength int) *Translator {
	if maxChunkLength <= 0 {
		maxChunkLength = DefaultChunkLength
	}
	return &Translator{engine: engine, maxChunkLength: maxChunkLength}
}

// DetectLanguage returns the normalized language of sample. Detection
// failures are logged and reported as not found.
func (t *Translator) DetectLanguage(ctx context.Context, sample string) (string, bool) {
	detected, err := t.engine.Detect(ctx, sample)
	if err != nil {
		slog.Error("Error detecting language.", "error", err)
		return "", false
	}
	if strings.TrimSpace(detected) == "" {
		return "", false
	}
	return NormalizeLanguageCode(detected), true
}

// ValidateLanguageCode probes the engine with a trivial translation.
func (t *Translator) ValidateLanguageCode(ctx context.Context, code string) bool {
	if _, err := t.engine.Translate(ctx, "test", code); err != nil {
		slog.Error("Invalid language code.", "code", code, "error", err)
		return false
	}
	return true
}

// TranslateDocument translates every cue into targetLanguage and returns the
// detected source language. When the source already is the target the input
// is returned as is. A chunk the engine fails on keeps its original text.
// Timing is never altered.
func (t *Translator) TranslateDocument(ctx context.Context, cues []subtitle.Cue, targetLanguage string) ([]subtitle.Cue, string, error) {
	target := NormalizeLanguageCode(targetLanguage)
	if !t.ValidateLanguageCode(ctx, target) {
		return nil, "", &models.ValidationError{Field: "target_language", Message: "unsupported target language " + target}
	}

	source, detected := "", false
	for _, cue := range cues {
		if strings.TrimSpace(cue.Text) != "" {
			source, detected = t.DetectLanguage(ctx, cue.Text)
			break
		}
	}
	if detected && source == target {
		return cues, source, nil
	}

	out := make([]subtitle.Cue, len(cues))
	for i, cue := range cues {
		out[i] = cue
		if strings.TrimSpace(cue.Text) == "" {
			continue
		}
		out[i].Text = t.translateText(ctx, i+1, cue.Text, target)
	}
	return out, source, nil
}

func (t *Translator) translateText(ctx context.Context, index int, text, target string) string {
	chunks := subtitle.Chunk(text, t.maxChunkLength)
	translated := make([]string, 0, len(chunks))
	for n, chunk := range chunks {
		result, err := t.engine.Translate(ctx, chunk, target)
		if err == nil {
			result = dropBlankLines(result)
		}
		if err != nil || result == "" {
			slog.Warn("Chunk translation failed, keeping original text.",
				"cue", index, "chunk", n, "targetLanguage", target, "error", err)
			result = chunk
		}
		translated = append(translated, result)
	}
	return strings.Join(translated, "\n")
}

// dropBlankLines removes blank lines a provider may add, since a blank line
// would split the cue.
func dropBlankLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimRight(line, " \t"))
		}
	}
	return strings.Join(kept, "\n")
}
