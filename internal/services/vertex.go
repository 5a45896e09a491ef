package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/subtitleflow/internal/gcp"
	"github.com/Lllllllleong/subtitleflow/internal/subtitle"
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i'm sorry, but",
}

// VertexTranslationEngine translates and detects languages with Gemini.
type VertexTranslationEngine struct {
	client *gcp.VertexClient
}

func NewVertexTranslationEngine(client *gcp.VertexClient) *VertexTranslationEngine {
	return &VertexTranslationEngine{client: client}
}

func (e *VertexTranslationEngine) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	prompt := genai.Text(fmt.Sprintf(gcp.TranslatorUserPrompt, targetLanguage, text))
	resp, err := e.client.TranslatorModel.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate translation from gemini: %w", err)
	}

	translated := extractText(resp)
	if translated == "" {
		return "", fmt.Errorf("gemini returned no translation into %q", targetLanguage)
	}
	lower := strings.ToLower(translated)
	for _, phrase := range refusalPhrases {
		if strings.HasPrefix(lower, phrase) {
			return "", fmt.Errorf("gemini response indicates refusal to translate into %q", targetLanguage)
		}
	}
	return translated, nil
}

type detectionResponse struct {
	Language string `json:"language"`
}

func (e *VertexTranslationEngine) Detect(ctx context.Context, text string) (string, error) {
	prompt := genai.Text(fmt.Sprintf(gcp.DetectorUserPrompt, text))
	resp, err := e.client.DetectorModel.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to detect language with gemini: %w", err)
	}

	var detected detectionResponse
	if err := json.Unmarshal([]byte(extractText(resp)), &detected); err != nil {
		return "", fmt.Errorf("failed to decode language detection response: %w", err)
	}
	if strings.TrimSpace(detected.Language) == "" {
		return "", fmt.Errorf("gemini could not identify the language")
	}
	return detected.Language, nil
}

// VertexTranscriber produces timed segments from media with Gemini.
type VertexTranscriber struct {
	client *gcp.VertexClient
}

func NewVertexTranscriber(client *gcp.VertexClient) *VertexTranscriber {
	return &VertexTranscriber{client: client}
}

type transcriptionResponse struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe sends the local media file inline with the prompt.
func (t *VertexTranscriber) Transcribe(ctx context.Context, mediaPath, languageHint string) (Transcription, error) {
	mediaPart, err := mediaPartFor(mediaPath)
	if err != nil {
		return Transcription{}, err
	}
	prompt := gcp.TranscriberUserPrompt
	if languageHint != "" {
		prompt += fmt.Sprintf(gcp.TranscriberLanguageHint, languageHint)
	}

	resp, err := t.client.TranscriberModel.GenerateContent(ctx, mediaPart, genai.Text(prompt))
	if err != nil {
		return Transcription{}, fmt.Errorf("failed to generate transcription from gemini: %w", err)
	}

	var decoded transcriptionResponse
	if err := json.Unmarshal([]byte(extractText(resp)), &decoded); err != nil {
		return Transcription{}, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	result := Transcription{DetectedLanguage: decoded.Language}
	for _, seg := range decoded.Segments {
		text := dropBlankLines(strings.TrimSpace(seg.Text))
		if text == "" {
			continue
		}
		start := max(seg.Start, 0)
		end := max(seg.End, start)
		result.Cues = append(result.Cues, subtitle.Cue{Start: start, End: end, Text: text})
	}
	return result, nil
}

func mediaPartFor(mediaPath string) (genai.Part, error) {
	data, err := os.ReadFile(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read media %s: %w", filepath.Base(mediaPath), err)
	}
	return genai.Blob{MIMEType: mediaMIMEType(mediaPath), Data: data}, nil
}

var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
}

func mediaMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var content strings.Builder
	var textPartsFound int
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
			textPartsFound++
		}
	}
	if textPartsFound > 1 {
		slog.Warn("Gemini response contained several text parts; they have been concatenated.", "parts", textPartsFound)
	}

	text := strings.TrimSpace(content.String())
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
