package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Translator Model Prompts ---
const TranslatorSystemPrompt = "You are a professional subtitle translator. You translate short pieces of dialogue faithfully and naturally. You never add commentary, notes or quotation marks."
const TranslatorUserPrompt = `Translate the text below into the language with code %q.

Rules:
1. Keep exactly the same number of lines; translate each line on its own line.
2. Keep names, numbers and punctuation style.
3. Return ONLY the translated text.

Text:
%s`

// --- Language Detector Model Prompts ---
const DetectorSystemPrompt = "You identify the language of text. You answer with a JSON object only."
const DetectorUserPrompt = `Identify the language of the text below. Respond with {"language": "<code>"} where <code> is the ISO 639-1 code (for example "en", "pt", "zh"). If you cannot tell, respond with {"language": ""}.

Text:
%s`

// --- Transcriber Model Prompts ---
const TranscriberSystemPrompt = "You are a speech-to-text engine producing subtitles. You output JSON only."
const TranscriberUserPrompt = `Transcribe all speech in the attached media.

Return a JSON object with:
- "language": the ISO 639-1 code of the spoken language.
- "segments": an array of objects with "start" and "end" (seconds from the beginning of the media, as numbers) and "text" (what was said, verbatim).

Segments must be in chronological order, must not overlap and should be at most a few seconds long, the way subtitles are timed.`

// TranscriberLanguageHint is appended when the caller knows the spoken language.
const TranscriberLanguageHint = "\n\nThe spoken language is expected to be %q."

// ModelNames selects the generative models used for each task.
type ModelNames struct {
	Transcriber string
	Translator  string
}

// VertexClient holds all pre-configured generative models for the service.
type VertexClient struct {
	TranscriberModel *genai.GenerativeModel
	TranslatorModel  *genai.GenerativeModel
	DetectorModel    *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string, names ModelNames) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the transcriber model ---
	transcriberModel := baseClient.GenerativeModel(names.Transcriber)
	transcriberModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranscriberSystemPrompt)},
	}
	transcriberModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
		ResponseSchema:   transcriptionSchema,
	}

	// --- Configure the translator model ---
	translatorModel := baseClient.GenerativeModel(names.Translator)
	translatorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranslatorSystemPrompt)},
	}
	translatorModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	translatorModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	// --- Configure the language detector model ---
	detectorModel := baseClient.GenerativeModel(names.Translator)
	detectorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(DetectorSystemPrompt)},
	}
	detectorModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		TranscriberModel: transcriberModel,
		TranslatorModel:  translatorModel,
		DetectorModel:    detectorModel,
		baseClient:       baseClient,
	}, nil
}

var transcriptionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"language": {Type: genai.TypeString},
		"segments": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"start": {Type: genai.TypeNumber},
					"end":   {Type: genai.TypeNumber},
					"text":  {Type: genai.TypeString},
				},
				Required: []string{"start", "end", "text"},
			},
		},
	},
	Required: []string{"language", "segments"},
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
