package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/legendai/legendai/internal/subtitle"
)

// Result is what a provider returns for one audio file. Times are seconds
// relative to the start of that file; Offset places the file on the
// timeline of the full media when it is a chunk.
type Result struct {
	Transcription    string         `json:"transcription"`
	Segments         []subtitle.Cue `json:"segments,omitempty"`
	DetectedLanguage string         `json:"detected_language,omitempty"`
	Duration         float64        `json:"duration"`
	Offset           float64        `json:"offset,omitempty"`
}

// TimingSource uses the provider segments when present and falls back to
// timing the flat transcription locally.
func (r *Result) TimingSource() subtitle.TimingSource {
	return subtitle.SourceFor(r.Transcription, r.Segments, r.Duration)
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// transcription options
type Options struct {
	Language           string // Source language of audio
	TranscriptLanguage string // Output language for transcript (default: "native")
	Model              string
	Prompt             string
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for %s", provider)
	}

	switch Provider(strings.ToLower(string(provider))) {
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func wantsNativeTranscript(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	return lang == "" || lang == "native"
}
