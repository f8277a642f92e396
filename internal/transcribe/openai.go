package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/legendai/legendai/internal/media"
	"github.com/legendai/legendai/internal/subtitle"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Transcriber interface using OpenAI Audio API
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
}

var _ Transcriber = (*OpenAITranscriber)(nil)

// segment from OpenAI Whisper verbose_json response
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAITranscriber{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

// transcribes single audio file
func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audio file not found: %s", audioPath)
		}
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var result *Result
	switch {
	case t.shouldUseTranslation():
		result, err = t.transcribeWithTranslation(ctx, file)
	case t.supportsSegments():
		result, err = t.transcribeWithTimestamps(ctx, file)
	default:
		result, err = t.transcribeText(ctx, file)
	}
	if err != nil {
		return nil, err
	}

	if result.Duration <= 0 {
		if d, err := media.Duration(ctx, audioPath); err == nil {
			result.Duration = d.Seconds()
		}
	}

	return result, nil
}

func (t *OpenAITranscriber) shouldUseTranslation() bool {
	lang := strings.ToLower(strings.TrimSpace(t.options.TranscriptLanguage))
	return lang == "english" || lang == "en"
}

// only whisper models return timestamped segments
func (t *OpenAITranscriber) supportsSegments() bool {
	return strings.HasPrefix(t.model, "whisper")
}

func (t *OpenAITranscriber) transcribeWithTranslation(
	ctx context.Context,
	file *os.File,
) (*Result, error) {
	params := openai.AudioTranslationNewParams{
		File:           file,
		Model:          openai.AudioModel(t.model),
		ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
	}

	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Translations.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	result, err := parseVerboseJSONResponse(resp.RawJSON())
	if err != nil {
		result = &Result{Transcription: strings.TrimSpace(resp.Text)}
	}
	result.DetectedLanguage = "en"

	return result, nil
}

func (t *OpenAITranscriber) transcribeWithTimestamps(
	ctx context.Context,
	file *os.File,
) (*Result, error) {
	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(t.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	t.applyCommonParams(&params)

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	result, err := parseVerboseJSONResponse(resp.RawJSON())
	if err != nil {
		result = &Result{Transcription: strings.TrimSpace(resp.Text)}
	}
	if result.DetectedLanguage == "" {
		result.DetectedLanguage = t.options.Language
	}

	return result, nil
}

// gpt-4o transcribe models only return flat text, timed locally later
func (t *OpenAITranscriber) transcribeText(
	ctx context.Context,
	file *os.File,
) (*Result, error) {
	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(t.model),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	t.applyCommonParams(&params)

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, fmt.Errorf("no text in transcription response")
	}

	return &Result{
		Transcription:    text,
		DetectedLanguage: t.options.Language,
	}, nil
}

func (t *OpenAITranscriber) applyCommonParams(params *openai.AudioTranscriptionNewParams) {
	if t.options.Language != "" {
		params.Language = openai.String(t.options.Language)
	}
	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}
}

// parseVerboseJSONResponse keeps Whisper's segments when present. A response
// with text but no segments yields a result without segments so the text is
// timed locally.
func parseVerboseJSONResponse(rawJSON string) (*Result, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	text := strings.TrimSpace(verboseResp.Text)
	if len(verboseResp.Segments) == 0 && text == "" {
		return nil, fmt.Errorf("no segments or text in response")
	}

	segments := make([]subtitle.Cue, 0, len(verboseResp.Segments))
	for _, seg := range verboseResp.Segments {
		segText := strings.TrimSpace(seg.Text)
		if segText == "" {
			continue
		}
		segments = append(segments, subtitle.Cue{
			Text:  segText,
			Start: seg.Start,
			End:   seg.End,
		})
	}

	return &Result{
		Transcription:    text,
		Segments:         segments,
		DetectedLanguage: verboseResp.Language,
		Duration:         verboseResp.Duration,
	}, nil
}
