package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/legendai/legendai/internal/media"
	"github.com/legendai/legendai/internal/subtitle"
	"google.golang.org/genai"
)

// implements Transcriber interface using Google Gemini
type GeminiTranscriber struct {
	client  *genai.Client
	model   string
	options Options
}

var _ Transcriber = (*GeminiTranscriber)(nil)

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// JSON object Gemini is asked to return
type transcriptPayload struct {
	Transcription    string              `json:"transcription"`
	Segments         []transcriptSegment `json:"segments"`
	DetectedLanguage string              `json:"detected_language"`
	Duration         float64             `json:"duration"`
}

// keys tried first when the payload arrives inside a wrapper object
var wrapperKeys = []string{"segments", "transcript", "data", "result", "response"}

func NewGeminiTranscriber(ctx context.Context, apiKey string, opts Options) (*GeminiTranscriber, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiTranscriber{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

// transcribes single audio file
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	uploadedFile, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}

	defer func() {
		_, _ = t.client.Files.Delete(context.WithoutCancel(ctx), uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(t.buildTranscriptionPrompt()),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	result, err := parseTranscriptionResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	if result.Duration <= 0 {
		if d, err := media.Duration(ctx, audioPath); err == nil {
			result.Duration = d.Seconds()
		}
	}
	if result.DetectedLanguage == "" {
		result.DetectedLanguage = t.options.Language
	}

	return result, nil
}

// creates the prompt for transcription
func (t *GeminiTranscriber) buildTranscriptionPrompt() string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("Respond with a JSON object with the fields 'transcription' (the full text), ")
	sb.WriteString("'segments' (an array of objects with 'text', 'start' and 'end'), ")
	sb.WriteString("'detected_language' and 'duration'. ")
	sb.WriteString("Each segment is one sentence or short phrase; 'start', 'end' and 'duration' are in seconds (as numbers). ")

	if t.options.Language != "" {
		fmt.Fprintf(&sb, "The audio is in %s. ", t.options.Language)
	}

	if !wantsNativeTranscript(t.options.TranscriptLanguage) {
		fmt.Fprintf(&sb, "Output the transcript in %s. ", t.options.TranscriptLanguage)
	}

	if t.options.Prompt != "" {
		sb.WriteString(t.options.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON object, no other text or markdown formatting.")

	return sb.String()
}

// parses Gemini's response into a result
func parseTranscriptionResponse(resp *genai.GenerateContentResponse) (*Result, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
	}

	if responseText.Len() == 0 {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	payload, err := extractTranscript(cleanJSONResponse(responseText.String()))
	if err != nil {
		return nil, err
	}

	return payload.toResult(), nil
}

func (p *transcriptPayload) toResult() *Result {
	cues := make([]subtitle.Cue, 0, len(p.Segments))
	var texts []string
	for _, seg := range p.Segments {
		text := strings.TrimSpace(seg.Text)
		cues = append(cues, subtitle.Cue{Text: text, Start: seg.Start, End: seg.End})
		if text != "" {
			texts = append(texts, text)
		}
	}

	transcription := strings.TrimSpace(p.Transcription)
	if transcription == "" {
		transcription = strings.Join(texts, " ")
	}

	return &Result{
		Transcription:    transcription,
		Segments:         cues,
		DetectedLanguage: p.DetectedLanguage,
		Duration:         p.Duration,
	}
}

// extractTranscript finds the first JSON value in s that carries a
// transcript: a payload object, a bare segment array, or either of those
// nested in a wrapper object. Surrounding prose is skipped.
func extractTranscript(s string) (*transcriptPayload, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}

		if payload, ok := interpretTranscript(raw); ok {
			return payload, nil
		}
		i += int(dec.InputOffset()) - 1
	}

	return nil, fmt.Errorf("no transcript found in response: %s", truncateString(s, 200))
}

func interpretTranscript(raw json.RawMessage) (*transcriptPayload, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, false
	}

	switch trimmed[0] {
	case '[':
		var segments []transcriptSegment
		if err := json.Unmarshal(raw, &segments); err != nil || !validateSegments(segments) {
			return nil, false
		}
		return &transcriptPayload{Segments: segments}, true

	case '{':
		var payload transcriptPayload
		if err := json.Unmarshal(raw, &payload); err == nil {
			if validateSegments(payload.Segments) || strings.TrimSpace(payload.Transcription) != "" {
				return &payload, true
			}
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, false
		}
		for _, key := range wrapperOrder(fields) {
			if nested, ok := interpretTranscript(fields[key]); ok {
				return nested, true
			}
		}
	}

	return nil, false
}

// well-known wrapper keys first, then the rest alphabetically
func wrapperOrder(fields map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, key := range wrapperKeys {
		if _, ok := fields[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}

	var rest []string
	for key := range fields {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	return append(keys, rest...)
}

// reports whether at least one segment carries any data
func validateSegments(segments []transcriptSegment) bool {
	for _, seg := range segments {
		if seg.Text != "" || seg.Start != 0 || seg.End != 0 {
			return true
		}
	}
	return false
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
