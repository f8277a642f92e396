package transcribe

import (
	"testing"

	"github.com/legendai/legendai/internal/subtitle"
)

func TestParseVerboseJSONResponse(t *testing.T) {
	tests := []struct {
		name      string
		rawJSON   string
		wantCount int
		wantErr   bool
	}{
		{
			name: "valid verbose_json with segments",
			rawJSON: `{
				"text": "Hello world. How are you today?",
				"segments": [
					{"start": 0.0, "end": 1.5, "text": "Hello world."},
					{"start": 1.5, "end": 3.0, "text": "How are you today?"}
				],
				"language": "en",
				"duration": 3.0
			}`,
			wantCount: 2,
		},
		{
			name: "verbose_json with no segments but has text",
			rawJSON: `{
				"text": "This is a transcription without segments.",
				"segments": [],
				"language": "en",
				"duration": 2.5
			}`,
			wantCount: 0,
		},
		{
			name: "verbose_json with null segments",
			rawJSON: `{
				"text": "Transcription text only.",
				"segments": null,
				"language": "en",
				"duration": 1.0
			}`,
			wantCount: 0,
		},
		{
			name: "verbose_json with empty text segments filtered out",
			rawJSON: `{
				"text": "Hello world",
				"segments": [
					{"start": 0.0, "end": 0.5, "text": ""},
					{"start": 0.5, "end": 1.5, "text": "Hello world"},
					{"start": 1.5, "end": 2.0, "text": "   "}
				],
				"language": "en",
				"duration": 2.0
			}`,
			wantCount: 1,
		},
		{
			name: "verbose_json with whitespace-padded text",
			rawJSON: `{
				"text": "  Trimmed text  ",
				"segments": [
					{"start": 0.0, "end": 1.0, "text": "  Trimmed text  "}
				],
				"language": "en",
				"duration": 1.0
			}`,
			wantCount: 1,
		},
		{
			name:    "empty response",
			rawJSON: "",
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			rawJSON: `{"text": "incomplete`,
			wantErr: true,
		},
		{
			name: "no segments and no text",
			rawJSON: `{
				"text": "",
				"segments": [],
				"language": "en",
				"duration": 0
			}`,
			wantErr: true,
		},
		{
			name: "real whisper response format",
			rawJSON: `{
				"task": "transcribe",
				"language": "english",
				"duration": 8.470000267028809,
				"text": "The stale smell of old beer lingers. It takes heat to bring out the odor.",
				"segments": [
					{
						"id": 0,
						"seek": 0,
						"start": 0.0,
						"end": 3.319999933242798,
						"text": "The stale smell of old beer lingers.",
						"tokens": [50364, 440, 23025, 7966, 295, 1331, 8388, 22949, 404, 13, 50530],
						"temperature": 0.0,
						"avg_logprob": -0.2860786020755768,
						"compression_ratio": 1.2363636493682861,
						"no_speech_prob": 0.009231
					},
					{
						"id": 1,
						"seek": 0,
						"start": 3.319999933242798,
						"end": 6.190000057220459,
						"text": "It takes heat to bring out the odor.",
						"tokens": [50530, 467, 2516, 3738, 281, 1565, 484, 264, 10602, 13, 50673],
						"temperature": 0.0,
						"avg_logprob": -0.2860786020755768,
						"compression_ratio": 1.2363636493682861,
						"no_speech_prob": 0.009231
					}
				]
			}`,
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVerboseJSONResponse(tt.rawJSON)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Segments) != tt.wantCount {
				t.Errorf(
					"got %d segments, want %d",
					len(result.Segments),
					tt.wantCount,
				)
			}

			for i, seg := range result.Segments {
				if seg.Text == "" {
					t.Errorf("segment %d has empty text", i)
				}
			}
		})
	}
}

func TestParseVerboseJSONResponseTimestamps(t *testing.T) {
	rawJSON := `{
		"text": "Hello world. Goodbye.",
		"segments": [
			{"start": 1.5, "end": 3.0, "text": "Hello world."},
			{"start": 3.0, "end": 5.5, "text": "Goodbye."}
		],
		"language": "en",
		"duration": 5.5
	}`

	result, err := parseVerboseJSONResponse(rawJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []subtitle.Cue{
		{Text: "Hello world.", Start: 1.5, End: 3.0},
		{Text: "Goodbye.", Start: 3.0, End: 5.5},
	}
	if len(result.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(result.Segments))
	}
	for i, w := range want {
		if result.Segments[i] != w {
			t.Errorf("segment %d = %+v, want %+v", i, result.Segments[i], w)
		}
	}
	if result.DetectedLanguage != "en" || result.Duration != 5.5 {
		t.Errorf("language/duration = %q/%v", result.DetectedLanguage, result.Duration)
	}
}

func TestShouldUseTranslation(t *testing.T) {
	tests := []struct {
		transcriptLang string
		want           bool
	}{
		{"english", true},
		{"English", true},
		{"ENGLISH", true},
		{"en", true},
		{"EN", true},
		{" english ", true},
		{"native", false},
		{"", false},
		{"spanish", false},
		{"japanese", false},
	}

	for _, tt := range tests {
		t.Run(tt.transcriptLang, func(t *testing.T) {
			transcriber := &OpenAITranscriber{
				options: Options{
					TranscriptLanguage: tt.transcriptLang,
				},
			}
			got := transcriber.shouldUseTranslation()
			if got != tt.want {
				t.Errorf("shouldUseTranslation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupportsSegments(t *testing.T) {
	tests := map[string]bool{
		"whisper-1":              true,
		"gpt-4o-transcribe":      false,
		"gpt-4o-mini-transcribe": false,
	}
	for model, want := range tests {
		tr := &OpenAITranscriber{model: model}
		if got := tr.supportsSegments(); got != want {
			t.Errorf("supportsSegments(%q) = %v, want %v", model, got, want)
		}
	}
}

func TestTextOnlyResponseIsSynthesized(t *testing.T) {
	rawJSON := `{
		"text": "This is a transcription without segments.",
		"duration": 10.5
	}`

	result, err := parseVerboseJSONResponse(rawJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src, ok := result.TimingSource().(subtitle.Synthesized)
	if !ok {
		t.Fatalf("TimingSource() = %T, want subtitle.Synthesized", result.TimingSource())
	}
	if src.Text != "This is a transcription without segments." {
		t.Errorf("Text = %q", src.Text)
	}
	if src.TotalDuration != 10.5 {
		t.Errorf("TotalDuration = %v, want 10.5", src.TotalDuration)
	}
}
