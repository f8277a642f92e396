package cli

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/config"
	"github.com/legendai/legendai/internal/logging"
)

func TestIsValidOpenAITranscriptLanguage(t *testing.T) {
	tests := []struct {
		lang string
		want bool
	}{
		// Valid cases
		{"", true},
		{"native", true},
		{"Native", true},
		{" native ", true},
		{"english", true},
		{"ENGLISH", true},
		{"en", true},
		{" en ", true},

		// Invalid cases - non-English languages
		{"spanish", false},
		{"French", false},
		{"japanese", false},
		{"es", false},
		{"zh", false},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			got := isValidOpenAITranscriptLanguage(tt.lang)
			if got != tt.want {
				t.Errorf(
					"isValidOpenAITranscriptLanguage(%q) = %v, want %v",
					tt.lang,
					got,
					tt.want,
				)
			}
		})
	}
}

func newTranscriptionCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addTranscriptionFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v) error: %v", args, err)
	}
	return cmd
}

func TestApplyGenerateFlags(t *testing.T) {
	logger = logging.NewNop()

	c := config.Default()
	cmd := newTranscriptionCmd(t,
		"--provider", "openai",
		"--model", "whisper-1",
		"-f", "vtt",
		"-d", "3",
		"--concurrency", "6",
		"-k", "sk-flag",
	)

	if err := applyGenerateFlags(cmd, c); err != nil {
		t.Fatalf("applyGenerateFlags() error: %v", err)
	}

	tc := c.Transcription
	if tc.Provider != "openai" || tc.Model != "whisper-1" || tc.Format != "vtt" ||
		tc.ChunkMinutes != 3 || tc.Concurrency != 6 {
		t.Errorf("transcription config = %+v", tc)
	}
	if c.APIKeys.OpenAI != "sk-flag" {
		t.Errorf("OpenAI key = %q, want flag value", c.APIKeys.OpenAI)
	}
}

func TestApplyGenerateFlagsKeepsConfigWhenUnset(t *testing.T) {
	logger = logging.NewNop()

	c := config.Default()
	c.Transcription.Format = "ass"
	c.Transcription.ChunkMinutes = 5

	if err := applyGenerateFlags(newTranscriptionCmd(t), c); err != nil {
		t.Fatalf("applyGenerateFlags() error: %v", err)
	}
	if c.Transcription.Format != "ass" || c.Transcription.ChunkMinutes != 5 {
		t.Errorf("config values were overwritten: %+v", c.Transcription)
	}
}

func TestApplyGenerateFlagsErrors(t *testing.T) {
	logger = logging.NewNop()

	tests := []struct {
		name string
		args []string
	}{
		{"unknown provider", []string{"--provider", "whisperx"}},
		{"openai non-english transcript", []string{"--provider", "openai", "--transcript-language", "spanish"}},
		{"bad format", []string{"-f", "sub"}},
		{"zero chunk duration", []string{"-d", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := applyGenerateFlags(newTranscriptionCmd(t, tt.args...), config.Default()); err == nil {
				t.Error("expected error")
			}
		})
	}
}
