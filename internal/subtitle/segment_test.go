package subtitle

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildSegments(t *testing.T) {
	longWord := strings.Repeat("x", 50)

	tests := []struct {
		name string
		text string
		want []SegmentDraft
	}{
		{
			name: "empty",
			text: "",
			want: []SegmentDraft{},
		},
		{
			name: "whitespace only",
			text: " \n\t  ",
			want: []SegmentDraft{},
		},
		{
			name: "word limit",
			text: "Hello world this is a test of subtitle generation today",
			want: []SegmentDraft{
				{Text: "Hello world this is a test of subtitle", WordCount: 8},
				{Text: "generation today", WordCount: 2},
			},
		},
		{
			name: "single punctuated word",
			text: "Stop.",
			want: []SegmentDraft{{Text: "Stop.", WordCount: 1}},
		},
		{
			name: "short sentence does not break",
			text: "Mr. Smith arrived. Then left",
			want: []SegmentDraft{
				{Text: "Mr. Smith arrived. Then left", WordCount: 5},
			},
		},
		{
			name: "sentence word starts next segment",
			text: "One two three four. Five six",
			want: []SegmentDraft{
				{Text: "One two three", WordCount: 3},
				{Text: "four. Five six", WordCount: 3},
			},
		},
		{
			name: "character limit",
			text: "internationalization localization globalization standardization",
			want: []SegmentDraft{
				{Text: "internationalization localization", WordCount: 2},
				{Text: "globalization standardization", WordCount: 2},
			},
		},
		{
			name: "oversized word kept whole",
			text: "a " + longWord + " b",
			want: []SegmentDraft{
				{Text: "a", WordCount: 1},
				{Text: longWord, WordCount: 1},
				{Text: "b", WordCount: 1},
			},
		},
		{
			name: "all punctuation",
			text: "... !!! ???",
			want: []SegmentDraft{{Text: "... !!! ???", WordCount: 3}},
		},
		{
			name: "collapses whitespace",
			text: "  spaced\tout\n\nwords  ",
			want: []SegmentDraft{{Text: "spaced out words", WordCount: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSegments(tt.text, DefaultTimingConfig())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildSegments(%q) = %#v, want %#v", tt.text, got, tt.want)
			}
		})
	}
}

func TestBuildSegmentsPreservesWords(t *testing.T) {
	texts := []string{
		"Hello world this is a test of subtitle generation today",
		"The quick brown fox jumps over the lazy dog. It was not amused! Why? Nobody knows. " +
			"Subtitles should never lose a single word, no matter how long the transcript grows.",
		"Olá, tudo bem? Hoje vamos falar sobre legendas automáticas e como elas são geradas.",
		strings.Repeat("word ", 97),
		"a " + strings.Repeat("y", 80) + " c d e f g h i j k",
	}

	cfg := DefaultTimingConfig()
	for _, text := range texts {
		segments := BuildSegments(text, cfg)

		var rebuilt []string
		for _, seg := range segments {
			words := strings.Fields(seg.Text)
			if len(words) != seg.WordCount {
				t.Errorf("segment %q has WordCount %d, want %d", seg.Text, seg.WordCount, len(words))
			}
			if seg.WordCount > cfg.MaxWordsPerCue {
				t.Errorf("segment %q exceeds %d words", seg.Text, cfg.MaxWordsPerCue)
			}
			if seg.WordCount > 1 && utf8.RuneCountInString(seg.Text) > cfg.MaxCharsPerCue {
				t.Errorf("multi-word segment %q exceeds %d chars", seg.Text, cfg.MaxCharsPerCue)
			}
			rebuilt = append(rebuilt, words...)
		}

		if !reflect.DeepEqual(rebuilt, strings.Fields(text)) {
			t.Errorf("words not preserved for %q", text)
		}
	}
}

func TestBuildSegmentsCustomConfig(t *testing.T) {
	cfg := TimingConfig{MaxWordsPerCue: 2, MaxCharsPerCue: 100}
	got := BuildSegments("one two three four five", cfg)
	want := []SegmentDraft{
		{Text: "one two", WordCount: 2},
		{Text: "three four", WordCount: 2},
		{Text: "five", WordCount: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildSegments() = %#v, want %#v", got, want)
	}
}

func TestTimingConfigWithDefaults(t *testing.T) {
	got := TimingConfig{}.WithDefaults()
	if got != DefaultTimingConfig() {
		t.Errorf("zero config = %+v, want defaults %+v", got, DefaultTimingConfig())
	}

	custom := TimingConfig{MinCueDuration: 5}.WithDefaults()
	if custom.MaxCueDuration < custom.MinCueDuration {
		t.Errorf("MaxCueDuration %v below MinCueDuration %v", custom.MaxCueDuration, custom.MinCueDuration)
	}
}
