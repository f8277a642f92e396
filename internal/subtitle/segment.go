package subtitle

import (
	"strings"
	"unicode/utf8"
)

// tunable constants of the segmentation and speech-rate model
type TimingConfig struct {
	MaxWordsPerCue int     `mapstructure:"max_words_per_cue" yaml:"max_words_per_cue"`
	MaxCharsPerCue int     `mapstructure:"max_chars_per_cue" yaml:"max_chars_per_cue"`
	WordsPerMinute float64 `mapstructure:"words_per_minute"  yaml:"words_per_minute"`
	MinCueDuration float64 `mapstructure:"min_cue_duration"  yaml:"min_cue_duration"` // seconds
	MaxCueDuration float64 `mapstructure:"max_cue_duration"  yaml:"max_cue_duration"` // seconds
}

func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		MaxWordsPerCue: 8,
		MaxCharsPerCue: 42, // standard subtitle line length
		WordsPerMinute: 150,
		MinCueDuration: 1.5,
		MaxCueDuration: 4.0,
	}
}

// WithDefaults fills unset or invalid fields from DefaultTimingConfig.
func (c TimingConfig) WithDefaults() TimingConfig {
	d := DefaultTimingConfig()
	if c.MaxWordsPerCue <= 0 {
		c.MaxWordsPerCue = d.MaxWordsPerCue
	}
	if c.MaxCharsPerCue <= 0 {
		c.MaxCharsPerCue = d.MaxCharsPerCue
	}
	if c.WordsPerMinute <= 0 {
		c.WordsPerMinute = d.WordsPerMinute
	}
	if c.MinCueDuration <= 0 {
		c.MinCueDuration = d.MinCueDuration
	}
	if c.MaxCueDuration < c.MinCueDuration {
		c.MaxCueDuration = max(d.MaxCueDuration, c.MinCueDuration)
	}
	return c
}

// minimum words a segment needs before sentence punctuation may close it
const minWordsBeforeSentenceBreak = 3

// BuildSegments greedily groups the words of text into cue drafts.
//
// The current segment is closed, and the word starts the next one, when the
// segment already holds MaxWordsPerCue words, when appending the word would
// exceed MaxCharsPerCue runes, or when the word ends a sentence and the
// segment has at least three words. A single word longer than MaxCharsPerCue
// is never split.
func BuildSegments(text string, cfg TimingConfig) []SegmentDraft {
	cfg = cfg.WithDefaults()
	words := strings.Fields(text)
	if len(words) == 0 {
		return []SegmentDraft{}
	}

	segments := make([]SegmentDraft, 0, len(words)/cfg.MaxWordsPerCue+1)
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		segments = append(segments, SegmentDraft{
			Text:      strings.Join(current, " "),
			WordCount: len(current),
		})
		current = nil
		currentLen = 0
	}

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)

		if len(current) > 0 {
			candidateLen := currentLen + 1 + wordLen
			if len(current) >= cfg.MaxWordsPerCue ||
				candidateLen > cfg.MaxCharsPerCue ||
				(endsSentence(word) && len(current) >= minWordsBeforeSentenceBreak) {
				flush()
			}
		}

		if len(current) > 0 {
			currentLen++
		}
		current = append(current, word)
		currentLen += wordLen
	}
	flush()

	return segments
}

func endsSentence(word string) bool {
	r, _ := utf8.DecodeLastRuneInString(word)
	return r == '.' || r == '!' || r == '?'
}
