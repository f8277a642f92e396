package translate

import (
	"context"
	"fmt"
	"strings"

	gtranslate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"google.golang.org/api/option"
)

// Cloud Translation accepts at most 128 segments per request
const googleMaxBatchSize = 128

// implements Translator using the Google Cloud Translation API
type GoogleTranslator struct {
	client  *gtranslate.Client
	target  language.Tag
	source  language.Tag
	options Options
}

var _ ConcurrentTranslator = (*GoogleTranslator)(nil)

func NewGoogleTranslator(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*GoogleTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	target, err := ParseLanguage(opts.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid target language: %w", err)
	}

	var source language.Tag
	if opts.InputLanguage != "" {
		source, err = ParseLanguage(opts.InputLanguage)
		if err != nil {
			return nil, fmt.Errorf("invalid input language: %w", err)
		}
	}

	client, err := gtranslate.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Translate client: %w", err)
	}

	return &GoogleTranslator{
		client:  client,
		target:  target,
		source:  source,
		options: opts,
	}, nil
}

func (t *GoogleTranslator) batchSize() int {
	return min(t.options.batchSize(), googleMaxBatchSize)
}

func (t *GoogleTranslator) Translate(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	return translateBatches(ctx, items, t.batchSize(), 1, t.translateBatch)
}

func (t *GoogleTranslator) TranslateWithConcurrency(
	ctx context.Context,
	items []TranslationItem,
	concurrency int,
) ([]TranslationResult, error) {
	return translateBatches(ctx, items, t.batchSize(), concurrency, t.translateBatch)
}

func (t *GoogleTranslator) translateBatch(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	inputs := make([]string, len(items))
	for i, item := range items {
		inputs[i] = item.Text
	}

	translations, err := t.client.Translate(ctx, inputs, t.target, &gtranslate.Options{
		Source: t.source,
		Format: gtranslate.Text,
		Model:  t.options.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	if len(translations) != len(items) {
		return nil, fmt.Errorf("expected %d results, got %d", len(items), len(translations))
	}

	results := make([]TranslationResult, len(items))
	for i, tr := range translations {
		results[i] = TranslationResult{Index: items[i].Index, Text: tr.Text}
	}
	return results, nil
}

func (t *GoogleTranslator) Close() error {
	return t.client.Close()
}

// languages accepted by English name, on top of BCP 47 tags
var namedLanguages = []language.Tag{
	language.Arabic, language.Bengali, language.Bulgarian, language.Catalan,
	language.Chinese, language.Croatian, language.Czech, language.Danish,
	language.Dutch, language.English, language.Estonian, language.Finnish,
	language.French, language.German, language.Greek, language.Hebrew,
	language.Hindi, language.Hungarian, language.Indonesian, language.Italian,
	language.Japanese, language.Korean, language.Latvian, language.Lithuanian,
	language.Malay, language.Marathi, language.Norwegian, language.Persian,
	language.Polish, language.Portuguese, language.Romanian, language.Russian,
	language.Serbian, language.Slovak, language.Slovenian, language.Spanish,
	language.Swahili, language.Swedish, language.Tamil, language.Telugu,
	language.Thai, language.Turkish, language.Ukrainian, language.Urdu,
	language.Vietnamese,
}

// ParseLanguage accepts a BCP 47 tag ("ja", "pt-BR") or an English language
// name ("Japanese").
func ParseLanguage(s string) (language.Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return language.Und, fmt.Errorf("empty language")
	}

	namer := display.English.Languages()
	for _, tag := range namedLanguages {
		if strings.EqualFold(namer.Name(tag), s) {
			return tag, nil
		}
	}

	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("unknown language %q", s)
	}
	return tag, nil
}
