package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/legendai/legendai/internal/subtitle"
)

// TranslateSRT translates every text line of an SRT document and puts the
// translations back in place. Index and timing lines come back unchanged;
// lines the provider did not return keep their original text.
func TranslateSRT(
	ctx context.Context,
	tr Translator,
	srt string,
	concurrency int,
) (string, error) {
	split, translated, err := translateLines(ctx, tr, srt, concurrency)
	if err != nil {
		return "", err
	}
	return split.Reassemble(translated), nil
}

// TranslateOverlay produces bilingual subtitles: each text line becomes the
// translation followed by the original on the next line.
func TranslateOverlay(
	ctx context.Context,
	tr Translator,
	srt string,
	concurrency int,
) (string, error) {
	split, translated, err := translateLines(ctx, tr, srt, concurrency)
	if err != nil {
		return "", err
	}

	originals := split.Texts()
	for k := range translated {
		newline := "\n"
		if strings.HasSuffix(split.Lines[split.TextLineIndices[k]], "\r") {
			newline = "\r\n"
		}
		translated[k] = translated[k] + newline + originals[k]
	}
	return split.Reassemble(translated), nil
}

func translateLines(
	ctx context.Context,
	tr Translator,
	srt string,
	concurrency int,
) (subtitle.LineSplit, []string, error) {
	split := subtitle.ExtractTextLines(srt)
	texts := split.Texts()

	translated := make([]string, len(texts))
	copy(translated, texts)
	if len(texts) == 0 {
		return split, translated, nil
	}

	items := make([]TranslationItem, len(texts))
	for i, text := range texts {
		items[i] = TranslationItem{Index: i, Text: text}
	}

	results, err := Run(ctx, tr, items, concurrency)
	if err != nil {
		return subtitle.LineSplit{}, nil, fmt.Errorf("translation failed: %w", err)
	}

	for _, result := range results {
		if result.Index < 0 || result.Index >= len(translated) {
			continue
		}
		if text := strings.TrimSpace(result.Text); text != "" {
			translated[result.Index] = text
		}
	}

	return split, translated, nil
}
