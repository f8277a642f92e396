package subtitle

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/asticode/go-astisub"
)

// Open reads a subtitle file, choosing the parser from its extension.
func Open(path string) (*Subtitle, error) {
	format, err := formatForInput(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	cues, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	sub := FromCues(cues)
	sub.Format = string(format)
	return sub, nil
}

func formatForInput(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".srt":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	case ".ass", ".ssa":
		return FormatASS, nil
	case ".ttml", ".dfxp":
		return FormatTTML, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format: %s", ext)
	}
}

// Parse decodes subtitle data in the given format.
func Parse(data []byte, format Format) ([]Cue, error) {
	switch format {
	case FormatSRT:
		return ParseSRT(string(data))
	case FormatVTT:
		return ParseVTT(string(data))
	case FormatASS, FormatTTML:
		return parseWithAstisub(data, format)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func parseWithAstisub(data []byte, format Format) ([]Cue, error) {
	var (
		subs *astisub.Subtitles
		err  error
	)
	if format == FormatASS {
		subs, err = astisub.ReadFromSSA(bytes.NewReader(data))
	} else {
		subs, err = astisub.ReadFromTTML(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	cues := make([]Cue, 0, len(subs.Items))
	for _, item := range subs.Items {
		text := itemText(item)
		if text == "" {
			continue
		}
		cues = append(cues, Cue{
			Text:  text,
			Start: item.StartAt.Seconds(),
			End:   item.EndAt.Seconds(),
		})
	}
	return cues, nil
}

func itemText(item *astisub.Item) string {
	lines := make([]string, 0, len(item.Lines))
	for _, line := range item.Lines {
		var sb strings.Builder
		for _, li := range line.Items {
			sb.WriteString(li.Text)
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
