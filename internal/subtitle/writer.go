package subtitle

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asticode/go-astisub"
)

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

// Timed Text Markup Language, rendered by astisub
type TTMLWriter struct{}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "legendai subtitles",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	case FormatTTML:
		return &TTMLWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatSRT, FormatVTT, FormatASS, FormatTTML:
		return f, nil
	case "ssa":
		return FormatASS, nil
	case "dfxp", "xml":
		return FormatTTML, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use srt, vtt, ass, or ttml", name)
	}
}

func (w *SRTWriter) Render(sub *Subtitle) ([]byte, error) {
	return []byte(SerializeSRT(sub.Cues())), nil
}

func (w *SRTWriter) Write(sub *Subtitle, path string) error {
	return writeRendered(w, sub, path)
}

func (w *VTTWriter) Render(sub *Subtitle) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n",
			formatVTTTime(entry.StartTime),
			formatVTTTime(entry.EndTime))
		sb.WriteString(strings.TrimSpace(entry.Text))
		sb.WriteString("\n\n")
	}

	return []byte(sb.String()), nil
}

func (w *VTTWriter) Write(sub *Subtitle, path string) error {
	return writeRendered(w, sub, path)
}

func (w *ASSWriter) Render(sub *Subtitle) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	fmt.Fprintf(&sb, "Title: %s\n", w.Title)
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&sb, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		w.FontName, w.FontSize)

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, entry := range sub.Entries {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(entry.StartTime),
			formatASSTime(entry.EndTime),
			escapeASSText(strings.TrimSpace(entry.Text)))
	}

	return []byte(sb.String()), nil
}

func (w *ASSWriter) Write(sub *Subtitle, path string) error {
	return writeRendered(w, sub, path)
}

func (w *TTMLWriter) Render(sub *Subtitle) ([]byte, error) {
	subs := astisub.NewSubtitles()
	for _, entry := range sub.Entries {
		item := &astisub.Item{
			StartAt: entry.StartTime,
			EndAt:   entry.EndTime,
		}
		for _, line := range strings.Split(strings.TrimSpace(entry.Text), "\n") {
			item.Lines = append(item.Lines, astisub.Line{
				Items: []astisub.LineItem{{Text: line}},
			})
		}
		subs.Items = append(subs.Items, item)
	}

	var buf bytes.Buffer
	if err := subs.WriteToTTML(&buf); err != nil {
		return nil, fmt.Errorf("failed to render TTML: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *TTMLWriter) Write(sub *Subtitle, path string) error {
	return writeRendered(w, sub, path)
}

func writeRendered(w Writer, sub *Subtitle, path string) error {
	data, err := w.Render(sub)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func formatVTTTime(d time.Duration) string {
	return strings.Replace(FormatTimestamp(d.Seconds()), ",", ".", 1)
}

func formatASSTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	centis := (int(d.Milliseconds()) % 1000) / 10

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}

func escapeASSText(text string) string {
	return strings.ReplaceAll(text, "\n", "\\N")
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// subtitle format based on file extension
func FormatFromExtension(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".vtt":
		return FormatVTT
	case ".ass", ".ssa":
		return FormatASS
	case ".ttml", ".dfxp":
		return FormatTTML
	default:
		return FormatSRT
	}
}

// file extension for a format
func ExtensionForFormat(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	case FormatTTML:
		return ".ttml"
	default:
		return ".srt"
	}
}
