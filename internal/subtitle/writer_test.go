package subtitle

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleSubtitle() *Subtitle {
	return FromCues([]Cue{
		{Text: "Hello, world!", Start: 1, End: 4},
		{Text: "Two\nlines", Start: 5.5, End: 8.25},
	})
}

func TestFromCues(t *testing.T) {
	sub := sampleSubtitle()
	if len(sub.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(sub.Entries))
	}
	if sub.Entries[1].Index != 2 {
		t.Errorf("entry index = %d, want 2", sub.Entries[1].Index)
	}
	if sub.Entries[1].StartTime != 5500*time.Millisecond {
		t.Errorf("entry start = %v, want 5.5s", sub.Entries[1].StartTime)
	}
	if sub.Entries[1].EndTime != 8250*time.Millisecond {
		t.Errorf("entry end = %v, want 8.25s", sub.Entries[1].EndTime)
	}
}

func TestUnboundedProviderEndTime(t *testing.T) {
	cues := []Cue{{Text: "Hi", Start: 1, End: math.Inf(1)}}

	srt := SerializeSRT(cues)
	if !strings.Contains(srt, "00:00:01,000 --> 99:59:59,999") {
		t.Errorf("SerializeSRT() = %q, want end clamped to 99:59:59,999", srt)
	}

	sub := FromCues(cues)
	if want := 359999999 * time.Millisecond; sub.Entries[0].EndTime != want {
		t.Errorf("entry end = %v, want %v", sub.Entries[0].EndTime, want)
	}
}

func TestSRTWriterRender(t *testing.T) {
	w, err := NewWriter(FormatSRT)
	if err != nil {
		t.Fatalf("NewWriter(srt) error: %v", err)
	}
	data, err := w.Render(sampleSubtitle())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	want := "1\n00:00:01,000 --> 00:00:04,000\nHello, world!\n\n" +
		"2\n00:00:05,500 --> 00:00:08,250\nTwo\nlines\n\n"
	if string(data) != want {
		t.Errorf("Render() = %q, want %q", data, want)
	}
}

func TestVTTWriterRender(t *testing.T) {
	w, _ := NewWriter(FormatVTT)
	data, err := w.Render(sampleSubtitle())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	out := string(data)
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Errorf("missing WEBVTT header: %q", out)
	}
	if !strings.Contains(out, "00:00:05.500 --> 00:00:08.250\nTwo\nlines") {
		t.Errorf("unexpected VTT body: %q", out)
	}
}

func TestASSWriterRender(t *testing.T) {
	w, _ := NewWriter(FormatASS)
	data, err := w.Render(sampleSubtitle())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "[Events]") {
		t.Error("missing [Events] section")
	}
	if !strings.Contains(out, `Dialogue: 0,0:00:05.50,0:00:08.25,Default,,0,0,0,,Two\Nlines`) {
		t.Errorf("unexpected dialogue lines: %q", out)
	}
}

func TestTTMLWriterRender(t *testing.T) {
	w, _ := NewWriter(FormatTTML)
	data, err := w.Render(sampleSubtitle())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "<tt") {
		t.Errorf("expected a TTML document, got %q", out)
	}
	if !strings.Contains(out, "Hello, world!") {
		t.Errorf("TTML output is missing cue text: %q", out)
	}
}

func TestWriterWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.srt")
	w, _ := NewWriter(FormatSRT)
	if err := w.Write(sampleSubtitle(), path); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "1\n00:00:01,000") {
		t.Errorf("unexpected file content: %q", data)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"srt", FormatSRT, false},
		{" VTT ", FormatVTT, false},
		{"ssa", FormatASS, false},
		{"dfxp", FormatTTML, false},
		{"docx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestFormatFromExtension(t *testing.T) {
	tests := map[string]Format{
		"movie.srt":  FormatSRT,
		"movie.VTT":  FormatVTT,
		"movie.ssa":  FormatASS,
		"movie.ttml": FormatTTML,
		"movie.txt":  FormatSRT,
	}
	for path, want := range tests {
		if got := FormatFromExtension(path); got != want {
			t.Errorf("FormatFromExtension(%q) = %q, want %q", path, got, want)
		}
		if ExtensionForFormat(want) == "" {
			t.Errorf("ExtensionForFormat(%q) is empty", want)
		}
	}
}
