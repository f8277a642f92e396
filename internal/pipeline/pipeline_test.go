package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/legendai/legendai/internal/media"
	"github.com/legendai/legendai/internal/subtitle"
	"github.com/legendai/legendai/internal/transcribe"
)

const epsilon = 1e-9

func TestAssembleOffsetsAndClamps(t *testing.T) {
	results := []*transcribe.Result{
		{
			Segments: []subtitle.Cue{
				{Text: "second", Start: 2, End: 4},
				{Text: "first", Start: 0, End: 2},
				{Text: "  ", Start: 4, End: 5},
				{Text: "overrun", Start: 9, End: 12},
				{Text: "outside", Start: 10, End: 11},
			},
			Duration: 10,
		},
		{
			Segments: []subtitle.Cue{{Text: "later", Start: 1, End: 3}},
			Duration: 10,
			Offset:   10,
		},
	}

	cues := Assemble(results, subtitle.DefaultTimingConfig())

	want := []subtitle.Cue{
		{Text: "first", Start: 0, End: 2},
		{Text: "second", Start: 2, End: 4},
		{Text: "overrun", Start: 9, End: 10},
		{Text: "later", Start: 11, End: 13},
	}
	if len(cues) != len(want) {
		t.Fatalf("got %d cues, want %d: %+v", len(cues), len(want), cues)
	}
	for i, w := range want {
		if cues[i] != w {
			t.Errorf("cue %d = %+v, want %+v", i, cues[i], w)
		}
	}
}

func TestAssembleSynthesizedChunks(t *testing.T) {
	results := []*transcribe.Result{
		{Transcription: "one two three four five six seven eight nine ten", Duration: 3},
		{Transcription: "eleven twelve", Duration: 60, Offset: 3},
	}

	cues := Assemble(results, subtitle.DefaultTimingConfig())
	if len(cues) != 3 {
		t.Fatalf("got %d cues, want 3: %+v", len(cues), cues)
	}

	// first chunk is rescaled into its 3 seconds
	if math.Abs(cues[1].End-3) > epsilon {
		t.Errorf("first chunk ends at %v, want 3", cues[1].End)
	}
	if math.Abs(cues[2].Start-3) > epsilon {
		t.Errorf("second chunk starts at %v, want 3", cues[2].Start)
	}
	for i, c := range cues {
		if c.End <= c.Start {
			t.Errorf("cue %d has end %v <= start %v", i, c.End, c.Start)
		}
	}
}

func TestAssembleSkipsNil(t *testing.T) {
	if cues := Assemble([]*transcribe.Result{nil}, subtitle.DefaultTimingConfig()); len(cues) != 0 {
		t.Errorf("expected no cues, got %+v", cues)
	}
}

type stubTranscriber struct {
	results map[string]*transcribe.Result
	err     error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath string) (*transcribe.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := *s.results[filepath.Base(audioPath)]
	return &r, nil
}

func newTestGenerator(t *testing.T, tr transcribe.Transcriber, total time.Duration, opts Options) *Generator {
	t.Helper()

	opts.WorkDir = t.TempDir()
	g := NewGenerator(tr, opts, nil)
	g.prepare = func(ctx context.Context, in, out string, _ media.AudioOptions) error {
		return os.WriteFile(out, []byte("audio"), 0644)
	}
	g.duration = func(ctx context.Context, path string) (time.Duration, error) {
		return total, nil
	}
	g.chunk = func(ctx context.Context, path string, d time.Duration, dir string, _ int) ([]media.ChunkInfo, error) {
		return media.PlanChunks(path, total, d, dir), nil
	}
	return g
}

func writeMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatalf("failed to write media: %v", err)
	}
	return path
}

func TestGeneratorRunChunked(t *testing.T) {
	tr := &stubTranscriber{results: map[string]*transcribe.Result{
		"audio_chunk_000.mp3": {
			Transcription:    "Hello there.",
			Segments:         []subtitle.Cue{{Text: "Hello there.", Start: 0.5, End: 2}},
			DetectedLanguage: "en",
		},
		"audio_chunk_001.mp3": {
			Transcription:    "General Kenobi",
			DetectedLanguage: "en",
		},
	}}

	var mu sync.Mutex
	var stages []Stage
	opts := Options{
		ChunkDuration: time.Minute,
		Concurrency:   2,
		Progress: func(p Progress) {
			mu.Lock()
			stages = append(stages, p.Stage)
			mu.Unlock()
		},
	}

	g := newTestGenerator(t, tr, 90*time.Second, opts)
	out, err := g.Run(context.Background(), writeMedia(t))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if out.Chunks != 2 {
		t.Errorf("Chunks = %d, want 2", out.Chunks)
	}
	if out.Language != "en" {
		t.Errorf("Language = %q, want en", out.Language)
	}
	if out.Transcription != "Hello there. General Kenobi" {
		t.Errorf("Transcription = %q", out.Transcription)
	}
	if len(out.Cues) != 2 {
		t.Fatalf("got %d cues, want 2: %+v", len(out.Cues), out.Cues)
	}
	if out.Cues[0] != (subtitle.Cue{Text: "Hello there.", Start: 0.5, End: 2}) {
		t.Errorf("cue 0 = %+v", out.Cues[0])
	}
	if out.Cues[1].Start != 60 || out.Cues[1].Text != "General Kenobi" {
		t.Errorf("cue 1 = %+v, want synthesized cue at 60s", out.Cues[1])
	}

	if stages[0] != StagePreparing || stages[len(stages)-1] != StageDone {
		t.Errorf("stages = %v", stages)
	}

	sub := out.Subtitle()
	if len(sub.Entries) != 2 || sub.Language != "en" {
		t.Errorf("Subtitle() = %+v", sub)
	}
}

func TestGeneratorRunSingleChunk(t *testing.T) {
	tr := &stubTranscriber{results: map[string]*transcribe.Result{
		"audio.mp3": {Transcription: "short clip"},
	}}

	g := newTestGenerator(t, tr, 30*time.Second, Options{ChunkDuration: time.Minute})
	out, err := g.Run(context.Background(), writeMedia(t))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out.Chunks != 1 || len(out.Cues) != 1 {
		t.Errorf("out = %+v", out)
	}
	if out.Duration != 30 {
		t.Errorf("Duration = %v, want 30", out.Duration)
	}
}

func TestGeneratorRunErrors(t *testing.T) {
	g := newTestGenerator(t, &stubTranscriber{}, time.Minute, Options{})
	if _, err := g.Run(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing input")
	}

	boom := errors.New("provider down")
	g = newTestGenerator(t, &stubTranscriber{err: boom}, time.Minute, Options{})
	if _, err := g.Run(context.Background(), writeMedia(t)); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}
