package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/legendai/legendai/internal/logging"
	"github.com/legendai/legendai/internal/media"
	"github.com/legendai/legendai/internal/subtitle"
	"github.com/legendai/legendai/internal/transcribe"
)

type Stage string

const (
	StagePreparing    Stage = "preparing"
	StageChunking     Stage = "chunking"
	StageTranscribing Stage = "transcribing"
	StageAssembling   Stage = "assembling"
	StageDone         Stage = "done"
)

// Progress is reported at every stage change and after each transcribed chunk.
type Progress struct {
	Stage Stage `json:"stage"`
	Done  int   `json:"done"`
	Total int   `json:"total"`
}

// ProgressFunc may be called from several goroutines while chunks are transcribed.
type ProgressFunc func(Progress)

type Options struct {
	Timing        subtitle.TimingConfig
	ChunkDuration time.Duration // audio longer than this is split; <= 0 disables chunking
	Concurrency   int
	WorkDir       string // parent for temporary files, os.TempDir() when empty
	Progress      ProgressFunc
}

// Generator turns a media file into timed cues using a transcription provider.
type Generator struct {
	transcriber transcribe.Transcriber
	opts        Options
	logger      *logging.Logger

	// replaceable in tests
	prepare  func(ctx context.Context, in, out string, opts media.AudioOptions) error
	duration func(ctx context.Context, path string) (time.Duration, error)
	chunk    func(ctx context.Context, path string, d time.Duration, dir string, concurrency int) ([]media.ChunkInfo, error)
}

type Output struct {
	Cues          []subtitle.Cue
	Transcription string
	Language      string
	Duration      float64
	Chunks        int
}

// Subtitle returns the cues as a writable track.
func (o *Output) Subtitle() *subtitle.Subtitle {
	sub := subtitle.FromCues(o.Cues)
	sub.Language = o.Language
	return sub
}

func NewGenerator(t transcribe.Transcriber, opts Options, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts.Timing = opts.Timing.WithDefaults()

	return &Generator{
		transcriber: t,
		opts:        opts,
		logger:      logger,
		prepare:     media.PrepareAudio,
		duration:    media.Duration,
		chunk:       media.ChunkAudio,
	}
}

func (g *Generator) report(p Progress) {
	if g.opts.Progress != nil {
		g.opts.Progress(p)
	}
}

// Run extracts compact audio from mediaPath, transcribes it (in chunks when
// long) and merges the per-chunk timing into a single cue list.
func (g *Generator) Run(ctx context.Context, mediaPath string) (*Output, error) {
	if _, err := os.Stat(mediaPath); err != nil {
		return nil, fmt.Errorf("input file not found: %s", mediaPath)
	}

	tempDir, err := os.MkdirTemp(g.opts.WorkDir, "legendai-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	g.report(Progress{Stage: StagePreparing})

	audioPath := filepath.Join(tempDir, "audio.mp3")
	g.logger.Infow("Preparing audio", "input", mediaPath)
	if err := g.prepare(ctx, mediaPath, audioPath, media.DefaultAudioOptions()); err != nil {
		return nil, fmt.Errorf("failed to prepare audio: %w", err)
	}

	total, err := g.duration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}
	g.logger.Infow("Audio prepared", "duration", total.Round(time.Second).String())

	g.report(Progress{Stage: StageChunking})

	chunks := []media.ChunkInfo{{Path: audioPath, EndTime: total}}
	if g.opts.ChunkDuration > 0 && total > g.opts.ChunkDuration {
		chunks, err = g.chunk(ctx, audioPath, g.opts.ChunkDuration, filepath.Join(tempDir, "chunks"), g.opts.Concurrency)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk audio: %w", err)
		}
		g.logger.Infow("Audio chunked",
			"chunks", len(chunks),
			"chunk_duration", g.opts.ChunkDuration.String(),
		)
	}

	g.report(Progress{Stage: StageTranscribing, Total: len(chunks)})

	counting := &countingTranscriber{
		inner: g.transcriber,
		onDone: func(done int) {
			g.report(Progress{Stage: StageTranscribing, Done: done, Total: len(chunks)})
		},
	}
	results, err := transcribe.TranscribeChunks(ctx, counting, chunks, g.opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	g.report(Progress{Stage: StageAssembling})

	out := &Output{
		Cues:          Assemble(results, g.opts.Timing),
		Transcription: joinTranscriptions(results),
		Language:      detectedLanguage(results),
		Duration:      total.Seconds(),
		Chunks:        len(chunks),
	}

	g.logger.Infow("Transcription assembled",
		"cues", len(out.Cues),
		"language", out.Language,
	)
	g.report(Progress{Stage: StageDone, Done: len(chunks), Total: len(chunks)})

	return out, nil
}

// Assemble resolves each result's timing source, keeps the cues inside the
// result's own span and shifts them by the result offset. Results must be
// in timeline order.
func Assemble(results []*transcribe.Result, cfg subtitle.TimingConfig) []subtitle.Cue {
	var cues []subtitle.Cue
	for _, r := range results {
		if r == nil {
			continue
		}

		local := r.TimingSource().Resolve(cfg)
		sort.SliceStable(local, func(i, j int) bool {
			return local[i].Start < local[j].Start
		})

		for _, c := range local {
			if r.Duration > 0 {
				if c.Start >= r.Duration {
					continue
				}
				c.End = min(c.End, r.Duration)
			}
			c.Start += r.Offset
			c.End += r.Offset
			cues = append(cues, c)
		}
	}
	return cues
}

func joinTranscriptions(results []*transcribe.Result) string {
	var parts []string
	for _, r := range results {
		if r == nil {
			continue
		}
		if text := strings.TrimSpace(r.Transcription); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// most frequent language reported across chunks
func detectedLanguage(results []*transcribe.Result) string {
	counts := make(map[string]int)
	best := ""
	for _, r := range results {
		if r == nil || r.DetectedLanguage == "" {
			continue
		}
		counts[r.DetectedLanguage]++
		if counts[r.DetectedLanguage] > counts[best] {
			best = r.DetectedLanguage
		}
	}
	return best
}

type countingTranscriber struct {
	inner  transcribe.Transcriber
	done   atomic.Int32
	onDone func(done int)
}

func (c *countingTranscriber) Transcribe(ctx context.Context, audioPath string) (*transcribe.Result, error) {
	result, err := c.inner.Transcribe(ctx, audioPath)
	if err == nil && c.onDone != nil {
		c.onDone(int(c.done.Add(1)))
	}
	return result, err
}
