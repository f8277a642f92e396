package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/legendai/legendai/internal/subtitle"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	calls chan string
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan string, 16)}
}

func (r *recorder) handle(ctx context.Context, path string) error {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.calls <- path
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSubtitlePath(t *testing.T) {
	tests := []struct {
		media  string
		format subtitle.Format
		want   string
	}{
		{"/videos/talk.mp4", subtitle.FormatSRT, "/videos/talk.srt"},
		{"/videos/talk.final.mkv", subtitle.FormatVTT, "/videos/talk.final.vtt"},
		{"clip.wav", subtitle.FormatASS, "clip.ass"},
	}

	for _, tt := range tests {
		if got := SubtitlePath(tt.media, tt.format); got != tt.want {
			t.Errorf("SubtitlePath(%q, %s) = %q, want %q", tt.media, tt.format, got, tt.want)
		}
	}
}

func TestShouldHandle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "new.mp3"), "audio")
	writeFile(t, filepath.Join(dir, "done.mp4"), "video")
	writeFile(t, filepath.Join(dir, "done.srt"), "1\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "text")
	writeFile(t, filepath.Join(dir, ".partial.mp3"), "audio")
	if err := os.Mkdir(filepath.Join(dir, "folder.mp4"), 0755); err != nil {
		t.Fatal(err)
	}

	w := New(dir, newRecorder().handle, Options{}, nil)

	tests := []struct {
		name string
		want bool
	}{
		{"new.mp3", true},
		{"done.mp4", false},
		{"notes.txt", false},
		{".partial.mp3", false},
		{"folder.mp4", false},
		{"missing.mp3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.ShouldHandle(filepath.Join(dir, tt.name)); got != tt.want {
				t.Errorf("ShouldHandle(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestShouldHandleUsesConfiguredFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "talk.mp4"), "video")
	writeFile(t, filepath.Join(dir, "talk.srt"), "1\n")

	w := New(dir, newRecorder().handle, Options{Format: subtitle.FormatVTT}, nil)
	if !w.ShouldHandle(filepath.Join(dir, "talk.mp4")) {
		t.Error("an SRT sibling should not block VTT generation")
	}
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error: %v", err)
		}
	})

	// let the watcher register the directory
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherHandlesNewMediaAfterSettle(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w := New(dir, rec.handle, Options{SettleDelay: 150 * time.Millisecond}, nil)
	startWatcher(t, w)

	path := filepath.Join(dir, "episode.mp3")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		f.WriteString("chunk of audio data\n")
		time.Sleep(20 * time.Millisecond)
	}
	f.Close()
	writeFile(t, filepath.Join(dir, "readme.txt"), "ignored")

	select {
	case got := <-rec.calls:
		if got != path {
			t.Errorf("handled %q, want %q", got, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("media file was not handled")
	}

	time.Sleep(400 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("handler called %d times, want 1", n)
	}
}

func TestWatcherSkipsFilesWithSubtitles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "old.srt"), "1\n")

	rec := newRecorder()
	w := New(dir, rec.handle, Options{SettleDelay: 50 * time.Millisecond}, nil)
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "old.mp4"), "video")

	time.Sleep(500 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("handler called %d times, want 0", n)
	}
}

func TestWatcherScanExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backlog.wav")
	writeFile(t, path, "audio")

	rec := newRecorder()
	w := New(dir, rec.handle, Options{SettleDelay: 50 * time.Millisecond, ScanExisting: true}, nil)
	startWatcher(t, w)

	select {
	case got := <-rec.calls:
		if got != path {
			t.Errorf("handled %q, want %q", got, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("existing media file was not handled")
	}
}

func TestWatcherHandlerErrorDoesNotStop(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan string, 4)
	handle := func(ctx context.Context, path string) error {
		calls <- path
		return errors.New("transcription failed")
	}

	w := New(dir, handle, Options{SettleDelay: 50 * time.Millisecond}, nil)
	startWatcher(t, w)

	for _, name := range []string{"a.mp3", "b.mp3"} {
		writeFile(t, filepath.Join(dir, name), "audio")
		select {
		case <-calls:
		case <-time.After(3 * time.Second):
			t.Fatalf("%s was not handled", name)
		}
	}
}

func TestWatcherRerunsFileChangedDuringHandling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "growing.mp3")

	release := make(chan struct{})
	calls := make(chan string, 4)
	var n atomic.Int32
	handle := func(ctx context.Context, p string) error {
		calls <- p
		if n.Add(1) == 1 {
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
		return os.WriteFile(SubtitlePath(p, subtitle.FormatSRT), []byte("1\n"), 0644)
	}

	w := New(dir, handle, Options{SettleDelay: 50 * time.Millisecond}, nil)
	startWatcher(t, w)

	writeFile(t, path, "first part")
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("media file was not handled")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("second part")
	f.Close()

	// settle delay passes while the first run is still going
	time.Sleep(300 * time.Millisecond)
	close(release)

	select {
	case got := <-calls:
		if got != path {
			t.Errorf("handled %q, want %q", got, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("change made during handling was dropped")
	}
}

func TestRunMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), newRecorder().handle, Options{}, nil)
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}
