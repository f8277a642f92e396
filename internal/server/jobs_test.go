package server

import (
	"errors"
	"testing"
	"time"

	"github.com/legendai/legendai/internal/pipeline"
)

func TestJobStoreLifecycle(t *testing.T) {
	store := NewJobStore()
	job := store.Create("talk.mp4")

	if job.Status != StatusPending {
		t.Fatalf("new job status = %s", job.Status)
	}

	store.SetProgress(job.ID, pipeline.Progress{Stage: pipeline.StageTranscribing, Done: 1, Total: 4})
	got, _ := store.Get(job.ID)
	if got.Status != StatusProcessing || got.Progress.Done != 1 {
		t.Errorf("after progress = %+v", got)
	}

	store.Complete(job.ID, &JobResult{Format: "srt"})
	got, _ = store.Get(job.ID)
	if got.Status != StatusCompleted || got.CompletedAt == nil || got.Progress.Stage != pipeline.StageDone {
		t.Errorf("after complete = %+v", got)
	}

	// terminal jobs are frozen
	store.Fail(job.ID, errors.New("late failure"))
	store.SetProgress(job.ID, pipeline.Progress{Stage: pipeline.StageChunking})
	got, _ = store.Get(job.ID)
	if got.Status != StatusCompleted || got.Error != "" {
		t.Errorf("terminal job was modified: %+v", got)
	}
}

func TestJobStoreGetReturnsSnapshot(t *testing.T) {
	store := NewJobStore()
	job := store.Create("a.mp3")

	snapshot, _ := store.Get(job.ID)
	snapshot.Status = StatusFailed

	got, _ := store.Get(job.ID)
	if got.Status != StatusPending {
		t.Errorf("store was modified through a snapshot: %s", got.Status)
	}
}

func TestJobStoreSubscribe(t *testing.T) {
	store := NewJobStore()
	job := store.Create("a.mp3")

	updates, cancel := store.Subscribe(job.ID)

	// signals coalesce
	store.SetProgress(job.ID, pipeline.Progress{Stage: pipeline.StagePreparing})
	store.SetProgress(job.ID, pipeline.Progress{Stage: pipeline.StageChunking})

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("expected an update signal")
	}
	select {
	case <-updates:
		t.Error("expected signals to coalesce")
	default:
	}

	cancel()
	store.SetProgress(job.ID, pipeline.Progress{Stage: pipeline.StageTranscribing})
	select {
	case <-updates:
		t.Error("unsubscribed channel received a signal")
	default:
	}
}

func TestJobStorePrune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewJobStore()
	store.now = func() time.Time { return now }

	done := store.Create("done.mp3")
	running := store.Create("running.mp3")
	store.Complete(done.ID, &JobResult{})
	store.SetProgress(running.ID, pipeline.Progress{Stage: pipeline.StageTranscribing})

	now = now.Add(30 * time.Minute)
	if n := store.Prune(time.Hour); n != 0 {
		t.Errorf("Prune() removed %d jobs before retention elapsed", n)
	}

	now = now.Add(time.Hour)
	if n := store.Prune(time.Hour); n != 1 {
		t.Errorf("Prune() removed %d jobs, want 1", n)
	}
	if _, ok := store.Get(done.ID); ok {
		t.Error("completed job should be pruned")
	}
	if _, ok := store.Get(running.ID); !ok {
		t.Error("running job must not be pruned")
	}
}
