package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/legendai/legendai/internal/media"
	"github.com/legendai/legendai/internal/pipeline"
	"github.com/legendai/legendai/internal/subtitle"
	"github.com/legendai/legendai/internal/translate"
)

const maxJSONBody = 4 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type subtitlesRequest struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Format   string  `json:"format"`
}

type subtitlesResponse struct {
	Format  string         `json:"format"`
	Content string         `json:"content"`
	Cues    []subtitle.Cue `json:"cues"`
}

// render cues in the requested format, SRT when empty
func render(cues []subtitle.Cue, format, language string) (subtitle.Format, string, error) {
	if format == "" {
		format = string(subtitle.FormatSRT)
	}
	f, err := subtitle.ParseFormat(format)
	if err != nil {
		return "", "", err
	}

	writer, err := subtitle.NewWriter(f)
	if err != nil {
		return "", "", err
	}

	sub := subtitle.FromCues(cues)
	sub.Language = language
	data, err := writer.Render(sub)
	if err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", f, err)
	}
	return f, string(data), nil
}

// handleSubtitles times flat text with the speech-rate model.
func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	var req subtitlesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	cues := subtitle.Synthesized{Text: req.Text, TotalDuration: req.Duration}.Resolve(s.cfg.Timing)
	if cues == nil {
		cues = []subtitle.Cue{}
	}

	format, content, err := render(cues, req.Format, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, subtitlesResponse{
		Format:  string(format),
		Content: content,
		Cues:    cues,
	})
}

type translationRequest struct {
	SRT            string `json:"srt"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language"`
	Provider       string `json:"provider"`
	Overlay        bool   `json:"overlay"`
}

type translationResponse struct {
	SRT string `json:"srt"`
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	var req translationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.SRT) == "" {
		writeError(w, http.StatusBadRequest, "srt is required")
		return
	}
	if _, err := subtitle.ParseSRT(req.SRT); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tr, err := s.newTranslator(r.Context(), req.Provider, translate.Options{
		InputLanguage:  req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer func() {
		if err := translate.Close(tr); err != nil {
			s.logger.Warnw("Failed to close translator", "error", err)
		}
	}()

	run := translate.TranslateSRT
	if req.Overlay {
		run = translate.TranslateOverlay
	}

	out, err := run(r.Context(), tr, req.SRT, s.cfg.Translation.Concurrency)
	if err != nil {
		s.logger.Warnw("Translation failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, translationResponse{SRT: out})
}

func (s *Server) handleTranscriptions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !media.IsMediaFile(name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported media file: %s", name))
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = s.cfg.Transcription.Format
	}
	if _, err := subtitle.ParseFormat(format); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := s.saveUpload(file, filepath.Ext(name))
	if err != nil {
		s.logger.Errorw("Failed to store upload", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	job := s.jobs.Create(name)
	s.logger.Infow("Transcription job queued", "job", job.ID, "file", name)

	s.jobWG.Add(1)
	go s.process(job.ID, path, clientKey(r), format)

	w.Header().Set("Location", "/v1/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) saveUpload(src io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", err
	}

	dst, err := os.CreateTemp(s.uploadDir, "upload-*"+ext)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func (s *Server) process(id, path, key, format string) {
	defer s.jobWG.Done()
	defer os.Remove(path)

	logger := s.logger.With("job", id)
	s.jobs.SetProgress(id, pipeline.Progress{Stage: pipeline.StagePreparing})

	out, err := s.runJob(s.jobCtx, path, func(p pipeline.Progress) {
		s.jobs.SetProgress(id, p)
	})
	if err != nil {
		logger.Warnw("Transcription job failed", "error", err)
		s.jobs.Fail(id, err)
		return
	}

	f, content, err := render(out.Cues, format, out.Language)
	if err != nil {
		s.jobs.Fail(id, err)
		return
	}

	if _, err := s.tracker.Add(s.jobCtx, key, out.Duration); err != nil {
		logger.Warnw("Failed to record usage", "error", err)
	}

	s.jobs.Complete(id, &JobResult{
		Format:   string(f),
		Content:  content,
		Cues:     out.Cues,
		Language: out.Language,
		Duration: out.Duration,
	})
	logger.Infow("Transcription job completed", "cues", len(out.Cues))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleJobEvents streams job snapshots over a websocket until the job
// finishes or the client goes away.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.jobs.Get(id); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	updates, unsubscribe := s.jobs.Subscribe(id)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// reads only to notice the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		job, ok := s.jobs.Get(id)
		if !ok {
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(job); err != nil {
			return
		}

		if job.Status.Terminal() {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status)),
				time.Now().Add(time.Second),
			)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.jobCtx.Done():
			return
		case <-updates:
		}
	}
}

type usageResponse struct {
	Seconds int64 `json:"seconds"`
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	total, err := s.tracker.Total(r.Context(), clientKey(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{Seconds: total})
}
