package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/DocWatch/internal/domain/commonModels"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/ingest"
	"github.com/akolanti/DocWatch/internal/orchestrator"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

// Backend is the write side of the processing API.
type Backend interface {
	UploadDocument(ctx context.Context, path string, name string) (commonModels.Document, error)
	StartProcessing(ctx context.Context, documentId string) (jobModel.JobHandle, error)
}

// Tracker is implemented by *orchestrator.Orchestrator.
type Tracker interface {
	Track(ctx context.Context, handle jobModel.JobHandle, cb orchestrator.Callbacks) error
	Stop(documentId string) bool
	Close()
}

type Service struct {
	Inspector *ingest.Inspector
	Backend   Backend
	Tracker   Tracker
	Board     jobModel.ProgressBoard
	Cache     commonModels.DocumentCache
	Source    commonModels.DocumentSource
	logger    *logger_i.Logger
}

type ServiceConfig struct {
	Inspector *ingest.Inspector
	Backend   Backend
	Tracker   Tracker
	Board     jobModel.ProgressBoard
	Cache     commonModels.DocumentCache
	Source    commonModels.DocumentSource
}

var ErrNotFound = errors.New("document not found")

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		Inspector: cfg.Inspector,
		Backend:   cfg.Backend,
		Tracker:   cfg.Tracker,
		Board:     cfg.Board,
		Cache:     cfg.Cache,
		Source:    cfg.Source,
		logger:    logger_i.NewLogger("JobService"),
	}
}

// UploadAndTrack runs preflight, uploads the file, starts processing and hands the job
// to the tracker. It returns once tracking has started; progress arrives through cb.
func (s *Service) UploadAndTrack(ctx context.Context, path string, name string, cb orchestrator.Callbacks) (jobModel.JobHandle, ingest.Preflight, error) {
	log := s.logger.WithTrace(ctx).With("path", path)

	pre, err := s.Inspector.Inspect(path)
	if err != nil {
		log.Warn("preflight rejected document", "error", err)
		return jobModel.JobHandle{}, pre, err
	}
	if name == "" {
		name = pre.Name
	}

	doc, err := s.Backend.UploadDocument(ctx, path, name)
	if err != nil {
		log.Error("upload failed", "error", err)
		return jobModel.JobHandle{}, pre, fmt.Errorf("upload %s: %w", name, err)
	}
	log = log.With("documentId", doc.Id)

	uploading := jobModel.ProgressUpdate{
		DocumentId: doc.Id,
		Status:     jobModel.DisplayUploading,
		Message:    uploadMessage(pre),
		UpdatedAt:  time.Now(),
	}
	s.saveUpdate(ctx, log, uploading)
	if cb.OnUpdate != nil {
		cb.OnUpdate(uploading)
	}

	handle, err := s.Backend.StartProcessing(ctx, doc.Id)
	if err != nil {
		log.Error("starting processing failed", "error", err)
		s.saveTerminal(ctx, log, jobModel.TerminalNotification{
			Kind:       jobModel.TerminalFailed,
			DocumentId: doc.Id,
			Message:    "processing could not be started",
			At:         time.Now(),
		})
		return handle, pre, fmt.Errorf("start processing %s: %w", doc.Id, err)
	}

	if err = s.Tracker.Track(ctx, handle, s.recording(ctx, cb)); err != nil {
		return handle, pre, err
	}
	log.Info("tracking document", "jobId", handle.JobId, "initialStatus", handle.InitialStatus)
	return handle, pre, nil
}

// recording stores every update on the board before forwarding it.
func (s *Service) recording(ctx context.Context, cb orchestrator.Callbacks) orchestrator.Callbacks {
	bg := context.WithoutCancel(ctx)
	log := s.logger.WithTrace(ctx)
	return orchestrator.Callbacks{
		OnUpdate: func(update jobModel.ProgressUpdate) {
			s.saveUpdate(bg, log, update)
			if cb.OnUpdate != nil {
				cb.OnUpdate(update)
			}
		},
		OnTerminal: func(note jobModel.TerminalNotification) {
			s.saveTerminal(bg, log, note)
			if cb.OnTerminal != nil {
				cb.OnTerminal(note)
			}
		},
	}
}

func (s *Service) Progress(ctx context.Context, documentId string) (jobModel.ProgressUpdate, *jobModel.TerminalNotification, bool) {
	return s.Board.GetProgress(ctx, documentId)
}

// StopTracking abandons the job tracked for documentId. The backend keeps processing.
func (s *Service) StopTracking(ctx context.Context, documentId string) bool {
	stopped := s.Tracker.Stop(documentId)
	s.Board.DeleteProgress(ctx, documentId)
	s.logger.WithTrace(ctx).Info("tracking stopped", "documentId", documentId, "wasActive", stopped)
	return stopped
}

// Document serves the cached document view, filling it from the backend on a miss.
func (s *Service) Document(ctx context.Context, id string) (commonModels.Document, error) {
	var doc commonModels.Document
	log := s.logger.WithTrace(ctx).With("documentId", id)
	key := commonModels.DocumentKey(id)

	raw, found, err := s.Cache.GetValue(ctx, key)
	if err != nil {
		log.Warn("document cache read failed", "error", err)
	}
	if found {
		if err = json.Unmarshal(raw, &doc); err == nil {
			return doc, nil
		}
		log.Warn("dropping undecodable cache entry", "error", err)
		_ = s.Cache.Invalidate(ctx, key)
	}

	if s.Source == nil {
		return doc, ErrNotFound
	}
	doc, err = s.Source.GetDocument(ctx, id)
	if err != nil {
		return doc, err
	}
	if data, err := json.Marshal(doc); err == nil {
		if err = s.Cache.SetValue(ctx, key, data); err != nil {
			log.Warn("document cache write failed", "error", err)
		}
	}
	return doc, nil
}

func (s *Service) Close() {
	s.Tracker.Close()
}

func (s *Service) saveUpdate(ctx context.Context, log *logger_i.Logger, update jobModel.ProgressUpdate) {
	if err := s.Board.SaveUpdate(ctx, update); err != nil {
		log.Error("saving progress failed", "error", err)
	}
}

func (s *Service) saveTerminal(ctx context.Context, log *logger_i.Logger, note jobModel.TerminalNotification) {
	if err := s.Board.SaveTerminal(ctx, note); err != nil {
		log.Error("saving terminal notification failed", "error", err)
	}
}

func uploadMessage(pre ingest.Preflight) string {
	if pre.TotalPages > 0 {
		return fmt.Sprintf("uploaded %s (%d pages)", pre.Name, pre.TotalPages)
	}
	return fmt.Sprintf("uploaded %s", pre.Name)
}
