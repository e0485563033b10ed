package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// Ensure taskService implements TaskService
var _ driving.TaskService = (*taskService)(nil)

// taskService hands ingestion to background workers through the queue
type taskService struct {
	queue  driven.TaskQueue
	logger *slog.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(queue driven.TaskQueue, logger *slog.Logger) driving.TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &taskService{queue: queue, logger: logger}
}

// SubmitIngest validates req and enqueues an ingest_document task
func (s *taskService) SubmitIngest(ctx context.Context, req driving.IngestRequest) (*domain.Task, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("%w: task queue not configured", domain.ErrServiceUnavailable)
	}
	if strings.TrimSpace(req.Path) == "" || strings.TrimSpace(req.Subject) == "" {
		return nil, fmt.Errorf("%w: path and subject are required", domain.ErrInvalidInput)
	}

	task := domain.NewIngestTask(req.Path, strings.TrimSpace(req.Subject), req.Title, req.Difficulty)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue ingest task: %w", err)
	}

	s.logger.Info("ingest task queued", "task_id", task.ID, "subject", req.Subject, "path", req.Path)
	return task, nil
}

// Get returns a task's current state
func (s *taskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("%w: task queue not configured", domain.ErrServiceUnavailable)
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: task id is required", domain.ErrInvalidInput)
	}
	return s.queue.GetTask(ctx, id)
}

// IngestRequestFromTask rebuilds the request carried by an ingest_document task
func IngestRequestFromTask(task *domain.Task) (driving.IngestRequest, error) {
	if task.Type != domain.TaskTypeIngestDocument {
		return driving.IngestRequest{}, fmt.Errorf("%w: unexpected task type %q", domain.ErrInvalidInput, task.Type)
	}
	return driving.IngestRequest{
		Path:       task.PayloadValue("path"),
		Subject:    task.PayloadValue("subject"),
		Title:      task.PayloadValue("title"),
		Difficulty: task.PayloadValue("difficulty"),
	}, nil
}
