package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/internal/repository"
	"github.com/diagnosis/taskmanager/pkg/events"
	"github.com/diagnosis/taskmanager/pkg/logger"
)

type TaskService interface {
	List(ctx context.Context, owner int64, filter domain.TaskFilter) (*domain.TaskListResult, error)
	Get(ctx context.Context, owner, id int64) (*domain.Task, error)
	Create(ctx context.Context, owner int64, req *domain.CreateTaskRequest) (*domain.Task, error)
	Update(ctx context.Context, owner, id int64, req *domain.UpdateTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, owner, id int64) error
	Stats(ctx context.Context, owner int64) (*domain.TaskStats, error)
}

type taskService struct {
	tasks    repository.TaskRepository
	eventBus events.Publisher
	now      func() time.Time
}

func NewTaskService(tasks repository.TaskRepository, eventBus events.Publisher, opts ...Option) TaskService {
	o := applyOptions(opts)
	return &taskService{
		tasks:    tasks,
		eventBus: eventBus,
		now:      o.now,
	}
}

func (s *taskService) List(ctx context.Context, owner int64, filter domain.TaskFilter) (*domain.TaskListResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	res, err := s.tasks.List(ctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return res, nil
}

func (s *taskService) Get(ctx context.Context, owner, id int64) (*domain.Task, error) {
	t, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	if t == nil {
		return nil, errTaskNotFound()
	}
	if t.UserID != owner {
		return nil, domain.Errorf(domain.ErrForbidden, "Not authorized to access this task")
	}
	return t, nil
}

func (s *taskService) Create(ctx context.Context, owner int64, req *domain.CreateTaskRequest) (*domain.Task, error) {
	t, err := req.ToTask(owner)
	if err != nil {
		return nil, err
	}

	created, err := s.tasks.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	logger.InfoContext(ctx, "Task created", "task_id", created.ID)
	publish(ctx, s.eventBus, events.TaskCreated, events.TaskEvent{
		TaskID:    created.ID,
		UserID:    owner,
		Status:    string(created.Status),
		Priority:  string(created.Priority),
		Timestamp: s.now().UTC(),
	})
	return created, nil
}

// Update writes only when owner owns the task; a miss is then classified
// as not found or forbidden.
func (s *taskService) Update(ctx context.Context, owner, id int64, req *domain.UpdateTaskRequest) (*domain.Task, error) {
	patch, err := req.ToPatch()
	if err != nil {
		return nil, err
	}

	updated, err := s.tasks.Update(ctx, owner, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if updated == nil {
		return nil, s.missReason(ctx, id, "Not authorized to update this task")
	}

	publish(ctx, s.eventBus, events.TaskUpdated, events.TaskEvent{
		TaskID:    updated.ID,
		UserID:    owner,
		Status:    string(updated.Status),
		Priority:  string(updated.Priority),
		Changes:   patch.Fields(),
		Timestamp: s.now().UTC(),
	})
	return updated, nil
}

func (s *taskService) Delete(ctx context.Context, owner, id int64) error {
	deleted, err := s.tasks.Delete(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return s.missReason(ctx, id, "Not authorized to delete this task")
	}

	logger.InfoContext(ctx, "Task deleted", "task_id", id)
	publish(ctx, s.eventBus, events.TaskDeleted, events.TaskEvent{
		TaskID:    id,
		UserID:    owner,
		Timestamp: s.now().UTC(),
	})
	return nil
}

func (s *taskService) Stats(ctx context.Context, owner int64) (*domain.TaskStats, error) {
	stats, err := s.tasks.Stats(ctx, owner, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	return stats, nil
}

func (s *taskService) missReason(ctx context.Context, id int64, forbidden string) error {
	t, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find task: %w", err)
	}
	if t == nil {
		return errTaskNotFound()
	}
	return domain.Errorf(domain.ErrForbidden, "%s", forbidden)
}

func errTaskNotFound() error {
	return domain.Errorf(domain.ErrNotFound, "Task not found")
}
