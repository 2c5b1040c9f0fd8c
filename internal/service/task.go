package service

import (
	"context"
	"errors"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

var ErrTaskNotFound = errors.New("task_not_found")

// TaskService is owner-scoped task management. Every operation takes the
// acting user's id; tasks belonging to other users behave as if they do not
// exist.
type TaskService struct {
	Store store.Store
}

func (s *TaskService) List(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return s.Store.Tasks().ListByOwner(ctx, ownerID)
}

func (s *TaskService) Get(ctx context.Context, ownerID, taskID int64) (domain.Task, error) {
	task, err := s.Store.Tasks().GetByID(ctx, ownerID, taskID)
	if err != nil {
		return domain.Task{}, mapTaskErr(err)
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, ownerID int64, title string, description, dueDate *string) (domain.Task, error) {
	return s.Store.Tasks().CreateTask(ctx, domain.Task{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Owner:       ownerID,
	})
}

func (s *TaskService) Update(ctx context.Context, ownerID, taskID int64, title string, description, dueDate *string) (domain.Task, error) {
	task, err := s.Store.Tasks().UpdateTask(ctx, domain.Task{
		ID:          taskID,
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Owner:       ownerID,
	})
	if err != nil {
		return domain.Task{}, mapTaskErr(err)
	}
	return task, nil
}

func (s *TaskService) SetDone(ctx context.Context, ownerID, taskID int64, done bool) error {
	return mapTaskErr(s.Store.Tasks().SetTaskDone(ctx, ownerID, taskID, done))
}

func (s *TaskService) Delete(ctx context.Context, ownerID, taskID int64) error {
	return mapTaskErr(s.Store.Tasks().DeleteTask(ctx, ownerID, taskID))
}

func mapTaskErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}
