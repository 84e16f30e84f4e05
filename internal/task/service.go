// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// OwnershipMode はタスク操作時の所有者チェックの方針。
type OwnershipMode string

const (
	// OwnershipOpen は所有者チェックを行わない。全タスクが誰からも参照・更新・削除できる。
	OwnershipOpen OwnershipMode = "open"
	// OwnershipStrict は閲覧者が所有するタスクのみ操作できる。
	// 他人のタスクは存在しないものとして扱う。
	OwnershipStrict OwnershipMode = "strict"
)

// ParseOwnershipMode は文字列からOwnershipModeを解析する。
func ParseOwnershipMode(s string) (OwnershipMode, error) {
	switch OwnershipMode(s) {
	case OwnershipOpen, OwnershipStrict:
		return OwnershipMode(s), nil
	default:
		return "", fmt.Errorf("unknown task ownership mode: %q (expected open or strict)", s)
	}
}

// Metrics はタスク関連のメトリクス記録インターフェース。
type Metrics interface {
	RecordTaskCreated()
	RecordTaskDeleted()
}

// Service はタスク管理のサービス層。
type Service struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	mode     OwnershipMode
	metrics  Metrics
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	mode OwnershipMode,
	metrics Metrics,
) *Service {
	if mode == "" {
		mode = OwnershipOpen
	}
	return &Service{
		taskRepo: taskRepo,
		userRepo: userRepo,
		mode:     mode,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Mode は現在の所有者チェック方針を返す。
func (s *Service) Mode() OwnershipMode {
	return s.mode
}

// Create はownerIDが所有する新しいタスクを作成する。is_doneはfalseで作成される。
// タイトルは受け取った文字列のまま保存する。
func (s *Service) Create(ctx context.Context, title, ownerID string) (*model.Task, error) {
	if isBlank(title) {
		return nil, model.NewValidationError("Title is required")
	}
	if ownerID == "" {
		return nil, model.NewValidationError("User ID is required")
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, model.NewValidationError("Invalid user ID")
	}

	owner, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task owner: %w", err)
	}
	if owner == nil {
		return nil, model.NewValidationError("User does not exist")
	}

	now := s.now()
	task := &model.Task{
		ID:        uuid.New().String(),
		Title:     title,
		IsDone:    false,
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		// 存在確認後にユーザーが消えた場合
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, model.NewValidationError("User does not exist")
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCreated()
	}
	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("user_id", ownerID),
	)

	return task, nil
}

// Get は指定IDのタスクを取得する。
func (s *Service) Get(ctx context.Context, viewerID, id string) (*model.Task, error) {
	return s.findVisible(ctx, viewerID, id)
}

// List はタスク一覧を作成順に返す。
// strictモードでは閲覧者のタスクのみを返し、未ログインの場合は空になる。
func (s *Service) List(ctx context.Context, viewerID string) ([]*model.Task, error) {
	if s.mode == OwnershipStrict {
		if viewerID == "" {
			return []*model.Task{}, nil
		}
		return s.ListByOwner(ctx, viewerID)
	}

	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ListByOwner は指定ユーザーが所有するタスクを作成順に返す。
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*model.Task, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return []*model.Task{}, nil
	}

	tasks, err := s.taskRepo.ListByUserID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks by owner: %w", err)
	}
	return tasks, nil
}

// Update はパッチの非nilフィールドのみをタスクに反映する。
func (s *Service) Update(ctx context.Context, viewerID, id string, patch model.TaskPatch) (*model.Task, error) {
	task, err := s.findVisible(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if isBlank(*patch.Title) {
			return nil, model.NewValidationError("Title cannot be empty")
		}
	}

	if patch.IsEmpty() {
		return task, nil
	}

	patch.Apply(task)
	task.UpdatedAt = s.now()

	updated, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	// 取得後に別リクエストで削除された場合
	if !updated {
		return nil, model.NewTaskNotFoundError()
	}

	return task, nil
}

// Delete は指定IDのタスクを削除する。
func (s *Service) Delete(ctx context.Context, viewerID, id string) error {
	if _, err := s.findVisible(ctx, viewerID, id); err != nil {
		return err
	}

	deleted, err := s.taskRepo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return model.NewTaskNotFoundError()
	}

	if s.metrics != nil {
		s.metrics.RecordTaskDeleted()
	}
	slog.Info("task deleted", slog.String("task_id", id))

	return nil
}

// findVisible は閲覧者から見えるタスクを取得する。
// 見つからない場合と、strictモードで他人のタスクの場合はTaskNotFoundを返す。
func (s *Service) findVisible(ctx context.Context, viewerID, id string) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewTaskNotFoundError()
	}

	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError()
	}
	if s.mode == OwnershipStrict && task.UserID != viewerID {
		return nil, model.NewTaskNotFoundError()
	}

	return task, nil
}

// isBlank は空文字列または空白のみの文字列を判定する。
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
