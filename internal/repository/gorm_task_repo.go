package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hitoshi/taskman/internal/model"
)

// GormTaskRepo はGORM（SQLite）を使用したタスクリポジトリ。
type GormTaskRepo struct {
	db *gorm.DB
}

// NewGormTaskRepo はGormTaskRepoを生成する。
func NewGormTaskRepo(db *gorm.DB) *GormTaskRepo {
	return &GormTaskRepo{db: db}
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *GormTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var rec taskRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return rec.toModel(), nil
}

// List は全タスクを作成日時順に返す。
func (r *GormTaskRepo) List(ctx context.Context) ([]*model.Task, error) {
	return r.find(r.db.WithContext(ctx))
}

// ListByUserID は指定ユーザーのタスクを作成日時順に返す。
func (r *GormTaskRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Task, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *GormTaskRepo) find(tx *gorm.DB) ([]*model.Task, error) {
	var recs []taskRecord
	if err := tx.Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*model.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toModel())
	}
	return tasks, nil
}

// Create はタスクを作成する。
func (r *GormTaskRepo) Create(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(newTaskRecord(task)).Error
	if err != nil {
		if known := translateGormError(err); known != nil {
			return fmt.Errorf("failed to insert task: %w", known)
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update はタスクのtitle、is_done、updated_atを更新する。
func (r *GormTaskRepo) Update(ctx context.Context, task *model.Task) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&taskRecord{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{
			"title":      task.Title,
			"is_done":    task.IsDone,
			"updated_at": utc(task.UpdatedAt),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update task: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteByID は指定IDのタスクを削除する。
func (r *GormTaskRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&taskRecord{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete task: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// compile-time interface check
var _ TaskRepository = (*GormTaskRepo)(nil)
