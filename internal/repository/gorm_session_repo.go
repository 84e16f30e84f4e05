package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hitoshi/taskman/internal/model"
)

// GormSessionRepo はGORM（SQLite）を使用したセッションリポジトリ。
type GormSessionRepo struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSessionRepo はGormSessionRepoを生成する。
func NewGormSessionRepo(db *gorm.DB) *GormSessionRepo {
	return &GormSessionRepo{db: db, now: time.Now}
}

// Create はセッションを作成する。
func (r *GormSessionRepo) Create(ctx context.Context, session *model.Session) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(newSessionRecord(session)).Error
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *GormSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var rec sessionRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, utc(r.now())).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return rec.toModel(), nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *GormSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&sessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *GormSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&sessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れのセッションを削除する。
func (r *GormSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", utc(before)).Delete(&sessionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// compile-time interface check
var _ SessionRepository = (*GormSessionRepo)(nil)
