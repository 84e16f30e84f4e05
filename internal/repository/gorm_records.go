package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hitoshi/taskman/internal/model"
)

// userRecord はSQLiteバックエンドのusersテーブル行。
type userRecord struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	FullName     string `gorm:"type:varchar(255);not null"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

type taskRecord struct {
	ID        string      `gorm:"primaryKey;type:varchar(36)"`
	Title     string      `gorm:"type:varchar(255);not null"`
	IsDone    bool        `gorm:"not null"`
	UserID    string      `gorm:"type:varchar(36);not null;index"`
	User      *userRecord `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (taskRecord) TableName() string { return "tasks" }

type sessionRecord struct {
	ID        string      `gorm:"primaryKey;type:varchar(128)"`
	UserID    string      `gorm:"type:varchar(36);not null;index"`
	User      *userRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	UserName  string      `gorm:"type:varchar(255);not null"`
	ExpiresAt time.Time   `gorm:"not null;index"`
	CreatedAt time.Time
}

func (sessionRecord) TableName() string { return "sessions" }

// AutoMigrateGorm はSQLiteバックエンドのスキーマを作成・更新する。
func AutoMigrateGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&userRecord{}, &taskRecord{}, &sessionRecord{}); err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return nil
}

// SQLiteの日時は文字列比較されるため、保存・検索ともUTCに揃える
func utc(t time.Time) time.Time {
	return t.UTC()
}

func newUserRecord(u *model.User) *userRecord {
	return &userRecord{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    utc(u.CreatedAt),
		UpdatedAt:    utc(u.UpdatedAt),
	}
}

func (r *userRecord) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		FullName:     r.FullName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newTaskRecord(t *model.Task) *taskRecord {
	return &taskRecord{
		ID:        t.ID,
		Title:     t.Title,
		IsDone:    t.IsDone,
		UserID:    t.UserID,
		CreatedAt: utc(t.CreatedAt),
		UpdatedAt: utc(t.UpdatedAt),
	}
}

func (r *taskRecord) toModel() *model.Task {
	return &model.Task{
		ID:        r.ID,
		Title:     r.Title,
		IsDone:    r.IsDone,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newSessionRecord(s *model.Session) *sessionRecord {
	return &sessionRecord{
		ID:        s.ID,
		UserID:    s.UserID,
		UserName:  s.UserName,
		ExpiresAt: utc(s.ExpiresAt),
		CreatedAt: utc(s.CreatedAt),
	}
}

func (r *sessionRecord) toModel() *model.Session {
	return &model.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}
}

// translateGormError はGORMの制約違反エラーをリポジトリ共通のエラーに変換する。
// 該当しない場合はnilを返す。
func translateGormError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrForeignKey
	default:
		return nil
	}
}
