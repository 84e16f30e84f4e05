// Package user はユーザー登録・認証のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string) bool
}

// Metrics はユーザー関連のメトリクス記録インターフェース。
type Metrics interface {
	RecordUserRegistered()
	RecordLogin(success bool)
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	metrics  Metrics
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	metrics Metrics,
) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Register は新しいユーザーを登録する。
// 氏名は受け取ったまま保存し、メールアドレスは前後の空白のみ除去する。
func (s *Service) Register(ctx context.Context, fullName, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)

	if strings.TrimSpace(fullName) == "" || email == "" || password == "" {
		return nil, model.NewMissingFieldsError()
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailExistsError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, model.NewValidationError("Password is too long")
		}
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 事前チェック後に同じメールアドレスが登録された場合
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, model.NewEmailExistsError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordUserRegistered()
	}
	slog.Info("user registered", slog.String("user_id", user.ID))

	return user, nil
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewUserNotFoundError()
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// List は全ユーザーを登録順に返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Authenticate はメールアドレスとパスワードを照合する。
// メールアドレス不一致とパスワード不一致は同一のエラーを返す。
// セッションは発行しない。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewMissingCredentialsError()
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	if user == nil {
		s.hasher.VerifyDummy(password)
		s.recordLogin(false)
		return nil, model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recordLogin(false)
		return nil, model.NewInvalidCredentialsError()
	}

	s.recordLogin(true)
	return user, nil
}

func (s *Service) recordLogin(success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(success)
	}
}
