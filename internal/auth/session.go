package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// SessionStore はセッションの保存先インターフェース。
// 複数リクエストから並行に呼ばれるため、実装は並行安全でなければならない。
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを返す。存在しない・期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionConfig はセッション管理の設定。
type SessionConfig struct {
	MaxAge int // セッション有効期間（秒）
}

// SessionManager はログインセッションの発行・解決・破棄を行う。
type SessionManager struct {
	store  SessionStore
	config SessionConfig
	now    func() time.Time
}

// NewSessionManager はSessionManagerを生成する。
func NewSessionManager(store SessionStore, config SessionConfig) *SessionManager {
	return &SessionManager{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// MaxAge はセッション有効期間（秒）を返す。
func (m *SessionManager) MaxAge() int {
	return m.config.MaxAge
}

// Start は新しいセッションを発行し永続化する。
func (m *SessionManager) Start(ctx context.Context, userID, userName string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := m.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		UserName:  userName,
		ExpiresAt: now.Add(time.Duration(m.config.MaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Resolve はトークンに対応する有効なセッションを返す。
// トークンが空・未知・期限切れの場合はnil, nilを返す。
func (m *SessionManager) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := m.store.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.IsExpired(m.now()) {
		return nil, nil
	}

	return session, nil
}

// End はセッションを破棄する。空・未知のトークンはエラーにしない。
func (m *SessionManager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := m.store.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired は期限切れセッションを削除し、削除件数を返す。
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	if n > 0 {
		slog.Info("expired sessions purged", slog.Int64("count", n))
	}
	return n, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
