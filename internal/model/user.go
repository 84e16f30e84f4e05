package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはサービス層の外に出さない。
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// IDはクライアントのCookieに保持される不透明なトークン。
type Session struct {
	ID        string
	UserID    string
	UserName  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired は指定時刻の時点でセッションが期限切れかどうかを返す。
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
