// Package auth はパスワードのハッシュ化とセッション管理を提供する。
package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcryptは72バイトを超える入力を扱えない
const maxPasswordBytes = 72

// ErrPasswordTooLong はパスワードがbcryptの上限長を超えていることを表す。
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// PasswordHasher はbcryptによるパスワードのハッシュ化と照合を行う。
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher はPasswordHasherを生成する。
// costはbcrypt.MinCost〜bcrypt.MaxCostに丸められる。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost は使用するbcryptコストを返す。
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash は平文パスワードからbcryptハッシュを生成する。
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify は平文パスワードがハッシュと一致するかを返す。
// ハッシュが不正な形式の場合もfalseを返す。
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy は固定のダミーハッシュに対して照合を行い、常にfalseを返す。
// 存在しないユーザーのログイン試行でも同じコストを消費させるために使う。
func (h *PasswordHasher) VerifyDummy(plaintext string) bool {
	h.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("taskman-dummy-password"), h.cost)
		if err == nil {
			h.dummyHash = hash
		}
	})
	if h.dummyHash != nil {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
	}
	return false
}
