package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// --- モック ---

// mockUserRepo はメールアドレスをキーにしたインメモリのユーザーリポジトリ。
type mockUserRepo struct {
	users []*model.User

	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
	listFn        func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return m.users, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	m.users = append(m.users, user)
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

type mockMetrics struct {
	registered int
	logins     map[bool]int
}

func (m *mockMetrics) RecordUserRegistered() { m.registered++ }
func (m *mockMetrics) RecordLogin(success bool) {
	if m.logins == nil {
		m.logins = map[bool]int{}
	}
	m.logins[success]++
}

// countingHasher はダミー照合の呼び出しを数える。
type countingHasher struct {
	*auth.PasswordHasher
	dummyCalls  int
	verifyCalls int
}

func (h *countingHasher) Verify(plaintext, hash string) bool {
	h.verifyCalls++
	return h.PasswordHasher.Verify(plaintext, hash)
}

func (h *countingHasher) VerifyDummy(plaintext string) bool {
	h.dummyCalls++
	return h.PasswordHasher.VerifyDummy(plaintext)
}

func newTestService(repo *mockUserRepo) (*Service, *countingHasher, *mockMetrics) {
	hasher := &countingHasher{PasswordHasher: auth.NewPasswordHasher(bcrypt.MinCost)}
	metrics := &mockMetrics{}
	return NewService(repo, hasher, metrics), hasher, metrics
}

func assertAPIError(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
	return apiErr
}

// --- テスト ---

func TestService_Register_Success(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, metrics := newTestService(repo)

	user, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := uuid.Parse(user.ID); err != nil {
		t.Errorf("ID is not a UUID: %q", user.ID)
	}
	if user.FullName != "Alice" || user.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Error("password must be stored as a hash")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")) != nil {
		t.Error("stored hash does not match password")
	}
	if len(repo.users) != 1 {
		t.Errorf("users stored = %d, want 1", len(repo.users))
	}
	if metrics.registered != 1 {
		t.Errorf("registered metric = %d, want 1", metrics.registered)
	}
}

func TestService_Register_TrimsEmailOnly(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, _ := newTestService(repo)

	user, err := svc.Register(context.Background(), "  Alice ", " alice@example.com ", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.FullName != "  Alice " {
		t.Errorf("FullName = %q, want %q", user.FullName, "  Alice ")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "alice@example.com")
	}
}

// TestService_Register_FullNameStoredVerbatim は氏名が記号を含めて書き換えられずに保存されることを検証する。
func TestService_Register_FullNameStoredVerbatim(t *testing.T) {
	names := []string{
		"Tom & Jerry",
		"a<b and c>d",
		"<b>Alice</b>",
		"&lt;i&gt;Bob&lt;/i&gt;",
		"O'Brien \"Ace\"",
	}

	for i, name := range names {
		t.Run(name, func(t *testing.T) {
			repo := &mockUserRepo{}
			svc, _, _ := newTestService(repo)
			ctx := context.Background()

			created, err := svc.Register(ctx, name, fmt.Sprintf("user%d@example.com", i), "secret123")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := svc.Get(ctx, created.ID)
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got.FullName != name {
				t.Errorf("FullName = %q, want %q", got.FullName, name)
			}
		})
	}
}

func TestService_Register_MissingFields(t *testing.T) {
	tests := []struct {
		name, fullName, email, password string
	}{
		{"氏名なし", "", "a@example.com", "pw"},
		{"メールなし", "Alice", "", "pw"},
		{"パスワードなし", "Alice", "a@example.com", ""},
		{"空白のみの氏名", "   ", "a@example.com", "pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepo{}
			svc, _, _ := newTestService(repo)

			_, err := svc.Register(context.Background(), tt.fullName, tt.email, tt.password)
			apiErr := assertAPIError(t, err, model.ErrCodeValidation)
			if apiErr.Message != "Missing fields" {
				t.Errorf("message = %q, want %q", apiErr.Message, "Missing fields")
			}
			if len(repo.users) != 0 {
				t.Error("no user should be stored")
			}
		})
	}
}

// TestService_Register_DuplicateEmail は同じメールアドレスの2回目の登録が競合になることを検証する。
func TestService_Register_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123"); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	_, err := svc.Register(ctx, "Alice Again", "alice@example.com", "other")
	apiErr := assertAPIError(t, err, model.ErrCodeEmailExists)
	if apiErr.Message != "Email already exists" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if len(repo.users) != 1 {
		t.Errorf("users stored = %d, want 1", len(repo.users))
	}
}

// TestService_Register_DuplicateKeyOnInsert は挿入時の一意制約違反も競合として扱うことを検証する。
func TestService_Register_DuplicateKeyOnInsert(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(context.Context, *model.User) error {
			return fmt.Errorf("failed to insert user: %w", repository.ErrDuplicateKey)
		},
	}
	svc, _, metrics := newTestService(repo)

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret123")
	assertAPIError(t, err, model.ErrCodeEmailExists)
	if metrics.registered != 0 {
		t.Error("metric must not be recorded on failure")
	}
}

func TestService_Register_PasswordTooLong(t *testing.T) {
	svc, _, _ := newTestService(&mockUserRepo{})

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", strings.Repeat("x", 73))
	assertAPIError(t, err, model.ErrCodeValidation)
}

func TestService_Register_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	repo := &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*model.User, error) {
			return nil, storeErr
		},
	}
	svc, _, _ := newTestService(repo)

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret123")
	if !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Error("store errors must not be reported as API errors")
	}
}

func TestService_Get(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q", got.Email)
	}

	_, err = svc.Get(ctx, uuid.New().String())
	assertAPIError(t, err, model.ErrCodeUserNotFound)

	_, err = svc.Get(ctx, "not-a-uuid")
	assertAPIError(t, err, model.ErrCodeUserNotFound)
}

func TestService_List(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("len = %d, want 0", len(users))
	}

	svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	svc.Register(ctx, "Bob", "bob@example.com", "pw2")

	users, err = svc.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("len = %d, want 2", len(users))
	}
}

func TestService_Authenticate_Success(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, metrics := newTestService(repo)
	ctx := context.Background()

	created, _ := svc.Register(ctx, "Alice", "alice@example.com", "secret123")

	user, err := svc.Authenticate(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("ID = %q, want %q", user.ID, created.ID)
	}
	if metrics.logins[true] != 1 {
		t.Errorf("successful logins = %d, want 1", metrics.logins[true])
	}
}

// TestService_Authenticate_SameErrorForUnknownEmailAndWrongPassword は
// 未登録メールアドレスと誤ったパスワードで同一のエラーになることを検証する。
func TestService_Authenticate_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	repo := &mockUserRepo{}
	svc, hasher, metrics := newTestService(repo)
	ctx := context.Background()

	svc.Register(ctx, "Alice", "alice@example.com", "secret123")

	_, errWrongPassword := svc.Authenticate(ctx, "alice@example.com", "wrong")
	_, errUnknownEmail := svc.Authenticate(ctx, "nobody@example.com", "secret123")

	a := assertAPIError(t, errWrongPassword, model.ErrCodeInvalidCredentials)
	b := assertAPIError(t, errUnknownEmail, model.ErrCodeInvalidCredentials)
	if a.Message != b.Message {
		t.Errorf("messages differ: %q vs %q", a.Message, b.Message)
	}
	if a.Message != "Invalid email or password" {
		t.Errorf("message = %q", a.Message)
	}

	// 未登録メールアドレスでもbcrypt照合が行われる
	if hasher.dummyCalls != 1 {
		t.Errorf("dummy verify calls = %d, want 1", hasher.dummyCalls)
	}
	if hasher.verifyCalls != 1 {
		t.Errorf("verify calls = %d, want 1", hasher.verifyCalls)
	}
	if metrics.logins[false] != 2 {
		t.Errorf("failed logins = %d, want 2", metrics.logins[false])
	}
}

func TestService_Authenticate_MissingFields(t *testing.T) {
	svc, _, _ := newTestService(&mockUserRepo{})
	ctx := context.Background()

	tests := []struct {
		name, email, password string
	}{
		{"メールなし", "", "pw"},
		{"空白のみのメール", "   ", "pw"},
		{"パスワードなし", "alice@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.email, tt.password)
			apiErr := assertAPIError(t, err, model.ErrCodeValidation)
			if apiErr.Message != "Missing email or password" {
				t.Errorf("message = %q, want %q", apiErr.Message, "Missing email or password")
			}
		})
	}
}

func TestService_Authenticate_EmailIsCaseSensitive(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	svc.Register(ctx, "Alice", "alice@example.com", "secret123")

	_, err := svc.Authenticate(ctx, "ALICE@example.com", "secret123")
	assertAPIError(t, err, model.ErrCodeInvalidCredentials)
}
