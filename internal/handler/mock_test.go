package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// --- モック定義 ---

type mockUserService struct {
	registerFn     func(ctx context.Context, fullName, email, password string) (*model.User, error)
	getFn          func(ctx context.Context, id string) (*model.User, error)
	listFn         func(ctx context.Context) ([]*model.User, error)
	authenticateFn func(ctx context.Context, email, password string) (*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, fullName, email, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, fullName, email, password)
	}
	return nil, nil
}

func (m *mockUserService) Get(ctx context.Context, id string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.User{}, nil
}

func (m *mockUserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

type mockSessionService struct {
	startFn   func(ctx context.Context, userID, userName string) (*model.Session, error)
	endFn     func(ctx context.Context, token string) error
	resolveFn func(ctx context.Context, token string) (*model.Session, error)
}

func (m *mockSessionService) Start(ctx context.Context, userID, userName string) (*model.Session, error) {
	if m.startFn != nil {
		return m.startFn(ctx, userID, userName)
	}
	return &model.Session{ID: "new-session", UserID: userID, UserName: userName}, nil
}

func (m *mockSessionService) End(ctx context.Context, token string) error {
	if m.endFn != nil {
		return m.endFn(ctx, token)
	}
	return nil
}

func (m *mockSessionService) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, token)
	}
	return nil, nil
}

type mockTaskService struct {
	createFn      func(ctx context.Context, title, ownerID string) (*model.Task, error)
	getFn         func(ctx context.Context, viewerID, id string) (*model.Task, error)
	listFn        func(ctx context.Context, viewerID string) ([]*model.Task, error)
	listByOwnerFn func(ctx context.Context, ownerID string) ([]*model.Task, error)
	updateFn      func(ctx context.Context, viewerID, id string, patch model.TaskPatch) (*model.Task, error)
	deleteFn      func(ctx context.Context, viewerID, id string) error
}

func (m *mockTaskService) Create(ctx context.Context, title, ownerID string) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, title, ownerID)
	}
	return &model.Task{ID: "task-1", Title: title, UserID: ownerID}, nil
}

func (m *mockTaskService) Get(ctx context.Context, viewerID, id string) (*model.Task, error) {
	if m.getFn != nil {
		return m.getFn(ctx, viewerID, id)
	}
	return nil, model.NewTaskNotFoundError()
}

func (m *mockTaskService) List(ctx context.Context, viewerID string) ([]*model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, viewerID)
	}
	return []*model.Task{}, nil
}

func (m *mockTaskService) ListByOwner(ctx context.Context, ownerID string) ([]*model.Task, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return []*model.Task{}, nil
}

func (m *mockTaskService) Update(ctx context.Context, viewerID, id string, patch model.TaskPatch) (*model.Task, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, viewerID, id, patch)
	}
	return nil, model.NewTaskNotFoundError()
}

func (m *mockTaskService) Delete(ctx context.Context, viewerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, viewerID, id)
	}
	return model.NewTaskNotFoundError()
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error {
	return m.err
}

// --- ヘルパー ---

// withSession はリクエストコンテキストにセッションを注入する。
func withSession(r *http.Request, userID, userName string) *http.Request {
	return r.WithContext(middleware.ContextWithSession(r.Context(), &model.Session{
		ID:       "session-" + userID,
		UserID:   userID,
		UserName: userName,
	}))
}
