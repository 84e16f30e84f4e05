package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	Create(ctx context.Context, title, ownerID string) (*model.Task, error)
	Get(ctx context.Context, viewerID, id string) (*model.Task, error)
	List(ctx context.Context, viewerID string) ([]*model.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Task, error)
	Update(ctx context.Context, viewerID, id string, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, viewerID, id string) error
}

// TaskHandlerConfig はタスクハンドラーの設定。
type TaskHandlerConfig struct {
	// RequireSessionForCreate がtrueの場合、ボディのuser_idによる作成を許可しない。
	RequireSessionForCreate bool
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
	config  TaskHandlerConfig
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface, config TaskHandlerConfig) *TaskHandler {
	return &TaskHandler{
		service: service,
		config:  config,
	}
}

// createTaskRequest はタスク作成リクエストのボディ。
// user_idはセッションがない場合のみ参照する。
type createTaskRequest struct {
	Title  string `json:"title"`
	UserID string `json:"user_id"`
}

// updateTaskRequest はタスク更新リクエストのボディ。省略したフィールドは変更しない。
type updateTaskRequest struct {
	Title  *string `json:"title"`
	IsDone *bool   `json:"is_done"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	IsDone bool   `json:"is_done"`
	UserID string `json:"user_id"`
}

// Create はタスクを作成する。
// POST /tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSONBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		if h.config.RequireSessionForCreate {
			handleServiceError(w, model.NewUnauthorizedError())
			return
		}
		ownerID = req.UserID
	}

	task, err := h.service.Create(r.Context(), req.Title, ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// List はタスク一覧を返す。
// GET /tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.List(r.Context(), viewerID(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// Get はタスク詳細を返す。
// GET /tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// Update はタスクのタイトル・完了状態を部分更新する。
// PUT /tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSONBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	patch := model.TaskPatch{Title: req.Title, IsDone: req.IsDone}
	task, err := h.service.Update(r.Context(), viewerID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// Delete はタスクを削除する。
// DELETE /tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Task deleted"})
}

// viewerID はセッションのユーザーIDを返す。未ログインの場合は空文字列。
func viewerID(r *http.Request) string {
	userID, _ := middleware.UserIDFromContext(r.Context())
	return userID
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:     t.ID,
		Title:  t.Title,
		IsDone: t.IsDone,
		UserID: t.UserID,
	}
}

func toTaskResponses(tasks []*model.Task) []taskResponse {
	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, toTaskResponse(t))
	}
	return resp
}
