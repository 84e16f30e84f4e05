package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// HomeHandler はログインユーザーのダッシュボードを返すハンドラー。
type HomeHandler struct {
	tasks TaskServiceInterface
	now   func() time.Time
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(tasks TaskServiceInterface) *HomeHandler {
	return &HomeHandler{
		tasks: tasks,
		now:   time.Now,
	}
}

// homeResponse はダッシュボードのAPIレスポンス。
type homeResponse struct {
	Name        string         `json:"name"`
	UserID      string         `json:"user_id"`
	CurrentYear int            `json:"current_year"`
	Tasks       []taskResponse `json:"tasks"`
}

// Home はセッションユーザーの名前と所有タスクを返す。
// GET /home（RequireSessionの内側で使用する）
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		handleServiceError(w, model.NewUnauthorizedError())
		return
	}

	tasks, err := h.tasks.ListByOwner(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Name:        session.UserName,
		UserID:      session.UserID,
		CurrentYear: h.now().Year(),
		Tasks:       toTaskResponses(tasks),
	})
}
