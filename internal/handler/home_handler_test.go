package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

func TestHomeHandler_ReturnsOwnerTasks(t *testing.T) {
	var gotOwner string
	svc := &mockTaskService{
		listByOwnerFn: func(_ context.Context, ownerID string) ([]*model.Task, error) {
			gotOwner = ownerID
			return []*model.Task{{ID: "t1", Title: "A", UserID: ownerID}}, nil
		},
	}
	h := NewHomeHandler(svc)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	req := withSession(httptest.NewRequest(http.MethodGet, "/home", nil), "user-1", "Alice")
	w := httptest.NewRecorder()

	h.Home(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotOwner != "user-1" {
		t.Errorf("owner = %q, want %q", gotOwner, "user-1")
	}

	var resp homeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "Alice" || resp.UserID != "user-1" || resp.CurrentYear != 2026 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].ID != "t1" {
		t.Errorf("unexpected tasks: %+v", resp.Tasks)
	}
}

func TestHomeHandler_NoSession(t *testing.T) {
	h := NewHomeHandler(&mockTaskService{})

	w := httptest.NewRecorder()
	h.Home(w, httptest.NewRequest(http.MethodGet, "/home", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHomeHandler_StoreError(t *testing.T) {
	svc := &mockTaskService{
		listByOwnerFn: func(context.Context, string) ([]*model.Task, error) {
			return nil, errors.New("connection refused")
		},
	}
	h := NewHomeHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodGet, "/home", nil), "user-1", "Alice")
	w := httptest.NewRecorder()

	h.Home(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
