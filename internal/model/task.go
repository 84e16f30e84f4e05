package model

import "time"

// Task はユーザーが所有するToDoタスクを表す。
// UserIDは作成後に変更されない。
type Task struct {
	ID        string
	Title     string
	IsDone    bool
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskPatch はタスクの部分更新内容を表す。
// nilのフィールドは変更しない。
type TaskPatch struct {
	Title  *string
	IsDone *bool
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.IsDone == nil
}

// Apply はパッチの非nilフィールドをタスクに反映する。
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.IsDone != nil {
		t.IsDone = *p.IsDone
	}
}
