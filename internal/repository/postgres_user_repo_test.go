package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

// Postgres実装がインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ TaskRepository = (*PostgresTaskRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Fatal("expected non-nil user repo")
	}
	if NewPostgresTaskRepo(nil) == nil {
		t.Fatal("expected non-nil task repo")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Fatal("expected non-nil session repo")
	}
}

func TestTranslatePQError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pq.Error{Code: "23505"}, ErrDuplicateKey},
		{"foreign key violation", &pq.Error{Code: "23503"}, ErrForeignKey},
		{"wrapped unique violation", fmt.Errorf("exec: %w", &pq.Error{Code: "23505"}), ErrDuplicateKey},
		{"other pq error", &pq.Error{Code: "42P01"}, nil},
		{"non pq error", errors.New("connection refused"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translatePQError(tt.err)
			if got != tt.want {
				t.Errorf("translatePQError() = %v, want %v", got, tt.want)
			}
		})
	}
}
