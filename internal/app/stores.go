package app

import (
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/config"
	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/handler"
	"github.com/hitoshi/taskman/internal/repository"
)

// stores は設定に応じて選択された永続化層の実装をまとめたもの。
type stores struct {
	users    repository.UserRepository
	tasks    repository.TaskRepository
	sessions auth.SessionStore
	health   handler.HealthChecker
	close    func() error
}

// openStores はDATABASE_DRIVERとSESSION_STOREに従ってリポジトリを構築する。
// SQLiteの場合はスキーマを自動作成する。
func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		return openSQLiteStores(cfg)
	default:
		return openPostgresStores(cfg)
	}
}

func openPostgresStores(cfg *config.Config) (*stores, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established", slog.String("driver", config.DriverPostgres))

	st := &stores{
		users:  repository.NewPostgresUserRepo(db),
		tasks:  repository.NewPostgresTaskRepo(db),
		health: db,
		close:  db.Close,
	}
	if cfg.SessionStore == config.SessionStoreDatabase {
		st.sessions = repository.NewPostgresSessionRepo(db)
	} else {
		st.sessions = auth.NewMemorySessionStore()
	}
	return st, nil
}

func openSQLiteStores(cfg *config.Config) (*stores, error) {
	db, err := database.OpenSQLite(cfg.DatabaseURL, slog.Default())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite connection pool: %w", err)
	}

	if err := repository.AutoMigrateGorm(db); err != nil {
		sqlDB.Close()
		return nil, err
	}

	slog.Info("database connection established", slog.String("driver", config.DriverSQLite))

	st := &stores{
		users:  repository.NewGormUserRepo(db),
		tasks:  repository.NewGormTaskRepo(db),
		health: sqlDB,
		close:  sqlDB.Close,
	}
	if cfg.SessionStore == config.SessionStoreDatabase {
		st.sessions = repository.NewGormSessionRepo(db)
	} else {
		st.sessions = auth.NewMemorySessionStore()
	}
	return st, nil
}
