// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule は削除ジョブのデフォルト実行間隔。
const DefaultSchedule = "@every 1h"

// Purger は期限切れセッションを削除するインターフェース。
// auth.SessionManagerが実装する。
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Metrics は削除件数のメトリクス記録インターフェース。
type Metrics interface {
	RecordSessionsPurged(count int64)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 削除対象がない場合もエラーにならない。
type CleanupJob struct {
	purger  Purger
	logger  *slog.Logger
	metrics Metrics
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
func NewCleanupJob(purger Purger, logger *slog.Logger, metrics Metrics) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		purger:  purger,
		logger:  logger,
		metrics: metrics,
	}
}

// Run は期限切れセッションを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsPurged(deleted)
	}

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// ValidateSchedule はcron式（@every 記法を含む）が解釈できるかを検証する。
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return nil
}

// Start は起動直後に1回Runを実行し、以降specに従って定期実行する。
// ctxがキャンセルされると実行中のジョブの完了を待ってから戻る。
func (j *CleanupJob) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc(spec, func() {
		// エラーはRun内でログ出力済み
		_ = j.Run(ctx)
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}

	_ = j.Run(ctx)

	c.Start()
	j.logger.Info("session cleanup scheduled", slog.String("schedule", spec))

	<-ctx.Done()

	<-c.Stop().Done()
	j.logger.Info("session cleanup stopped")
	return nil
}
