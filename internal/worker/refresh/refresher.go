// Package refresh はICS購読のバックグラウンドリフレッシュ処理を提供する。
// フェッチ、解析、予定の一括入れ替え、連続失敗の追跡を含む。
package refresh

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/calman/internal/event"
	"github.com/hitoshi/calman/internal/ics"
	"github.com/hitoshi/calman/internal/model"
	"github.com/hitoshi/calman/internal/repository"
	"github.com/hitoshi/calman/internal/security"
)

// RefreshRecorder はリフレッシュ結果のメトリクス記録インターフェース。
type RefreshRecorder interface {
	RecordFeedRefresh(success bool, duration time.Duration)
}

// Refresher は個別購読のフェッチとICS解析を行い、
// 購読由来の予定を取得結果で丸ごと入れ替える。
// 失敗時は連続失敗カウントを進め、閾値に達した購読をerror状態へ遷移させる。
type Refresher struct {
	feedRepo       repository.CalendarFeedRepository
	eventRepo      repository.EventRepository
	guard          security.FetchGuardService
	validator      *event.Validator
	recorder       RefreshRecorder
	logger         *slog.Logger
	timeout        time.Duration
	maxBodySize    int64
	maxErrors      int
	maxConcurrency int
}

// NewRefresher はRefresherの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewRefresher(
	feedRepo repository.CalendarFeedRepository,
	eventRepo repository.EventRepository,
	guard security.FetchGuardService,
	validator *event.Validator,
	recorder RefreshRecorder,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	maxErrors int,
	maxConcurrency int,
) *Refresher {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Refresher{
		feedRepo:       feedRepo,
		eventRepo:      eventRepo,
		guard:          guard,
		validator:      validator,
		recorder:       recorder,
		logger:         logger,
		timeout:        timeout,
		maxBodySize:    maxBodySize,
		maxErrors:      maxErrors,
		maxConcurrency: maxConcurrency,
	}
}

// RefreshFeed は購読を1件リフレッシュする。
// フロー: SSRF検証 → フェッチ → ICS解析 → 検証 → 予定の一括入れ替え → 状態更新
// 入れ替えは取得・検証が全て成功した後にのみ行われるため、
// フェッチ失敗時は既存の予定がそのまま残る。
func (r *Refresher) RefreshFeed(ctx context.Context, feed *model.CalendarFeed) error {
	start := time.Now()

	body, err := r.fetch(ctx, feed)
	if err != nil {
		r.recordFailure(ctx, feed, err.Error())
		r.observe(false, time.Since(start))
		return err
	}

	result, err := ics.Parse(body)
	if err != nil {
		r.logger.Error("ICS解析に失敗しました",
			slog.String("feed_id", feed.ID),
			slog.String("feed_url", feed.URL),
			slog.String("error", err.Error()),
		)
		r.recordFailure(ctx, feed, fmt.Sprintf("ICS解析失敗: %s", err.Error()))
		r.observe(false, time.Since(start))
		return fmt.Errorf("ICS解析に失敗: %w", err)
	}

	events := r.buildEvents(feed, result.Events)

	if err := r.eventRepo.DeleteByFeedID(ctx, feed.ID); err != nil {
		r.recordFailure(ctx, feed, fmt.Sprintf("既存予定の削除失敗: %s", err.Error()))
		r.observe(false, time.Since(start))
		return fmt.Errorf("既存予定の削除に失敗: %w", err)
	}
	if err := r.eventRepo.CreateBatch(ctx, events); err != nil {
		r.recordFailure(ctx, feed, fmt.Sprintf("予定の一括作成失敗: %s", err.Error()))
		r.observe(false, time.Since(start))
		return fmt.Errorf("予定の一括作成に失敗: %w", err)
	}

	// タイトルが未設定の購読はX-WR-CALNAMEで補完する
	if feed.Title == "" && result.Name != "" {
		feed.Title = result.Name
	}

	now := time.Now()
	feed.RefreshStatus = model.RefreshStatusActive
	feed.ConsecutiveErrors = 0
	feed.ErrorMessage = ""
	feed.RefreshedAt = &now
	if err := r.feedRepo.UpdateRefreshState(ctx, feed); err != nil {
		r.logger.Error("購読状態の更新に失敗しました",
			slog.String("feed_id", feed.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	r.observe(true, time.Since(start))
	r.logger.Info("購読のリフレッシュが完了しました",
		slog.String("feed_id", feed.ID),
		slog.String("feed_url", feed.URL),
		slog.Int("event_count", len(events)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// fetch は購読URLからICSペイロードを取得する。
func (r *Refresher) fetch(ctx context.Context, feed *model.CalendarFeed) ([]byte, error) {
	safeURL, err := r.guard.NormalizeFeedURL(feed.URL)
	if err != nil {
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := r.guard.NewSafeClient(r.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, safeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "Calman/1.0 Calendar")
	req.Header.Set("Accept", "text/calendar, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTPステータス%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	return body, nil
}

// buildEvents は解析済みペイロードを検証し、購読に紐づく予定へ変換する。
// 検証に失敗したペイロードはログ出力してスキップし、残りを続行する。
// 色は個々のVEVENTではなく購読の色で統一される。
func (r *Refresher) buildEvents(feed *model.CalendarFeed, payloads []model.EventPayload) []*model.Event {
	now := time.Now()
	events := make([]*model.Event, 0, len(payloads))
	for _, payload := range payloads {
		payload.Color = string(feed.Color)
		validated, err := r.validator.Validate(payload)
		if err != nil {
			r.logger.Warn("購読由来の予定を検証できませんでした",
				slog.String("feed_id", feed.ID),
				slog.String("title", payload.Title),
				slog.String("error", err.Error()),
			)
			continue
		}
		validated.ID = uuid.New().String()
		validated.FeedID = feed.ID
		validated.CreatedAt = now
		validated.UpdatedAt = now
		events = append(events, validated)
	}
	return events
}

// recordFailure は連続失敗カウントを進め、閾値に達した購読をerror状態へ遷移させる。
func (r *Refresher) recordFailure(ctx context.Context, feed *model.CalendarFeed, reason string) {
	feed.ConsecutiveErrors++
	feed.ErrorMessage = reason
	if feed.ConsecutiveErrors >= r.maxErrors {
		feed.RefreshStatus = model.RefreshStatusError
	}

	r.logger.Warn("購読のリフレッシュに失敗しました",
		slog.String("feed_id", feed.ID),
		slog.String("feed_url", feed.URL),
		slog.String("reason", reason),
		slog.Int("consecutive_errors", feed.ConsecutiveErrors),
		slog.String("refresh_status", string(feed.RefreshStatus)),
	)

	if err := r.feedRepo.UpdateRefreshState(ctx, feed); err != nil {
		r.logger.Error("購読状態の更新に失敗しました",
			slog.String("feed_id", feed.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Refresher) observe(success bool, duration time.Duration) {
	if r.recorder != nil {
		r.recorder.RecordFeedRefresh(success, duration)
	}
}

// RefreshAll はアクティブな全購読を並列でリフレッシュする。
// semaphoreパターンで最大並列数を制御する。error状態の購読はスキップされる。
func (r *Refresher) RefreshAll(ctx context.Context) error {
	start := time.Now()

	feeds, err := r.feedRepo.List(ctx)
	if err != nil {
		return err
	}

	active := make([]*model.CalendarFeed, 0, len(feeds))
	for _, feed := range feeds {
		if feed.RefreshStatus == model.RefreshStatusActive {
			active = append(active, feed)
		}
	}

	if len(active) == 0 {
		r.logger.Info("リフレッシュ対象の購読はありません")
		return nil
	}

	r.logger.Info("リフレッシュサイクルを開始します",
		slog.Int("feed_count", len(active)),
	)

	sem := make(chan struct{}, r.maxConcurrency)
	var wg sync.WaitGroup

	for _, feed := range active {
		wg.Add(1)
		sem <- struct{}{}

		go func(f *model.CalendarFeed) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := r.RefreshFeed(ctx, f); err != nil {
				r.logger.Error("購読のリフレッシュに失敗しました",
					slog.String("feed_id", f.ID),
					slog.String("feed_url", f.URL),
					slog.String("error", err.Error()),
				)
			}
		}(feed)
	}

	wg.Wait()

	r.logger.Info("リフレッシュサイクルが完了しました",
		slog.Int("feed_count", len(active)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
