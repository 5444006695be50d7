// Package feed はICS購読の登録・管理のドメインロジックを提供する。
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/calman/internal/model"
	"github.com/hitoshi/calman/internal/repository"
)

// Detector はカレンダーフィード検出のインターフェース。
// テスタビリティのためics.Detectorを抽象化する。
type Detector interface {
	DetectCalendarURL(ctx context.Context, inputURL string) (string, error)
}

// FeedRefresher は購読リフレッシュの実行インターフェース。
type FeedRefresher interface {
	RefreshFeed(ctx context.Context, feed *model.CalendarFeed) error
}

// feedPalette は新規購読へ割り当てる色の巡回パレット。
// 手動作成の予定のデフォルト（blue）と区別しやすい順に並べてある。
var feedPalette = []model.EventColor{
	model.ColorGreen,
	model.ColorPurple,
	model.ColorOrange,
	model.ColorRed,
	model.ColorYellow,
	model.ColorBlue,
}

// FeedService はICS購読の登録・管理のサービス層。
// 検出 → 重複チェック → 購読保存 → 初回インポートのフローを統括する。
type FeedService struct {
	feedRepo  repository.CalendarFeedRepository
	eventRepo repository.EventRepository
	detector  Detector
	refresher FeedRefresher
}

// NewFeedService はFeedServiceの新しいインスタンスを生成する。
func NewFeedService(
	feedRepo repository.CalendarFeedRepository,
	eventRepo repository.EventRepository,
	detector Detector,
	refresher FeedRefresher,
) *FeedService {
	return &FeedService{
		feedRepo:  feedRepo,
		eventRepo: eventRepo,
		detector:  detector,
		refresher: refresher,
	}
}

// Subscribe はURLからカレンダーフィードを検出し、購読として登録する。
// フロー: フィード検出 → 重複チェック → 購読保存 → 初回インポート
// 初回インポートの失敗は購読の失敗とせず、連続失敗カウントとして記録される。
// 検出の時点でURLがICSを返すことは確認済みのため、ここでの失敗は一時的とみなせる。
func (s *FeedService) Subscribe(ctx context.Context, inputURL string) (*model.CalendarFeed, error) {
	feedURL, err := s.detector.DetectCalendarURL(ctx, inputURL)
	if err != nil {
		return nil, err
	}

	existing, err := s.feedRepo.FindByURL(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("購読の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateFeedError()
	}

	count, err := s.feedRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}

	now := time.Now()
	feed := &model.CalendarFeed{
		ID:            uuid.New().String(),
		URL:           feedURL,
		Color:         feedPalette[len(count)%len(feedPalette)],
		RefreshStatus: model.RefreshStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.feedRepo.Create(ctx, feed); err != nil {
		return nil, fmt.Errorf("購読の保存に失敗しました: %w", err)
	}

	// 初回インポート（同期実行）。失敗時はfeed側に失敗状態が記録される。
	if s.refresher != nil {
		if err := s.refresher.RefreshFeed(ctx, feed); err != nil {
			slog.Warn("初回インポートに失敗しました",
				slog.String("feed_id", feed.ID),
				slog.String("feed_url", feed.URL),
				slog.String("error", err.Error()),
			)
		}
	}

	return feed, nil
}

// ListFeeds は全購読をcreated_at昇順で返す。
func (s *FeedService) ListFeeds(ctx context.Context) ([]*model.CalendarFeed, error) {
	feeds, err := s.feedRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	return feeds, nil
}

// Unsubscribe は購読を解除し、由来する予定を全て削除する。
// 対象が存在しない場合はFEED_NOT_FOUNDを返す。
func (s *FeedService) Unsubscribe(ctx context.Context, feedID string) error {
	if feedID == "" {
		return model.NewFeedNotFoundError(feedID)
	}

	if err := s.eventRepo.DeleteByFeedID(ctx, feedID); err != nil {
		return fmt.Errorf("購読由来の予定の削除に失敗しました: %w", err)
	}

	deleted, err := s.feedRepo.Delete(ctx, feedID)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewFeedNotFoundError(feedID)
	}

	return nil
}
