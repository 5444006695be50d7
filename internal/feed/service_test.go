package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/calman/internal/model"
	"github.com/hitoshi/calman/internal/repository"
)

// mockFeedRepo はCalendarFeedRepositoryのテスト用実装。
type mockFeedRepo struct {
	feeds   []*model.CalendarFeed
	failure error
}

var _ repository.CalendarFeedRepository = (*mockFeedRepo)(nil)

func (m *mockFeedRepo) FindByID(ctx context.Context, id string) (*model.CalendarFeed, error) {
	for _, f := range m.feeds {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, nil
}

func (m *mockFeedRepo) FindByURL(ctx context.Context, url string) (*model.CalendarFeed, error) {
	if m.failure != nil {
		return nil, m.failure
	}
	for _, f := range m.feeds {
		if f.URL == url {
			return f, nil
		}
	}
	return nil, nil
}

func (m *mockFeedRepo) List(ctx context.Context) ([]*model.CalendarFeed, error) {
	return m.feeds, nil
}

func (m *mockFeedRepo) Create(ctx context.Context, feed *model.CalendarFeed) error {
	m.feeds = append(m.feeds, feed)
	return nil
}

func (m *mockFeedRepo) Delete(ctx context.Context, id string) (bool, error) {
	for i, f := range m.feeds {
		if f.ID == id {
			m.feeds = append(m.feeds[:i], m.feeds[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFeedRepo) UpdateRefreshState(ctx context.Context, feed *model.CalendarFeed) error {
	return nil
}

// mockDetector は検出結果を固定で返すDetector。
type mockDetector struct {
	url string
	err error
}

func (m *mockDetector) DetectCalendarURL(ctx context.Context, inputURL string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

// mockRefresher はRefreshFeedの呼び出しを記録するFeedRefresher。
type mockRefresher struct {
	calls int
	err   error
}

func (m *mockRefresher) RefreshFeed(ctx context.Context, feed *model.CalendarFeed) error {
	m.calls++
	return m.err
}

func assertFeedErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatal("エラーが返らなかった")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorではないエラーが返った: %v", err)
	}
	if apiErr.Code != code {
		t.Errorf("期待したコードは%sだが%sが返った", code, apiErr.Code)
	}
}

func TestSubscribe_Success(t *testing.T) {
	feedRepo := &mockFeedRepo{}
	refresher := &mockRefresher{}
	svc := NewFeedService(feedRepo, repository.NewMemoryEventRepo(),
		&mockDetector{url: "https://example.com/team.ics"}, refresher)

	feed, err := svc.Subscribe(context.Background(), "https://example.com/page")
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if feed.ID == "" {
		t.Error("購読IDが発番されていない")
	}
	if feed.URL != "https://example.com/team.ics" {
		t.Errorf("検出されたURLが保存されていない: %q", feed.URL)
	}
	if feed.RefreshStatus != model.RefreshStatusActive {
		t.Errorf("初期状態がactiveではない: %s", feed.RefreshStatus)
	}
	if feed.Color != model.ColorGreen {
		t.Errorf("1件目の購読色がパレット先頭ではない: %v", feed.Color)
	}
	if refresher.calls != 1 {
		t.Errorf("初回インポートが実行されていない: calls=%d", refresher.calls)
	}
	if len(feedRepo.feeds) != 1 {
		t.Errorf("購読が保存されていない: %d件", len(feedRepo.feeds))
	}
}

func TestSubscribe_ColorsCycleThroughPalette(t *testing.T) {
	feedRepo := &mockFeedRepo{}
	svc := NewFeedService(feedRepo, repository.NewMemoryEventRepo(), &mockDetector{url: "https://example.com/a.ics"}, &mockRefresher{})

	first, err := svc.Subscribe(context.Background(), "https://example.com/a.ics")
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	svc2 := NewFeedService(feedRepo, repository.NewMemoryEventRepo(), &mockDetector{url: "https://example.com/b.ics"}, &mockRefresher{})
	second, err := svc2.Subscribe(context.Background(), "https://example.com/b.ics")
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if first.Color == second.Color {
		t.Errorf("連続する購読に同じ色が割り当てられた: %v", first.Color)
	}
}

func TestSubscribe_DuplicateURL(t *testing.T) {
	feedRepo := &mockFeedRepo{feeds: []*model.CalendarFeed{
		{ID: "feed-1", URL: "https://example.com/team.ics"},
	}}
	svc := NewFeedService(feedRepo, repository.NewMemoryEventRepo(),
		&mockDetector{url: "https://example.com/team.ics"}, &mockRefresher{})

	_, err := svc.Subscribe(context.Background(), "https://example.com/team.ics")
	assertFeedErrorCode(t, err, model.ErrCodeDuplicateFeed)
}

func TestSubscribe_DetectionFailurePropagates(t *testing.T) {
	svc := NewFeedService(&mockFeedRepo{}, repository.NewMemoryEventRepo(),
		&mockDetector{err: model.NewFeedNotDetectedError("https://example.com")}, &mockRefresher{})

	_, err := svc.Subscribe(context.Background(), "https://example.com")
	assertFeedErrorCode(t, err, model.ErrCodeFeedNotDetected)
}

func TestSubscribe_InitialImportFailureIsNonFatal(t *testing.T) {
	feedRepo := &mockFeedRepo{}
	svc := NewFeedService(feedRepo, repository.NewMemoryEventRepo(),
		&mockDetector{url: "https://example.com/team.ics"},
		&mockRefresher{err: errors.New("fetch failed")})

	feed, err := svc.Subscribe(context.Background(), "https://example.com/team.ics")
	if err != nil {
		t.Fatalf("初回インポート失敗で購読登録まで失敗した: %v", err)
	}
	if feed == nil {
		t.Fatal("購読が返らなかった")
	}
}

func TestUnsubscribe_RemovesFeedAndEvents(t *testing.T) {
	feedRepo := &mockFeedRepo{feeds: []*model.CalendarFeed{
		{ID: "feed-1", URL: "https://example.com/team.ics"},
	}}
	eventRepo := repository.NewMemoryEventRepo()
	imported := &model.Event{ID: "ev-1", Title: "購読由来", FeedID: "feed-1", Color: model.ColorGreen}
	if err := eventRepo.Create(context.Background(), imported); err != nil {
		t.Fatalf("事前データの作成に失敗: %v", err)
	}

	svc := NewFeedService(feedRepo, eventRepo, &mockDetector{}, &mockRefresher{})
	if err := svc.Unsubscribe(context.Background(), "feed-1"); err != nil {
		t.Fatalf("Unsubscribe returned error: %v", err)
	}

	if len(feedRepo.feeds) != 0 {
		t.Error("購読が削除されていない")
	}
	events, _ := eventRepo.List(context.Background())
	if len(events) != 0 {
		t.Error("購読由来の予定が削除されていない")
	}
}

func TestUnsubscribe_NotFound(t *testing.T) {
	svc := NewFeedService(&mockFeedRepo{}, repository.NewMemoryEventRepo(), &mockDetector{}, &mockRefresher{})
	err := svc.Unsubscribe(context.Background(), "no-such-feed")
	assertFeedErrorCode(t, err, model.ErrCodeFeedNotFound)

	err = svc.Unsubscribe(context.Background(), "")
	assertFeedErrorCode(t, err, model.ErrCodeFeedNotFound)
}
