package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/calman/internal/model"
)

func TestExport_RoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	events := []*model.Event{
		{
			ID:        "11111111-1111-1111-1111-111111111111",
			Title:     "定例ミーティング",
			Start:     time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
			End:       time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
			Color:     model.ColorBlue,
			Location:  "会議室A",
			Organizer: "Alice",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	out := Export(events, "チームカレンダー", now)

	if !strings.Contains(out, "BEGIN:VCALENDAR") {
		t.Fatal("VCALENDARブロックが出力されていない")
	}
	if !strings.Contains(out, "UID:11111111-1111-1111-1111-111111111111") {
		t.Error("UIDが予定IDになっていない")
	}

	// 生成したICSを自分のパーサで読み戻せること
	result, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("エクスポート結果の再解析に失敗: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("再解析の予定数が不正: %d", len(result.Events))
	}
	got := result.Events[0]
	if got.Title != "定例ミーティング" {
		t.Errorf("タイトルが往復で変わった: %q", got.Title)
	}
	start, _ := time.Parse(time.RFC3339, got.Start)
	if !start.Equal(events[0].Start) {
		t.Errorf("開始日時が往復で変わった: %v", start)
	}
	if got.Location != "会議室A" {
		t.Errorf("場所が往復で変わった: %q", got.Location)
	}
}

func TestExport_SkipsZeroStart(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	events := []*model.Event{
		{ID: "broken", Title: "壊れた予定", Color: model.ColorBlue},
	}

	out := Export(events, "", now)
	if strings.Contains(out, "BEGIN:VEVENT") {
		t.Error("startゼロ値の予定がエクスポートされた")
	}
}

func TestExport_EmptyCollection(t *testing.T) {
	out := Export(nil, "", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Error("空コレクションでも有効なVCALENDARを出力すべき")
	}
}
