// Package view はカレンダービューの射影ロジックを提供する。
// 参照日と粒度から可視範囲を計算し、各予定を該当する日付セルへ割り当てる。
// このパッケージは予定コレクションを読むだけで、一切変更しない。
package view

import (
	"time"

	"github.com/hitoshi/calman/internal/model"
)

// HoursPerDay は日ビュー・週ビューの時間グリッドのスロット数。
const HoursPerDay = 24

// Cell はウィンドウ内の1日付セルを表す。
type Cell struct {
	Date           time.Time
	InCurrentMonth bool // 月ビューで参照月に属するか（週・日ビューでは常にtrue）
	Events         []*model.Event
	VisibleCount   int // インライン表示する件数の上限（"+N more"の閾値）
}

// Overflow はインライン表示から溢れる予定数を返す。
func (c *Cell) Overflow() int {
	if n := len(c.Events) - c.VisibleCount; n > 0 {
		return n
	}
	return 0
}

// HourSlot は日ビューの1時間スロットを表す。
type HourSlot struct {
	Hour   int
	Events []*model.Event
}

// Window は参照日と粒度に対する可視セル列を表す。導出値であり保存されない。
type Window struct {
	Granularity model.Granularity
	Reference   time.Time
	Start       time.Time // 可視範囲の先頭日（0時）
	End         time.Time // 可視範囲の最終日（0時）
	Cells       []Cell
	HourSlots   []HourSlot // 日ビューのみ
}

// ComputeWindow は参照日と粒度から可視ウィンドウを計算し、
// 各予定をそのstartの暦日に一致するセルへ割り当てる。
//
//   - month: 月初を含む週の先頭から月末を含む週の末尾まで。常に完全な週で構成され、
//     セル数は7の倍数になる。隣接月の日はInCurrentMonth=falseでタグ付けされる。
//   - week: 週開始曜日から始まる7日間。
//   - day: 参照日1日。加えて00:00〜23:00の24時間スロットに分割する。
//
// 予定は深夜をまたいでも複数セルには割り当てられない（startの暦日のみ）。
// セル内の並びはstart昇順・同時刻は入力順（キャッシュの挿入順）で安定。
// startがゼロ値の予定は境界で黙って除外される（ログは呼び出し側の責務）。
func ComputeWindow(events []*model.Event, ref time.Time, g model.Granularity, weekStart time.Weekday, visibleMax int) *Window {
	w := &Window{Granularity: g, Reference: ref}

	switch g {
	case model.GranularityMonth:
		monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		monthEnd := monthStart.AddDate(0, 1, -1)
		w.Start = startOfWeek(monthStart, weekStart)
		w.End = startOfWeek(monthEnd, weekStart).AddDate(0, 0, 6)
	case model.GranularityWeek:
		w.Start = startOfWeek(ref, weekStart)
		w.End = w.Start.AddDate(0, 0, 6)
	default: // day
		w.Start = startOfDay(ref)
		w.End = w.Start
	}

	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		cell := Cell{
			Date:           d,
			InCurrentMonth: g != model.GranularityMonth || d.Month() == ref.Month(),
			Events:         eventsOnDay(events, d),
			VisibleCount:   visibleMax,
		}
		w.Cells = append(w.Cells, cell)
	}

	if g == model.GranularityDay {
		w.HourSlots = hourSlots(w.Cells[0].Events)
	}

	return w
}

// ActiveEvents はstart <= now <= endの予定（今まさに進行中）を返す。
// ウィンドウイングとは独立した純粋なフィルタで、日ビューのサイドバーで使用する。
func ActiveEvents(events []*model.Event, now time.Time) []*model.Event {
	var active []*model.Event
	for _, event := range events {
		if event.Start.IsZero() {
			continue
		}
		if !event.Start.After(now) && !event.End.Before(now) {
			active = append(active, event)
		}
	}
	return active
}

// NowIndicatorOffset は時間グリッド上の現在時刻インジケータの縦位置を返す。
// hour * slotHeight + minute * (slotHeight / 60)
func NowIndicatorOffset(now time.Time, slotHeight float64) float64 {
	return float64(now.Hour())*slotHeight + float64(now.Minute())*(slotHeight/60)
}

// IsActiveHour は現在時刻が指定日の指定時間スロットに含まれるかを返す。
func IsActiveHour(date time.Time, hour int, now time.Time) bool {
	return sameDay(date, now) && now.Hour() == hour
}

// eventsOnDay はstartの暦日がdayに一致する予定を入力順のまま返す。
// 入力はstart昇順・同時刻は挿入順でソート済みであることを前提とする。
func eventsOnDay(events []*model.Event, day time.Time) []*model.Event {
	var matched []*model.Event
	for _, event := range events {
		if event.Start.IsZero() {
			// 解析不能な日時はウィンドウから黙って除外する
			continue
		}
		if sameDay(event.Start, day) {
			matched = append(matched, event)
		}
	}
	return matched
}

// hourSlots は1日分の予定を24個の時間スロットへ振り分ける。
func hourSlots(events []*model.Event) []HourSlot {
	slots := make([]HourSlot, HoursPerDay)
	for h := range slots {
		slots[h].Hour = h
	}
	for _, event := range events {
		slots[event.Start.Hour()].Events = append(slots[event.Start.Hour()].Events, event)
	}
	return slots
}

// startOfDay は同じ暦日の0時を返す。
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek はtを含む週の開始曜日の0時を返す。
func startOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	d := startOfDay(t)
	diff := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDate(0, 0, -diff)
}

// sameDay は2つの時刻が同じ暦日（年・月・日）かを返す。
func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
