package view

import (
	"fmt"
	"time"

	"github.com/hitoshi/calman/internal/model"
)

// ViewState はナビゲーションの現在位置を表す。参照日と粒度のみを持ち、
// 予定データ自体には一切触れない。値として扱い、遷移は新しい値を返す。
type ViewState struct {
	Reference   time.Time
	Granularity model.Granularity
}

// Previous は粒度に応じて1単位過去へ移動した状態を返す。
// 月粒度では日数の少ない月へ移動する際に日をその月の末日へクランプする
// （3月31日の前月は2月29日または2月28日）。
func (s ViewState) Previous() ViewState {
	return s.step(-1)
}

// Next は粒度に応じて1単位未来へ移動した状態を返す。月のクランプ規則はPreviousと同じ。
func (s ViewState) Next() ViewState {
	return s.step(1)
}

// Today は参照日を現在日時へリセットした状態を返す。粒度は変わらない。
func (s ViewState) Today(now time.Time) ViewState {
	s.Reference = now
	return s
}

// WithGranularity は参照日を保ったまま粒度のみ切り替えた状態を返す。
func (s ViewState) WithGranularity(g model.Granularity) ViewState {
	s.Granularity = g
	return s
}

func (s ViewState) step(direction int) ViewState {
	switch s.Granularity {
	case model.GranularityMonth:
		s.Reference = addMonthsClamped(s.Reference, direction)
	case model.GranularityWeek:
		s.Reference = s.Reference.AddDate(0, 0, 7*direction)
	default:
		s.Reference = s.Reference.AddDate(0, 0, direction)
	}
	return s
}

// addMonthsClamped は月を加算し、移動先の月に存在しない日を末日へ丸める。
// time.TimeのAddDateは溢れた日数を翌月へ繰り越すため、ここでは使わない。
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, months, 0)
	day := t.Day()
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}

// Title は粒度に応じたヘッダ表示用タイトルを返す。
//
//	month: "January 2024"
//	week:  "Jan 7 - 13, 2024"（月をまたぐ場合は "Mar 31 - Apr 6, 2024"）
//	day:   "Sunday, January 7, 2024"
func Title(ref time.Time, g model.Granularity, weekStart time.Weekday) string {
	switch g {
	case model.GranularityMonth:
		return ref.Format("January 2006")
	case model.GranularityWeek:
		start := startOfWeek(ref, weekStart)
		end := start.AddDate(0, 0, 6)
		if start.Month() == end.Month() {
			return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("2, 2006"))
		}
		return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	default:
		return ref.Format("Monday, January 2, 2006")
	}
}

// RangeLabel は件数表示に添える可視範囲のラベルを返す。
//
//	month: "Jan 1 - Jan 31"
//	week:  "Jan 7 - Jan 13"
//	day:   "Jan 7, 2024"
func RangeLabel(ref time.Time, g model.Granularity, weekStart time.Weekday) string {
	switch g {
	case model.GranularityMonth:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		end := start.AddDate(0, 1, -1)
		return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2"))
	case model.GranularityWeek:
		start := startOfWeek(ref, weekStart)
		return fmt.Sprintf("%s - %s", start.Format("Jan 2"), start.AddDate(0, 0, 6).Format("Jan 2"))
	default:
		return ref.Format("Jan 2, 2006")
	}
}

// CountEvents は粒度の本来の範囲（月は暦月、週は7日間、日は当日）に
// startが含まれる予定の件数を返す。月ビューで見えている隣接月の日は数えない。
func CountEvents(events []*model.Event, ref time.Time, g model.Granularity, weekStart time.Weekday) int {
	var start, end time.Time
	switch g {
	case model.GranularityMonth:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		end = start.AddDate(0, 1, 0)
	case model.GranularityWeek:
		start = startOfWeek(ref, weekStart)
		end = start.AddDate(0, 0, 7)
	default:
		start = startOfDay(ref)
		end = start.AddDate(0, 0, 1)
	}

	count := 0
	for _, event := range events {
		if event.Start.IsZero() {
			continue
		}
		if !event.Start.Before(start) && event.Start.Before(end) {
			count++
		}
	}
	return count
}
