// Package model はドメインモデルを定義する。
package model

import "time"

// Event はカレンダー上の予定を表す。
// IDとCreatedAt/UpdatedAtはストアゲートウェイがcreate時に付与し、
// 以降は変更されない。
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	Color       EventColor
	Organizer   string
	Description string // サニタイズ済みHTML
	Location    string
	FeedID      string // ICS購読由来の場合のみ設定される
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventColor は予定の表示色を表す。閉じた列挙であり、
// バリデーション境界と永続化境界の両方でチェックされる。
type EventColor string

const (
	// ColorBlue はデフォルトの表示色。
	ColorBlue EventColor = "blue"
	// ColorRed は赤の表示色。
	ColorRed EventColor = "red"
	// ColorGreen は緑の表示色。
	ColorGreen EventColor = "green"
	// ColorYellow は黄の表示色。
	ColorYellow EventColor = "yellow"
	// ColorPurple は紫の表示色。
	ColorPurple EventColor = "purple"
	// ColorOrange は橙の表示色。
	ColorOrange EventColor = "orange"
)

// eventColors は許可される表示色の集合。
var eventColors = map[EventColor]bool{
	ColorBlue:   true,
	ColorRed:    true,
	ColorGreen:  true,
	ColorYellow: true,
	ColorPurple: true,
	ColorOrange: true,
}

// IsValid は色が閉じた列挙に含まれるかを返す。
func (c EventColor) IsValid() bool {
	return eventColors[c]
}

// Granularity はカレンダービューの粒度を表す。
type Granularity string

const (
	// GranularityDay は日ビュー。
	GranularityDay Granularity = "day"
	// GranularityWeek は週ビュー。
	GranularityWeek Granularity = "week"
	// GranularityMonth は月ビュー。
	GranularityMonth Granularity = "month"
)

// IsValid は粒度がday/week/monthのいずれかであるかを返す。
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return true
	default:
		return false
	}
}

// EventPayload はクライアントから受け取る未検証の予定データを表す。
// Validatorを通過したものだけがEventになり、ストアゲートウェイに到達する。
type EventPayload struct {
	ID          string
	Title       string
	Start       string
	End         string
	Color       string
	Organizer   string
	Description string
	Location    string
}
