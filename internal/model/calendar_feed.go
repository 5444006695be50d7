// Package model はドメインモデルを定義する。
package model

import "time"

// CalendarFeed は外部ICSカレンダーの購読を表す。
// リフレッシュのたびに購読由来の予定は丸ごと入れ替えられる。
type CalendarFeed struct {
	ID                string
	URL               string
	Title             string
	Color             EventColor // インポートされる予定のデフォルト色
	RefreshStatus     RefreshStatus
	ConsecutiveErrors int
	ErrorMessage      string
	RefreshedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RefreshStatus はICS購読のリフレッシュ状態を表す。
type RefreshStatus string

const (
	// RefreshStatusActive はアクティブなリフレッシュ状態。
	RefreshStatusActive RefreshStatus = "active"
	// RefreshStatusError は連続失敗によるリフレッシュ停止状態。
	RefreshStatusError RefreshStatus = "error"
)
