// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/calman/internal/model"
)

// EventRepository は予定データの永続化インターフェース。
// PostgreSQL実装（PostgresEventRepo）とインメモリ実装（MemoryEventRepo）があり、
// ライフサイクルマネージャの契約を変えずに差し替えられる。
type EventRepository interface {
	// FindByID は指定IDの予定を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// List は全予定をstart昇順（同時刻はcreated_at昇順）で返す。
	List(ctx context.Context) ([]*model.Event, error)

	// Create は予定を作成する。ID・タイムスタンプは呼び出し側が付与済みであること。
	Create(ctx context.Context, event *model.Event) error

	// CreateBatch は複数の予定を一括作成する。ICS購読のリフレッシュで使用する。
	CreateBatch(ctx context.Context, events []*model.Event) error

	// Update は予定を上書き更新する。対象IDが存在しない場合はfalseを返す。
	// ID・CreatedAtは変更しない。
	Update(ctx context.Context, event *model.Event) (bool, error)

	// Delete は指定IDの予定を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByFeedID は指定ICS購読由来の予定を全て削除する。
	DeleteByFeedID(ctx context.Context, feedID string) error
}

// CalendarFeedRepository はICS購読データの永続化インターフェース。
type CalendarFeedRepository interface {
	// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CalendarFeed, error)

	// FindByURL はURLで購読を検索する。見つからない場合はnilを返す。
	FindByURL(ctx context.Context, url string) (*model.CalendarFeed, error)

	// List は全購読をcreated_at昇順で返す。
	List(ctx context.Context) ([]*model.CalendarFeed, error)

	// Create は購読を作成する。
	Create(ctx context.Context, feed *model.CalendarFeed) error

	// Delete は指定IDの購読を削除する。対象が存在しない場合はfalseを返す。
	// 由来する予定はON DELETE CASCADEで削除される。
	Delete(ctx context.Context, id string) (bool, error)

	// UpdateRefreshState は購読のリフレッシュ状態を更新する。
	// refresh_status、consecutive_errors、error_message、refreshed_at、titleを更新する。
	UpdateRefreshState(ctx context.Context, feed *model.CalendarFeed) error
}
