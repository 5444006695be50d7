package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/calman/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用した予定リポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// eventColumns は予定テーブルのSELECT列リスト。
const eventColumns = `id, title, start_at, end_at, color, organizer, description, location, feed_id, created_at, updated_at`

// scanEvent は1行を*model.Eventに読み取る。
func scanEvent(scan func(dest ...any) error) (*model.Event, error) {
	event := &model.Event{}
	var organizer, description, location, feedID sql.NullString

	if err := scan(
		&event.ID, &event.Title, &event.Start, &event.End, &event.Color,
		&organizer, &description, &location, &feedID,
		&event.CreatedAt, &event.UpdatedAt,
	); err != nil {
		return nil, err
	}

	event.Organizer = nullStringValue(organizer)
	event.Description = nullStringValue(description)
	event.Location = nullStringValue(location)
	event.FeedID = nullStringValue(feedID)

	return event, nil
}

// FindByID は指定IDの予定を取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)

	event, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("予定の取得に失敗しました: %w", err)
	}
	return event, nil
}

// List は全予定をstart昇順（同時刻はcreated_at昇順）で返す。
func (r *PostgresEventRepo) List(ctx context.Context) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY start_at ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("予定一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("予定の読み取りに失敗しました: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("予定一覧の走査に失敗しました: %w", err)
	}

	return events, nil
}

// Create は予定を作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title, start_at, end_at, color, organizer,
		                     description, location, feed_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Title, event.Start, event.End, event.Color,
		nullString(event.Organizer), nullString(event.Description),
		nullString(event.Location), nullString(event.FeedID),
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("予定の作成に失敗しました: %w", err)
	}
	return nil
}

// CreateBatch は複数の予定を一括作成する。
// 1件でも失敗した場合は以降を中断してエラーを返す。
func (r *PostgresEventRepo) CreateBatch(ctx context.Context, events []*model.Event) error {
	for _, event := range events {
		if err := r.Create(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Update は予定を上書き更新する。対象IDが存在しない場合はfalseを返す。
func (r *PostgresEventRepo) Update(ctx context.Context, event *model.Event) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET
		    title = $2, start_at = $3, end_at = $4, color = $5,
		    organizer = $6, description = $7, location = $8, updated_at = $9
		 WHERE id = $1`,
		event.ID, event.Title, event.Start, event.End, event.Color,
		nullString(event.Organizer), nullString(event.Description),
		nullString(event.Location), event.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("予定の更新に失敗しました: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	return n > 0, nil
}

// Delete は指定IDの予定を削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresEventRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("予定の削除に失敗しました: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	return n > 0, nil
}

// DeleteByFeedID は指定ICS購読由来の予定を全て削除する。
func (r *PostgresEventRepo) DeleteByFeedID(ctx context.Context, feedID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE feed_id = $1`, feedID)
	if err != nil {
		return fmt.Errorf("購読由来予定の削除に失敗しました: %w", err)
	}
	return nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
