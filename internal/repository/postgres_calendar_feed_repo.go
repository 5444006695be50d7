package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/calman/internal/model"
)

// PostgresCalendarFeedRepo はPostgreSQLを使用したICS購読リポジトリ。
type PostgresCalendarFeedRepo struct {
	db *sql.DB
}

// NewPostgresCalendarFeedRepo はPostgresCalendarFeedRepoを生成する。
func NewPostgresCalendarFeedRepo(db *sql.DB) *PostgresCalendarFeedRepo {
	return &PostgresCalendarFeedRepo{db: db}
}

const feedColumns = `id, url, title, color, refresh_status, consecutive_errors, error_message, refreshed_at, created_at, updated_at`

func scanFeed(scan func(dest ...any) error) (*model.CalendarFeed, error) {
	feed := &model.CalendarFeed{}
	var errorMessage sql.NullString
	var refreshedAt sql.NullTime

	if err := scan(
		&feed.ID, &feed.URL, &feed.Title, &feed.Color,
		&feed.RefreshStatus, &feed.ConsecutiveErrors,
		&errorMessage, &refreshedAt, &feed.CreatedAt, &feed.UpdatedAt,
	); err != nil {
		return nil, err
	}

	feed.ErrorMessage = nullStringValue(errorMessage)
	if refreshedAt.Valid {
		t := refreshedAt.Time
		feed.RefreshedAt = &t
	}

	return feed, nil
}

// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
func (r *PostgresCalendarFeedRepo) FindByID(ctx context.Context, id string) (*model.CalendarFeed, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+feedColumns+` FROM calendar_feeds WHERE id = $1`, id)

	feed, err := scanFeed(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}
	return feed, nil
}

// FindByURL はURLで購読を検索する。見つからない場合はnilを返す。
func (r *PostgresCalendarFeedRepo) FindByURL(ctx context.Context, url string) (*model.CalendarFeed, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+feedColumns+` FROM calendar_feeds WHERE url = $1`, url)

	feed, err := scanFeed(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("URLによる購読の検索に失敗しました: %w", err)
	}
	return feed, nil
}

// List は全購読をcreated_at昇順で返す。
func (r *PostgresCalendarFeedRepo) List(ctx context.Context) ([]*model.CalendarFeed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+feedColumns+` FROM calendar_feeds ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var feeds []*model.CalendarFeed
	for rows.Next() {
		feed, err := scanFeed(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("購読の読み取りに失敗しました: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読一覧の走査に失敗しました: %w", err)
	}

	return feeds, nil
}

// Create は購読を作成する。
func (r *PostgresCalendarFeedRepo) Create(ctx context.Context, feed *model.CalendarFeed) error {
	var refreshedAt sql.NullTime
	if feed.RefreshedAt != nil {
		refreshedAt = sql.NullTime{Time: *feed.RefreshedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calendar_feeds (id, url, title, color, refresh_status,
		                             consecutive_errors, error_message, refreshed_at,
		                             created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		feed.ID, feed.URL, feed.Title, feed.Color, feed.RefreshStatus,
		feed.ConsecutiveErrors, nullString(feed.ErrorMessage), refreshedAt,
		feed.CreatedAt, feed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの購読を削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresCalendarFeedRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM calendar_feeds WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("購読の削除に失敗しました: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	return n > 0, nil
}

// UpdateRefreshState は購読のリフレッシュ状態を更新する。
func (r *PostgresCalendarFeedRepo) UpdateRefreshState(ctx context.Context, feed *model.CalendarFeed) error {
	var refreshedAt sql.NullTime
	if feed.RefreshedAt != nil {
		refreshedAt = sql.NullTime{Time: *feed.RefreshedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE calendar_feeds SET
		    title = $2,
		    refresh_status = $3,
		    consecutive_errors = $4,
		    error_message = $5,
		    refreshed_at = $6,
		    updated_at = $7
		 WHERE id = $1`,
		feed.ID, feed.Title, feed.RefreshStatus, feed.ConsecutiveErrors,
		nullString(feed.ErrorMessage), refreshedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("リフレッシュ状態の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CalendarFeedRepository = (*PostgresCalendarFeedRepo)(nil)
