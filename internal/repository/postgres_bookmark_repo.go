package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/docbao/internal/model"
)

// PostgresBookmarkRepo はuser_bookmarksテーブルを使用したブックマークリポジトリ。
// (user_id, article_id)の主キーにより集合として振る舞う。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo はPostgresBookmarkRepoを生成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

// Add は記事IDを集合に追加する。
func (r *PostgresBookmarkRepo) Add(ctx context.Context, userID, articleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_bookmarks (user_id, article_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, article_id) DO NOTHING`,
		userID, articleID,
	)
	if err != nil {
		return fmt.Errorf("ブックマークの追加に失敗しました: %w", err)
	}
	return nil
}

// Remove は記事IDを集合から削除する。
func (r *PostgresBookmarkRepo) Remove(ctx context.Context, userID, articleID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_bookmarks WHERE user_id = $1 AND article_id = $2`,
		userID, articleID,
	)
	if err != nil {
		return fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの全ブックマークを削除する。
func (r *PostgresBookmarkRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_bookmarks WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("ブックマークの一括削除に失敗しました: %w", err)
	}
	return nil
}

// ListIDs はユーザーのブックマーク集合を返す。
func (r *PostgresBookmarkRepo) ListIDs(ctx context.Context, userID string) (model.BookmarkSet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT article_id FROM user_bookmarks WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	set := model.NewBookmarkSet()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ブックマークのスキャンに失敗しました: %w", err)
		}
		set.Add(id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の走査に失敗しました: %w", err)
	}
	return set, nil
}

var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
