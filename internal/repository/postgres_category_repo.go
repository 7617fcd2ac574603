package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/docbao/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// List は全カテゴリを表示順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, icon_emoji, article_count
		 FROM categories
		 ORDER BY sort_order, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IconEmoji, &c.ArticleCount); err != nil {
			return nil, fmt.Errorf("カテゴリのスキャンに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}
	return categories, nil
}

// InsertAll はカテゴリを同一トランザクションで投入する。既存のIDは変更しない。
func (r *PostgresCategoryRepo) InsertAll(ctx context.Context, categories []*model.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, c := range categories {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name, description, icon_emoji, article_count, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, c.Description, c.IconEmoji, c.ArticleCount, i,
		)
		if err != nil {
			return fmt.Errorf("カテゴリ %s の投入に失敗しました: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateArticleCount はカテゴリの記事数を更新する。
func (r *PostgresCategoryRepo) UpdateArticleCount(ctx context.Context, id string, count int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE categories SET article_count = $2 WHERE id = $1`,
		id, count,
	)
	if err != nil {
		return fmt.Errorf("記事数の更新に失敗しました: %w", err)
	}
	return nil
}

var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
