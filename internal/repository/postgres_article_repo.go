package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/docbao/internal/cache"
	"github.com/hitoshi/docbao/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事ストア。cache.Storeを実装する。
// 記事はarticlesテーブル、名前付きスナップショットはcached_listsテーブルにJSONBで保存する。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

const selectArticle = `SELECT id, title, summary, content, image_url, source_url, source,
		        category_id, category_name, category_text, published_at, view_count
		 FROM articles`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*model.Article, error) {
	a := &model.Article{}
	err := row.Scan(
		&a.ID, &a.Title, &a.Summary, &a.Content, &a.ImageURL, &a.SourceURL, &a.Source,
		&a.CategoryID, &a.CategoryName, &a.CategoryText, &a.PublishedAt, &a.ViewCount,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Get は記事IDで記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) Get(ctx context.Context, articleID string) (*model.Article, error) {
	a, err := scanArticle(r.db.QueryRowContext(ctx, selectArticle+` WHERE id = $1`, articleID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return a, nil
}

// Put は記事をUPSERTする。同じIDへの書き込みは後勝ちで上書きする。
func (r *PostgresArticleRepo) Put(ctx context.Context, a *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, summary, content, image_url, source_url, source,
		                       category_id, category_name, category_text, published_at, view_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     summary = EXCLUDED.summary,
		     content = EXCLUDED.content,
		     image_url = EXCLUDED.image_url,
		     source_url = EXCLUDED.source_url,
		     source = EXCLUDED.source,
		     category_id = EXCLUDED.category_id,
		     category_name = EXCLUDED.category_name,
		     category_text = EXCLUDED.category_text,
		     published_at = EXCLUDED.published_at,
		     view_count = EXCLUDED.view_count,
		     updated_at = now()`,
		a.ID, a.Title, a.Summary, a.Content, a.ImageURL, a.SourceURL, a.Source,
		a.CategoryID, a.CategoryName, a.CategoryText, a.PublishedAt.UTC(), a.ViewCount,
	)
	if err != nil {
		return fmt.Errorf("記事の保存に失敗しました: %w", err)
	}
	return nil
}

// ListByCategory はカテゴリの記事を公開日時の降順で最大limit件返す。
func (r *PostgresArticleRepo) ListByCategory(ctx context.Context, categoryID string, limit int) ([]*model.Article, error) {
	if limit <= 0 {
		limit = cache.FallbackLimit
	}

	rows, err := r.db.QueryContext(ctx,
		selectArticle+` WHERE category_id = $1 ORDER BY published_at DESC LIMIT $2`,
		categoryID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	articles := make([]*model.Article, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("記事のスキャンに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// GetList は名前付きスナップショットを取得する。存在しない場合はnilを返す。
func (r *PostgresArticleRepo) GetList(ctx context.Context, key string) ([]*model.Article, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT articles FROM cached_lists WHERE key = $1`,
		key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("スナップショット %s の取得に失敗しました: %w", key, err)
	}
	return cache.UnmarshalArticles(data)
}

// PutList は名前付きスナップショットを置き換える。
func (r *PostgresArticleRepo) PutList(ctx context.Context, key string, articles []*model.Article) error {
	data, err := cache.MarshalArticles(articles)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO cached_lists (key, articles, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET articles = EXCLUDED.articles, updated_at = EXCLUDED.updated_at`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("スナップショット %s の保存に失敗しました: %w", key, err)
	}
	return nil
}

var _ cache.Store = (*PostgresArticleRepo)(nil)
