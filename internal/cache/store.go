// Package cache は記事のキャッシュアサイドストアを提供する。
package cache

import (
	"context"

	"github.com/hitoshi/docbao/internal/model"
)

// リストスナップショットのキー
const (
	KeyLatest   = "latest_articles"
	KeyTrending = "trending_articles"
	KeyRecent   = "recent_articles"
)

// FallbackLimit はフォールバック読み出しで返す最大件数。
const FallbackLimit = 20

// Store は記事キャッシュのインターフェース。
// 見つからない場合はnil, nilを返す。呼び出し元はエラーもミスとして扱い、ネットワーク取得に進む。
type Store interface {
	Get(ctx context.Context, articleID string) (*model.Article, error)
	Put(ctx context.Context, article *model.Article) error
	// ListByCategory は公開日時の降順で最大limit件を返す。
	ListByCategory(ctx context.Context, categoryID string, limit int) ([]*model.Article, error)
	GetList(ctx context.Context, key string) ([]*model.Article, error)
	PutList(ctx context.Context, key string, articles []*model.Article) error
}
