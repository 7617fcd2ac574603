package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/docbao/internal/model"
)

const (
	articleKeyPrefix  = "docbao:article:"
	categoryKeyPrefix = "docbao:category:"
	listKeyPrefix     = "docbao:list:"
)

// RedisStore はRedisを使ったStoreの実装。
// 記事はJSONで保存し、カテゴリごとに公開日時をスコアとするソート済みセットで索引する。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func articleKey(id string) string         { return articleKeyPrefix + id }
func categoryKey(categoryID string) string { return categoryKeyPrefix + categoryID }
func listKey(key string) string           { return listKeyPrefix + key }

// Get は記事IDで記事を取得する。
func (s *RedisStore) Get(ctx context.Context, articleID string) (*model.Article, error) {
	data, err := s.client.Get(ctx, articleKey(articleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal article: %w", err)
	}
	return doc.Article(), nil
}

// Put は記事を保存し、カテゴリ索引に追加する。同じIDへの書き込みは後勝ち。
func (s *RedisStore) Put(ctx context.Context, article *model.Article) error {
	doc := ToDocument(article)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal article: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, articleKey(doc.ID), data, 0)
	if doc.CategoryID != "" {
		pipe.ZAdd(ctx, categoryKey(doc.CategoryID), redis.Z{
			Score:  float64(doc.PublishedAt.UnixMilli()),
			Member: doc.ID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put article: %w", err)
	}
	return nil
}

// ListByCategory はカテゴリの記事を公開日時の降順で最大limit件返す。
// 索引に残っていても本体が消えている記事は飛ばす。
func (s *RedisStore) ListByCategory(ctx context.Context, categoryID string, limit int) ([]*model.Article, error) {
	if limit <= 0 {
		limit = FallbackLimit
	}

	ids, err := s.client.ZRevRange(ctx, categoryKey(categoryID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list category index: %w", err)
	}
	if len(ids) == 0 {
		return []*model.Article{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = articleKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}

	articles := make([]*model.Article, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		articles = append(articles, doc.Article())
	}
	return articles, nil
}

// GetList は名前付きスナップショットを取得する。存在しない場合はnil, nilを返す。
func (s *RedisStore) GetList(ctx context.Context, key string) ([]*model.Article, error) {
	data, err := s.client.Get(ctx, listKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list %s: %w", key, err)
	}
	return UnmarshalArticles(data)
}

// PutList は名前付きスナップショットを置き換える。
func (s *RedisStore) PutList(ctx context.Context, key string, articles []*model.Article) error {
	data, err := MarshalArticles(articles)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, listKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put list %s: %w", key, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
