// Package bookmark はユーザーごとのブックマーク集合を扱う。
package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hitoshi/docbao/internal/cache"
	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/repository"
)

// Service はブックマークのサービス層。
type Service struct {
	repo   repository.BookmarkRepository
	store  cache.Store
	logger *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.BookmarkRepository, store cache.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger}
}

// Toggle は記事のブックマーク状態を反転し、反転後の状態を返す。
// 未ログインの場合はLOGIN_REQUIREDを返す。
func (s *Service) Toggle(ctx context.Context, userID, articleID string) (bool, error) {
	if userID == "" {
		return false, model.NewLoginRequiredError()
	}
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return false, model.NewInvalidRequestError("Thiếu mã bài viết")
	}

	set, err := s.repo.ListIDs(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ブックマークの取得に失敗しました: %w", err)
	}

	if set.Contains(articleID) {
		if err := s.repo.Remove(ctx, userID, articleID); err != nil {
			return false, fmt.Errorf("ブックマークの解除に失敗しました: %w", err)
		}
		s.logger.Info("ブックマークを解除しました",
			slog.String("user_id", userID),
			slog.String("article_id", articleID),
		)
		return false, nil
	}

	if err := s.repo.Add(ctx, userID, articleID); err != nil {
		return false, fmt.Errorf("ブックマークの追加に失敗しました: %w", err)
	}
	s.logger.Info("ブックマークに追加しました",
		slog.String("user_id", userID),
		slog.String("article_id", articleID),
	)
	return true, nil
}

// List はブックマーク済みの記事を公開日時の降順で返す。
// ストアに存在しない記事は読み飛ばす。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Article, error) {
	if userID == "" {
		return nil, model.NewLoginRequiredError()
	}

	set, err := s.repo.ListIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ブックマークの取得に失敗しました: %w", err)
	}

	articles := make([]*model.Article, 0, len(set))
	for _, id := range set.IDs() {
		a, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("記事 %s の取得に失敗しました: %w", id, err)
		}
		if a == nil {
			s.logger.Debug("ブックマーク済みの記事がストアにありません",
				slog.String("user_id", userID),
				slog.String("article_id", id),
			)
			continue
		}
		a.IsBookmarked = true
		articles = append(articles, a)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	return articles, nil
}

// Mark は閲覧ユーザーのブックマーク状態を記事に設定する。
// 集合の取得に失敗した場合は全て未ブックマークとして扱う。
func (s *Service) Mark(ctx context.Context, userID string, articles []*model.Article) {
	if userID == "" || len(articles) == 0 {
		return
	}

	set, err := s.repo.ListIDs(ctx, userID)
	if err != nil {
		s.logger.Warn("ブックマーク状態の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		set = model.NewBookmarkSet()
	}

	for _, a := range articles {
		a.IsBookmarked = set.Contains(a.ID)
	}
}
