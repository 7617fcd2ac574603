package category

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/repository"
)

// Service はカテゴリのサービス層。
type Service struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.CategoryRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List はカテゴリ一覧を返す。
// ストアが空の場合はカタログを投入し、ストアの読み書きに失敗した場合はカタログをそのまま返す。
func (s *Service) List(ctx context.Context) ([]*model.Category, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn("カテゴリの取得に失敗したためカタログを使用します",
			slog.String("error", err.Error()),
		)
		return local(), nil
	}
	if len(stored) > 0 {
		return stored, nil
	}

	seed := local()
	if err := s.repo.InsertAll(ctx, seed); err != nil {
		s.logger.Warn("カテゴリの初期投入に失敗しました",
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("カテゴリを初期投入しました", slog.Int("count", len(seed)))
	}
	return seed, nil
}

// Get はスラッグでカテゴリを返す。カタログにない場合はCATEGORY_NOT_FOUNDを返す。
func (s *Service) Get(_ context.Context, id string) (*model.Category, error) {
	c, ok := Lookup(id)
	if !ok {
		return nil, model.NewCategoryNotFoundError(id)
	}
	return &c, nil
}

// UpdateArticleCount はカテゴリの記事数を更新する。
func (s *Service) UpdateArticleCount(ctx context.Context, id string, count int) error {
	if err := s.repo.UpdateArticleCount(ctx, id, count); err != nil {
		return fmt.Errorf("カテゴリ %s の記事数更新に失敗しました: %w", id, err)
	}
	return nil
}

func local() []*model.Category {
	catalog := Catalog()
	categories := make([]*model.Category, len(catalog))
	for i := range catalog {
		categories[i] = &catalog[i]
	}
	return categories
}
