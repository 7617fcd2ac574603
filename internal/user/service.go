// Package user はユーザーアカウント管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/docbao/internal/model"
)

// AccountRepository はユーザーの取得と削除のインターフェース。
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// SessionRevoker はユーザーの全セッション削除インターフェース。
type SessionRevoker interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// BookmarkClearer はユーザーのブックマーク一括削除インターフェース。
type BookmarkClearer interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	users     AccountRepository
	sessions  SessionRevoker
	bookmarks BookmarkClearer
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users AccountRepository, sessions SessionRevoker, bookmarks BookmarkClearer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		bookmarks: bookmarks,
		logger:    logger,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: user_bookmarks → sessions → user（+ CASCADE: identities）
// articles は共有キャッシュとして残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	s.logger.Info("退会処理を開始します", slog.String("user_id", userID))

	// 1. ブックマークを削除
	if s.bookmarks != nil {
		if err := s.bookmarks.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessions != nil {
		if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. ユーザーを削除（identitiesはCASCADE削除）
	if err := s.users.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	s.logger.Info("退会処理が完了しました",
		slog.String("user_id", userID),
		slog.String("username", user.Username),
	)
	return nil
}
