// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/docbao/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーをブックマーク集合付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを検索する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名（大文字小文字を区別しない）でユーザーを検索する。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile は表示名とプロフィール画像URLを更新する。
	UpdateProfile(ctx context.Context, id, displayName, photoURL string) error
}

// BookmarkRepository はユーザーごとのブックマーク集合の永続化インターフェース。
type BookmarkRepository interface {
	// Add は記事IDを集合に追加する。既に存在する場合は何もしない。
	Add(ctx context.Context, userID, articleID string) error
	// Remove は記事IDを集合から削除する。存在しない場合は何もしない。
	Remove(ctx context.Context, userID, articleID string) error
	// ListIDs はユーザーのブックマーク集合を返す。
	ListIDs(ctx context.Context, userID string) (model.BookmarkSet, error)
}

// IdentityRepository は認証手段の紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CategoryRepository はカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// List は全カテゴリを表示順で返す。
	List(ctx context.Context) ([]*model.Category, error)
	// InsertAll はカテゴリを一括投入する。既存のIDは変更しない。
	InsertAll(ctx context.Context, categories []*model.Category) error
	// UpdateArticleCount はカテゴリの記事数を更新する。
	UpdateArticleCount(ctx context.Context, id string, count int) error
}
