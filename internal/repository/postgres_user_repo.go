package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/docbao/internal/model"
)

// ErrDuplicateEmail はメールアドレスが既に登録済みの場合に返される。
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateUsername はユーザー名が既に登録済みの場合に返される。
var ErrDuplicateUsername = errors.New("username already registered")

// 一意制約違反のSQLSTATE
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const selectUser = `SELECT id, username, email, display_name, photo_url, created_at, updated_at FROM users`

// FindByID は指定IDのユーザーをブックマーク集合付きで取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findOne(ctx, selectUser+` WHERE id = $1`, id)
	if err != nil || user == nil {
		return user, err
	}

	bookmarks, err := NewPostgresBookmarkRepo(r.db).ListIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.BookmarkedArticles = bookmarks
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, selectUser+` WHERE lower(email) = lower($1)`, email)
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, selectUser+` WHERE lower(username) = lower($1)`, username)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	user := &model.User{}
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &email, &user.DisplayName, &user.PhotoURL,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.Email = nullStringValue(email)
	user.BookmarkedArticles = model.NewBookmarkSet()
	return user, nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成。メールアドレスがない場合はNULLを格納する
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, display_name, photo_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, nullString(user.Email), user.DisplayName, user.PhotoURL, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", duplicateUserError(err))
	}

	// identityを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID,
		nullString(identity.PasswordHash), identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateProfile は表示名とプロフィール画像URLを更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id, displayName, photoURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = $2, photo_url = $3, updated_at = now() WHERE id = $1`,
		id, displayName, photoURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// DeleteByID はユーザーを削除する。identitiesとsessionsはCASCADEで削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// duplicateUserError は一意制約違反を対応するセンチネルエラーに変換する。
func duplicateUserError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "idx_users_email":
		return ErrDuplicateEmail
	case "idx_users_username":
		return ErrDuplicateUsername
	}
	return err
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
