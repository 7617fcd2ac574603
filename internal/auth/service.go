// Package auth はパスワード認証、OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/repository"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	PictureURL     string
	Provider       string // "google", "facebook"
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 0の場合はbcrypt.DefaultCost
}

// SignUpInput はパスワード登録の入力。
type SignUpInput struct {
	Username string
	Email    string
	Password string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	providers   map[string]OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
// providersのキーはプロバイダー名（"google", "facebook"）。設定のないプロバイダーは含めない。
func NewService(
	providers map[string]OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		providers:   providers,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// GetLoginURL は指定プロバイダーのOAuth認証URLを生成する。
func (s *Service) GetLoginURL(provider, state string) (string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	return p.GetLoginURL(state), nil
}

// SignUp はユーザー名・メールアドレス・パスワードでユーザーを登録し、セッションを発行する。
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*model.Session, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if username == "" {
		return nil, model.NewInvalidRequestError("Vui lòng nhập tên người dùng")
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, model.NewInvalidRequestError("Email không hợp lệ")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("Mật khẩu phải có ít nhất %d ký tự", MinPasswordLength))
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}
	existing, err = s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:          uuid.New().String(),
		Username:    username,
		Email:       email,
		DisplayName: username,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       model.ProviderPassword,
		ProviderUserID: email,
		PasswordHash:   string(hash),
		CreatedAt:      now,
	}
	if err := s.createUser(ctx, user, identity); err != nil {
		return nil, err
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
		slog.String("provider", model.ProviderPassword),
	)

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// SignIn はメールアドレスとパスワードで認証し、セッションを発行する。
// メールアドレスが未登録の場合とパスワード不一致の場合は同じエラーを返す。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.NewInvalidRequestError("Vui lòng nhập email và mật khẩu")
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, model.ProviderPassword, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil || identity.PasswordHash == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}

	slog.Info("user signed in",
		slog.String("user_id", identity.UserID),
		slog.String("provider", model.ProviderPassword),
	)

	session, err := s.createSession(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
func (s *Service) HandleCallback(ctx context.Context, provider, code string) (*model.Session, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string

	if identity != nil {
		// 3a. 既存ユーザー
		userID = identity.UserID
		slog.Info("existing user logged in",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		// 3b. 新規ユーザー
		// メールアドレスが既存アカウントと一致する場合は自動で紐付けない
		email := strings.ToLower(strings.TrimSpace(userInfo.Email))
		if email != "" {
			existing, err := s.userRepo.FindByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("failed to find user by email: %w", err)
			}
			if existing != nil {
				return nil, model.NewEmailTakenError()
			}
		}

		username, err := s.availableUsername(ctx, userInfo)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		newUser := &model.User{
			ID:          uuid.New().String(),
			Username:    username,
			Email:       email,
			DisplayName: userInfo.Name,
			PhotoURL:    userInfo.PictureURL,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if newUser.DisplayName == "" {
			newUser.DisplayName = username
		}

		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			UserID:         newUser.ID,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			CreatedAt:      now,
		}

		if err := s.createUser(ctx, newUser, newIdentity); err != nil {
			return nil, err
		}

		userID = newUser.ID
		slog.Info("new user created",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewLoginRequiredError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		// 期限切れまたは存在しないセッション
		return nil, model.NewLoginRequiredError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// ProfileInput はプロフィール更新の入力。nilのフィールドは変更しない。
type ProfileInput struct {
	DisplayName *string
	PhotoURL    *string
}

// UpdateProfile は表示名とプロフィール画像URLを更新し、更新後のユーザーを返す。
// 表示名を空にすることはできない。画像URLを空にすると削除する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	if userID == "" {
		return nil, model.NewLoginRequiredError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, model.NewInvalidRequestError("Tên hiển thị không được để trống")
		}
		user.DisplayName = name
	}
	if in.PhotoURL != nil {
		photoURL := strings.TrimSpace(*in.PhotoURL)
		if photoURL != "" && !strings.HasPrefix(photoURL, "https://") && !strings.HasPrefix(photoURL, "http://") {
			return nil, model.NewInvalidRequestError("URL ảnh đại diện không hợp lệ")
		}
		user.PhotoURL = photoURL
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, user.DisplayName, user.PhotoURL); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user.UpdatedAt = time.Now()

	slog.Info("profile updated", slog.String("user_id", userID))
	return user, nil
}

// createUser はユーザーとidentityを作成する。一意制約違反はAPIエラーに変換する。
func (s *Service) createUser(ctx context.Context, user *model.User, identity *model.Identity) error {
	err := s.userRepo.CreateWithIdentity(ctx, user, identity)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicateEmail):
		return model.NewEmailTakenError()
	case errors.Is(err, repository.ErrDuplicateUsername):
		return model.NewUsernameTakenError()
	}
	return fmt.Errorf("failed to create user and identity: %w", err)
}

func (s *Service) provider(name string) (OAuthProvider, error) {
	p, ok := s.providers[name]
	if !ok || p == nil {
		return nil, model.NewUnsupportedProviderError(name)
	}
	return p, nil
}

// availableUsername はOAuthユーザーのユーザー名を決める。
// メールアドレスのローカル部を使い、使用済みの場合はprovider_user_idの先頭を付加する。
func (s *Service) availableUsername(ctx context.Context, info *OAuthUserInfo) (string, error) {
	base := info.ProviderUserID
	if at := strings.Index(info.Email, "@"); at > 0 {
		base = info.Email[:at]
	}

	candidates := []string{base, base + "_" + shortID(info.ProviderUserID), base + "_" + shortID(uuid.New().String())}
	for _, c := range candidates {
		existing, err := s.userRepo.FindByUsername(ctx, c)
		if err != nil {
			return "", fmt.Errorf("failed to find user by username: %w", err)
		}
		if existing == nil {
			return c, nil
		}
	}
	return "", model.NewUsernameTakenError()
}

func shortID(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) > 6 {
		return s[:6]
	}
	return s
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
