package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/docbao/internal/auth"
	"github.com/hitoshi/docbao/internal/middleware"
	"github.com/hitoshi/docbao/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateProfile は表示名とプロフィール画像URLを更新する。
	UpdateProfile(ctx context.Context, userID string, in auth.ProfileInput) (*model.User, error)
}

// AccountServiceInterface は退会処理のサービスインターフェース。
type AccountServiceInterface interface {
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service  UserServiceInterface
	accounts AccountServiceInterface
	cookies  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
// cookiesは退会時のセッションCookie削除に使う。
func NewUserHandler(service UserServiceInterface, accounts AccountServiceInterface, cookies AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service:  service,
		accounts: accounts,
		cookies:  cookies,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 省略したフィールドは変更しない。
type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
}

// UpdateProfile はログインユーザーのプロフィールを更新する。
// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
		return
	}

	var req updateProfileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, auth.ProfileInput{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Withdraw はログインユーザーを退会させ、セッションCookieを削除する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
		return
	}

	if err := h.accounts.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	setSessionCookie(w, h.cookies, "", -1)
	w.WriteHeader(http.StatusNoContent)
}
