package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/docbao/internal/auth"
	"github.com/hitoshi/docbao/internal/middleware"
	"github.com/hitoshi/docbao/internal/model"
)

func TestUserHandler_UpdateProfile(t *testing.T) {
	var gotUser string
	var gotInput auth.ProfileInput
	h := NewUserHandler(&mockUserService{
		updateProfileFn: func(_ context.Context, userID string, in auth.ProfileInput) (*model.User, error) {
			gotUser, gotInput = userID, in
			if in.DisplayName != nil && *in.DisplayName == "" {
				return nil, model.NewInvalidRequestError("Tên hiển thị không được để trống")
			}
			return &model.User{ID: userID, DisplayName: "Lan Anh"}, nil
		},
	}, &mockAccountService{}, testAuthConfig)

	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", strings.NewReader(`{"display_name":"Lan Anh"}`))
	w := serve(h.UpdateProfile, withUser(req, "user-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotUser != "user-1" || gotInput.DisplayName == nil || *gotInput.DisplayName != "Lan Anh" {
		t.Errorf("UpdateProfile(%q, %+v)", gotUser, gotInput)
	}
	if gotInput.PhotoURL != nil {
		t.Error("省略したフィールドはnilで渡すべき")
	}
	if !strings.Contains(w.Body.String(), `"display_name":"Lan Anh"`) {
		t.Errorf("body = %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/users/me", strings.NewReader(`{"display_name":""}`))
	w = serve(h.UpdateProfile, withUser(req, "user-1"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUserHandler_UpdateProfile_NotLoggedIn(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockAccountService{}, testAuthConfig)

	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", strings.NewReader(`{}`))
	w := serve(h.UpdateProfile, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestUserHandler_Withdraw(t *testing.T) {
	var gotUser string
	h := NewUserHandler(&mockUserService{}, &mockAccountService{
		withdrawFn: func(_ context.Context, userID string) error {
			gotUser = userID
			return nil
		},
	}, testAuthConfig)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	w := serve(h.Withdraw, withUser(req, "user-1"))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if gotUser != "user-1" {
		t.Errorf("Withdraw(%q), want user-1", gotUser)
	}
	cookie := findCookie(w, middleware.SessionCookieName)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Errorf("退会後はセッションCookieを削除すべき: %+v", cookie)
	}
}

func TestUserHandler_Withdraw_Errors(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockAccountService{
		withdrawFn: func(context.Context, string) error {
			return model.NewUserNotFoundError()
		},
	}, testAuthConfig)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	if w := serve(h.Withdraw, req); w.Code != http.StatusUnauthorized {
		t.Errorf("未ログイン: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	w := serve(h.Withdraw, withUser(req, "ghost"))
	if w.Code != http.StatusNotFound {
		t.Errorf("存在しないユーザー: status = %d, want 404", w.Code)
	}
	if findCookie(w, middleware.SessionCookieName) != nil {
		t.Error("失敗時はCookieを変更すべきでない")
	}
}
