package model

import (
	"testing"
	"unicode"
)

// containsJapanese はひらがな・カタカナ・漢字を含むかを返す。
func containsJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

func TestAPIErrors_PayloadTextIsVietnamese(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
	}{
		{"記事なし", NewArticleNotFoundError("a1")},
		{"カテゴリなし", NewCategoryNotFoundError("xyz")},
		{"ログイン必須", NewLoginRequiredError()},
		{"認証情報不一致", NewInvalidCredentialsError()},
		{"メール重複", NewEmailTakenError()},
		{"ユーザー名重複", NewUsernameTakenError()},
		{"入力不正", NewInvalidRequestError("Email không hợp lệ")},
		{"取得失敗", NewFetchFailedError("Lỗi kết nối: timeout")},
		{"未対応プロバイダー", NewUnsupportedProviderError("github")},
		{"ユーザーなし", NewUserNotFoundError()},
		{"内部エラー", NewInternalError()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Message == "" || tt.err.Action == "" {
				t.Fatalf("MessageとActionは必須: %+v", tt.err)
			}
			if containsJapanese(tt.err.Message) {
				t.Errorf("Messageはベトナム語であるべき: %q", tt.err.Message)
			}
			if containsJapanese(tt.err.Action) {
				t.Errorf("Actionはベトナム語であるべき: %q", tt.err.Action)
			}
		})
	}
}
