// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, news, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeArticleNotFound     = "ARTICLE_NOT_FOUND"
	ErrCodeCategoryNotFound    = "CATEGORY_NOT_FOUND"
	ErrCodeLoginRequired       = "LOGIN_REQUIRED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeFetchFailed         = "FETCH_FAILED"
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("Không tìm thấy bài viết: %s", articleID),
		Category: "news",
		Action:   "Vui lòng kiểm tra lại mã bài viết.",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(categoryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("Không tìm thấy chuyên mục: %s", categoryID),
		Category: "news",
		Action:   "Vui lòng chọn một chuyên mục có trong danh sách.",
	}
}

// NewLoginRequiredError はログインが必要な操作を未ログインで実行した場合のエラーを生成する。
func NewLoginRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginRequired,
		Message:  "Bạn cần đăng nhập để lưu bài viết",
		Category: "auth",
		Action:   "Vui lòng đăng nhập rồi thử lại.",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードが一致しない場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Email hoặc mật khẩu không đúng",
		Category: "auth",
		Action:   "Vui lòng kiểm tra lại email và mật khẩu.",
	}
}

// NewEmailTakenError はメールアドレスが登録済みの場合のエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "Email đã được sử dụng",
		Category: "auth",
		Action:   "Vui lòng dùng email khác hoặc đăng nhập.",
	}
}

// NewUsernameTakenError はユーザー名が登録済みの場合のエラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "Tên người dùng đã tồn tại",
		Category: "auth",
		Action:   "Vui lòng chọn tên người dùng khác.",
	}
}

// NewInvalidRequestError はリクエスト内容が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "Vui lòng kiểm tra lại thông tin đã nhập.",
	}
}

// NewFetchFailedError はニュースサイトからの取得に失敗し、キャッシュも空だった場合のエラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  reason,
		Category: "news",
		Action:   "Vui lòng thử lại sau ít phút.",
	}
}

// NewUnsupportedProviderError は未対応の認証プロバイダーが指定された場合のエラーを生成する。
func NewUnsupportedProviderError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedProvider,
		Message:  fmt.Sprintf("Phương thức đăng nhập không được hỗ trợ: %s", provider),
		Category: "auth",
		Action:   "Vui lòng chọn google hoặc facebook.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Không tìm thấy người dùng",
		Category: "auth",
		Action:   "Vui lòng đăng nhập lại.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Đã xảy ra lỗi hệ thống",
		Category: "system",
		Action:   "Vui lòng thử lại sau ít phút.",
	}
}
