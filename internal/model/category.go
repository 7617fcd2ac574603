// Package model はドメインモデルを定義する。
package model

// Category はニュースのカテゴリ（スラッグで識別）を表す。
// 初回起動時に一度だけ投入され、以降はArticleCountのみ更新される。
type Category struct {
	ID           string
	Name         string
	Description  string
	IconEmoji    string
	ArticleCount int
}
