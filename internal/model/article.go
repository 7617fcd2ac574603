// Package model はドメインモデルを定義する。
package model

import "time"

// Article はニュースサイトから抽出した記事を表す。
// IDは抽出のたびに新規発行されるため、同一記事が複数IDで保存されることがある。
type Article struct {
	ID           string
	Title        string
	Summary      string
	Content      string // 段落を空行で連結したプレーンテキスト
	ImageURL     string
	SourceURL    string
	Source       string
	CategoryID   string
	CategoryName string
	CategoryText string // トレンド/新着カードに表示するラベル
	PublishedAt  time.Time
	ViewCount    int

	// IsBookmarked は閲覧ユーザーごとの状態。永続化しない。
	IsBookmarked bool
}

// Clone は記事のシャローコピーを返す。
// キャッシュから取得した記事をユーザーごとに加工する際に使用する。
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
