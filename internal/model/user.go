// Package model はドメインモデルを定義する。
package model

import (
	"sort"
	"time"
)

// User はサービス利用ユーザーを表す。
type User struct {
	ID          string
	Username    string
	Email       string
	DisplayName string
	PhotoURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// BookmarkedArticles はブックマーク済み記事IDの集合。
	BookmarkedArticles BookmarkSet
}

// 認証プロバイダー
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Identity は認証手段（パスワードまたは外部IdP）との紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	PasswordHash   string // Provider が password の場合のみ
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// BookmarkSet は記事IDの重複なし・順序なしの集合。
type BookmarkSet map[string]struct{}

// NewBookmarkSet は指定IDを含むBookmarkSetを生成する。
func NewBookmarkSet(ids ...string) BookmarkSet {
	s := make(BookmarkSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add はIDを追加する。既に存在する場合は何もしない。
func (s BookmarkSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Remove はIDを削除する。
func (s BookmarkSet) Remove(id string) {
	delete(s, id)
}

// Contains はIDが含まれるかを返す。
func (s BookmarkSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs はIDを昇順で返す。
func (s BookmarkSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
