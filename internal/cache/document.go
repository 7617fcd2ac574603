package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/docbao/internal/model"
)

// Document は記事の保存形式。閲覧ユーザーごとのIsBookmarkedは含めない。
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Content      string    `json:"content"`
	ImageURL     string    `json:"image_url"`
	SourceURL    string    `json:"source_url"`
	Source       string    `json:"source"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	CategoryText string    `json:"category_text,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    int       `json:"view_count"`
}

// ToDocument は記事を保存形式に変換する。
func ToDocument(a *model.Article) Document {
	return Document{
		ID:           a.ID,
		Title:        a.Title,
		Summary:      a.Summary,
		Content:      a.Content,
		ImageURL:     a.ImageURL,
		SourceURL:    a.SourceURL,
		Source:       a.Source,
		CategoryID:   a.CategoryID,
		CategoryName: a.CategoryName,
		CategoryText: a.CategoryText,
		PublishedAt:  a.PublishedAt.UTC(),
		ViewCount:    a.ViewCount,
	}
}

// Article は保存形式から記事を復元する。
func (d Document) Article() *model.Article {
	return &model.Article{
		ID:           d.ID,
		Title:        d.Title,
		Summary:      d.Summary,
		Content:      d.Content,
		ImageURL:     d.ImageURL,
		SourceURL:    d.SourceURL,
		Source:       d.Source,
		CategoryID:   d.CategoryID,
		CategoryName: d.CategoryName,
		CategoryText: d.CategoryText,
		PublishedAt:  d.PublishedAt,
		ViewCount:    d.ViewCount,
	}
}

// MarshalArticles は記事リストをJSON配列にする。
func MarshalArticles(articles []*model.Article) ([]byte, error) {
	docs := make([]Document, 0, len(articles))
	for _, a := range articles {
		if a == nil {
			continue
		}
		docs = append(docs, ToDocument(a))
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal articles: %w", err)
	}
	return data, nil
}

// UnmarshalArticles はJSON配列から記事リストを復元する。
func UnmarshalArticles(data []byte) ([]*model.Article, error) {
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal articles: %w", err)
	}
	articles := make([]*model.Article, 0, len(docs))
	for _, d := range docs {
		articles = append(articles, d.Article())
	}
	return articles, nil
}
