// Package category はニュースカテゴリのカタログと管理を提供する。
package category

import (
	"strings"

	"github.com/hitoshi/docbao/internal/model"
)

const defaultEmoji = "📰"

var slugs = []struct {
	id   string
	name string
}{
	{"thoi-su", "Thời sự"},
	{"the-gioi", "Thế giới"},
	{"kinh-doanh", "Kinh doanh"},
	{"giai-tri", "Giải trí"},
	{"the-thao", "Thể thao"},
	{"phap-luat", "Pháp luật"},
	{"giao-duc", "Giáo dục"},
	{"suc-khoe", "Sức khỏe"},
	{"doi-song", "Đời sống"},
	{"du-lich", "Du lịch"},
	{"khoa-hoc", "Khoa học"},
	{"so-hoa", "Số hóa"},
	{"xe", "Xe"},
	{"y-kien", "Ý kiến"},
	{"tam-su", "Tâm sự"},
}

var emojis = map[string]string{
	"Thể thao":   "🏈",
	"Giải trí":   "🎬",
	"Kinh doanh": "💼",
	"Du lịch":    "🌴",
	"Công nghệ":  "🎮",
	"Số hóa":     "🎮",
	"Đời sống":   "🌞",
}

// Catalog はサイトのカテゴリ一覧を表示順で返す。呼び出しごとに新しいスライスを返す。
func Catalog() []model.Category {
	categories := make([]model.Category, 0, len(slugs))
	for _, s := range slugs {
		categories = append(categories, model.Category{
			ID:          s.id,
			Name:        s.name,
			Description: "Tin tức " + strings.ToLower(s.name) + " mới nhất",
			IconEmoji:   emojiFor(s.name),
		})
	}
	return categories
}

// Lookup はスラッグでカタログを検索する。
func Lookup(id string) (model.Category, bool) {
	for _, c := range Catalog() {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

func emojiFor(name string) string {
	if e, ok := emojis[name]; ok {
		return e
	}
	return defaultEmoji
}
