package scrape

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/security"
)

var testCategories = []model.Category{
	{ID: "thoi-su", Name: "Thời sự"},
	{ID: "the-gioi", Name: "Thế giới"},
	{ID: "the-thao", Name: "Thể thao"},
	{ID: "so-hoa", Name: "Số hóa"},
}

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(ExtractorConfig{
		BaseURL:    "https://vnexpress.net",
		Categories: testCategories,
	}, security.NewTextSanitizer())
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	e.now = func() time.Time { return fixedNow }
	return e
}

// itemNews はカテゴリ一覧の記事カードHTMLを生成する。
func itemNews(class, title, href, img, desc string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<article class="%s">`, class)
	if img != "" {
		fmt.Fprintf(&b, `<div class="thumb-art"><a href="%s"><img data-src="%s" src="data:image/gif;base64,R0lGOD"></a></div>`, href, img)
	}
	if title != "" || href != "" {
		fmt.Fprintf(&b, `<h3 class="title-news"><a href="%s">%s</a></h3>`, href, title)
	}
	if desc != "" {
		fmt.Fprintf(&b, `<p class="description">%s</p>`, desc)
	}
	b.WriteString(`</article>`)
	return b.String()
}

func page(body ...string) string {
	return "<html><body>" + strings.Join(body, "\n") + "</body></html>"
}

func TestNewExtractor_InvalidBaseURL(t *testing.T) {
	_, err := NewExtractor(ExtractorConfig{BaseURL: "not a url"}, security.NewTextSanitizer())
	if err == nil {
		t.Fatal("不正なBaseURLはエラーを返すべき")
	}
}

func TestCategoryArticles_PrimaryPatternOnly_ReturnsAllNodes(t *testing.T) {
	e := newTestExtractor(t)

	markup := page(
		itemNews("item-news", "Tuyển Việt Nam thắng", "/the-thao/tuyen-viet-nam-thang-1.html", "//i1-vnexpress.vnecdn.net/a.jpg", "Mô tả 1"),
		itemNews("item-news", "HLV mới nhậm chức", "https://vnexpress.net/the-thao/hlv-2.html", "https://i1-vnexpress.vnecdn.net/b.jpg", "Mô tả 2"),
		// img.lazy はフォールバック専用。thumb-art がある場合は使われない
		`<article class="item-news"><div class="thumb-art"><a href="/x"><img src="https://cdn/c.jpg"></a></div><img class="lazy" data-src="https://cdn/lazy.jpg"><h3 class="title-news"><a href="/the-thao/c-3.html">Giải vô địch</a></h3></article>`,
	)

	articles, err := e.CategoryArticles(markup, "the-thao")
	if err != nil {
		t.Fatalf("CategoryArticles() error = %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("len(articles) = %d, want 3", len(articles))
	}

	first := articles[0]
	if first.Title != "Tuyển Việt Nam thắng" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.SourceURL != "https://vnexpress.net/the-thao/tuyen-viet-nam-thang-1.html" {
		t.Errorf("相対リンクはBaseURLで解決されるべき: %q", first.SourceURL)
	}
	if first.ImageURL != "https://i1-vnexpress.vnecdn.net/a.jpg" {
		t.Errorf("プロトコル相対URLにはhttps:が付与されるべき: %q", first.ImageURL)
	}
	if first.Summary != "Mô tả 1" || first.Content != "Mô tả 1" {
		t.Errorf("Summary/Content = %q/%q", first.Summary, first.Content)
	}
	if first.CategoryID != "the-thao" || first.CategoryName != "Thể thao" {
		t.Errorf("Category = %q/%q", first.CategoryID, first.CategoryName)
	}
	if first.Source != "VnExpress" {
		t.Errorf("Source = %q", first.Source)
	}
	if articles[2].ImageURL != "https://cdn/c.jpg" {
		t.Errorf("data-srcがない場合はsrcを使うべき: %q", articles[2].ImageURL)
	}

	for i, a := range articles {
		if a.CategoryText != "" || a.ViewCount != 0 {
			t.Errorf("articles[%d] にカード専用フィールドが設定されている: %+v", i, a)
		}
		if a.ID == "" {
			t.Errorf("articles[%d].ID が空", i)
		}
	}
	if !articles[0].PublishedAt.After(articles[1].PublishedAt) {
		t.Error("ページ上の順序が公開日時の降順として保たれるべき")
	}
}

func TestCategoryArticles_FallbackOrder_StopsAtFirstMatch(t *testing.T) {
	e := newTestExtractor(t)

	// item-news は0件。item-news-common が2件、素の article が1件。
	// 2段目で止まるため素の article は含まれない。
	markup := page(
		itemNews("item-news-common", "Bài A", "/a.html", "", ""),
		itemNews("item-news-common", "Bài B", "/b.html", "", ""),
		itemNews("", "Bài C", "/c.html", "", ""),
	)

	articles, err := e.CategoryArticles(markup, "the-gioi")
	if err != nil {
		t.Fatalf("CategoryArticles() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("len(articles) = %d, want 2", len(articles))
	}
	if articles[0].Title != "Bài A" || articles[1].Title != "Bài B" {
		t.Errorf("titles = %q, %q", articles[0].Title, articles[1].Title)
	}
}

func TestCategoryArticles_LastFallback_PlainArticle(t *testing.T) {
	e := newTestExtractor(t)

	markup := page(itemNews("story", "Bài duy nhất", "/only.html", "", ""))

	articles, err := e.CategoryArticles(markup, "unknown-slug")
	if err != nil {
		t.Fatalf("CategoryArticles() error = %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("len(articles) = %d, want 1", len(articles))
	}
	if articles[0].CategoryName != "Tin tức" {
		t.Errorf("未知のカテゴリ名は既定値になるべき: %q", articles[0].CategoryName)
	}
	if articles[0].Summary != "" {
		t.Errorf("説明文がない場合は空文字列になるべき: %q", articles[0].Summary)
	}
}

func TestCategoryArticles_DropsNodesMissingRequiredFields(t *testing.T) {
	e := newTestExtractor(t)

	markup := page(
		`<article class="item-news"><p class="description">タイトルなし</p></article>`,
		itemNews("item-news", "", "/empty-title.html", "", ""),
		itemNews("item-news", "Không có link", "", "", ""),
		itemNews("item-news", "Anchor", "#top", "", ""),
		itemNews("item-news", "Hợp lệ", "/ok.html", "", "ok"),
	)

	articles, err := e.CategoryArticles(markup, "thoi-su")
	if err != nil {
		t.Fatalf("CategoryArticles() error = %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("len(articles) = %d, want 1: %+v", len(articles), articles)
	}
	if articles[0].Title != "Hợp lệ" {
		t.Errorf("Title = %q", articles[0].Title)
	}
}

func TestCategoryArticles_NoMatches_ReturnsEmpty(t *testing.T) {
	e := newTestExtractor(t)

	articles, err := e.CategoryArticles(page("<div>maintenance</div>"), "thoi-su")
	if err != nil {
		t.Fatalf("CategoryArticles() error = %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("len(articles) = %d, want 0", len(articles))
	}
}

func TestCategoryArticles_FreshIDsPerExtraction(t *testing.T) {
	e := newTestExtractor(t)
	markup := page(itemNews("item-news", "Cùng bài", "/same.html", "", ""))

	first, _ := e.CategoryArticles(markup, "thoi-su")
	second, _ := e.CategoryArticles(markup, "thoi-su")

	if first[0].ID == second[0].ID {
		t.Error("同じHTMLを2回抽出した場合は別のIDが発行されるべき")
	}
	if first[0].SourceURL != second[0].SourceURL {
		t.Error("ID以外の内容は同じであるべき")
	}
}

func TestNormalizeImageURL(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"data:image/gif;base64,R0lGOD", ""},
		{"https://cdn/a.jpg", "https://cdn/a.jpg"},
		{"http://cdn/a.jpg", "http://cdn/a.jpg"},
		{"//cdn/a.jpg", "https://cdn/a.jpg"},
		{"/images/a.jpg", "https://vnexpress.net/images/a.jpg"},
		{"cdn.vn/a.jpg", "https://cdn.vn/a.jpg"},
	}
	for _, tt := range tests {
		if got := e.normalizeImageURL(tt.in); got != tt.want {
			t.Errorf("normalizeImageURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetail_ExtractsTitleImageAndParagraphs(t *testing.T) {
	e := newTestExtractor(t)

	markup := page(
		`<h1 class="title-detail"> Bão số 3 đổ bộ </h1>`,
		`<div class="fig-picture"><picture><img data-src="//i.vnecdn.net/bao.jpg"></picture></div>`,
		`<article class="fck_detail"><p class="Normal">Đoạn một.</p><p class="Normal">Đoạn   hai.</p><p>Ghi chú</p></article>`,
	)

	a, err := e.Detail(markup, "https://vnexpress.net/bao-so-3.html", "thoi-su")
	if err != nil {
		t.Fatalf("Detail() error = %v", err)
	}
	if a.Title != "Bão số 3 đổ bộ" {
		t.Errorf("Title = %q", a.Title)
	}
	if a.ImageURL != "https://i.vnecdn.net/bao.jpg" {
		t.Errorf("ImageURL = %q", a.ImageURL)
	}
	if a.Content != "Đoạn một.\n\nĐoạn hai." {
		t.Errorf("Content = %q", a.Content)
	}
	if a.Summary != "Đoạn một." {
		t.Errorf("Summary = %q", a.Summary)
	}
	if a.SourceURL != "https://vnexpress.net/bao-so-3.html" || a.CategoryName != "Thời sự" {
		t.Errorf("SourceURL/CategoryName = %q/%q", a.SourceURL, a.CategoryName)
	}
}

func TestDetail_FallbackSelectors(t *testing.T) {
	e := newTestExtractor(t)

	markup := page(
		`<h1 class="title-detail">Tiêu đề</h1>`,
		`<img class="lazy" src="//i.vnecdn.net/lazy.jpg">`,
		`<article class="fck_detail"><div><p>Một</p></div><p>Hai</p></article>`,
	)

	a, err := e.Detail(markup, "https://vnexpress.net/x.html", "")
	if err != nil {
		t.Fatalf("Detail() error = %v", err)
	}
	if a.ImageURL != "https://i.vnecdn.net/lazy.jpg" {
		t.Errorf("ImageURL = %q", a.ImageURL)
	}
	if a.Content != "Một\n\nHai" {
		t.Errorf("Content = %q", a.Content)
	}
}

func TestDetail_MissingTitle_ReturnsErrNoRecords(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Detail(page(`<article class="fck_detail"><p class="Normal">x</p></article>`), "https://vnexpress.net/x", "")
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("err = %v, want ErrNoRecords", err)
	}
}

func TestEnrich(t *testing.T) {
	e := newTestExtractor(t)
	original := &model.Article{ID: "a-1", Title: "T", Content: "mô tả ngắn", ImageURL: "https://old.jpg", IsBookmarked: true}

	t.Run("本文と画像を補完する", func(t *testing.T) {
		markup := page(
			`<div class="fig-picture"><img data-src="//i.vnecdn.net/new.jpg"></div>`,
			`<article class="fck_detail"><div><p class="Normal">Toàn văn 1</p></div><p class="Normal">Toàn văn 2</p></article>`,
		)
		got := e.Enrich(original, markup)
		if got == original {
			t.Fatal("Enrichはコピーを返すべき")
		}
		if got.Content != "Toàn văn 1\n\nToàn văn 2" {
			t.Errorf("Content = %q", got.Content)
		}
		if got.ImageURL != "https://i.vnecdn.net/new.jpg" {
			t.Errorf("ImageURL = %q", got.ImageURL)
		}
		if got.ID != "a-1" || !got.IsBookmarked {
			t.Error("IDとブックマーク状態は維持されるべき")
		}
		if original.Content != "mô tả ngắn" {
			t.Error("元の記事は変更されるべきでない")
		}
	})

	t.Run("抽出できない場合は元の記事をそのまま返す", func(t *testing.T) {
		got := e.Enrich(original, page("<div>empty</div>"))
		if got != original {
			t.Errorf("何も補完できない場合は元の記事を返すべき: %+v", got)
		}
	})

	t.Run("本文と画像が同じ場合は元の記事をそのまま返す", func(t *testing.T) {
		same := &model.Article{ID: "a-2", Content: "Toàn văn 1", ImageURL: "https://i.vnecdn.net/new.jpg"}
		markup := page(
			`<div class="fig-picture"><img data-src="//i.vnecdn.net/new.jpg"></div>`,
			`<article class="fck_detail"><p class="Normal">Toàn văn 1</p></article>`,
		)
		if got := e.Enrich(same, markup); got != same {
			t.Errorf("変化がない場合は元の記事を返すべき: %+v", got)
		}
	})

	t.Run("画像のみ補完する", func(t *testing.T) {
		markup := page(`<div class="fig-picture"><img data-src="//i.vnecdn.net/only.jpg"></div>`)
		got := e.Enrich(original, markup)
		if got == original {
			t.Fatal("画像が変わった場合はコピーを返すべき")
		}
		if got.ImageURL != "https://i.vnecdn.net/only.jpg" || got.Content != "mô tả ngắn" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("空のHTMLは元の記事を返す", func(t *testing.T) {
		if got := e.Enrich(original, ""); got != original {
			t.Error("空のHTMLでは元の記事をそのまま返すべき")
		}
	})
}

func TestLatest_DetectsCategoryAndLimits(t *testing.T) {
	e := newTestExtractor(t)

	var nodes []string
	nodes = append(nodes,
		`<article class="item-news"><a class="cat" href="https://vnexpress.net/the-gioi">Thế giới</a><h3 class="title-news"><a href="/tg-1.html">Quốc tế</a></h3></article>`,
		`<article class="item-news"><a class="cat" href="/so-hoa/ai">Số hóa</a><h3 class="title-news"><a href="/sh-1.html">AI</a></h3></article>`,
		`<article class="item-news"><h3 class="title-news"><a href="/ts-1.html">Không nhãn</a></h3></article>`,
	)
	for i := 0; i < 25; i++ {
		nodes = append(nodes, itemNews("item-news", fmt.Sprintf("Tin %d", i), fmt.Sprintf("/tin-%d.html", i), "", ""))
	}

	articles, err := e.Latest(page(nodes...))
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if len(articles) != LatestLimit {
		t.Fatalf("len(articles) = %d, want %d", len(articles), LatestLimit)
	}
	if articles[0].CategoryID != "the-gioi" || articles[0].CategoryName != "Thế giới" {
		t.Errorf("articles[0] category = %q/%q", articles[0].CategoryID, articles[0].CategoryName)
	}
	if articles[1].CategoryID != "so-hoa" {
		t.Errorf("articles[1].CategoryID = %q", articles[1].CategoryID)
	}
	if articles[2].CategoryID != "thoi-su" {
		t.Errorf("カテゴリリンクがない場合はthoi-suになるべき: %q", articles[2].CategoryID)
	}
}

func TestTrending_CardFields(t *testing.T) {
	e := newTestExtractor(t)

	markup := page(
		`<article class="item-news-common">
			<picture class="pic"><img src="//i.vnecdn.net/t1.jpg"></picture>
			<h2 class="title-news"><a href="/nong-1.html">Tin nóng</a></h2>
			<p class="description">Tóm tắt</p>
			<span class="cat-name">Thể thao</span>
		</article>`,
		`<article class="item-news-common"><h3 class="title"><a href="/nong-2.html">Không nhãn</a></h3></article>`,
		`<article class="item-news-common"><p class="desc">タイトルなし</p></article>`,
		// 1段目がマッチしているため2段目は使われない
		itemNews("item-news", "Không dùng", "/skip.html", "", ""),
	)

	articles, err := e.Trending(markup)
	if err != nil {
		t.Fatalf("Trending() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("len(articles) = %d, want 2", len(articles))
	}
	if articles[0].CategoryText != "THỂ THAO" {
		t.Errorf("ラベルは大文字化されるべき: %q", articles[0].CategoryText)
	}
	if articles[0].ImageURL != "https://i.vnecdn.net/t1.jpg" || articles[0].Summary != "Tóm tắt" {
		t.Errorf("articles[0] = %+v", articles[0])
	}
	if articles[1].CategoryText != "NEWS" {
		t.Errorf("ラベルがない場合はNEWSになるべき: %q", articles[1].CategoryText)
	}
	if articles[1].ViewCount != 0 {
		t.Errorf("ViewCount = %d, want 0", articles[1].ViewCount)
	}
}

func TestTrending_Limit(t *testing.T) {
	e := newTestExtractor(t)

	var nodes []string
	for i := 0; i < 14; i++ {
		nodes = append(nodes, itemNews("item-news", fmt.Sprintf("T%d", i), fmt.Sprintf("/t-%d.html", i), "", ""))
	}
	articles, err := e.Trending(page(nodes...))
	if err != nil {
		t.Fatalf("Trending() error = %v", err)
	}
	if len(articles) != TrendingLimit {
		t.Errorf("len(articles) = %d, want %d", len(articles), TrendingLimit)
	}
}

func TestRecent_HomeAndListing(t *testing.T) {
	e := newTestExtractor(t)

	home := page(`<div class="list-news-subfolder"><article><p class="title"><a href="/moi-1.html">Mới 1</a></p></article></div>`)
	articles, err := e.RecentFromHome(home)
	if err != nil {
		t.Fatalf("RecentFromHome() error = %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Mới 1" {
		t.Fatalf("articles = %+v", articles)
	}

	empty, err := e.RecentFromHome(page(itemNews("item-news", "Không phải", "/x.html", "", "")))
	if err != nil {
		t.Fatalf("RecentFromHome() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("新着ブロックがないトップページは0件になるべき: %d", len(empty))
	}

	var nodes []string
	for i := 0; i < 20; i++ {
		nodes = append(nodes, itemNews("item-news", fmt.Sprintf("R%d", i), fmt.Sprintf("/r-%d.html", i), "", ""))
	}
	listing, err := e.RecentFromListing(page(nodes...))
	if err != nil {
		t.Fatalf("RecentFromListing() error = %v", err)
	}
	if len(listing) != RecentLimit {
		t.Errorf("len(listing) = %d, want %d", len(listing), RecentLimit)
	}
}

func TestSearch_LimitAndCategoryName(t *testing.T) {
	e := newTestExtractor(t)

	var nodes []string
	nodes = append(nodes, `<article class="item-news"><a class="cat" href="/the-thao">Thể thao</a><h3 class="title-news"><a href="https://vnexpress.net/s-0.html">Bóng đá</a></h3></article>`)
	for i := 1; i < 30; i++ {
		nodes = append(nodes, itemNews("item-news", fmt.Sprintf("S%d", i), fmt.Sprintf("/s-%d.html", i), "", ""))
	}

	articles, err := e.Search(page(nodes...))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(articles) != SearchLimit {
		t.Fatalf("len(articles) = %d, want %d", len(articles), SearchLimit)
	}
	if articles[0].CategoryName != "Thể thao" {
		t.Errorf("articles[0].CategoryName = %q", articles[0].CategoryName)
	}
	if articles[1].CategoryName != "Tìm kiếm" {
		t.Errorf("articles[1].CategoryName = %q", articles[1].CategoryName)
	}
}

func TestChain_Match_ReportsStrategyName(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page(itemNews("item-news-common", "A", "/a", "", ""))))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	nodes, name := listingNodes.Match(doc.Selection)
	if name != "item-news-common" {
		t.Errorf("name = %q, want item-news-common", name)
	}
	if nodes.Length() != 1 {
		t.Errorf("nodes.Length() = %d, want 1", nodes.Length())
	}

	none, name := Chain{{Name: "x", Selector: "section.none"}}.Match(doc.Selection)
	if name != "" || none.Length() != 0 {
		t.Errorf("マッチしない場合は空を返すべき: %q %d", name, none.Length())
	}
}
