package scrape

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/hitoshi/docbao/internal/model"
)

// Sanitizer は抽出テキストの正規化のインターフェース。
type Sanitizer interface {
	Text(raw string) string
	Paragraphs(raw []string) []string
}

// ExtractorConfig はExtractorの設定。
type ExtractorConfig struct {
	// BaseURL は相対リンクの解決に使うサイトのURL（例: https://vnexpress.net）。
	BaseURL string
	// Categories はカテゴリ名の解決とトップページのカテゴリ判定に使う。
	Categories []model.Category
}

// Extractor はHTMLと形状から正規化済みの記事を生成する。
// 記事IDは抽出のたびにUUIDで新規発行するため、同じHTMLを2回抽出すると別IDになる。
type Extractor struct {
	base       *url.URL
	sanitizer  Sanitizer
	categories []model.Category
	names      map[string]string

	newID func() string
	now   func() time.Time
}

// NewExtractor はExtractorを生成する。BaseURLが不正な場合はエラーを返す。
func NewExtractor(cfg ExtractorConfig, sanitizer Sanitizer) (*Extractor, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q", cfg.BaseURL)
	}

	names := make(map[string]string, len(cfg.Categories))
	for _, c := range cfg.Categories {
		names[c.ID] = c.Name
	}

	return &Extractor{
		base:       base,
		sanitizer:  sanitizer,
		categories: cfg.Categories,
		names:      names,
		newID:      uuid.NewString,
		now:        time.Now,
	}, nil
}

// CategoryArticles はカテゴリ一覧ページから記事を抽出する。
// タイトルまたはリンクを欠くノードは黙って除外する。
func (e *Extractor) CategoryArticles(markup, categoryID string) ([]*model.Article, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	nodes, _ := listingNodes.Match(doc.Selection)
	name := e.categoryName(categoryID, DefaultCategoryName)
	now := e.now()

	articles := make([]*model.Article, 0, nodes.Length())
	nodes.Each(func(_ int, node *goquery.Selection) {
		if a := e.listingRecord(node, categoryID, name, publishedAt(now, len(articles))); a != nil {
			articles = append(articles, a)
		}
	})
	return articles, nil
}

// Latest はトップページから最新記事を最大LatestLimit件抽出する。
// カテゴリはカード内のカテゴリリンクから判定し、判定できない場合はthoi-suとする。
func (e *Extractor) Latest(markup string) ([]*model.Article, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	nodes, _ := latestNodes.Match(doc.Selection)
	now := e.now()

	articles := make([]*model.Article, 0, LatestLimit)
	nodes.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		categoryID := e.detectCategory(node, DefaultCategoryID)
		name := e.categoryName(categoryID, DefaultCategoryName)
		if a := e.listingRecord(node, categoryID, name, publishedAt(now, len(articles))); a != nil {
			articles = append(articles, a)
		}
		return len(articles) < LatestLimit
	})
	return articles, nil
}

// Search は検索結果ページから記事を最大SearchLimit件抽出する。
func (e *Extractor) Search(markup string) ([]*model.Article, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	nodes, _ := searchNodes.Match(doc.Selection)
	now := e.now()

	articles := make([]*model.Article, 0, SearchLimit)
	nodes.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		categoryID := e.detectCategory(node, "")
		name := e.categoryName(categoryID, SearchCategoryName)
		if a := e.listingRecord(node, categoryID, name, publishedAt(now, len(articles))); a != nil {
			articles = append(articles, a)
		}
		return len(articles) < SearchLimit
	})
	return articles, nil
}

// Trending はトップページからトレンド記事を最大TrendingLimit件抽出する。
func (e *Extractor) Trending(markup string) ([]*model.Article, error) {
	return e.cards(markup, trendingNodes, cardTitle, TrendingLimit)
}

// RecentFromHome はトップページの新着ブロックから記事を最大RecentLimit件抽出する。
// 0件の場合、呼び出し元は新着一覧ページ（RecentListingPath）を取得してRecentFromListingを使う。
func (e *Extractor) RecentFromHome(markup string) ([]*model.Article, error) {
	return e.cards(markup, recentHomeNodes, recentCardTitle, RecentLimit)
}

// RecentFromListing は新着一覧ページから記事を最大RecentLimit件抽出する。
func (e *Extractor) RecentFromListing(markup string) ([]*model.Article, error) {
	return e.cards(markup, recentListingNodes, recentCardTitle, RecentLimit)
}

// Detail は記事詳細ページから本文付きの記事を抽出する。
// タイトルが見つからない場合はErrNoRecordsを返す。
func (e *Extractor) Detail(markup, sourceURL, categoryID string) (*model.Article, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	title := e.sanitizer.Text(detailTitle.First(doc.Selection).Text())
	if title == "" {
		return nil, ErrNoRecords
	}

	content := e.paragraphs(detailContent, doc.Selection)

	return &model.Article{
		ID:           e.newID(),
		Title:        title,
		Summary:      firstParagraph(content),
		Content:      content,
		ImageURL:     e.imageURL(detailImage.First(doc.Selection)),
		SourceURL:    sourceURL,
		Source:       SourceName,
		CategoryID:   categoryID,
		CategoryName: e.categoryName(categoryID, DefaultCategoryName),
		PublishedAt:  e.now(),
	}, nil
}

// Enrich はキャッシュ済みの記事に詳細ページの本文と画像を補完したコピーを返す。
// 抽出できなかった項目は元の値を維持する。
// 解析に失敗した場合や本文・画像のどちらも変わらない場合は元の記事をそのまま返す。
func (e *Extractor) Enrich(article *model.Article, markup string) *model.Article {
	if article == nil || markup == "" {
		return article
	}
	doc, err := parse(markup)
	if err != nil {
		return article
	}

	content := e.paragraphs(enrichContent, doc.Selection)
	if content == "" {
		content = article.Content
	}
	img := e.imageURL(enrichImage.First(doc.Selection))
	if img == "" {
		img = article.ImageURL
	}
	if content == article.Content && img == article.ImageURL {
		return article
	}

	enriched := article.Clone()
	enriched.Content = content
	enriched.ImageURL = img
	return enriched
}

// listingRecord は一覧カード1件を記事に変換する。必須項目を欠く場合はnilを返す。
func (e *Extractor) listingRecord(node *goquery.Selection, categoryID, categoryName string, published time.Time) *model.Article {
	link := listingTitle.First(node)
	title := e.sanitizer.Text(link.Text())
	href := e.resolveLink(link.AttrOr("href", ""))
	if title == "" || href == "" {
		return nil
	}

	description := e.sanitizer.Text(listingDescription.First(node).Text())

	return &model.Article{
		ID:           e.newID(),
		Title:        title,
		Summary:      description,
		Content:      description,
		ImageURL:     e.imageURL(listingImage.First(node)),
		SourceURL:    href,
		Source:       SourceName,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		PublishedAt:  published,
	}
}

// cards はトレンド・新着カードを抽出する共通処理。
func (e *Extractor) cards(markup string, nodesChain, titleChain Chain, limit int) ([]*model.Article, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	nodes, _ := nodesChain.Match(doc.Selection)
	now := e.now()

	articles := make([]*model.Article, 0, limit)
	nodes.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		link := titleChain.First(node)
		title := e.sanitizer.Text(link.Text())
		href := e.resolveLink(link.AttrOr("href", ""))
		if title == "" || href == "" {
			return true
		}

		label := strings.ToUpper(e.sanitizer.Text(cardLabel.First(node).Text()))
		if label == "" {
			label = DefaultCardLabel
		}
		categoryID := e.detectCategory(node, "")
		summary := e.sanitizer.Text(cardSummary.First(node).Text())

		articles = append(articles, &model.Article{
			ID:           e.newID(),
			Title:        title,
			Summary:      summary,
			Content:      summary,
			ImageURL:     e.imageURL(cardImage.First(node)),
			SourceURL:    href,
			Source:       SourceName,
			CategoryID:   categoryID,
			CategoryName: e.categoryName(categoryID, DefaultCategoryName),
			CategoryText: label,
			PublishedAt:  publishedAt(now, len(articles)),
			ViewCount:    0,
		})
		return len(articles) < limit
	})
	return articles, nil
}

// paragraphs はチェーンで選ばれた段落を正規化し、空行区切りで連結する。
func (e *Extractor) paragraphs(chain Chain, root *goquery.Selection) string {
	nodes, _ := chain.Match(root)
	raw := make([]string, 0, nodes.Length())
	nodes.Each(func(_ int, p *goquery.Selection) {
		raw = append(raw, p.Text())
	})
	return strings.TrimSpace(strings.Join(e.sanitizer.Paragraphs(raw), "\n\n"))
}

// imageURL はimgノードからdata-src、次にsrcを読み取り、URLを補正する。
func (e *Extractor) imageURL(img *goquery.Selection) string {
	if img.Length() == 0 {
		return ""
	}
	return e.normalizeImageURL(attrOrFallback(img, "data-src", "src"))
}

// normalizeImageURL はプロトコル相対URLにhttps:を付与し、サイト相対パスを絶対URLにする。
// 遅延読み込みのプレースホルダ（data: URI）は空として扱う。
func (e *Extractor) normalizeImageURL(raw string) string {
	switch {
	case raw == "", strings.HasPrefix(raw, "data:"):
		return ""
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return e.base.Scheme + "://" + e.base.Host + raw
	default:
		return "https://" + raw
	}
}

// resolveLink は記事リンクを絶対URLにする。javascript:やアンカーのみのリンクは空を返す。
func (e *Extractor) resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}

// detectCategory はカード内のカテゴリリンクのhrefに含まれるスラッグからカテゴリを判定する。
func (e *Extractor) detectCategory(node *goquery.Selection, fallback string) string {
	href := node.Find(categoryLinkSelector).First().AttrOr("href", "")
	if href == "" {
		return fallback
	}
	for _, c := range e.categories {
		if strings.Contains(href, "/"+c.ID) {
			return c.ID
		}
	}
	return fallback
}

func (e *Extractor) categoryName(categoryID, fallback string) string {
	if name, ok := e.names[categoryID]; ok {
		return name
	}
	return fallback
}

func parse(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("HTMLの解析に失敗: %w", err)
	}
	return doc, nil
}

// publishedAt はページ上の並び順を公開日時の降順として保つため、
// 抽出時刻から1件ごとに1秒ずつ遡らせた時刻を返す。
func publishedAt(now time.Time, index int) time.Time {
	return now.Add(-time.Duration(index) * time.Second)
}

func firstParagraph(content string) string {
	if i := strings.Index(content, "\n\n"); i >= 0 {
		return content[:i]
	}
	return content
}
