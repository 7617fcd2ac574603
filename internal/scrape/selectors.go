package scrape

// Shape は抽出対象ページの形状。メトリクスのラベルにも使用する。
type Shape string

const (
	ShapeCategory Shape = "category"
	ShapeDetail   Shape = "detail"
	ShapeLatest   Shape = "latest"
	ShapeTrending Shape = "trending"
	ShapeRecent   Shape = "recent"
	ShapeSearch   Shape = "search"
)

// 形状ごとの最大件数
const (
	LatestLimit   = 20
	TrendingLimit = 10
	RecentLimit   = 15
	SearchLimit   = 20
)

// 既定値
const (
	SourceName          = "VnExpress"
	DefaultCategoryName = "Tin tức"
	DefaultCategoryID   = "thoi-su"
	DefaultCardLabel    = "NEWS"
	SearchCategoryName  = "Tìm kiếm"
	RecentListingPath   = "/tin-moi-nhat"
)

// カテゴリ一覧・トップページ・検索結果の記事カード
var (
	listingNodes = Chain{
		{Name: "item-news", Selector: "article.item-news"},
		{Name: "item-news-common", Selector: "article.item-news-common"},
		{Name: "article", Selector: "article"},
	}
	listingTitle = Chain{
		{Name: "title-news", Selector: "h3.title-news > a"},
	}
	listingImage = Chain{
		{Name: "thumb-art", Selector: "div.thumb-art > a > img"},
		{Name: "lazy", Selector: "img.lazy"},
	}
	listingDescription = Chain{
		{Name: "description", Selector: "p.description"},
	}
	latestNodes = Chain{
		{Name: "item-news", Selector: "article.item-news"},
	}
	searchNodes = Chain{
		{Name: "item-news", Selector: "article.item-news"},
	}
)

// categoryLinkSelector はトップページの記事カード内のカテゴリリンク。
const categoryLinkSelector = "a.cat"

// 記事詳細ページ
var (
	detailTitle = Chain{
		{Name: "title-detail", Selector: "h1.title-detail"},
	}
	detailImage = Chain{
		{Name: "fig-picture", Selector: "div.fig-picture > picture > img"},
		{Name: "lazy", Selector: "img.lazy"},
	}
	detailContent = Chain{
		{Name: "normal", Selector: "article.fck_detail > p.Normal"},
		{Name: "paragraphs", Selector: "article.fck_detail p"},
	}
	enrichContent = Chain{
		{Name: "normal", Selector: "article.fck_detail p.Normal"},
	}
	enrichImage = Chain{
		{Name: "fig-picture", Selector: "div.fig-picture img"},
	}
)

// トレンド・新着カード
var (
	trendingNodes = Chain{
		{Name: "item-news-common", Selector: "article.item-news-common"},
		{Name: "item-news", Selector: "article.item-news"},
		{Name: "width-common", Selector: "div.width_common > article"},
	}
	recentHomeNodes = Chain{
		{Name: "subfolder", Selector: ".list-news-subfolder article, .container article"},
	}
	recentListingNodes = Chain{
		{Name: "item-news", Selector: "article.item-news"},
		{Name: "item-news-common", Selector: "article.item-news-common"},
		{Name: "width-common", Selector: "div.width_common > article"},
	}
	cardTitle = Chain{
		{Name: "title", Selector: "h3.title-news > a, h2.title-news > a, h3.title > a"},
	}
	recentCardTitle = Chain{
		{Name: "title", Selector: "h3.title-news > a, h2.title-news > a, h3.title > a, .title a"},
	}
	cardImage = Chain{
		{Name: "thumb", Selector: "div.thumb-art img, picture.pic img"},
	}
	cardSummary = Chain{
		{Name: "summary", Selector: "p.description > a, p.description, p.desc"},
	}
	cardLabel = Chain{
		{Name: "label", Selector: "span.cat-name, span.category"},
	}
)
