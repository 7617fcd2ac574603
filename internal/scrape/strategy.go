package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy は抽出チェーンの1段。名前はログとテストでどの段が採用されたかを示す。
type Strategy struct {
	Name     string
	Selector string
}

// Chain は先頭から順に評価するStrategyの列。
// 最初に1件以上マッチした段の結果のみを採用し、段をまたいだマージは行わない。
type Chain []Strategy

// Match はrootに対してチェーンを評価し、採用されたノード群と段の名前を返す。
// どの段もマッチしない場合は空のSelectionと空文字列を返す。
func (c Chain) Match(root *goquery.Selection) (*goquery.Selection, string) {
	for _, s := range c {
		found := root.Find(s.Selector)
		if found.Length() > 0 {
			return found, s.Name
		}
	}
	return root.Slice(0, 0), ""
}

// First はMatchの結果の先頭ノードを返す。
func (c Chain) First(root *goquery.Selection) *goquery.Selection {
	found, _ := c.Match(root)
	return found.First()
}

// attrOrFallback は属性を順に参照し、最初の空でない値を返す。
func attrOrFallback(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(sel.AttrOr(name, "")); v != "" {
			return v
		}
	}
	return ""
}
