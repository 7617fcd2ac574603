package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は抽出したテキストから残存するHTMLを除去する。
// goqueryのText()は通常タグを含まないが、説明文に埋め込まれたエスケープ済み
// マークアップ（&lt;b&gt;等）がデコード後に現れることがあるため、保存前に通す。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicy（全タグ除去）でTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Text はタグを除去し、連続する空白を1つにまとめて前後をトリムする。
// 空文字列の入力には空文字列を返す。
func (s *TextSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyは&をエスケープして返すため元に戻す
	cleaned := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Join(strings.Fields(cleaned), " ")
}

// Paragraphs は段落ごとにTextを適用し、空の段落を除いて返す。
func (s *TextSanitizer) Paragraphs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if t := s.Text(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
