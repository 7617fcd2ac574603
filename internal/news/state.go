// Package news はカテゴリ別・一覧・詳細・検索の記事読み込みを提供する。
// キャッシュ確認、サイト取得、抽出、キャッシュ書き込み、フォールバック読み出しを1つの状態機械で扱う。
package news

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/scrape"
)

// State は読み込み状態機械の状態。
type State string

const (
	StateInit              State = "INIT"
	StateCacheCheck        State = "CACHE_CHECK"
	StateCacheHit          State = "CACHE_HIT"
	StateCacheMiss         State = "CACHE_MISS"
	StateFetching          State = "FETCHING"
	StateFetchOK           State = "FETCH_OK"
	StateFetchFail         State = "FETCH_FAIL"
	StateExtracting        State = "EXTRACTING"
	StateExtractOK         State = "EXTRACT_OK"
	StateExtractEmpty      State = "EXTRACT_EMPTY"
	StateCacheWrite        State = "CACHE_WRITE"
	StateFallbackCacheRead State = "FALLBACK_CACHE_READ"
	StateDone              State = "DONE"
)

// Source は結果の記事がどこから来たかを表す。
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// ユーザー向けメッセージ
const (
	MsgNoArticles = "Không tìm thấy bài viết nào"
	MsgCacheEmpty = "Không có bài viết nào trong bộ nhớ cache"
)

// LoadResult は1回の読み込みの結果。
// 成功時はMessageが空、失敗時は記事（空の場合あり）とメッセージの両方を持つ。
type LoadResult struct {
	// Key はカテゴリIDまたはスナップショットのキー。
	Key      string
	Articles []*model.Article
	Message  string
	Source   Source
	// Failure はフォールバックに至った原因。成功時はscrape.FailureNone。
	Failure scrape.FailureKind
	// States は通過した状態の列。最後は常にStateDone。
	States []State
}

// Final は最後の状態を返す。
func (r LoadResult) Final() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

// Visited は指定状態を通過したかを返す。
func (r LoadResult) Visited(s State) bool {
	for _, v := range r.States {
		if v == s {
			return true
		}
	}
	return false
}

// OK はネットワークまたはキャッシュから失敗なしで記事を得たかを返す。
func (r LoadResult) OK() bool {
	return r.Message == ""
}

func (r *LoadResult) enter(s State) {
	r.States = append(r.States, s)
}

// failureMessage は取得・抽出エラーをユーザー向けメッセージに変換する。
func failureMessage(err error) string {
	var se *scrape.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("Không thể tải bài viết: %d %s", se.StatusCode, http.StatusText(se.StatusCode))
	}
	var te *scrape.TransportError
	if errors.As(err, &te) {
		return "Lỗi kết nối: " + te.Err.Error()
	}
	if errors.Is(err, scrape.ErrNoRecords) {
		return MsgNoArticles
	}
	return "Lỗi khi đọc bài viết: " + err.Error()
}
