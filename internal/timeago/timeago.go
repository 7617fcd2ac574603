// Package timeago は記事の公開日時を相対表記に変換する。
package timeago

import (
	"fmt"
	"time"
)

// Vietnam はベトナム標準時（UTC+7）。日付表記に使う。
var Vietnam = time.FixedZone("ICT", 7*60*60)

// Format はnowから見たtの経過時間を返す。
// 1分未満は「Vừa xong」、1時間未満は分、1日未満は時間、7日未満は日数、それ以上はdd/MM/yyyy。
// tがゼロ値の場合は空文字列を返す。
func Format(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Vừa xong"
	case diff < time.Hour:
		return fmt.Sprintf("%d phút trước", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d giờ trước", int(diff/time.Hour))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d ngày trước", int(diff/(24*time.Hour)))
	default:
		return t.In(Vietnam).Format("02/01/2006")
	}
}
