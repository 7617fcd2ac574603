package scrape

import (
	"errors"
	"fmt"
)

// ErrNoRecords は取得したHTMLから記事を1件も抽出できなかったことを表す。
var ErrNoRecords = errors.New("no records extracted")

// TransportError はタイムアウト、DNS失敗、接続拒否など、
// HTTPレスポンスを受け取る前に発生した失敗を表す。
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError は2xx以外のHTTPステータスを受け取ったことを表す。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.StatusCode, e.URL)
}

// FailureKind は取得失敗の分類。
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTransport FailureKind = "transport"
	FailureStatus    FailureKind = "status"
	FailureEmpty     FailureKind = "empty"
	FailureUnknown   FailureKind = "unknown"
)

// Classify はFetch/Extractのエラーを分類する。
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var te *TransportError
	if errors.As(err, &te) {
		return FailureTransport
	}
	var se *StatusError
	if errors.As(err, &se) {
		return FailureStatus
	}
	if errors.Is(err, ErrNoRecords) {
		return FailureEmpty
	}
	return FailureUnknown
}
