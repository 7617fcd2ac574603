package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// mockRecorder はテスト用のmetrics.Recorder。
type mockRecorder struct {
	mu       sync.Mutex
	scrapes  []string
	statuses []int
}

func (m *mockRecorder) RecordScrape(result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrapes = append(m.scrapes, result)
}

func (m *mockRecorder) RecordHTTPStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, code)
}

func (m *mockRecorder) RecordExtracted(string, int) {}
func (m *mockRecorder) RecordCacheLookup(string)    {}
func (m *mockRecorder) RecordCacheWriteFailure()    {}
func (m *mockRecorder) RecordFallback(string)       {}

type mockValidator struct {
	err error
}

func (m *mockValidator) ValidateURL(string) error {
	return m.err
}

func TestFetcher_Fetch_Success(t *testing.T) {
	var gotUA string
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>Xin chào</h1></body></html>")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	rec := &mockRecorder{}
	f := NewFetcher(&http.Client{}, nil, newTestLogger(&buf), rec, 1<<20)

	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(body, "Xin chào") {
		t.Errorf("body = %q", body)
	}
	if gotUA != DesktopUserAgent {
		t.Errorf("User-Agent = %q, want desktop UA", gotUA)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(rec.scrapes) != 1 || rec.scrapes[0] != "success" {
		t.Errorf("scrapes = %v", rec.scrapes)
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusOK {
		t.Errorf("statuses = %v", rec.statuses)
	}
}

func TestFetcher_Fetch_StatusError_NoRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	rec := &mockRecorder{}
	f := NewFetcher(&http.Client{}, nil, newTestLogger(&buf), rec, 1<<20)

	_, err := f.Fetch(context.Background(), srv.URL)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", se.StatusCode)
	}
	if calls != 1 {
		t.Errorf("リトライは行わないべき: calls = %d", calls)
	}
	if Classify(err) != FailureStatus {
		t.Errorf("Classify() = %q", Classify(err))
	}
	if len(rec.scrapes) != 1 || rec.scrapes[0] != "status_error" {
		t.Errorf("scrapes = %v", rec.scrapes)
	}
	if !strings.Contains(buf.String(), `"http_status":503`) {
		t.Errorf("ログにステータスコードが含まれるべき: %s", buf.String())
	}
}

func TestFetcher_Fetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	var buf bytes.Buffer
	rec := &mockRecorder{}
	f := NewFetcher(&http.Client{Timeout: time.Second}, nil, newTestLogger(&buf), rec, 1<<20)

	_, err := f.Fetch(context.Background(), url)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if te.URL != url {
		t.Errorf("URL = %q", te.URL)
	}
	if Classify(err) != FailureTransport {
		t.Errorf("Classify() = %q", Classify(err))
	}
	if len(rec.scrapes) != 1 || rec.scrapes[0] != "transport_error" {
		t.Errorf("scrapes = %v", rec.scrapes)
	}
}

func TestFetcher_Fetch_ValidatorRejects(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	var buf bytes.Buffer
	f := NewFetcher(&http.Client{}, &mockValidator{err: errors.New("blocked")}, newTestLogger(&buf), nil, 1<<20)

	_, err := f.Fetch(context.Background(), srv.URL)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if calls != 0 {
		t.Errorf("検証に失敗したURLにはリクエストしないべき: calls = %d", calls)
	}
}

func TestFetcher_Fetch_BodySizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	f := NewFetcher(&http.Client{}, nil, newTestLogger(&buf), nil, 10)

	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(body) != 10 {
		t.Errorf("len(body) = %d, want 10", len(body))
	}
}

func TestFetcher_Fetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	f := NewFetcher(&http.Client{}, nil, newTestLogger(&buf), nil, 1<<20)

	_, err := f.Fetch(ctx, srv.URL)
	if Classify(err) != FailureTransport {
		t.Errorf("キャンセル済みコンテキストはTransportErrorになるべき: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureNone},
		{"transport", &TransportError{URL: "u", Err: errors.New("dial")}, FailureTransport},
		{"status", &StatusError{URL: "u", StatusCode: 404}, FailureStatus},
		{"wrapped status", fmt.Errorf("load: %w", &StatusError{StatusCode: 500}), FailureStatus},
		{"empty", ErrNoRecords, FailureEmpty},
		{"other", errors.New("boom"), FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
