package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type mockSessionPurger struct {
	called  bool
	deleted int64
	err     error
}

func (m *mockSessionPurger) DeleteExpired(context.Context) (int64, error) {
	m.called = true
	return m.deleted, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogEntry は指定キーを含む最初のログ行を返す。
func findLogEntry(t *testing.T, buf *bytes.Buffer, key string) map[string]any {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if _, ok := entry[key]; ok {
			return entry
		}
	}
	t.Fatalf("ログに %s が記録されていない。ログ出力: %s", key, buf.String())
	return nil
}

func TestCleanupJob_Run(t *testing.T) {
	var buf bytes.Buffer
	sessions := &mockSessionPurger{deleted: 2}

	job := NewCleanupJob(sessions, newTestLogger(&buf))
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !sessions.called {
		t.Error("期限切れセッションを削除するべき")
	}

	entry := findLogEntry(t, &buf, "deleted_sessions")
	if entry["deleted_sessions"] != float64(2) {
		t.Errorf("log = %v", entry)
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("duration_msが記録されるべき")
	}
	// 記事は永続化されるため、記事削除の件数は記録されない
	if _, ok := entry["deleted_count"]; ok {
		t.Errorf("記事の削除を行うべきではない: %v", entry)
	}
}

func TestCleanupJob_Run_NothingToDelete(t *testing.T) {
	var buf bytes.Buffer

	// 削除対象がなくてもエラーにならない
	job := NewCleanupJob(&mockSessionPurger{}, newTestLogger(&buf))
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestCleanupJob_Run_SessionDeleteFails(t *testing.T) {
	var buf bytes.Buffer
	sessionErr := errors.New("sessions locked")

	job := NewCleanupJob(&mockSessionPurger{err: sessionErr}, newTestLogger(&buf))
	err := job.Run(context.Background())

	if !errors.Is(err, sessionErr) {
		t.Fatalf("err = %v, want sessionErr", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("ERRORレベルのログが記録されるべき: %s", buf.String())
	}
}
