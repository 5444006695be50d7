package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func captureLog(t *testing.T, status int) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログがJSONとして解析できない: %v\n%s", err, buf.String())
	}
	return entry
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	entry := captureLog(t, http.StatusOK)

	if entry["method"] != "GET" {
		t.Errorf("methodが不正: %v", entry["method"])
	}
	if entry["path"] != "/events" {
		t.Errorf("pathが不正: %v", entry["path"])
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("statusが不正: %v", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("duration_msが含まれていない")
	}
	if entry["msg"] != "http_request" {
		t.Errorf("msgが不正: %v", entry["msg"])
	}
}

func TestLoggingMiddleware_LevelEscalation(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		entry := captureLog(t, tt.status)
		if entry["level"] != tt.level {
			t.Errorf("status=%dのログレベルが不正: %v", tt.status, entry["level"])
		}
	}
}

func TestLoggingMiddleware_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	// WriteHeaderを呼ばずにWriteだけするハンドラ
	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログがJSONとして解析できない: %v", err)
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("暗黙の200が記録されていない: %v", entry["status"])
	}
}
