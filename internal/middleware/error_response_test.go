package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/calman/internal/model"
)

func TestWriteErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, http.StatusNotFound, model.NewEventNotFoundError("ev-1"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("ステータスが不正: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Typeが不正: %q", ct)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONとして解析できない: %v", err)
	}
	if body.Code != model.ErrCodeEventNotFound {
		t.Errorf("codeが不正: %q", body.Code)
	}
	if body.Category != "event" {
		t.Errorf("categoryが不正: %q", body.Category)
	}
	if body.Action == "" {
		t.Error("actionが空")
	}
}

func TestWriteInternalServerError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalServerError(rec)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("ステータスが不正: %d", rec.Code)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONとして解析できない: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("codeが不正: %q", body.Code)
	}
}

func TestRecoveryMiddleware_PanicReturns500(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic後のステータスが不正: %d", rec.Code)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := NewCORSMiddleware("https://app.example.com")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("プリフライトのステータスが不正: %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("許可オリジンが不正: %q", got)
	}
}

func TestCORSMiddleware_EmptyOriginAllowsAll(t *testing.T) {
	handler := NewCORSMiddleware("")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("空設定時の許可オリジンが不正: %q", got)
	}
}
