package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig(generalBurst, importBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない程度に遅く
		GeneralBurst:    generalBurst,
		ImportRate:      rate.Limit(0.001),
		ImportBurst:     importBurst,
		CleanupInterval: time.Hour,
	}
}

func doRequest(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGeneralMiddleware_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(2, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		if rec := doRequest(handler, "203.0.113.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("%d回目のリクエストが%dで拒否された", i+1, rec.Code)
		}
	}

	rec := doRequest(handler, "203.0.113.1:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("バースト超過後のステータスが不正: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーが設定されていない")
	}
}

func TestGeneralMiddleware_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	if rec := doRequest(handler, "203.0.113.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("1番目のクライアントが拒否された: %d", rec.Code)
	}
	if rec := doRequest(handler, "203.0.113.1:1234"); rec.Code != http.StatusTooManyRequests {
		t.Fatal("1番目のクライアントのバーストが尽きていない")
	}

	// 別IPのクライアントは影響を受けない
	if rec := doRequest(handler, "203.0.113.2:1234"); rec.Code != http.StatusOK {
		t.Fatalf("別クライアントが巻き込まれた: %d", rec.Code)
	}

	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("リミッターのエントリ数が不正: %d", rl.GeneralLimiterCount())
	}
}

func TestImportMiddleware_IndependentFromGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	importH := rl.ImportMiddleware()(okHandler())

	// 全般のバーストを使い切っても購読登録側は通る
	doRequest(general, "203.0.113.1:1234")
	if rec := doRequest(general, "203.0.113.1:1234"); rec.Code != http.StatusTooManyRequests {
		t.Fatal("全般のバーストが尽きていない")
	}
	if rec := doRequest(importH, "203.0.113.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("購読登録側が全般の制限に巻き込まれた: %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.RemoteAddr = "203.0.113.1:1234"
	if got := ClientIP(req); got != "203.0.113.1" {
		t.Errorf("RemoteAddrからの抽出が不正: %q", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 203.0.113.1")
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Errorf("X-Forwarded-For先頭の抽出が不正: %q", got)
	}
}
