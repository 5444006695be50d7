package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/calman/internal/model"
)

// fixedNow はテスト用の固定現在時刻。
var fixedNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func newTestWindowHandler(svc EventServiceInterface) *WindowHandler {
	h := NewWindowHandler(svc, time.Sunday, 3)
	h.now = func() time.Time { return fixedNow }
	return h
}

func getWindow(t *testing.T, h *WindowHandler, query string) (*httptest.ResponseRecorder, windowResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/window"+query, nil)
	w := httptest.NewRecorder()

	h.GetWindow(w, req)

	var resp windowResponse
	if w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return w, resp
}

func TestWindowHandler_GetWindow_MonthDefault(t *testing.T) {
	svc := &mockEventService{
		listFn: func(ctx context.Context) ([]*model.Event, error) {
			return []*model.Event{
				testEvent("ev-1", "朝会", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)),
			}, nil
		},
	}

	h := newTestWindowHandler(svc)
	w, resp := getWindow(t, h, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if resp.View != "month" {
		t.Errorf("view = %q, want %q", resp.View, "month")
	}
	if resp.Reference != "2024-01-15" {
		t.Errorf("reference = %q, want %q", resp.Reference, "2024-01-15")
	}
	if resp.Title != "January 2024" {
		t.Errorf("title = %q, want %q", resp.Title, "January 2024")
	}
	if len(resp.Cells)%7 != 0 {
		t.Errorf("len(cells) = %d, want multiple of 7", len(resp.Cells))
	}
	if resp.EventCount != 1 {
		t.Errorf("eventCount = %d, want 1", resp.EventCount)
	}
	if len(resp.Hours) != 0 {
		t.Errorf("hours should be empty for month view, got %d", len(resp.Hours))
	}
}

func TestWindowHandler_GetWindow_MonthNavigationClampsDay(t *testing.T) {
	svc := &mockEventService{}

	h := newTestWindowHandler(svc)
	w, resp := getWindow(t, h, "?date=2024-03-31&view=month")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	// 3月31日の前月は2月末日、翌月は4月30日に丸められる
	if resp.Navigation.Previous != "2024-02-29" {
		t.Errorf("navigation.previous = %q, want %q", resp.Navigation.Previous, "2024-02-29")
	}
	if resp.Navigation.Next != "2024-04-30" {
		t.Errorf("navigation.next = %q, want %q", resp.Navigation.Next, "2024-04-30")
	}
	if resp.Navigation.Today != "2024-01-15" {
		t.Errorf("navigation.today = %q, want %q", resp.Navigation.Today, "2024-01-15")
	}
}

func TestWindowHandler_GetWindow_WeekView(t *testing.T) {
	svc := &mockEventService{}

	h := newTestWindowHandler(svc)
	w, resp := getWindow(t, h, "?date=2024-01-10&view=week")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(resp.Cells) != 7 {
		t.Errorf("len(cells) = %d, want 7", len(resp.Cells))
	}
	if resp.Navigation.Previous != "2024-01-03" {
		t.Errorf("navigation.previous = %q, want %q", resp.Navigation.Previous, "2024-01-03")
	}
	if resp.Navigation.Next != "2024-01-17" {
		t.Errorf("navigation.next = %q, want %q", resp.Navigation.Next, "2024-01-17")
	}
}

func TestWindowHandler_GetWindow_DayViewHoursAndActive(t *testing.T) {
	svc := &mockEventService{
		listFn: func(ctx context.Context) ([]*model.Event, error) {
			return []*model.Event{
				// 10:00-11:00の予定は固定現在時刻10:30に進行中
				testEvent("ev-active", "進行中", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)),
			}, nil
		},
	}

	h := newTestWindowHandler(svc)
	w, resp := getWindow(t, h, "?date=2024-01-15&view=day")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(resp.Hours) != 24 {
		t.Fatalf("len(hours) = %d, want 24", len(resp.Hours))
	}
	if !resp.Hours[10].Active {
		t.Error("hours[10].Active = false, want true")
	}
	if resp.Hours[11].Active {
		t.Error("hours[11].Active = true, want false")
	}
	if len(resp.ActiveNow) != 1 || resp.ActiveNow[0].ID != "ev-active" {
		t.Errorf("activeNow = %+v, want single ev-active", resp.ActiveNow)
	}
}

func TestWindowHandler_GetWindow_InvalidView(t *testing.T) {
	h := newTestWindowHandler(&mockEventService{})

	w, _ := getWindow(t, h, "?view=year")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := parseErrorResponse(t, w)
	if body["code"] != model.ErrCodeInvalidView {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidView)
	}
}

func TestWindowHandler_GetWindow_InvalidDate(t *testing.T) {
	h := newTestWindowHandler(&mockEventService{})

	w, _ := getWindow(t, h, "?date=not-a-date")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := parseErrorResponse(t, w)
	if body["code"] != model.ErrCodeInvalidDate {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidDate)
	}
}

func TestWindowHandler_GetWindow_AcceptsRFC3339Date(t *testing.T) {
	h := newTestWindowHandler(&mockEventService{})

	w, resp := getWindow(t, h, "?date=2024-06-01T09:00:00Z&view=day")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if resp.Reference != "2024-06-01" {
		t.Errorf("reference = %q, want %q", resp.Reference, "2024-06-01")
	}
}
