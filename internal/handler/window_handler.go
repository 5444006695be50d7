package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/calman/internal/model"
	"github.com/hitoshi/calman/internal/view"
)

// dateLayout はウィンドウAPIの日付パラメータの形式。
const dateLayout = "2006-01-02"

// WindowHandler はカレンダービューの射影APIのHTTPハンドラー。
// 予定コレクションを粒度ごとのセル構造へ変換して返す。
type WindowHandler struct {
	service    EventServiceInterface
	weekStart  time.Weekday
	visibleMax int
	now        func() time.Time
}

// NewWindowHandler はWindowHandlerを生成する。
func NewWindowHandler(service EventServiceInterface, weekStart time.Weekday, visibleMax int) *WindowHandler {
	return &WindowHandler{
		service:    service,
		weekStart:  weekStart,
		visibleMax: visibleMax,
		now:        time.Now,
	}
}

// cellResponse はウィンドウ内の1日付セル。
type cellResponse struct {
	Date           string          `json:"date"`
	InCurrentMonth bool            `json:"inCurrentMonth"`
	Events         []eventResponse `json:"events"`
	VisibleCount   int             `json:"visibleCount"`
	Overflow       int             `json:"overflow"`
}

// hourSlotResponse は日ビューの1時間スロット。
type hourSlotResponse struct {
	Hour   int             `json:"hour"`
	Events []eventResponse `json:"events"`
	Active bool            `json:"active"`
}

// navigationResponse は前後・今日への遷移先参照日。
type navigationResponse struct {
	Previous string `json:"previous"`
	Next     string `json:"next"`
	Today    string `json:"today"`
}

// windowResponse はウィンドウAPIのレスポンス。
type windowResponse struct {
	View       string             `json:"view"`
	Reference  string             `json:"reference"`
	Title      string             `json:"title"`
	RangeLabel string             `json:"rangeLabel"`
	EventCount int                `json:"eventCount"`
	Cells      []cellResponse     `json:"cells"`
	Hours      []hourSlotResponse `json:"hours,omitempty"`
	ActiveNow  []eventResponse    `json:"activeNow,omitempty"`
	Navigation navigationResponse `json:"navigation"`
}

// GetWindow は参照日と粒度から可視ウィンドウを計算して返す。
// GET /api/window?date=2024-01-15&view=month
// dateを省略すると今日、viewを省略するとmonthになる。
func (h *WindowHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	ref := now
	if dateParam := r.URL.Query().Get("date"); dateParam != "" {
		parsed, err := parseWindowDate(dateParam)
		if err != nil {
			handleServiceError(w, model.NewInvalidDateError("date", dateParam))
			return
		}
		ref = parsed
	}

	granularity := model.GranularityMonth
	if viewParam := r.URL.Query().Get("view"); viewParam != "" {
		granularity = model.Granularity(viewParam)
		if !granularity.IsValid() {
			handleServiceError(w, model.NewInvalidViewError(viewParam))
			return
		}
	}

	events, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	window := view.ComputeWindow(events, ref, granularity, h.weekStart, h.visibleMax)
	state := view.ViewState{Reference: ref, Granularity: granularity}

	resp := windowResponse{
		View:       string(granularity),
		Reference:  ref.Format(dateLayout),
		Title:      view.Title(ref, granularity, h.weekStart),
		RangeLabel: view.RangeLabel(ref, granularity, h.weekStart),
		EventCount: view.CountEvents(events, ref, granularity, h.weekStart),
		Cells:      toCellResponses(window.Cells),
		Navigation: navigationResponse{
			Previous: state.Previous().Reference.Format(dateLayout),
			Next:     state.Next().Reference.Format(dateLayout),
			Today:    state.Today(now).Reference.Format(dateLayout),
		},
	}

	if granularity == model.GranularityDay {
		resp.Hours = toHourSlotResponses(window.HourSlots, ref, now)
		resp.ActiveNow = toEventResponses(view.ActiveEvents(events, now))
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseWindowDate は日付パラメータを解析する。日付のみとRFC3339の両方を受け付ける。
func parseWindowDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func toCellResponses(cells []view.Cell) []cellResponse {
	responses := make([]cellResponse, len(cells))
	for i := range cells {
		responses[i] = cellResponse{
			Date:           cells[i].Date.Format(dateLayout),
			InCurrentMonth: cells[i].InCurrentMonth,
			Events:         toEventResponses(cells[i].Events),
			VisibleCount:   cells[i].VisibleCount,
			Overflow:       cells[i].Overflow(),
		}
	}
	return responses
}

func toHourSlotResponses(slots []view.HourSlot, ref, now time.Time) []hourSlotResponse {
	responses := make([]hourSlotResponse, len(slots))
	for i := range slots {
		responses[i] = hourSlotResponse{
			Hour:   slots[i].Hour,
			Events: toEventResponses(slots[i].Events),
			Active: view.IsActiveHour(ref, slots[i].Hour, now),
		}
	}
	return responses
}
