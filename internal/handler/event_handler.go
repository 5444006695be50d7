package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/calman/internal/model"
)

// EventServiceInterface は予定ハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	// List は全予定をstart昇順で返す。
	List(ctx context.Context) ([]*model.Event, error)
	// Create は予定を検証して作成する。
	Create(ctx context.Context, payload model.EventPayload) (*model.Event, error)
	// Update は予定を検証して上書き更新する。
	Update(ctx context.Context, payload model.EventPayload) (*model.Event, error)
	// Remove は予定を削除する。
	Remove(ctx context.Context, id string) error
}

// EventRecorder は予定操作のメトリクス記録インターフェース。
type EventRecorder interface {
	RecordEventCreated()
	RecordEventUpdated()
	RecordEventDeleted()
}

// EventHandler は予定CRUDのHTTPハンドラー。
type EventHandler struct {
	service  EventServiceInterface
	recorder EventRecorder
}

// NewEventHandler はEventHandlerを生成する。recorderはnilでもよい。
func NewEventHandler(service EventServiceInterface, recorder EventRecorder) *EventHandler {
	return &EventHandler{
		service:  service,
		recorder: recorder,
	}
}

// eventRequest は予定の作成・更新リクエストのボディ。
// 日時は文字列のまま受け取り、検証はサービス層に委ねる。
type eventRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Color       string `json:"color"`
	Organizer   string `json:"organizer"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (req eventRequest) toPayload() model.EventPayload {
	return model.EventPayload{
		ID:          req.ID,
		Title:       req.Title,
		Start:       req.Start,
		End:         req.End,
		Color:       req.Color,
		Organizer:   req.Organizer,
		Description: req.Description,
		Location:    req.Location,
	}
}

// eventResponse は予定のAPIレスポンス。日時はRFC3339で返す。
type eventResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Color       string `json:"color"`
	Organizer   string `json:"organizer,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	FeedID      string `json:"feedId,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toEventResponse(event *model.Event) eventResponse {
	return eventResponse{
		ID:          event.ID,
		Title:       event.Title,
		Start:       event.Start.Format(time.RFC3339),
		End:         event.End.Format(time.RFC3339),
		Color:       string(event.Color),
		Organizer:   event.Organizer,
		Description: event.Description,
		Location:    event.Location,
		FeedID:      event.FeedID,
		CreatedAt:   event.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   event.UpdatedAt.Format(time.RFC3339),
	}
}

func toEventResponses(events []*model.Event) []eventResponse {
	responses := make([]eventResponse, len(events))
	for i, event := range events {
		responses[i] = toEventResponse(event)
	}
	return responses
}

// ListEvents は全予定の一覧を返す。
// GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// CreateEvent は予定を作成する。
// POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), req.toPayload())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordEventCreated()
	}
	writeJSON(w, http.StatusCreated, toEventResponse(created))
}

// UpdateEvent は予定を上書き更新する。対象IDはリクエストボディで指定する。
// PUT /events
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), req.toPayload())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordEventUpdated()
	}
	writeJSON(w, http.StatusOK, toEventResponse(updated))
}

// DeleteEvent は予定を削除する。対象IDはクエリパラメータで指定する。
// DELETE /events?id={id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		handleServiceError(w, model.NewMissingIDError())
		return
	}

	if err := h.service.Remove(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordEventDeleted()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
