package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/calman/internal/model"
)

// FeedServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// Subscribe はURLからカレンダーフィードを検出し、購読として登録する。
	Subscribe(ctx context.Context, inputURL string) (*model.CalendarFeed, error)
	// ListFeeds は全購読を返す。
	ListFeeds(ctx context.Context) ([]*model.CalendarFeed, error)
	// Unsubscribe は購読を解除し、由来する予定を削除する。
	Unsubscribe(ctx context.Context, feedID string) error
}

// FeedHandler はICS購読管理のHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{service: service}
}

// subscribeRequest は購読登録リクエストのボディ。
type subscribeRequest struct {
	URL string `json:"url"`
}

// feedResponse は購読情報のAPIレスポンス。
type feedResponse struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Title             string `json:"title"`
	Color             string `json:"color"`
	RefreshStatus     string `json:"refreshStatus"`
	ConsecutiveErrors int    `json:"consecutiveErrors"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
	RefreshedAt       string `json:"refreshedAt,omitempty"`
	CreatedAt         string `json:"createdAt"`
}

func toFeedResponse(feed *model.CalendarFeed) feedResponse {
	resp := feedResponse{
		ID:                feed.ID,
		URL:               feed.URL,
		Title:             feed.Title,
		Color:             string(feed.Color),
		RefreshStatus:     string(feed.RefreshStatus),
		ConsecutiveErrors: feed.ConsecutiveErrors,
		ErrorMessage:      feed.ErrorMessage,
		CreatedAt:         feed.CreatedAt.Format(time.RFC3339),
	}
	if feed.RefreshedAt != nil {
		resp.RefreshedAt = feed.RefreshedAt.Format(time.RFC3339)
	}
	return resp
}

// Subscribe は購読登録を処理する。
// POST /api/feeds
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError())
		return
	}

	if req.URL == "" {
		handleServiceError(w, model.NewInvalidURLError("URLが空です"))
		return
	}

	feed, err := h.service.Subscribe(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFeedResponse(feed))
}

// ListFeeds は購読一覧を返す。
// GET /api/feeds
func (h *FeedHandler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.service.ListFeeds(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]feedResponse, len(feeds))
	for i, feed := range feeds {
		responses[i] = toFeedResponse(feed)
	}
	writeJSON(w, http.StatusOK, responses)
}

// Unsubscribe は購読を解除する。
// DELETE /api/feeds/{id}
func (h *FeedHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	feedID := chi.URLParam(r, "id")

	if err := h.service.Unsubscribe(r.Context(), feedID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
