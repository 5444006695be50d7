package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/calman/internal/model"
)

// Pinger はストアの疎通確認インターフェース。*sql.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler はHealthHandlerを生成する。pingerはnilでもよい（疎通確認なし）。
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Health はサービスとストアの疎通状態を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.PingContext(r.Context()); err != nil {
			handleServiceError(w, model.NewStoreUnavailableError(err.Error()))
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
