package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/calman/internal/ics"
)

// exportCalendarName はエクスポートするICSのX-WR-CALNAME。
const exportCalendarName = "Calman"

// ExportHandler は予定コレクションのICSエクスポートを提供する。
type ExportHandler struct {
	service EventServiceInterface
	now     func() time.Time
}

// NewExportHandler はExportHandlerを生成する。
func NewExportHandler(service EventServiceInterface) *ExportHandler {
	return &ExportHandler{
		service: service,
		now:     time.Now,
	}
}

// ExportICS は全予定をiCalendar形式でダウンロードさせる。
// GET /events/export.ics
func (h *ExportHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := ics.Export(events, exportCalendarName, h.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calman.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
