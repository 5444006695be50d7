// Package ics はiCalendar形式の解析・生成と、購読URLの自動検出を提供する。
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/hitoshi/calman/internal/model"
)

// ParseResult はICSペイロードの解析結果を表す。
type ParseResult struct {
	// Name はカレンダー名（X-WR-CALNAME）。未設定の場合は空文字。
	Name string
	// Events は検証前の予定データ。StartとEndはRFC3339文字列に正規化される。
	Events []model.EventPayload
}

// Parse はICSペイロードを解析し、VEVENTを検証前の予定データへ変換する。
// SUMMARYまたはDTSTARTを欠くVEVENTは黙ってスキップし、残りの解析を続行する。
// 繰り返し規則（RRULE）は展開しない。マスターのVEVENTが1件として扱われる。
func Parse(body []byte) (*ParseResult, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Name: calendarName(cal)}

	for _, ve := range cal.Events() {
		payload, ok := parseVEvent(ve)
		if !ok {
			continue
		}
		result.Events = append(result.Events, payload)
	}

	return result, nil
}

// calendarName はX-WR-CALNAMEプロパティからカレンダー名を取得する。
func calendarName(cal *ical.Calendar) string {
	for _, p := range cal.CalendarProperties {
		if strings.EqualFold(p.IANAToken, "X-WR-CALNAME") {
			return strings.TrimSpace(p.Value)
		}
	}
	return ""
}

func parseVEvent(ve *ical.VEvent) (model.EventPayload, bool) {
	var payload model.EventPayload

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		payload.Title = strings.TrimSpace(p.Value)
	}
	if payload.Title == "" {
		return payload, false
	}

	// DTSTART/DTENDのタイムゾーン解決はライブラリに委ねる
	start, err := ve.GetStartAt()
	if err != nil || start.IsZero() {
		return payload, false
	}
	end, err := ve.GetEndAt()
	if err != nil || end.IsZero() {
		if isAllDay(ve) {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start
		}
	}
	payload.Start = start.Format(time.RFC3339)
	payload.End = end.Format(time.RFC3339)

	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		payload.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		payload.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		payload.Organizer = organizerName(p)
	}

	return payload, true
}

// isAllDay はDTSTARTがVALUE=DATE形式（終日予定）かを判定する。
func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

// organizerName はORGANIZERプロパティから表示名を取得する。
// CNパラメータを優先し、なければmailto:を剥がしたアドレスを返す。
func organizerName(p *ical.IANAProperty) string {
	if params := p.ICalParameters; params != nil {
		if cns, ok := params["CN"]; ok && len(cns) > 0 && cns[0] != "" {
			return strings.Trim(cns[0], `"`)
		}
	}
	return strings.TrimPrefix(p.Value, "mailto:")
}
