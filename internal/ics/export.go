package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/hitoshi/calman/internal/model"
)

// prodID はエクスポートするICSのPRODID。
const prodID = "-//calman//Calendar Export//EN"

// Export は予定コレクションをiCalendar形式のテキストへ変換する。
// 各予定のIDがそのままVEVENTのUIDになるため、再インポート時に重複しない。
func Export(events []*model.Event, calendarName string, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)
	if calendarName != "" {
		cal.SetXWRCalName(calendarName)
	}

	for _, event := range events {
		if event.Start.IsZero() {
			continue
		}
		ve := cal.AddEvent(event.ID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(event.Start)
		ve.SetEndAt(event.End)
		ve.SetSummary(event.Title)
		if event.Description != "" {
			ve.SetDescription(event.Description)
		}
		if event.Location != "" {
			ve.SetLocation(event.Location)
		}
		if event.Organizer != "" {
			ve.SetOrganizer(event.Organizer)
		}
		if !event.CreatedAt.IsZero() {
			ve.SetCreatedTime(event.CreatedAt)
		}
		if !event.UpdatedAt.IsZero() {
			ve.SetModifiedAt(event.UpdatedAt)
		}
	}

	return cal.Serialize()
}
