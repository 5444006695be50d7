package event

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/calman/internal/model"
)

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを検証するヘルパー。
func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返されるべき: %v", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("Code = %q, want %q", apiErr.Code, wantCode)
	}
}

func TestValidate_Success(t *testing.T) {
	v := NewValidator()

	event, err := v.Validate(model.EventPayload{
		Title:     "  Standup  ",
		Start:     "2024-01-08T09:00",
		End:       "2024-01-08T09:15",
		Color:     "green",
		Organizer: " Emily Davis ",
		Location:  "Room 1",
	})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if event.Title != "Standup" {
		t.Errorf("Title = %q, want 前後空白を除去した %q", event.Title, "Standup")
	}
	if event.Color != model.ColorGreen {
		t.Errorf("Color = %q, want green", event.Color)
	}
	if event.Organizer != "Emily Davis" {
		t.Errorf("Organizer = %q, want %q", event.Organizer, "Emily Davis")
	}
	want := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	if !event.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", event.Start, want)
	}
	if event.ID != "" {
		t.Errorf("IDはバリデーション段階では未設定であるべき: %q", event.ID)
	}
}

func TestValidate_TitleRequired(t *testing.T) {
	v := NewValidator()

	for _, title := range []string{"", "   "} {
		_, err := v.Validate(model.EventPayload{
			Title: title,
			Start: "2024-01-08T09:00",
			End:   "2024-01-08T10:00",
		})
		if err == nil {
			t.Fatalf("title=%qは拒否されるべき", title)
		}
		assertAPIErrorCode(t, err, model.ErrCodeTitleRequired)
	}
}

func TestValidate_EndBeforeStart(t *testing.T) {
	v := NewValidator()

	// 他のフィールドが何であれ end < start は拒否される
	cases := []model.EventPayload{
		{Title: "a", Start: "2024-01-08T10:00", End: "2024-01-08T09:00"},
		{Title: "b", Start: "2024-01-08T10:00", End: "2024-01-07T10:00", Color: "red", Organizer: "x"},
		{Title: "c", Start: "2024-06-01T00:00:00Z", End: "2024-05-31T23:59:59Z", Description: "<p>x</p>"},
	}
	for _, payload := range cases {
		_, err := v.Validate(payload)
		if err == nil {
			t.Fatalf("end < start のペイロードは拒否されるべき: %+v", payload)
		}
		assertAPIErrorCode(t, err, model.ErrCodeEndBeforeStart)
	}
}

func TestValidate_EndEqualStartIsAllowed(t *testing.T) {
	v := NewValidator()

	// 不変条件は end >= start。等しい場合は許可する。
	_, err := v.Validate(model.EventPayload{
		Title: "zero length",
		Start: "2024-01-08T09:00",
		End:   "2024-01-08T09:00",
	})
	if err != nil {
		t.Fatalf("end == start は許可されるべき: %v", err)
	}
}

func TestValidate_ColorEnum(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		color    string
		wantErr  bool
		want     model.EventColor
	}{
		{name: "未指定はblueにデフォルト", color: "", want: model.ColorBlue},
		{name: "red", color: "red", want: model.ColorRed},
		{name: "purple", color: "purple", want: model.ColorPurple},
		{name: "orange", color: "orange", want: model.ColorOrange},
		{name: "列挙外は拒否", color: "magenta", wantErr: true},
		{name: "大文字は拒否", color: "Blue", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := v.Validate(model.EventPayload{
				Title: "t",
				Start: "2024-01-08T09:00",
				End:   "2024-01-08T10:00",
				Color: tt.color,
			})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("color=%qは拒否されるべき", tt.color)
				}
				assertAPIErrorCode(t, err, model.ErrCodeInvalidColor)
				return
			}
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if event.Color != tt.want {
				t.Errorf("Color = %q, want %q", event.Color, tt.want)
			}
		})
	}
}

func TestValidate_UnparseableDates(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{name: "start欠落", start: "", end: "2024-01-08T10:00"},
		{name: "end欠落", start: "2024-01-08T09:00", end: ""},
		{name: "start不正", start: "tomorrow", end: "2024-01-08T10:00"},
		{name: "end不正", start: "2024-01-08T09:00", end: "08/01/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(model.EventPayload{Title: "t", Start: tt.start, End: tt.end})
			if err == nil {
				t.Fatal("解析不能な日時は拒否されるべき")
			}
			assertAPIErrorCode(t, err, model.ErrCodeInvalidDate)
		})
	}
}

func TestValidate_AcceptsRFC3339(t *testing.T) {
	v := NewValidator()

	event, err := v.Validate(model.EventPayload{
		Title: "t",
		Start: "2024-01-08T09:00:00+09:00",
		End:   "2024-01-08T10:00:00+09:00",
	})
	if err != nil {
		t.Fatalf("RFC3339形式は受け付けるべき: %v", err)
	}
	if event.Start.Hour() != 9 {
		t.Errorf("Start.Hour() = %d, want 9", event.Start.Hour())
	}
}

func TestValidate_SanitizesDescription(t *testing.T) {
	v := NewValidator()

	event, err := v.Validate(model.EventPayload{
		Title:       "t",
		Start:       "2024-01-08T09:00",
		End:         "2024-01-08T10:00",
		Description: `<p>agenda</p><script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if strings.Contains(event.Description, "script") {
		t.Errorf("scriptタグは除去されるべき: %q", event.Description)
	}
	if !strings.Contains(event.Description, "<p>agenda</p>") {
		t.Errorf("許可タグは保持されるべき: %q", event.Description)
	}
}
