// Package event は予定のライフサイクル管理を提供する。
// バリデーション・正規化、ストアゲートウェイとの仲介、
// 書き込み確定後のローカルキャッシュ整合を担う。
package event

import (
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/calman/internal/model"
)

// timeLayouts は受け付ける日時フォーマット。
// RFC3339に加え、元のUIのdatetime-local入力（秒あり/なし）を受け付ける。
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Validator は未検証の予定ペイロードを検証・正規化する。
// Validatorを通過したEventだけがストアゲートウェイに到達する。
type Validator struct {
	sanitizer *bluemonday.Policy
}

// NewValidator はValidatorを生成する。
// 説明文のHTMLは許可リストベースのポリシーでサニタイズする。
// 許可タグ: p, br, a(href), ul, ol, li, strong, em。
// script/iframe/styleタグとon*イベント属性は許可リスト外のため除去される。
func NewValidator() *Validator {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &Validator{sanitizer: p}
}

// Validate はペイロードを検証し、正規化済みのEventを返す。
// 検証内容:
//   - title: 前後空白を除去した上で必須
//   - start/end: 必須かつ解析可能、end >= start
//   - color: 閉じた列挙のいずれか。未指定の場合はblue
//
// ID・タイムスタンプは設定しない（ストアゲートウェイが付与する）。
func (v *Validator) Validate(payload model.EventPayload) (*model.Event, error) {
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return nil, model.NewTitleRequiredError()
	}

	start, err := parseTime(payload.Start)
	if err != nil {
		return nil, model.NewInvalidDateError("start", payload.Start)
	}

	end, err := parseTime(payload.End)
	if err != nil {
		return nil, model.NewInvalidDateError("end", payload.End)
	}

	if end.Before(start) {
		return nil, model.NewEndBeforeStartError()
	}

	color := model.ColorBlue
	if c := strings.TrimSpace(payload.Color); c != "" {
		color = model.EventColor(c)
		if !color.IsValid() {
			return nil, model.NewInvalidColorError(c)
		}
	}

	return &model.Event{
		Title:       title,
		Start:       start,
		End:         end,
		Color:       color,
		Organizer:   strings.TrimSpace(payload.Organizer),
		Description: v.sanitizer.Sanitize(strings.TrimSpace(payload.Description)),
		Location:    strings.TrimSpace(payload.Location),
	}, nil
}

// parseTime は受け付け可能なレイアウトを順に試す。
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &time.ParseError{Value: value}
	}

	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
