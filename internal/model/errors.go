// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, event, feed, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeTitleRequired    = "TITLE_REQUIRED"
	ErrCodeInvalidDate      = "INVALID_DATE"
	ErrCodeEndBeforeStart   = "END_BEFORE_START"
	ErrCodeInvalidColor     = "INVALID_COLOR"
	ErrCodeMissingID        = "MISSING_ID"
	ErrCodeEventNotFound    = "EVENT_NOT_FOUND"
	ErrCodeInvalidView      = "INVALID_VIEW"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeSSRFBlocked      = "SSRF_BLOCKED"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeParseFailed      = "PARSE_FAILED"
	ErrCodeFeedNotDetected  = "FEED_NOT_DETECTED"
	ErrCodeFeedNotFound     = "FEED_NOT_FOUND"
	ErrCodeDuplicateFeed    = "DUPLICATE_FEED"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewTitleRequiredError はタイトル未入力エラーを生成する。
func NewTitleRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTitleRequired,
		Message:  "予定のタイトルを入力してください。",
		Category: "validation",
		Action:   "タイトルは空にできません。",
	}
}

// NewInvalidDateError は日時解析失敗エラーを生成する。
// fieldには"start"または"end"を指定する。
func NewInvalidDateError(field, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("日時を解析できません: %s=%q", field, value),
		Category: "validation",
		Action:   "日時はRFC3339形式（2024-01-08T09:00:00Z）または 2024-01-08T09:00 形式で指定してください。",
	}
}

// NewEndBeforeStartError は終了日時が開始日時より前の場合のエラーを生成する。
func NewEndBeforeStartError() *APIError {
	return &APIError{
		Code:     ErrCodeEndBeforeStart,
		Message:  "終了日時は開始日時以降である必要があります。",
		Category: "validation",
		Action:   "開始日時と終了日時を確認してください。",
	}
}

// NewInvalidColorError は許可されない色が指定された場合のエラーを生成する。
func NewInvalidColorError(color string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidColor,
		Message:  fmt.Sprintf("無効な色です: %s", color),
		Category: "validation",
		Action:   "色には blue、red、green、yellow、purple、orange のいずれかを指定してください。",
	}
}

// NewMissingIDError はIDが未指定の場合のエラーを生成する。
func NewMissingIDError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingID,
		Message:  "予定のIDが指定されていません。",
		Category: "validation",
		Action:   "更新・削除にはIDの指定が必要です。",
	}
}

// NewEventNotFoundError は予定未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定された予定が見つかりません: %s", eventID),
		Category: "event",
		Action:   "予定IDを確認してください。",
	}
}

// NewInvalidViewError は無効なビュー粒度エラーを生成する。
func NewInvalidViewError(view string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidView,
		Message:  fmt.Sprintf("無効なビューです: %s", view),
		Category: "validation",
		Action:   "ビューには day、week、month のいずれかを指定してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているカレンダーのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("URLの取得に失敗しました: %s", reason),
		Category: "feed",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewParseFailedError はICS解析失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "iCalendarデータの解析に失敗しました。",
		Category: "feed",
		Action:   "有効なICSファイルかどうか確認してください。",
	}
}

// NewFeedNotDetectedError はICSフィード未検出エラーを生成する。
func NewFeedNotDetectedError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotDetected,
		Message:  fmt.Sprintf("指定されたURLからICSカレンダーを検出できませんでした: %s", url),
		Category: "feed",
		Action:   "ICSファイルのURLを直接入力するか、カレンダーが公開されているページのURLを確認してください。",
	}
}

// NewFeedNotFoundError は購読未検出エラーを生成する。
func NewFeedNotFoundError(feedID string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotFound,
		Message:  fmt.Sprintf("指定された購読が見つかりません: %s", feedID),
		Category: "feed",
		Action:   "購読IDを確認してください。",
	}
}

// NewDuplicateFeedError は既に購読済みのカレンダーを再度登録しようとした場合のエラーを生成する。
func NewDuplicateFeedError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateFeed,
		Message:  "このカレンダーは既に購読しています。",
		Category: "feed",
		Action:   "購読一覧から該当カレンダーを確認してください。",
	}
}

// NewStoreUnavailableError はストア到達不能エラーを生成する。
func NewStoreUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  fmt.Sprintf("データストアに接続できません: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
