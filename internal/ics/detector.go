package ics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/calman/internal/model"
	"github.com/hitoshi/calman/internal/security"
)

// CalendarCandidate はHTMLから検出されたカレンダーフィード候補を表す。
type CalendarCandidate struct {
	URL   string
	Title string
}

// Detector はカレンダーフィードURLの自動検出機能を提供する。
// 入力URLがICSそのものか、ICSへのlinkを持つHTMLページかを判定する。
type Detector struct {
	guard        security.FetchGuardService
	fetchTimeout time.Duration
	maxBodySize  int64
}

// NewDetector はDetectorの新しいインスタンスを生成する。
func NewDetector(guard security.FetchGuardService, fetchTimeout time.Duration, maxBodySize int64) *Detector {
	return &Detector{
		guard:        guard,
		fetchTimeout: fetchTimeout,
		maxBodySize:  maxBodySize,
	}
}

// calendarContentTypes はICSとして認識するContent-Typeのリスト。
var calendarContentTypes = []string{
	"text/calendar",
	"application/ics",
}

// IsDirectCalendar はContent-Typeとボディを解析して、
// レスポンスがiCalendarデータかどうかを判定する。
// Content-Typeを誤設定しているサーバーのために、ボディの先頭も検査する。
func (d *Detector) IsDirectCalendar(contentType string, body []byte) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)

	for _, calCT := range calendarContentTypes {
		if mediaType == calCT {
			return true
		}
	}

	// BEGIN:VCALENDARで始まればContent-Typeに関わらずICSとみなす
	trimmed := bytes.TrimLeft(body, " \t\r\n\uFEFF")
	return bytes.HasPrefix(trimmed, []byte("BEGIN:VCALENDAR"))
}

// ParseCalendarLinksFromHTML はHTMLのheadタグからカレンダーフィードリンクを検出する。
// rel="alternate" type="text/calendar" のlink要素が対象で、
// 相対URLはbaseURLを基準に絶対URLへ解決される。
func (d *Detector) ParseCalendarLinksFromHTML(htmlBody []byte, baseURL string) []CalendarCandidate {
	var candidates []CalendarCandidate

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return candidates
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return candidates

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}

			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				return candidates
			}

			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href, title string
			for {
				key, val, more := tokenizer.TagAttr()
				k := strings.ToLower(string(key))
				v := string(val)
				switch k {
				case "rel":
					rel = strings.ToLower(v)
				case "type":
					linkType = strings.ToLower(v)
				case "href":
					href = v
				case "title":
					title = v
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" {
				continue
			}
			if !isCalendarLinkType(linkType) {
				continue
			}

			resolvedURL := resolveURL(baseU, href)
			if resolvedURL == "" {
				continue
			}

			candidates = append(candidates, CalendarCandidate{
				URL:   resolvedURL,
				Title: title,
			})

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return candidates
			}
		}
	}
}

func isCalendarLinkType(linkType string) bool {
	for _, calCT := range calendarContentTypes {
		if linkType == calCT {
			return true
		}
	}
	return false
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// SelectBestCandidate は複数の候補から優先順位に従って最適なフィードを選択する。
// 優先順位: 入力URLと同一ホスト > 先頭
func (d *Detector) SelectBestCandidate(candidates []CalendarCandidate, inputURL string) *CalendarCandidate {
	if len(candidates) == 0 {
		return nil
	}

	inputHost := extractHost(inputURL)

	bestIdx := 0
	bestScore := -1
	for i, c := range candidates {
		score := 0
		if extractHost(c.URL) == inputHost {
			score += 100
		}
		// 同スコアの場合はインデックスが小さい方を優先する
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return &candidates[bestIdx]
}

func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// DetectCalendarURL は入力URLがICSかHTMLかを判定し、購読すべきICSのURLを返す。
//  1. webcal正規化とSSRF検証を実行
//  2. URLにHTTPリクエストを送信
//  3. Content-TypeとボディからICSかどうかを判定
//  4. HTMLの場合はheadタグからカレンダーリンクを検出し、優先順位で選択
//  5. 未検出の場合はエラー（原因カテゴリ + 対処方法）を返す
func (d *Detector) DetectCalendarURL(ctx context.Context, inputURL string) (string, error) {
	if inputURL == "" {
		return "", model.NewInvalidURLError("URLが入力されていません")
	}

	normalized, err := d.guard.NormalizeFeedURL(inputURL)
	if err != nil {
		return "", model.NewSSRFBlockedError()
	}

	client := d.guard.NewSafeClient(d.fetchTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return "", model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "Calman/1.0 Calendar")
	req.Header.Set("Accept", "text/calendar, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", model.NewFetchFailedError(fmt.Sprintf("HTTPステータス%d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBodySize))
	if err != nil {
		return "", model.NewFetchFailedError(fmt.Sprintf("レスポンスの読み取りに失敗: %v", err))
	}

	contentType := resp.Header.Get("Content-Type")

	if d.IsDirectCalendar(contentType, body) {
		return normalized, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.Contains(strings.ToLower(mediaType), "html") {
		return "", model.NewFeedNotDetectedError(inputURL)
	}

	candidates := d.ParseCalendarLinksFromHTML(body, normalized)
	if len(candidates) == 0 {
		return "", model.NewFeedNotDetectedError(inputURL)
	}

	best := d.SelectBestCandidate(candidates, normalized)
	if best == nil {
		return "", model.NewFeedNotDetectedError(inputURL)
	}

	// 検出されたリンク先も同じSSRF規則で検証する
	safeURL, err := d.guard.NormalizeFeedURL(best.URL)
	if err != nil {
		return "", model.NewSSRFBlockedError()
	}

	return safeURL, nil
}
