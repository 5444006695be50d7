// Package security は外部カレンダーフィード取得時のセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// FetchGuardService はフィードURLの検証とSSRF防止付きHTTPクライアントの
// 生成を定義する。フィード登録時と定期リフレッシュ時の両方で使用される。
type FetchGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// safeurlライブラリにより、プライベートIP、ループバック、リンクローカル、
	// クラウドメタデータIPへのリクエストが自動的にブロックされる。
	// DNS解決後のIPアドレスもDialerレベルで検証されるため、
	// DNS再バインディング攻撃にも対応している。
	NewSafeClient(timeout time.Duration) *http.Client

	// NormalizeFeedURL はwebcal://スキームをhttps://へ書き換え、
	// URLの安全性を静的に検証する。登録・リフレッシュに先立つ事前チェックであり、
	// 正規化済みのURLを返す。
	NormalizeFeedURL(rawURL string) (string, error)
}

// feedSchemes はカレンダーフィードとして受け付けるURLスキーム。
// webcalはNormalizeFeedURLでhttpsへ正規化される。
var feedSchemes = []string{"http", "https"}

// blockedNetworks は取得先として拒否するネットワーク範囲。
// パッケージ初期化時に1回だけパースする。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック (RFC 1122)
		"127.0.0.0/8",
		// リンクローカル (RFC 3927) - クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6ループバック
		"::1/128",
		// IPv6リンクローカル
		"fe80::/10",
		// IPv6ユニークローカル
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

type fetchGuard struct{}

// NewFetchGuard はFetchGuardServiceの新しいインスタンスを生成する。
func NewFetchGuard() *fetchGuard {
	return &fetchGuard{}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// NormalizeFeedURLの静的チェックをすり抜けたホスト名解決もここでブロックされる。
func (g *fetchGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(feedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	wrapped := safeurl.Client(config)
	return wrapped.Client
}

// NormalizeFeedURL はwebcal://をhttps://へ書き換えた上でURLを静的に検証する。
// DNS解決は行わない。ホストがIPアドレスリテラルの場合はブロック対象CIDRと
// 照合し、ホスト名の場合はlocalhost等の明白に危険な名前のみ拒否する。
func (g *fetchGuard) NormalizeFeedURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	// GoogleカレンダーやiCloudの共有リンクはwebcal://で配布される
	if strings.EqualFold(parsed.Scheme, "webcal") {
		parsed.Scheme = "https"
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isFeedScheme(scheme) {
		return "", fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, feedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return "", fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return "", fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return parsed.String(), nil
	}

	if isBlockedHostname(host) {
		return "", fmt.Errorf("blocked host: %s", host)
	}

	return parsed.String(), nil
}

func isFeedScheme(scheme string) bool {
	for _, allowed := range feedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isBlockedIP はIPアドレスがブロック対象のネットワーク範囲に含まれるかを検証する。
func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

var blockedHostnames = []string{
	"localhost",
}

func isBlockedHostname(host string) bool {
	lower := strings.ToLower(host)
	for _, blocked := range blockedHostnames {
		if lower == blocked {
			return true
		}
	}
	return false
}
