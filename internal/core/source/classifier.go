// Package source 判斷匯入內容的來源類型。
package source

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind 匯入來源類型
type Kind string

const (
	KindURL    Kind = "url"
	KindSocial Kind = "social"
	KindText   Kind = "text"
	KindImage  Kind = "image"
)

// Valid 檢查是否為已知類型
func (k Kind) Valid() bool {
	switch k {
	case KindURL, KindSocial, KindText, KindImage:
		return true
	}
	return false
}

// Platform 社群平台
type Platform string

const (
	PlatformNone      Platform = ""
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// Classification 分類結果，Platform 只在 Kind 為 social 時有值
type Classification struct {
	Kind     Kind     `json:"kind"`
	Platform Platform `json:"platform,omitempty"`
}

var urlPattern = regexp.MustCompile(`(?i)^https?://`)

// 已知社群網域，子網域一併視為該平台
var socialDomains = map[string]Platform{
	"instagram.com": PlatformInstagram,
	"instagr.am":    PlatformInstagram,
	"tiktok.com":    PlatformTikTok,
	"youtube.com":   PlatformYouTube,
	"youtu.be":      PlatformYouTube,
}

// Classifier 來源分類器，無狀態且不連網
type Classifier struct {
	domains map[string]Platform
}

// NewClassifier 建立使用預設社群網域的分類器
func NewClassifier() *Classifier {
	return &Classifier{domains: socialDomains}
}

// Classify 將輸入分為 url、social 或 text
func (c *Classifier) Classify(input string) Classification {
	trimmed := strings.TrimSpace(input)
	if !urlPattern.MatchString(trimmed) {
		return Classification{Kind: KindText}
	}

	if platform := c.platformFor(trimmed); platform != PlatformNone {
		return Classification{Kind: KindSocial, Platform: platform}
	}
	return Classification{Kind: KindURL}
}

func (c *Classifier) platformFor(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformNone
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return PlatformNone
	}
	for domain, platform := range c.domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return platform
		}
	}
	return PlatformNone
}
