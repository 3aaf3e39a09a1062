package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// MaxImageURLLength logo地址最大长度(字节)
const MaxImageURLLength = 2048

var (
	// domainRegex 域名格式校验: 字母数字开头,至少一个点,TLD至少2位字母
	domainRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-_.]*\.[a-zA-Z]{2,}$`)

	// schemeRegex 剥离输入中的协议前缀
	schemeRegex = regexp.MustCompile(`^https?://`)

	// invalidTLDs 保留/测试用TLD,不可能是真实站点
	invalidTLDs = map[string]bool{
		"local":     true,
		"localhost": true,
		"test":      true,
		"invalid":   true,
		"example":   true,
	}

	// imageExtensions 常见图片扩展名
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".bmp", ".avif", ".apng"}

	// excludePatterns 明显不是logo的图片特征
	excludePatterns = []string{"avatar", "placeholder", "blank", "spacer", "pixel", "tracking", "1x1", "transparent"}
)

// SanitizeDomain 清洗并校验输入域名
// 剥离协议/路径/端口,统一小写;非法输入返回空字符串
func SanitizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = schemeRegex.ReplaceAllString(domain, "")
	domain = strings.TrimRight(domain, "/")

	// 去掉路径和端口
	if idx := strings.Index(domain, "/"); idx >= 0 {
		domain = domain[:idx]
	}
	if idx := strings.Index(domain, ":"); idx >= 0 {
		domain = domain[:idx]
	}

	if domain == "" {
		return ""
	}

	if !domainRegex.MatchString(domain) {
		return ""
	}

	// 拒绝保留TLD
	tld := domain[strings.LastIndex(domain, ".")+1:]
	if invalidTLDs[tld] {
		return ""
	}

	// 域名不能只是一个公共后缀(如 "co.uk")
	if suffix, _ := publicsuffix.PublicSuffix(domain); suffix == domain {
		return ""
	}

	return domain
}

// IsValidImageURL 判断URL是否像一个可用的logo图片
// 过滤追踪像素、占位图等明显非logo的资源
func IsValidImageURL(rawURL string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || len(rawURL) > MaxImageURLLength {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" && parsed.Scheme != "data" {
		return false
	}

	lowerURL := strings.ToLower(rawURL)
	urlPath := lowerURL
	if parsed.Path != "" {
		urlPath = strings.ToLower(parsed.Path)
	}

	hasExtension := false
	for _, ext := range imageExtensions {
		if strings.HasSuffix(urlPath, ext) {
			hasExtension = true
			break
		}
	}

	isDataURL := strings.HasPrefix(rawURL, "data:image/")
	looksLikeImage := hasExtension || isDataURL ||
		strings.Contains(urlPath, "/logo") || strings.Contains(urlPath, "/icon")

	for _, pattern := range excludePatterns {
		if strings.Contains(lowerURL, pattern) {
			return false
		}
	}

	return looksLikeImage
}

// NormalizeURL 将候选地址规整为绝对URL
// 处理协议相对地址(//host/x)和相对路径;data: URL原样返回
func NormalizeURL(baseURL string, rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	rawURL = strings.Trim(rawURL, `"'`)
	rawURL = strings.TrimSpace(rawURL)

	if rawURL == "" {
		return ""
	}

	if strings.HasPrefix(rawURL, "data:") {
		return rawURL
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	// 协议相对地址补全协议
	if strings.HasPrefix(rawURL, "//") {
		rawURL = base.Scheme + ":" + rawURL
	}

	ref, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return base.ResolveReference(ref).String()
}
