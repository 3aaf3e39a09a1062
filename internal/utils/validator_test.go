package utils

import (
	"strings"
	"testing"
)

func TestSanitizeDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"纯域名", "example.com", "example.com"},
		{"带HTTPS协议", "https://example.com", "example.com"},
		{"带HTTP协议", "http://example.com", "example.com"},
		{"带路径", "example.com/about/us", "example.com"},
		{"带端口", "example.com:8080", "example.com"},
		{"大写转小写", "EXAMPLE.COM", "example.com"},
		{"前后空白", "  example.com  ", "example.com"},
		{"协议加路径加端口", "https://Shop.Example.co.uk:443/index.html", "shop.example.co.uk"},
		{"子域名", "cdn.assets.example.org", "cdn.assets.example.org"},
		{"空字符串", "", ""},
		{"仅空白", "   ", ""},
		{"无TLD", "localhost", ""},
		{"无效字符", "exa mple.com", ""},
		{"伪TLD", "example.invalid", ""},
		{"纯公共后缀", "co.uk", ""},
		{"以点开头", ".example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDomain(tt.input); got != tt.want {
				t.Errorf("SanitizeDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidImageURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"PNG图片", "https://example.com/logo.png", true},
		{"SVG图片", "https://example.com/assets/logo.svg", true},
		{"带查询参数的图片", "https://cdn.example.com/logo.webp?v=3", true},
		{"data图片URL", "data:image/png;base64,iVBORw0KGgo=", true},
		{"路径含logo提示", "https://example.com/static/logo-header", true},
		{"路径含icon提示", "https://example.com/icons/site-32", true},
		{"非图片扩展", "https://example.com/app.js", false},
		{"空URL", "", false},
		{"javascript伪协议", "javascript:void(0)", false},
		{"跟踪像素", "https://example.com/pixel.gif?track=1", false},
		{"占位图", "https://example.com/img/placeholder.png", false},
		{"一像素图", "https://example.com/1x1.png", false},
		{"超长URL", "https://example.com/" + strings.Repeat("a", MaxImageURLLength) + ".png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidImageURL(tt.url); got != tt.want {
				t.Errorf("IsValidImageURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		raw  string
		want string
	}{
		{"绝对URL保持不变", "https://example.com", "https://cdn.example.com/logo.png", "https://cdn.example.com/logo.png"},
		{"相对路径补全", "https://example.com", "/img/logo.png", "https://example.com/img/logo.png"},
		{"协议相对URL", "https://example.com", "//cdn.example.com/logo.png", "https://cdn.example.com/logo.png"},
		{"data URL原样返回", "https://example.com", "data:image/svg+xml;base64,PHN2Zz4=", "data:image/svg+xml;base64,PHN2Zz4="},
		{"去除引号", "https://example.com", "\"/logo.png\"", "https://example.com/logo.png"},
		{"空URL", "https://example.com", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.base, tt.raw); got != tt.want {
				t.Errorf("NormalizeURL(%q, %q) = %q, want %q", tt.base, tt.raw, got, tt.want)
			}
		})
	}
}

func TestReadDomains(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		maxDomains   int
		wantList     []string
		wantReceived int
	}{
		{"常规列表", "example.com\nfoo.org\n", 1000, []string{"example.com", "foo.org"}, 2},
		{"跳过空行和注释", "example.com\n\n# 注释\nfoo.org\n", 1000, []string{"example.com", "foo.org"}, 2},
		{"超出上限截断", "a.com\nb.com\nc.com\n", 2, []string{"a.com", "b.com"}, 3},
		{"空输入", "", 1000, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, received, err := ReadDomains(strings.NewReader(tt.input), tt.maxDomains)
			if err != nil {
				t.Fatalf("ReadDomains() error = %v", err)
			}
			if received != tt.wantReceived {
				t.Errorf("ReadDomains() received = %d, want %d", received, tt.wantReceived)
			}
			if len(list) != len(tt.wantList) {
				t.Fatalf("ReadDomains() 返回 %d 条, 期望 %d 条", len(list), len(tt.wantList))
			}
			for i := range list {
				if list[i] != tt.wantList[i] {
					t.Errorf("ReadDomains()[%d] = %q, want %q", i, list[i], tt.wantList[i])
				}
			}
		})
	}
}
