package extract

import (
	"strings"

	"github.com/RecoveryAshes/logocrawl/internal/utils"
)

// Candidate 渲染页面内JS收集到的一个logo候选
// Priority越小越优先
type Candidate struct {
	URL      string `json:"url"`
	Priority int    `json:"priority"`
	Source   string `json:"source"`
}

// PickCandidate 从候选列表中选出第一个通过校验的logo地址
// 列表已由页面内JS按优先级排序
func PickCandidate(candidates []Candidate) string {
	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		if strings.HasPrefix(c.URL, "data:image/") {
			return c.URL
		}
		if utils.IsValidImageURL(c.URL) {
			return c.URL
		}
	}
	return ""
}

// LogoExtractionJS 在渲染后的页面内收集logo候选
// 策略优先级: 内联SVG > logo相关<img> > 路径含logo的<img> > apple-touch-icon
// > favicon链接 > 背景图 > 头部区域任意<img>,同策略内SVG格式优于位图
const LogoExtractionJS = `
() => {
    const results = [];
    const seenUrls = new Set();

    function addResult(url, priority, source) {
        if (!url || seenUrls.has(url)) return;
        seenUrls.add(url);
        try {
            url = new URL(url, document.baseURI).href;
        } catch (e) {
            return;
        }
        results.push({ url, priority, source });
    }

    function isLogoRelated(text) {
        if (!text) return false;
        const lower = text.toLowerCase();
        return /logo|brand|header|navbar|site-|company/.test(lower);
    }

    function getExtPriority(url) {
        const lower = url.toLowerCase();
        if (lower.includes('.svg')) return 0;
        if (lower.includes('.png')) return 1;
        if (lower.includes('.jpg') || lower.includes('.jpeg')) return 2;
        if (lower.includes('.webp')) return 3;
        if (lower.includes('.ico')) return 4;
        if (lower.includes('.gif')) return 5;
        return 6;
    }

    const imgs = document.querySelectorAll('img');
    for (const img of imgs) {
        const alt = img.alt || '';
        const className = img.className || '';
        const id = img.id || '';
        const src = img.src || img.dataset?.src || img.dataset?.lazySrc || '';

        const attrs = [alt, className, id, src].join(' ');
        if (isLogoRelated(attrs)) {
            const url = img.src || img.dataset?.src || img.dataset?.lazySrc ||
                       img.dataset?.original || img.dataset?.url;
            if (url) {
                addResult(url, 10 + getExtPriority(url), 'img-logo');
            }
        }
    }

    const iconLinks = document.querySelectorAll(
        'link[rel="icon"], link[rel="shortcut icon"], link[rel="apple-touch-icon"], link[rel="apple-touch-icon-precomposed"]'
    );
    for (const link of iconLinks) {
        const href = link.href;
        if (href) {
            const isApple = link.rel.includes('apple');
            const priority = isApple ? 25 : 30 + getExtPriority(href);
            addResult(href, priority, 'link-icon');
        }
    }

    const headerAreas = document.querySelectorAll('header, nav, [class*="header"], [class*="nav"], [class*="logo"]');
    for (const area of headerAreas) {
        const svgs = area.querySelectorAll('svg');
        for (const svg of svgs) {
            const svgStr = new XMLSerializer().serializeToString(svg);
            if (svgStr.length > 50 && svgStr.length < 50000) {
                const dataUrl = 'data:image/svg+xml;base64,' + btoa(unescape(encodeURIComponent(svgStr)));
                addResult(dataUrl, 5, 'inline-svg');
            }
        }
    }

    for (const img of imgs) {
        const src = img.src || '';
        if (src && (src.includes('/logo') || src.includes('/brand'))) {
            addResult(src, 15 + getExtPriority(src), 'img-path');
        }
    }

    for (const area of headerAreas) {
        const areaImgs = area.querySelectorAll('img');
        for (const img of areaImgs) {
            const src = img.src || img.dataset?.src;
            if (src) {
                addResult(src, 40 + getExtPriority(src), 'header-img');
            }
        }
    }

    const styled = document.querySelectorAll('[style*="background"]');
    for (const el of styled) {
        const style = el.getAttribute('style') || '';
        const match = style.match(/url\(['"]?([^'"\)]+)['"]?\)/i);
        if (match && match[1]) {
            const url = match[1];
            if (isLogoRelated(url) || isLogoRelated(el.className)) {
                addResult(url, 35 + getExtPriority(url), 'bg-image');
            }
        }
    }

    results.sort((a, b) => a.priority - b.priority);
    return results.slice(0, 10);
}
`

// FaviconJS 兜底策略: 取<link rel=icon>地址,没有则回落到/favicon.ico
const FaviconJS = `
() => {
    const iconLink = document.querySelector(
        'link[rel="icon"], link[rel="shortcut icon"]'
    );
    if (iconLink && iconLink.href) {
        return iconLink.href;
    }
    return new URL('/favicon.ico', document.baseURI).href;
}
`
