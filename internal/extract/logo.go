// Package extract 实现logo候选的提取与筛选
// 静态阶段基于goquery解析HTML,渲染阶段在页面内执行JS收集候选。
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RecoveryAshes/logocrawl/internal/utils"
)

// lazyAttrs 懒加载图片的常见属性,按优先级排列
var lazyAttrs = []string{"data-src", "data-lazy-src", "data-original", "data-url"}

// styleURLRegex 提取内联样式中的 url(...) 引用
var styleURLRegex = regexp.MustCompile(`(?i)url\((.*?)\)`)

// ExtractFromHTML 从静态HTML中提取第一个可用的logo地址
// 依次尝试: <img>标签(含懒加载/srcset) -> 内联样式背景图 -> 内联SVG
// 找不到返回空字符串
func ExtractFromHTML(html string, baseURL string) string {
	if html == "" || baseURL == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if logo := extractFromImgTags(doc, baseURL); logo != "" {
		return logo
	}
	if logo := extractFromInlineStyles(doc, baseURL); logo != "" {
		return logo
	}
	return extractFromInlineSVG(doc)
}

// extractFromImgTags 遍历<img>标签找第一个合法图片地址
func extractFromImgTags(doc *goquery.Document, baseURL string) string {
	var found string

	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")

		// 懒加载属性兜底
		if src == "" {
			for _, attr := range lazyAttrs {
				if v, ok := s.Attr(attr); ok && v != "" {
					src = v
					break
				}
			}
		}

		// srcset取第一个候选
		if src == "" {
			if srcset, ok := s.Attr("srcset"); ok {
				src = firstSrcsetURL(srcset)
			}
		}

		if src == "" {
			return true
		}

		fullURL := utils.NormalizeURL(baseURL, src)
		if strings.HasPrefix(fullURL, "data:") {
			found = fullURL
			return false
		}
		if utils.IsValidImageURL(fullURL) {
			found = fullURL
			return false
		}
		return true
	})

	return found
}

// extractFromInlineStyles 检查内联style属性中的背景图
func extractFromInlineStyles(doc *goquery.Document, baseURL string) string {
	var found string

	doc.Find("[style]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		if !strings.Contains(strings.ToLower(style), "url(") {
			return true
		}

		for _, match := range styleURLRegex.FindAllStringSubmatch(style, -1) {
			raw := strings.TrimSpace(strings.Trim(strings.TrimSpace(match[1]), `"'`))
			if raw == "" {
				continue
			}

			fullURL := utils.NormalizeURL(baseURL, raw)
			if strings.HasPrefix(fullURL, "data:") || utils.IsValidImageURL(fullURL) {
				found = fullURL
				return false
			}
		}
		return true
	})

	return found
}

// extractFromInlineSVG 把页面中第一个有实际内容的内联SVG转成data URL
func extractFromInlineSVG(doc *goquery.Document) string {
	var found string

	doc.Find("svg").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		svgStr, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		svgStr = strings.TrimSpace(svgStr)
		// 太短的SVG多半是占位空元素
		if len(svgStr) < 30 {
			return true
		}

		found = "data:image/svg+xml;utf8," + svgStr
		return false
	})

	return found
}

// firstSrcsetURL 从srcset属性取第一个URL
func firstSrcsetURL(srcset string) string {
	for _, part := range strings.Split(srcset, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}
