package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"

	"github.com/RecoveryAshes/logocrawl/internal/config"
	"github.com/RecoveryAshes/logocrawl/internal/extract"
	"github.com/RecoveryAshes/logocrawl/internal/models"
	"github.com/RecoveryAshes/logocrawl/internal/utils"
)

// StaticCrawlerConfig 静态抓取阶段配置
type StaticCrawlerConfig struct {
	Timeout      time.Duration // 单请求总超时
	ConnectTO    time.Duration // 连接超时
	TLSTO        time.Duration // TLS握手超时
	ReadHeaderTO time.Duration // 响应头超时
	MaxIdleConns int           // 空闲连接池上限
	MinHTMLBytes int           // 有效HTML的最小字节数
}

// StaticCrawler 静态抓取器(使用Colly)
// 职责: 用普通HTTP请求便宜地尝试每个域名,能静态拿到logo的域名
// 不再进入昂贵的浏览器渲染阶段
type StaticCrawler struct {
	collector *colly.Collector
	config    StaticCrawlerConfig
}

// fetchCapture 单次请求的回调结果容器
// 通过colly请求context在回调间传递
type fetchCapture struct {
	statusCode int
	body       []byte
	finalURL   string
	err        error
}

const captureKey = "capture"

// NewStaticCrawler 创建静态抓取器
// 整个静态阶段共享一个collector和一个HTTP客户端,连接可被复用
func NewStaticCrawler(cfg StaticCrawlerConfig) *StaticCrawler {
	// 禁用TLS证书验证: 大量长尾域名的证书是过期/自签名/主机名不匹配的,
	// 这里只需要拿到HTML,不做任何敏感传输
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
			DialContext: (&net.Dialer{
				Timeout: cfg.ConnectTO,
			}).DialContext,
			TLSHandshakeTimeout:   cfg.TLSTO,
			ResponseHeaderTimeout: cfg.ReadHeaderTO,
			MaxIdleConns:          cfg.MaxIdleConns,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       30 * time.Second,
		},
		Timeout: cfg.Timeout,
	}

	// 同步collector: worker在自己的goroutine里逐个变体请求,
	// 并发由上层的semaphore控制
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	c.SetClient(httpClient)
	c.SetRequestTimeout(cfg.Timeout)

	sc := &StaticCrawler{
		collector: c,
		config:    cfg,
	}
	sc.setupCallbacks()

	return sc
}

// setupCallbacks 设置Colly回调
// 每个请求携带独立的capture对象,回调只往对应capture里写结果
func (sc *StaticCrawler) setupCallbacks() {
	sc.collector.OnRequest(func(r *colly.Request) {
		for name, value := range config.DefaultHeaders {
			r.Headers.Set(name, value)
		}
	})

	sc.collector.OnResponse(func(r *colly.Response) {
		capture, ok := r.Ctx.GetAny(captureKey).(*fetchCapture)
		if !ok {
			return
		}

		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, r.Body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", r.Request.URL, encoding, err)
			} else {
				body = decompressed
			}
		}

		capture.statusCode = r.StatusCode
		capture.body = body
		capture.finalURL = r.Request.URL.String()
	})

	sc.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Request == nil {
			return
		}
		if capture, ok := r.Ctx.GetAny(captureKey).(*fetchCapture); ok {
			capture.statusCode = r.StatusCode
			capture.err = err
		}
	})
}

// fetch 同步请求一个URL变体
func (sc *StaticCrawler) fetch(targetURL string) *fetchCapture {
	capture := &fetchCapture{}
	ctx := colly.NewContext()
	ctx.Put(captureKey, capture)

	if err := sc.collector.Request("GET", targetURL, nil, ctx, nil); err != nil {
		capture.err = err
	}
	return capture
}

// ProcessDomain 静态处理一个域名
// 返回的StaticOutcome三种形态:
//   - Found=true: 静态阶段已拿到logo,域名完结
//   - NeedsRender=true: 页面可达但无logo,或完全不可达,交给渲染阶段
//   - 两者都为false: 域名本身非法,终态失败
func (sc *StaticCrawler) ProcessDomain(rawDomain string) models.StaticOutcome {
	domain := utils.SanitizeDomain(rawDomain)
	if domain == "" {
		utils.Debugf("域名清洗失败,跳过: %q", rawDomain)
		return models.StaticOutcome{
			Result: models.Result{Domain: strings.TrimSpace(rawDomain)},
		}
	}

	return sc.tryVariants(domainVariants(domain), domain)
}

// tryVariants 按序尝试URL变体,第一个返回有效HTML的变体终止尝试
func (sc *StaticCrawler) tryVariants(variants []string, domain string) models.StaticOutcome {
	for _, variant := range variants {
		capture := sc.fetch(variant)

		if capture.err != nil {
			utils.Debugf("静态请求失败 [%s]: %v", variant, capture.err)
			continue
		}
		if capture.statusCode >= 400 || len(capture.body) < sc.config.MinHTMLBytes {
			utils.Debugf("静态响应不可用 [%s]: 状态码=%d, 长度=%d", variant, capture.statusCode, len(capture.body))
			continue
		}

		// 拿到了有效HTML,无论是否提取到logo都不再尝试后续变体
		baseURL := capture.finalURL
		if baseURL == "" {
			baseURL = variant
		}

		if logo := extract.ExtractFromHTML(string(capture.body), baseURL); logo != "" {
			utils.Debugf("静态阶段命中logo [%s]: %s", domain, logo)
			return models.StaticOutcome{
				Result: models.Result{Domain: domain, LogoURL: logo, Found: true},
			}
		}

		utils.Debugf("静态页面无logo,升级到渲染阶段: %s", domain)
		return models.StaticOutcome{
			Result:      models.Result{Domain: domain},
			NeedsRender: true,
		}
	}

	// 所有变体都不可达: 渲染引擎有时仍能打开这类站点,同样升级
	utils.Debugf("静态阶段所有变体不可达,升级到渲染阶段: %s", domain)
	return models.StaticOutcome{
		Result:      models.Result{Domain: domain},
		NeedsRender: true,
	}
}

// domainVariants 生成待尝试的URL变体
// HTTPS优先于HTTP,裸域优先于www;已带www前缀的域名不再叠加
func domainVariants(domain string) []string {
	if strings.HasPrefix(domain, "www.") {
		return []string{
			"https://" + domain,
			"http://" + domain,
		}
	}
	return []string{
		"https://" + domain,
		"https://www." + domain,
		"http://" + domain,
		"http://www." + domain,
	}
}

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "":
		return body, nil

	default:
		// 未知编码,原样返回
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
