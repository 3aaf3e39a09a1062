package crawlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/RecoveryAshes/logocrawl/internal/config"
	"github.com/RecoveryAshes/logocrawl/internal/extract"
	"github.com/RecoveryAshes/logocrawl/internal/models"
	"github.com/RecoveryAshes/logocrawl/internal/utils"
)

// ErrBrowserCrashed 浏览器崩溃或连接断开
var ErrBrowserCrashed = errors.New("浏览器崩溃")

// RenderCrawlerConfig 渲染爬取器配置
type RenderCrawlerConfig struct {
	Headless      bool          // 无头模式
	Tabs          int           // 标签页池大小
	PageMaxUses   int           // 单标签页复用次数上限
	NavTimeout    time.Duration // 单次导航超时
	PostNavDelay  time.Duration // 导航后固定等待
	DomainTimeout time.Duration // 单域名硬超时
}

// RenderCrawler 渲染爬取器(使用Rod)
// 职责: 为静态阶段失败的域名做完整浏览器渲染,管理浏览器进程、
// 隐身上下文、标签页池和每上下文的伪装身份
type RenderCrawler struct {
	config RenderCrawlerConfig

	// 浏览器根连接,整个渲染阶段只启动一个浏览器进程
	browser *rod.Browser
	// 当前隐身上下文,轮换时整体替换
	current *rod.Browser

	pool      *PagePool
	antiBlock *AntiBlocking

	// 当前上下文的伪装身份,轮换时重新随机
	userAgent string
	viewport  config.Viewport
	mu        sync.RWMutex
}

// NewRenderCrawler 创建渲染爬取器,不启动浏览器
func NewRenderCrawler(cfg RenderCrawlerConfig, antiBlock *AntiBlocking) *RenderCrawler {
	return &RenderCrawler{
		config:    cfg,
		antiBlock: antiBlock,
	}
}

// Launch 启动浏览器进程并搭建首个隐身上下文和标签页池
// 失败是系统性错误,渲染阶段无法进行
func (rc *RenderCrawler) Launch() error {
	l := launcher.New().
		Headless(rc.config.Headless).
		Set("ignore-certificate-errors").
		Set("disable-gpu").
		Set("no-first-run")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}

	rc.browser = rod.New().ControlURL(controlURL)
	if err := rc.browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	utils.Debugf("浏览器已启动: %s", controlURL)

	current, err := rc.newContext()
	if err != nil {
		rc.closeBrowser()
		return err
	}
	rc.current = current

	pool, err := NewPagePool(current, PagePoolConfig{
		Size:        rc.config.Tabs,
		PageMaxUses: rc.config.PageMaxUses,
	}, rc.createPage)
	if err != nil {
		rc.closeBrowser()
		return fmt.Errorf("初始化标签页池失败: %w", err)
	}
	rc.pool = pool

	utils.Infof("🚀 渲染引擎就绪: %d个标签页", rc.config.Tabs)
	return nil
}

// newContext 创建新的隐身上下文并随机一套新身份
func (rc *RenderCrawler) newContext() (*rod.Browser, error) {
	incognito, err := rc.browser.Incognito()
	if err != nil {
		// 上下文创建失败几乎只在浏览器进程异常时出现
		return nil, fmt.Errorf("%w: 创建隐身上下文失败: %v", ErrBrowserCrashed, err)
	}

	rc.mu.Lock()
	rc.userAgent = rc.antiBlock.RandomUserAgent()
	rc.viewport = rc.antiBlock.RandomViewport()
	rc.mu.Unlock()

	return incognito, nil
}

// createPage 标签页工厂: 新建标签页并套上当前上下文的身份
func (rc *RenderCrawler) createPage(b *rod.Browser) (*rod.Page, error) {
	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}

	rc.mu.RLock()
	ua := rc.userAgent
	vp := rc.viewport
	rc.mu.RUnlock()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("设置User-Agent失败: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("设置视窗失败: %w", err)
	}

	return page, nil
}

// Pool 标签页池
func (rc *RenderCrawler) Pool() *PagePool {
	return rc.pool
}

// Rotate 轮换浏览器上下文
// 调用方必须保证此刻没有在途任务;旧上下文的页全部丢弃,
// 标签页池在新上下文上重建
func (rc *RenderCrawler) Rotate() error {
	fresh, err := rc.newContext()
	if err != nil {
		return err
	}

	if err := rc.pool.Rebuild(fresh); err != nil {
		return err
	}

	old := rc.current
	rc.current = fresh
	if old != nil {
		disposeContext(old)
	}

	utils.Infof("🔄 浏览器上下文已轮换")
	return nil
}

// ProcessDomain 渲染处理一个域名
// 整个域名受DomainTimeout硬限制;依次渲染URL变体,变体内部:
// 导航(只等DOMContentLoaded) -> 固定等待 -> 挑战检测 -> 弹窗清理 -> 提取。
// 全部变体落空后在最后一个成功加载的文档上做favicon兜底。
func (rc *RenderCrawler) ProcessDomain(ctx context.Context, handle *PageHandle, domain string) (result models.Result) {
	result = models.Result{Domain: domain}

	page := handle.Page()
	if page == nil {
		// 上一轮替换失败留下的空句柄,本域名按失败处理
		utils.Warnf("标签页句柄为空,域名按失败处理: %s", domain)
		return result
	}

	// 渲染中页面崩溃会让rod panic,单域名失败不拖垮整个阶段
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("渲染域名panic [%s]: %v", domain, r)
			result = models.Result{Domain: domain}
		}
	}()

	dctx, cancel := context.WithTimeout(ctx, rc.config.DomainTimeout)
	defer cancel()
	p := page.Context(dctx)

	// 域名间随机限速
	rc.antiBlock.RandomDelay(dctx)
	if dctx.Err() != nil {
		return result
	}

	var lastLoaded *rod.Page
	for _, variant := range domainVariants(domain) {
		if dctx.Err() != nil {
			return result
		}

		if err := rc.navigate(p, variant); err != nil {
			utils.Debugf("渲染导航失败 [%s]: %v", variant, err)
			continue
		}
		lastLoaded = p

		// 等待JS渲染出首屏内容
		select {
		case <-dctx.Done():
			return result
		case <-time.After(rc.config.PostNavDelay):
		}

		if rc.antiBlock.DetectChallenge(p) {
			utils.Debugf("检测到挑战页,放弃变体: %s", variant)
			continue
		}

		rc.dismissOverlays(p)

		if logo := rc.extractLogo(p); logo != "" {
			utils.Debugf("渲染阶段命中logo [%s]: %s", domain, logo)
			result.LogoURL = logo
			result.Found = true
			return result
		}
	}

	// 所有变体都没提取到,favicon兜底一次
	if lastLoaded != nil && dctx.Err() == nil {
		if favicon := rc.extractFavicon(lastLoaded); favicon != "" {
			utils.Debugf("favicon兜底命中 [%s]: %s", domain, favicon)
			result.LogoURL = favicon
			result.Found = true
		}
	}

	return result
}

// navigate 导航到目标URL,只等DOMContentLoaded
// 长尾站点常有慢资源,等完整load会烧掉整个域名预算
func (rc *RenderCrawler) navigate(page *rod.Page, target string) error {
	p := page.Timeout(rc.config.NavTimeout)

	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(target); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	wait()

	// wait超时不报错,用readyState确认文档真的就绪
	obj, err := p.Eval(`() => document.readyState`)
	if err != nil {
		return fmt.Errorf("页面未就绪: %w", err)
	}
	if state := obj.Value.Str(); state != "interactive" && state != "complete" {
		return fmt.Errorf("页面未就绪: readyState=%s", state)
	}

	return nil
}

// dismissOverlays 尽力关掉cookie横幅和遮罩弹窗
// 任何失败都静默忽略,弹窗挡不挡得住都继续提取
func (rc *RenderCrawler) dismissOverlays(page *rod.Page) {
	defer func() { _ = recover() }()

	clicked := false
	for _, pattern := range config.CookieAcceptPatterns {
		p := page.Timeout(800 * time.Millisecond)
		if el, err := p.ElementR("button, [role=button], a", pattern); err == nil && el != nil {
			if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
				clicked = true
				break
			}
		}
	}

	if !clicked {
		for _, sel := range config.CookieAcceptSelectors {
			p := page.Timeout(500 * time.Millisecond)
			if has, el, err := p.Has(sel); err == nil && has && el != nil {
				_ = el.Click(proto.InputMouseButtonLeft, 1)
				break
			}
		}
	}

	for _, sel := range config.OverlaySelectors {
		p := page.Timeout(500 * time.Millisecond)
		if has, el, err := p.Has(sel); err == nil && has && el != nil {
			_ = el.Click(proto.InputMouseButtonLeft, 1)
		}
	}
}

// extractLogo 在页面内执行提取JS并筛选候选
func (rc *RenderCrawler) extractLogo(page *rod.Page) string {
	obj, err := page.Eval(extract.LogoExtractionJS)
	if err != nil {
		utils.Debugf("执行提取JS失败: %v", err)
		return ""
	}

	data, err := json.Marshal(obj.Value)
	if err != nil {
		return ""
	}

	var candidates []extract.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		utils.Debugf("解析提取候选失败: %v", err)
		return ""
	}

	return extract.PickCandidate(candidates)
}

// extractFavicon favicon兜底提取
func (rc *RenderCrawler) extractFavicon(page *rod.Page) string {
	obj, err := page.Eval(extract.FaviconJS)
	if err != nil {
		return ""
	}

	favicon := obj.Value.Str()
	if favicon == "" || !utils.IsValidImageURL(favicon) {
		return ""
	}
	return favicon
}

// Close 关闭标签页池、上下文和浏览器进程
func (rc *RenderCrawler) Close() {
	if rc.pool != nil {
		rc.pool.Close()
	}
	if rc.current != nil {
		disposeContext(rc.current)
		rc.current = nil
	}
	rc.closeBrowser()
}

func (rc *RenderCrawler) closeBrowser() {
	if rc.browser != nil {
		if err := rc.browser.Close(); err != nil {
			utils.Warnf("关闭浏览器失败: %v", err)
		}
		rc.browser = nil
		utils.Debugf("浏览器已关闭")
	}
}

// disposeContext 销毁一个隐身上下文
func disposeContext(b *rod.Browser) {
	err := proto.TargetDisposeBrowserContext{
		BrowserContextID: b.BrowserContextID,
	}.Call(b)
	if err != nil {
		utils.Warnf("销毁浏览器上下文失败: %v", err)
	}
}
