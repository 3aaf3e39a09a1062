package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

var (
	// ErrPoolExhausted 在等待超时内没有标签页可用
	ErrPoolExhausted = errors.New("标签页池耗尽")
	// ErrPoolClosed 标签页池已关闭
	ErrPoolClosed = errors.New("标签页池已关闭")
)

// PageHandle 池中的一个标签页句柄
// uses记录该标签页已服务过的域名数,达到上限后整页销毁重建
type PageHandle struct {
	page *rod.Page
	uses int
}

// Page 当前句柄持有的标签页
func (h *PageHandle) Page() *rod.Page {
	return h.page
}

// PagePoolConfig 标签页池配置
type PagePoolConfig struct {
	Size        int // 固定池大小
	PageMaxUses int // 单标签页复用次数上限
}

// PagePool 标签页池管理器
// 职责: 维护固定数量的浏览器标签页,复用、回收、透明替换死页。
// 调用方只看到"借一个页,还一个页",替换和回收对调用方不可见。
type PagePool struct {
	config PagePoolConfig

	// 当前挂载的浏览器上下文,Rebuild时整体切换
	browser *rod.Browser

	// 可用句柄channel,容量=Size
	available chan *PageHandle

	mu     sync.Mutex
	closed bool

	// 标签页操作函数,字段化便于不起真浏览器做测试
	createPage func(b *rod.Browser) (*rod.Page, error)
	cleanPage  func(p *rod.Page) error
	closePage  func(p *rod.Page) error
	pageAlive  func(p *rod.Page) bool
}

// NewPagePool 创建标签页池并预创建全部标签页
// createPage为nil时使用默认的rod标签页工厂;渲染爬取器传入
// 带身份伪装(UA/视窗)的工厂
func NewPagePool(browser *rod.Browser, config PagePoolConfig, createPage func(*rod.Browser) (*rod.Page, error)) (*PagePool, error) {
	if createPage == nil {
		createPage = rodCreatePage
	}

	pp := &PagePool{
		config:     config,
		browser:    browser,
		available:  make(chan *PageHandle, config.Size),
		createPage: createPage,
		cleanPage:  rodCleanPage,
		closePage:  rodClosePage,
		pageAlive:  rodPageAlive,
	}

	if err := pp.fill(); err != nil {
		pp.drainAndClose()
		return nil, err
	}

	log.Debug().Msgf("标签页池就绪: %d个标签页", config.Size)
	return pp, nil
}

// fill 把池填满到Size个标签页
func (pp *PagePool) fill() error {
	for i := len(pp.available); i < pp.config.Size; i++ {
		page, err := pp.createPage(pp.browser)
		if err != nil {
			return fmt.Errorf("创建标签页失败: %w", err)
		}
		pp.available <- &PageHandle{page: page}
	}
	return nil
}

// Acquire 借出一个标签页句柄
// 没有可用句柄时阻塞,直到有句柄归还或ctx到期(返回ErrPoolExhausted)
func (pp *PagePool) Acquire(ctx context.Context) (*PageHandle, error) {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil, ErrPoolClosed
	}
	pp.mu.Unlock()

	select {
	case handle, ok := <-pp.available:
		if !ok {
			return nil, ErrPoolClosed
		}
		return handle, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, ctx.Err())
	}
}

// Release 归还标签页句柄
// 死页或复用次数到顶的页被销毁并原位替换;清理失败同样替换。
// 调用方不感知替换,归还后池容量保持不变。
func (pp *PagePool) Release(handle *PageHandle) {
	if handle == nil {
		return
	}

	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		if handle.page != nil {
			_ = pp.closePage(handle.page)
		}
		return
	}
	pp.mu.Unlock()

	handle.uses++

	needsReplace := false
	switch {
	case handle.page == nil || !pp.pageAlive(handle.page):
		log.Debug().Msg("标签页已失活,销毁重建")
		needsReplace = true
	case handle.uses >= pp.config.PageMaxUses:
		log.Debug().Msgf("标签页复用达到%d次,销毁重建", handle.uses)
		needsReplace = true
	default:
		if err := pp.cleanPage(handle.page); err != nil {
			log.Warn().Err(err).Msg("清理标签页失败,销毁重建")
			needsReplace = true
		}
	}

	if needsReplace {
		if handle.page != nil {
			_ = pp.closePage(handle.page)
		}

		page, err := pp.createPage(pp.browser)
		if err != nil {
			// 替换失败多半意味着浏览器上下文已坏,把空句柄还回去
			// 维持池容量,下一次Release或上下文轮换时再修复
			log.Error().Err(err).Msg("替换标签页失败,浏览器上下文可能已失效")
			handle.page = nil
			handle.uses = 0
			pp.requeue(handle)
			return
		}
		handle.page = page
		handle.uses = 0
	}

	pp.requeue(handle)
}

// requeue 把句柄放回池中,与Close互斥
// 关闭后归还的句柄直接销毁,不再触碰已关闭的channel
func (pp *PagePool) requeue(handle *PageHandle) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		if handle.page != nil {
			_ = pp.closePage(handle.page)
		}
		return
	}
	// channel容量等于池容量,入池永不阻塞
	pp.available <- handle
}

// Rebuild 丢弃全部标签页,在新的浏览器上下文上重建整个池
// 必须在所有句柄都已归还(无在途任务)时调用
func (pp *PagePool) Rebuild(browser *rod.Browser) error {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		return ErrPoolClosed
	}

	// 回收旧上下文上的全部标签页
	for len(pp.available) > 0 {
		handle := <-pp.available
		if handle.page != nil {
			_ = pp.closePage(handle.page)
		}
	}

	pp.browser = browser
	if err := pp.fill(); err != nil {
		return fmt.Errorf("重建标签页池失败: %w", err)
	}

	log.Info().Msgf("标签页池已在新上下文重建: %d个标签页", pp.config.Size)
	return nil
}

// Size 池的固定容量
func (pp *PagePool) Size() int {
	return pp.config.Size
}

// Available 当前可借出的句柄数
func (pp *PagePool) Available() int {
	return len(pp.available)
}

// Close 关闭标签页池,释放所有标签页
func (pp *PagePool) Close() {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		return
	}
	pp.drainAndClose()
	pp.closed = true

	log.Debug().Msg("标签页池已关闭")
}

func (pp *PagePool) drainAndClose() {
	for len(pp.available) > 0 {
		handle := <-pp.available
		if handle.page != nil {
			_ = pp.closePage(handle.page)
		}
	}
	close(pp.available)
}

// rodCreatePage 在浏览器上下文上新建标签页
func rodCreatePage(b *rod.Browser) (*rod.Page, error) {
	return b.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// rodCleanPage 清理标签页状态供下一个域名复用
// 回到about:blank并清掉storage和cookie,域名间互不串味
func rodCleanPage(page *rod.Page) error {
	if err := page.Navigate("about:blank"); err != nil {
		return fmt.Errorf("导航到空白页失败: %w", err)
	}

	_, err := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			if (typeof localStorage !== 'undefined' && localStorage !== null) {
				try {
					localStorage.clear();
				} catch (e) {
					// ignore
				}
			}

			if (typeof sessionStorage !== 'undefined' && sessionStorage !== null) {
				try {
					sessionStorage.clear();
				} catch (e) {
					// ignore
				}
			}

			if (typeof document !== 'undefined' && document !== null && document.cookie) {
				try {
					var cookies = document.cookie.split(";");
					for (var i = 0; i < cookies.length; i++) {
						var c = cookies[i];
						var eqPos = c.indexOf("=");
						var name = eqPos > -1 ? c.substr(0, eqPos) : c;
						document.cookie = name.replace(/^ +/, "") + "=;expires=Thu, 01 Jan 1970 00:00:00 UTC;path=/";
					}
				} catch (e) {
					// ignore
				}
			}

			return true;
		}`,
	})
	if err != nil {
		return fmt.Errorf("清理标签页状态失败: %w", err)
	}

	return nil
}

// rodClosePage 关闭标签页
func rodClosePage(page *rod.Page) error {
	return page.Close()
}

// rodPageAlive 探测标签页是否还能响应协议调用
func rodPageAlive(page *rod.Page) bool {
	_, err := page.Eval(`() => true`)
	return err == nil
}
