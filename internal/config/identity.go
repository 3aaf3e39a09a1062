// Package config 提供反封锁相关的固定资源池和请求头常量
//
// 包含: User-Agent轮换池、视窗轮换池、静态阶段默认请求头、
// Cookie弹窗选择器、挑战页(验证码/防火墙)特征集合。
// 这些是固定常量,运行时不可配置;可调参数见 internal/core 的viper配置。
package config

// DefaultHeaders 静态阶段使用的浏览器风格请求头
// Accept-Encoding声明br,响应体需按Content-Encoding手动解压
var DefaultHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Accept-Encoding":           "gzip, deflate, br",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// UserAgents User-Agent轮换池
// 每个新浏览器上下文随机选取一个,互相独立
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// Viewport 浏览器视窗尺寸
type Viewport struct {
	Width  int
	Height int
}

// Viewports 视窗轮换池
var Viewports = []Viewport{
	{Width: 1920, Height: 1080},
	{Width: 1366, Height: 768},
	{Width: 1440, Height: 900},
	{Width: 1536, Height: 864},
	{Width: 1280, Height: 720},
}

// CookieAcceptPatterns Cookie同意按钮的文本匹配模式(正则,不区分大小写)
// 配合rod的ElementR按钮文本匹配使用
var CookieAcceptPatterns = []string{
	`/^\s*(accept|accept all|agree|ok)\s*$/i`,
	`/^\s*(reject|reject all)\s*$/i`,
}

// CookieAcceptSelectors Cookie同意按钮的属性选择器
var CookieAcceptSelectors = []string{
	`[id*="accept"]`,
	`[class*="accept"]`,
}

// OverlaySelectors 常见遮罩/弹窗的关闭按钮选择器
// 尽力而为点击,失败不影响爬取流程
var OverlaySelectors = []string{
	`[class*="modal"] [class*="close"]`,
	`[class*="overlay"] [class*="close"]`,
	`[class*="popup"] [class*="close"]`,
	`button[aria-label*="close"]`,
	`button[aria-label*="Close"]`,
	`[class*="dismiss"]`,
}

// ChallengeSelectors 挑战页结构特征选择器
var ChallengeSelectors = []string{
	// reCAPTCHA
	`iframe[src*="recaptcha"]`,
	`iframe[src*="google.com/recaptcha"]`,
	`#recaptcha`,
	`.g-recaptcha`,

	// hCaptcha
	`iframe[src*="hcaptcha"]`,
	`.h-captcha`,
	`#hcaptcha`,

	// Cloudflare
	`#cf-wrapper`,
	`#challenge-running`,
	`#challenge-form`,
	`.cf-browser-verification`,

	// 通用挑战页
	`#challenge-stage`,
	`.captcha-container`,
	`[class*="captcha"]`,
	`[id*="captcha"]`,
}

// ChallengeTextPhrases 挑战页正文文本特征(小写匹配)
var ChallengeTextPhrases = []string{
	"verify you are human",
	"are you a robot",
	"please verify",
	"security check",
	"checking your browser",
	"just a moment",
	"ddos protection",
	"attention required",
	"access denied",
	"blocked",
}

// ChallengeTitleParts 挑战页标题特征(小写匹配)
var ChallengeTitleParts = []string{
	"just a moment",
	"attention required",
	"access denied",
	"security",
}
