package crawlers

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/RecoveryAshes/logocrawl/internal/config"
)

// AntiBlockingConfig 反封锁层配置
type AntiBlockingConfig struct {
	DelayMin time.Duration // 随机间隔下限
	DelayMax time.Duration // 随机间隔上限
}

// AntiBlocking 反封锁层
// 职责: 域名间随机限速、浏览器身份轮换、挑战页识别
// 目标是降低被目标站点封锁的概率,不保证绕过任何防护
type AntiBlocking struct {
	config AntiBlockingConfig
}

// NewAntiBlocking 创建反封锁层
func NewAntiBlocking(config AntiBlockingConfig) *AntiBlocking {
	return &AntiBlocking{config: config}
}

// RandomDelay 在[DelayMin, DelayMax]内均匀随机等待
// context取消时立即返回,不足额等待
func (ab *AntiBlocking) RandomDelay(ctx context.Context) {
	span := ab.config.DelayMax - ab.config.DelayMin
	delay := ab.config.DelayMin
	if span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// RandomUserAgent 从UA池随机取一个
func (ab *AntiBlocking) RandomUserAgent() string {
	return config.UserAgents[rand.Intn(len(config.UserAgents))]
}

// RandomViewport 从视口池随机取一个
func (ab *AntiBlocking) RandomViewport() config.Viewport {
	return config.Viewports[rand.Intn(len(config.Viewports))]
}

// DetectChallenge 判断页面是否是反爬挑战页(验证码/盾页)
// 依次检查挑战元素选择器、正文关键短语、标题关键词
// 任何检查出错都按"无挑战"处理,检测只服务于提前放弃
func (ab *AntiBlocking) DetectChallenge(page *rod.Page) bool {
	for _, sel := range config.ChallengeSelectors {
		has, _, err := page.Has(sel)
		if err == nil && has {
			return true
		}
	}

	obj, err := page.Eval(`() => ({
		text: (document.body && document.body.innerText || '').toLowerCase().slice(0, 5000),
		title: (document.title || '').toLowerCase()
	})`)
	if err != nil {
		return false
	}

	if matchesChallengeText(obj.Value.Get("text").Str()) {
		return true
	}
	return matchesChallengeTitle(obj.Value.Get("title").Str())
}

// matchesChallengeText 正文是否包含挑战页关键短语
func matchesChallengeText(text string) bool {
	if text == "" {
		return false
	}
	for _, phrase := range config.ChallengeTextPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// matchesChallengeTitle 标题是否包含挑战页关键词
func matchesChallengeTitle(title string) bool {
	if title == "" {
		return false
	}
	for _, part := range config.ChallengeTitleParts {
		if strings.Contains(title, part) {
			return true
		}
	}
	return false
}
