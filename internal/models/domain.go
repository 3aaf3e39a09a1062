package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Phase 域名任务所处的处理阶段
type Phase string

const (
	PhasePending     Phase = "pending"      // 待处理
	PhaseStaticTried Phase = "static-tried" // 静态阶段已尝试
	PhaseNeedsRender Phase = "needs-render" // 等待渲染阶段
	PhaseRendering   Phase = "rendering"    // 渲染阶段处理中
	PhaseDone        Phase = "done"         // 终态
)

// FailReason 失败清单中使用的分类值
// 当前版本只有一个分类,细分(超时/不可达/挑战页)留待下游需要时扩展
const FailReason = "logo_not_found"

// DomainTask 单个域名的处理任务
// 生命周期: 每行输入创建一次,只由当前持有它的阶段修改,写入结果后为终态。
// 所有权在阶段边界整体转移,任何时刻只有一个阶段持有任务。
type DomainTask struct {
	ID        string    `json:"id"`         // 任务唯一标识
	Raw       string    `json:"raw"`        // 原始输入行
	Domain    string    `json:"domain"`     // 清洗后的域名
	Phase     Phase     `json:"phase"`      // 当前阶段
	LogoURL   string    `json:"logo_url"`   // 找到的logo地址,空表示未找到
	Found     bool      `json:"found"`      // 是否已找到
	CreatedAt time.Time `json:"created_at"` // 创建时间
}

// NewDomainTask 从一行输入创建域名任务
func NewDomainTask(raw string, domain string) *DomainTask {
	return &DomainTask{
		ID:        uuid.New().String(),
		Raw:       raw,
		Domain:    domain,
		Phase:     PhasePending,
		CreatedAt: time.Now(),
	}
}

// FailedName 失败清单中记录的名字
// 清洗成功用清洗后的域名,清洗失败退回原始输入行
func (t *DomainTask) FailedName() string {
	if t.Domain != "" {
		return t.Domain
	}
	return strings.TrimSpace(t.Raw)
}

// Result 单个域名的最终结果记录
// 只追加,按完成顺序产出,不保证与输入顺序一致
type Result struct {
	Domain  string `json:"domain"`   // 清洗后的域名
	LogoURL string `json:"logo_url"` // logo地址,失败时为空
	Found   bool   `json:"found"`    // 是否找到
}

// StaticOutcome 静态阶段对单个域名的分类结果
type StaticOutcome struct {
	Result
	NeedsRender bool `json:"needs_render"` // 是否需要进入渲染阶段
}

// PhaseStats 单个阶段的统计信息
type PhaseStats struct {
	Processed int     `json:"processed"` // 已处理域名数
	Found     int     `json:"found"`     // 找到logo的域名数
	Failed    int     `json:"failed"`    // 失败域名数
	Escalated int     `json:"escalated"` // 升级到渲染阶段的域名数(仅静态阶段)
	Duration  float64 `json:"duration"`  // 阶段耗时(秒)
	Workers   int     `json:"workers"`   // 阶段并发数
}

// RunStats 整次运行的汇总统计
type RunStats struct {
	TotalDomains int        `json:"total_domains"` // 实际处理的域名总数
	Received     int        `json:"received"`      // stdin收到的域名总数(截断前)
	Static       PhaseStats `json:"static"`        // 静态阶段统计
	Render       PhaseStats `json:"render"`        // 渲染阶段统计
	Rotations    int        `json:"rotations"`     // 浏览器上下文轮换次数
	Duration     float64    `json:"duration"`      // 总耗时(秒)
}

// TotalFound 两阶段合计找到的logo数
func (s *RunStats) TotalFound() int {
	return s.Static.Found + s.Render.Found
}

// TotalFailed 两阶段合计失败的域名数
func (s *RunStats) TotalFailed() int {
	return s.TotalDomains - s.TotalFound()
}
