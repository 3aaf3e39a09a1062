package utils

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressTracker 进度跟踪器
// 在stderr上维护进度条与统计行,stdout保留给结果CSV。
type ProgressTracker struct {
	bar         *progressbar.ProgressBar
	description string
	total       int
	processed   int
	found       int
	failed      int
	skipped     int
	escalated   int
	workers     int
	startedAt   time.Time
	mu          sync.Mutex
}

// NewProgressTracker 创建进度跟踪器
func NewProgressTracker(total int, description string, workers int) *ProgressTracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &ProgressTracker{
		bar:         bar,
		description: description,
		total:       total,
		workers:     workers,
		startedAt:   time.Now(),
	}
}

// statusLine 进度条描述: 阶段名加实时的成功/失败计数
// 吞吐率由进度条自带的it/s显示
func (p *ProgressTracker) statusLine() string {
	return fmt.Sprintf("%s [成功:%d 失败:%d]", p.description, p.found, p.failed)
}

// Record 记录一个域名的处理结果并推进进度条
func (p *ProgressTracker) Record(found bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	if found {
		p.found++
	} else {
		p.failed++
	}
	p.bar.Describe(p.statusLine())
	_ = p.bar.Add(1)
}

// RecordSkipped 记录一个被过滤掉的域名(无效输入等)
func (p *ProgressTracker) RecordSkipped() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	p.skipped++
	p.bar.Describe(p.statusLine())
	_ = p.bar.Add(1)
}

// RecordEscalated 记录一个升级到渲染阶段的域名(仅静态阶段使用)
func (p *ProgressTracker) RecordEscalated() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	p.escalated++
	p.bar.Describe(p.statusLine())
	_ = p.bar.Add(1)
}

// Summary 输出当前阶段的统计行到stderr
func (p *ProgressTracker) Summary() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startedAt)
	rate := float64(p.processed) / elapsed.Seconds()
	fmt.Fprintf(os.Stderr, "\n进度: %d/%d | 成功: %d | 失败: %d | 跳过: %d | 升级: %d | 速率: %.1f/s | 并发: %d\n",
		p.processed, p.total, p.found, p.failed, p.skipped, p.escalated, rate, p.workers)
}

// Finish 收尾进度条
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
	fmt.Fprintln(os.Stderr)
}

// Stats 返回当前统计快照 (processed, found, failed, skipped)
func (p *ProgressTracker) Stats() (int, int, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.found, p.failed, p.skipped
}
