package core

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/RecoveryAshes/logocrawl/internal/crawlers"
	"github.com/RecoveryAshes/logocrawl/internal/models"
	"github.com/RecoveryAshes/logocrawl/internal/utils"
)

// Orchestrator 两阶段爬取调度器
// 职责: 先用便宜的静态阶段筛掉能直接拿到logo的域名,
// 剩下的交给浏览器渲染阶段,全程增量写出结果
type Orchestrator struct {
	config *Config
	sizer  *crawlers.ResourceSizer
	writer *utils.IncrementalCSVWriter

	// 两个阶段共用的失败域名收集
	failed   []string
	failedMu sync.Mutex
}

// NewOrchestrator 创建调度器
// out是结果CSV的输出流(正常运行时为stdout)
func NewOrchestrator(cfg *Config, out io.Writer) *Orchestrator {
	return &Orchestrator{
		config: cfg,
		sizer:  crawlers.NewResourceSizer(),
		writer: utils.NewIncrementalCSVWriter(out, cfg.Output.FlushEvery),
	}
}

// Run 执行完整的两阶段爬取
// domains是清洗前的输入行,received是截断前stdin收到的总数
func (o *Orchestrator) Run(ctx context.Context, domains []string, received int) (models.RunStats, error) {
	startTime := time.Now()

	stats := models.RunStats{
		TotalDomains: len(domains),
		Received:     received,
	}

	o.printBanner(len(domains), received)

	if err := o.writer.WriteHeader(); err != nil {
		return stats, fmt.Errorf("初始化结果输出失败: %w", err)
	}

	// 每行输入建一个任务,任务在阶段边界整体移交
	tasks := make([]*models.DomainTask, 0, len(domains))
	for _, raw := range domains {
		tasks = append(tasks, models.NewDomainTask(raw, ""))
	}

	// 阶段一: 静态抓取
	needsRender, staticStats := o.runStaticPhase(ctx, tasks)
	stats.Static = staticStats

	// 阶段二: 浏览器渲染
	if len(needsRender) > 0 && ctx.Err() == nil {
		renderStats, rotations := o.runRenderPhase(ctx, needsRender)
		stats.Render = renderStats
		stats.Rotations = rotations
	} else {
		o.failAll(needsRender)
		stats.Render.Failed = len(needsRender)
	}

	if err := o.writer.Close(); err != nil {
		utils.Errorf("刷写结果CSV失败: %v", err)
	}

	// 失败清单
	o.failedMu.Lock()
	failed := o.failed
	o.failedMu.Unlock()
	if err := utils.WriteFailureManifest(o.config.Output.FailedManifest, failed); err != nil {
		utils.Errorf("写失败清单失败: %v", err)
	}

	stats.Duration = time.Since(startTime).Seconds()
	o.printSummary(&stats)

	return stats, nil
}

// staticResult 静态worker产出的任务+结果对
type staticResult struct {
	task    *models.DomainTask
	outcome models.StaticOutcome
}

// runStaticPhase 静态抓取阶段
// goroutine-per-domain,semaphore限并发,按完成顺序消费结果
func (o *Orchestrator) runStaticPhase(ctx context.Context, tasks []*models.DomainTask) ([]*models.DomainTask, models.PhaseStats) {
	startTime := time.Now()

	workers := o.config.Static.Workers
	if workers <= 0 {
		workers = o.sizer.StaticWorkers()
	}

	utils.Infof("🔍 阶段一: 静态抓取启动 (域名数=%d, 并发=%d)", len(tasks), workers)

	sc := crawlers.NewStaticCrawler(crawlers.StaticCrawlerConfig{
		Timeout:      time.Duration(o.config.Static.TimeoutMS) * time.Millisecond,
		ConnectTO:    time.Duration(o.config.Static.ConnectMS) * time.Millisecond,
		TLSTO:        time.Duration(o.config.Static.TLSHandshakeMS) * time.Millisecond,
		ReadHeaderTO: time.Duration(o.config.Static.ReadHeaderMS) * time.Millisecond,
		MaxIdleConns: o.config.Static.MaxIdleConns,
		MinHTMLBytes: o.config.Static.MinHTMLBytes,
	})

	progress := utils.NewProgressTracker(len(tasks), "静态抓取", workers)

	sem := make(chan struct{}, workers)
	outcomes := make(chan staticResult, workers)

	var wg sync.WaitGroup
	go func() {
		for _, task := range tasks {
			if ctx.Err() != nil {
				// 被中断,剩余域名直接按失败产出
				outcomes <- staticResult{task: task}
				continue
			}

			sem <- struct{}{}
			wg.Add(1)
			go func(t *models.DomainTask) {
				defer wg.Done()
				defer func() { <-sem }()

				out := sc.ProcessDomain(t.Raw)
				t.Domain = out.Domain
				t.Phase = models.PhaseStaticTried
				outcomes <- staticResult{task: t, outcome: out}
			}(task)
		}
		wg.Wait()
		close(outcomes)
	}()

	phaseStats := models.PhaseStats{Workers: workers}
	needsRender := make([]*models.DomainTask, 0)

	for r := range outcomes {
		phaseStats.Processed++

		switch {
		case r.outcome.Found:
			r.task.Phase = models.PhaseDone
			r.task.Found = true
			r.task.LogoURL = r.outcome.LogoURL
			phaseStats.Found++
			progress.Record(true)
			if err := o.writer.Write(r.task.Domain, r.task.LogoURL); err != nil {
				utils.Errorf("写结果失败 [%s]: %v", r.task.Domain, err)
			}
		case r.outcome.NeedsRender:
			r.task.Phase = models.PhaseNeedsRender
			phaseStats.Escalated++
			progress.RecordEscalated()
			needsRender = append(needsRender, r.task)
		default:
			// 非法域名或被中断,终态失败
			r.task.Phase = models.PhaseDone
			phaseStats.Failed++
			progress.RecordSkipped()
			o.recordFailure(r.task.FailedName())
		}
	}

	progress.Finish()
	progress.Summary()
	phaseStats.Duration = time.Since(startTime).Seconds()

	utils.Infof("✅ 静态抓取完成: 命中=%d, 升级渲染=%d, 失败=%d, 耗时=%.1f秒",
		phaseStats.Found, phaseStats.Escalated, phaseStats.Failed, phaseStats.Duration)

	return needsRender, phaseStats
}

// runRenderPhase 浏览器渲染阶段
// 顺序准入+semaphore限流的worker模型;上下文轮换只发生在
// 两次准入之间,且此刻在途任务必须清零
func (o *Orchestrator) runRenderPhase(ctx context.Context, tasks []*models.DomainTask) (models.PhaseStats, int) {
	startTime := time.Now()

	workers := o.config.Render.Workers
	if workers <= 0 {
		workers = o.sizer.RenderWorkers()
	}
	// 在途任务不能多于标签页,否则worker会空等句柄
	if workers > o.config.Render.Tabs {
		workers = o.config.Render.Tabs
	}

	phaseStats := models.PhaseStats{Workers: workers}

	utils.Infof("🎭 阶段二: 浏览器渲染启动 (域名数=%d, 并发=%d, 标签页=%d)",
		len(tasks), workers, o.config.Render.Tabs)

	antiBlock := crawlers.NewAntiBlocking(crawlers.AntiBlockingConfig{
		DelayMin: time.Duration(o.config.Render.DelayMinMS) * time.Millisecond,
		DelayMax: time.Duration(o.config.Render.DelayMaxMS) * time.Millisecond,
	})

	rc := crawlers.NewRenderCrawler(crawlers.RenderCrawlerConfig{
		Headless:      o.config.Render.Headless,
		Tabs:          o.config.Render.Tabs,
		PageMaxUses:   o.config.Render.PageMaxUses,
		NavTimeout:    time.Duration(o.config.Render.NavTimeoutMS) * time.Millisecond,
		PostNavDelay:  time.Duration(o.config.Render.PostNavDelayMS) * time.Millisecond,
		DomainTimeout: time.Duration(o.config.Render.DomainTimeoutMS) * time.Millisecond,
	}, antiBlock)

	if err := rc.Launch(); err != nil {
		// 系统性错误: 渲染阶段无法进行,静态结果保留,剩余域名全失败
		utils.Errorf("渲染引擎启动失败,待渲染域名全部按失败处理: %v", err)
		o.failAll(tasks)
		phaseStats.Failed = len(tasks)
		phaseStats.Duration = time.Since(startTime).Seconds()
		return phaseStats, 0
	}
	defer rc.Close()

	restarts := crawlers.NewRestartManager(crawlers.RestartManagerConfig{
		RestartEveryN:          o.config.Render.RestartEveryN,
		MemoryCheckInterval:    o.config.Render.MemoryCheckInterval,
		MemoryRestartThreshold: o.config.Render.MemoryRestartThreshold,
	})

	progress := utils.NewProgressTracker(len(tasks), "浏览器渲染", workers)

	results := make(chan *models.DomainTask, workers)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for task := range results {
			phaseStats.Processed++
			if task.Found {
				phaseStats.Found++
				progress.Record(true)
				if err := o.writer.Write(task.Domain, task.LogoURL); err != nil {
					utils.Errorf("写结果失败 [%s]: %v", task.Domain, err)
				}
			} else {
				phaseStats.Failed++
				progress.Record(false)
				o.recordFailure(task.FailedName())
			}
		}
	}()

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	aborted := -1
	for i, task := range tasks {
		if ctx.Err() != nil {
			aborted = i
			break
		}

		// 轮换检查: 只在准入间隙、且在途任务清零后执行
		if restarts.ShouldRestart() {
			wg.Wait()
			if err := rc.Rotate(); err != nil {
				utils.Errorf("上下文轮换失败,渲染阶段终止: %v", err)
				aborted = i
				break
			}
			restarts.RecordRestart()
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(t *models.DomainTask) {
			defer wg.Done()
			defer func() { <-sem }()

			t.Phase = models.PhaseRendering

			acquireCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			handle, err := rc.Pool().Acquire(acquireCtx)
			cancel()
			if err != nil {
				utils.Warnf("获取标签页失败 [%s]: %v", t.Domain, err)
				t.Phase = models.PhaseDone
				results <- t
				return
			}

			result := rc.ProcessDomain(ctx, handle, t.Domain)
			rc.Pool().Release(handle)
			restarts.Increment()

			t.Found = result.Found
			t.LogoURL = result.LogoURL
			t.Phase = models.PhaseDone
			results <- t
		}(task)
	}

	wg.Wait()
	close(results)
	<-consumerDone

	// 轮换失败或被中断时剩余域名按失败收尾
	if aborted >= 0 {
		remaining := tasks[aborted:]
		o.failAll(remaining)
		phaseStats.Failed += len(remaining)
		phaseStats.Processed += len(remaining)
	}

	progress.Finish()
	progress.Summary()
	phaseStats.Duration = time.Since(startTime).Seconds()

	utils.Infof("✅ 浏览器渲染完成: 命中=%d, 失败=%d, 轮换=%d次, 耗时=%.1f秒",
		phaseStats.Found, phaseStats.Failed, restarts.TotalRestarts(), phaseStats.Duration)

	return phaseStats, restarts.TotalRestarts()
}

// recordFailure 收集一个最终没有产出logo的域名
func (o *Orchestrator) recordFailure(domain string) {
	if domain == "" {
		return
	}
	o.failedMu.Lock()
	o.failed = append(o.failed, domain)
	o.failedMu.Unlock()
}

func (o *Orchestrator) failAll(tasks []*models.DomainTask) {
	for _, task := range tasks {
		task.Phase = models.PhaseDone
		o.recordFailure(task.FailedName())
	}
}

// printBanner 启动横幅: 输入规模和主机资源概况
func (o *Orchestrator) printBanner(total int, received int) {
	utils.Infof("🚀 logocrawl 启动")
	if received > total {
		utils.Warnf("输入域名%d个,超过上限%d,截断处理前%d个", received, o.config.Crawl.MaxDomains, total)
	} else {
		utils.Infof("输入域名: %d个", total)
	}
	utils.Infof("主机资源: 可用内存 %.2f GB, CPU %d核",
		float64(o.sizer.AvailableMemory())/(1024*1024*1024), o.sizer.CPUCount())
	utils.Infof("并发预算: 静态=%d, 渲染=%d", o.sizer.StaticWorkers(), o.sizer.RenderWorkers())
}

// printSummary 最终统计
func (o *Orchestrator) printSummary(stats *models.RunStats) {
	utils.Infof("📊 运行结束")
	utils.Infof("域名总数: %d (收到%d个)", stats.TotalDomains, stats.Received)
	utils.Infof("静态阶段: 命中=%d, 升级=%d, 失败=%d, 耗时=%.1f秒",
		stats.Static.Found, stats.Static.Escalated, stats.Static.Failed, stats.Static.Duration)
	utils.Infof("渲染阶段: 命中=%d, 失败=%d, 耗时=%.1f秒",
		stats.Render.Found, stats.Render.Failed, stats.Render.Duration)
	utils.Infof("上下文轮换: %d次", stats.Rotations)
	utils.Infof("合计: 找到logo %d个, 失败 %d个, 总耗时 %.1f秒",
		stats.TotalFound(), stats.TotalFailed(), stats.Duration)
}
