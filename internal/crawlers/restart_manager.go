package crawlers

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// RestartManagerConfig 浏览器上下文轮换策略配置
type RestartManagerConfig struct {
	RestartEveryN          int     // 每处理N个域名强制轮换
	MemoryCheckInterval    int     // 每N个域名检查一次进程内存
	MemoryRestartThreshold float64 // 触发轮换的进程内存占比(0~1)
}

// RestartManager 浏览器上下文生命周期管理器
// 职责: 跟踪当前上下文处理过的域名数,按计数或内存占用决定何时轮换,
// 避免长时间运行的浏览器上下文累积内存与状态
type RestartManager struct {
	config RestartManagerConfig

	processedCount int // 当前上下文已处理的域名数
	totalRestarts  int // 累计轮换次数

	// memoryFraction 返回当前进程占系统内存的比例(0~1)
	// 字段化便于测试注入,默认读取gopsutil进程指标
	memoryFraction func() float64

	mu sync.Mutex
}

// NewRestartManager 创建上下文轮换管理器
func NewRestartManager(config RestartManagerConfig) *RestartManager {
	return &RestartManager{
		config:         config,
		memoryFraction: processMemoryFraction,
	}
}

// Increment 记录一个渲染域名处理完成
func (rm *RestartManager) Increment() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.processedCount++
}

// ShouldRestart 判断是否应该轮换浏览器上下文
// 计数达到上限,或周期性内存检查发现进程内存占比超阈值时返回true
func (rm *RestartManager) ShouldRestart() bool {
	rm.mu.Lock()
	count := rm.processedCount
	rm.mu.Unlock()

	if count <= 0 {
		return false
	}

	if count >= rm.config.RestartEveryN {
		log.Info().Msgf("已处理%d个域名,触发上下文轮换", count)
		return true
	}

	if rm.config.MemoryCheckInterval > 0 && count%rm.config.MemoryCheckInterval == 0 {
		fraction := rm.memoryFraction()
		if fraction > rm.config.MemoryRestartThreshold {
			log.Warn().Msgf("进程内存占比%.1f%%超过阈值%.1f%%,触发上下文轮换",
				fraction*100, rm.config.MemoryRestartThreshold*100)
			return true
		}
	}

	return false
}

// RecordRestart 记录一次完成的轮换,重置计数
func (rm *RestartManager) RecordRestart() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.processedCount = 0
	rm.totalRestarts++
}

// ProcessedCount 当前上下文已处理的域名数
func (rm *RestartManager) ProcessedCount() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.processedCount
}

// TotalRestarts 累计轮换次数
func (rm *RestartManager) TotalRestarts() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRestarts
}

// processMemoryFraction 当前进程占系统内存的比例
// 指标获取失败按0处理,轮换决策永不因此报错
func processMemoryFraction() float64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Debug().Err(err).Msg("获取进程句柄失败,内存检查跳过")
		return 0.0
	}

	percent, err := proc.MemoryPercent()
	if err != nil {
		log.Debug().Err(err).Msg("获取进程内存占比失败,内存检查跳过")
		return 0.0
	}

	return float64(percent) / 100.0
}
