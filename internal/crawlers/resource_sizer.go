package crawlers

import (
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// 单worker内存预算与并发边界
const (
	staticWorkerMemory = 120 * 1024 * 1024 // 静态worker预估内存(字节)
	renderWorkerMemory = 400 * 1024 * 1024 // 渲染worker预估内存(字节)

	staticMemFraction = 0.75 // 静态阶段可支配的可用内存比例
	renderMemFraction = 0.60 // 渲染阶段可支配的可用内存比例

	minStaticWorkers = 10
	maxStaticWorkers = 120
	minRenderWorkers = 2
	maxRenderWorkers = 20
)

// 资源探测失败时的保守默认值
const (
	fallbackAvailableMemory = 4 * 1024 * 1024 * 1024 // 4GB
	fallbackCPUCount        = 4
)

// ResourceSizer 按主机资源推算两个阶段的并发规模
// 职责: 创建时采样一次可用内存和逻辑CPU数,给出静态/渲染worker预算
type ResourceSizer struct {
	availableMemory uint64
	cpuCount        int
}

// NewResourceSizer 创建资源计算器并采样主机资源
// 采样失败时退回保守默认值(4GB内存/4CPU)并警告一次
func NewResourceSizer() *ResourceSizer {
	rs := &ResourceSizer{}
	degraded := false

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		rs.availableMemory = fallbackAvailableMemory
		degraded = true
	} else {
		rs.availableMemory = vmStat.Available
	}

	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		rs.cpuCount = fallbackCPUCount
		degraded = true
	} else {
		rs.cpuCount = count
	}

	if degraded {
		log.Warn().Msg("获取系统资源信息失败,使用默认值(4GB内存/4CPU)")
	} else {
		log.Info().Msgf("系统资源: 可用内存 %.2f GB, CPU %d核",
			float64(rs.availableMemory)/(1024*1024*1024), rs.cpuCount)
	}

	return rs
}

// StaticWorkers 静态抓取阶段的并发worker数
// min(CPU×4, 可用内存×0.75/120MB),收敛到[10,120]
func (rs *ResourceSizer) StaticWorkers() int {
	byCPU := rs.cpuCount * 4
	byMemory := int(float64(rs.availableMemory) * staticMemFraction / staticWorkerMemory)

	return clamp(minInt(byCPU, byMemory), minStaticWorkers, maxStaticWorkers)
}

// RenderWorkers 渲染阶段的并发worker数
// min(CPU, 可用内存×0.60/400MB),收敛到[2,20]
func (rs *ResourceSizer) RenderWorkers() int {
	byCPU := rs.cpuCount
	byMemory := int(float64(rs.availableMemory) * renderMemFraction / renderWorkerMemory)

	return clamp(minInt(byCPU, byMemory), minRenderWorkers, maxRenderWorkers)
}

// AvailableMemory 采样到的可用内存(字节)
func (rs *ResourceSizer) AvailableMemory() uint64 {
	return rs.availableMemory
}

// CPUCount 采样到的逻辑CPU数
func (rs *ResourceSizer) CPUCount() int {
	return rs.cpuCount
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
