package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/RecoveryAshes/logocrawl/internal/models"
)

// IncrementalCSVWriter 增量CSV结果写入器
// 职责: 缓冲成功结果并分批落盘,保证进程中途崩溃时已完成的结果不丢失。
// 并发安全,两个阶段的任意worker都可以直接调用Write。
type IncrementalCSVWriter struct {
	w          *csv.Writer
	flushEvery int
	buffered   int
	total      int
	mu         sync.Mutex
}

// NewIncrementalCSVWriter 创建增量写入器
// flushEvery指定累积多少行后强制flush,<=0时按默认10行处理
func NewIncrementalCSVWriter(out io.Writer, flushEvery int) *IncrementalCSVWriter {
	if flushEvery <= 0 {
		flushEvery = 10
	}
	return &IncrementalCSVWriter{
		w:          csv.NewWriter(out),
		flushEvery: flushEvery,
	}
}

// WriteHeader 写入表头,必须在任何Write之前调用一次
// 表头立即flush,保证输出流一开始就是合法CSV
func (cw *IncrementalCSVWriter) WriteHeader() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.w.Write([]string{"domain", "logo_url"}); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}
	cw.w.Flush()
	return cw.w.Error()
}

// Write 追加一条成功结果,达到缓冲上限时自动flush
func (cw *IncrementalCSVWriter) Write(domain string, logoURL string) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.w.Write([]string{domain, logoURL}); err != nil {
		return fmt.Errorf("写入CSV记录失败 [%s]: %w", domain, err)
	}

	cw.total++
	cw.buffered++
	if cw.buffered >= cw.flushEvery {
		cw.w.Flush()
		cw.buffered = 0
	}

	return cw.w.Error()
}

// Flush 强制刷出缓冲中的所有记录
func (cw *IncrementalCSVWriter) Flush() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.w.Flush()
	cw.buffered = 0
	return cw.w.Error()
}

// Close 刷出剩余缓冲,写入结束后调用
func (cw *IncrementalCSVWriter) Close() error {
	return cw.Flush()
}

// Count 已写入的结果总数(含缓冲中的)
func (cw *IncrementalCSVWriter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.total
}

// WriteFailureManifest 写失败清单文件
// 每个未产出logo的域名一行: domain,reason(当前版本reason为固定分类值)
func WriteFailureManifest(path string, failed []string) error {
	if len(failed) == 0 {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建失败清单文件失败 [%s]: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"domain", "reason"}); err != nil {
		return fmt.Errorf("写入失败清单表头失败: %w", err)
	}
	for _, domain := range failed {
		if err := w.Write([]string{domain, models.FailReason}); err != nil {
			return fmt.Errorf("写入失败清单记录失败 [%s]: %w", domain, err)
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("刷写失败清单失败: %w", err)
	}

	Infof("失败域名已写入: %s (%d个)", path, len(failed))
	return nil
}
