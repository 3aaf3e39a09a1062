package models

import (
	"testing"
)

func TestNewDomainTask(t *testing.T) {
	task := NewDomainTask(" Example.COM ", "example.com")

	if task.ID == "" {
		t.Error("任务ID不应为空")
	}
	if task.Raw != " Example.COM " {
		t.Errorf("原始输入错误: 得到 %q", task.Raw)
	}
	if task.Domain != "example.com" {
		t.Errorf("域名错误: 得到 %q", task.Domain)
	}
	if task.Phase != PhasePending {
		t.Errorf("新任务应处于pending阶段: 得到 %q", task.Phase)
	}
	if task.Found {
		t.Error("新任务不应标记为已找到")
	}
	if task.CreatedAt.IsZero() {
		t.Error("创建时间不应为零值")
	}

	// 两个任务的ID不应相同
	other := NewDomainTask("example.org", "example.org")
	if task.ID == other.ID {
		t.Error("任务ID应该唯一")
	}
}

func TestFailedName(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		domain string
		want   string
	}{
		{"清洗成功用域名", "Example.com", "example.com", "example.com"},
		{"清洗失败退回原始输入", " bad input ", "", "bad input"},
		{"原始输入也为空", "  ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewDomainTask(tt.raw, tt.domain)
			if got := task.FailedName(); got != tt.want {
				t.Errorf("FailedName() = %q, 期望 %q", got, tt.want)
			}
		})
	}
}

func TestRunStatsTotals(t *testing.T) {
	stats := RunStats{
		TotalDomains: 100,
		Static:       PhaseStats{Found: 60, Failed: 5, Escalated: 35},
		Render:       PhaseStats{Found: 20, Failed: 15},
	}

	if got := stats.TotalFound(); got != 80 {
		t.Errorf("合计命中数错误: 期望 80, 得到 %d", got)
	}
	if got := stats.TotalFailed(); got != 20 {
		t.Errorf("合计失败数错误: 期望 20, 得到 %d", got)
	}
}
