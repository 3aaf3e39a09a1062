package extract

import (
	"strings"
	"testing"
)

func TestPageScriptsWellFormed(t *testing.T) {
	// 两段页面内JS都是IIFE形式的箭头函数,且携带完整的提取策略
	for _, tt := range []struct {
		name    string
		script  string
		markers []string
	}{
		{
			name:   "logo候选收集脚本",
			script: LogoExtractionJS,
			markers: []string{
				"() =>",
				"priority",
				"link-icon",
				"results.sort",
				"results.slice(0, 10)",
			},
		},
		{
			name:   "favicon兜底脚本",
			script: FaviconJS,
			markers: []string{
				"() =>",
				"/favicon.ico",
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if strings.TrimSpace(tt.script) == "" {
				t.Fatal("脚本不应为空")
			}
			for _, marker := range tt.markers {
				if !strings.Contains(tt.script, marker) {
					t.Errorf("脚本缺少关键片段: %q", marker)
				}
			}
		})
	}
}
