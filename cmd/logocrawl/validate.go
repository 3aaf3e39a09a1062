package main

import (
	"fmt"
)

// ValidateFlags 验证命令行标志
// 0表示使用默认值/自动计算,不参与范围检查
func ValidateFlags(maxDomains int, staticWorkers int, renderWorkers int, tabs int) error {
	if maxDomains < 0 || maxDomains > 100000 {
		return fmt.Errorf("域名上限必须在0-100000之间,当前值: %d", maxDomains)
	}

	if staticWorkers < 0 || staticWorkers > 500 {
		return fmt.Errorf("静态并发数必须在0-500之间,当前值: %d", staticWorkers)
	}

	if renderWorkers < 0 || renderWorkers > 50 {
		return fmt.Errorf("渲染并发数必须在0-50之间,当前值: %d", renderWorkers)
	}

	if tabs < 0 || tabs > 32 {
		return fmt.Errorf("标签页数必须在0-32之间,当前值: %d", tabs)
	}

	return nil
}
