package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadDomains 从输入流读取换行分隔的域名列表
// 跳过空行和#注释行;maxDomains>0时截断到上限
// 返回: (截断后的域名列表, 截断前的总数, 错误)
func ReadDomains(r io.Reader, maxDomains int) ([]string, int, error) {
	domains := make([]string, 0)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("读取域名列表失败: %w", err)
	}

	received := len(domains)
	if maxDomains > 0 && received > maxDomains {
		domains = domains[:maxDomains]
	}

	return domains, received, nil
}
