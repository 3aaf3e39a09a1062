package utils

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIncrementalCSVWriter(t *testing.T) {
	t.Run("表头先于记录写出", func(t *testing.T) {
		var buf bytes.Buffer
		cw := NewIncrementalCSVWriter(&buf, 10)

		if err := cw.WriteHeader(); err != nil {
			t.Fatalf("WriteHeader() error = %v", err)
		}
		if got := buf.String(); got != "domain,logo_url\n" {
			t.Errorf("表头 = %q, 期望 %q", got, "domain,logo_url\n")
		}
	})

	t.Run("达到缓冲上限自动刷出", func(t *testing.T) {
		var buf bytes.Buffer
		cw := NewIncrementalCSVWriter(&buf, 3)
		if err := cw.WriteHeader(); err != nil {
			t.Fatalf("WriteHeader() error = %v", err)
		}

		_ = cw.Write("a.com", "https://a.com/logo.png")
		_ = cw.Write("b.com", "https://b.com/logo.svg")
		if lines := strings.Count(buf.String(), "\n"); lines != 1 {
			t.Errorf("缓冲未满时已写出 %d 行记录", lines-1)
		}

		_ = cw.Write("c.com", "https://c.com/logo.ico")
		if lines := strings.Count(buf.String(), "\n"); lines != 4 {
			t.Errorf("缓冲满后应刷出全部记录, 实际行数 %d", lines)
		}
	})

	t.Run("Close刷出剩余缓冲", func(t *testing.T) {
		var buf bytes.Buffer
		cw := NewIncrementalCSVWriter(&buf, 100)
		if err := cw.WriteHeader(); err != nil {
			t.Fatalf("WriteHeader() error = %v", err)
		}
		_ = cw.Write("a.com", "https://a.com/logo.png")
		if err := cw.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("解析输出CSV失败: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("期望2行(表头+1条记录), 实际 %d 行", len(records))
		}
		if records[1][0] != "a.com" || records[1][1] != "https://a.com/logo.png" {
			t.Errorf("记录内容不符: %v", records[1])
		}
	})

	t.Run("计数包含缓冲中的记录", func(t *testing.T) {
		var buf bytes.Buffer
		cw := NewIncrementalCSVWriter(&buf, 100)
		_ = cw.WriteHeader()
		_ = cw.Write("a.com", "x")
		_ = cw.Write("b.com", "y")
		if got := cw.Count(); got != 2 {
			t.Errorf("Count() = %d, want 2", got)
		}
	})
}

func TestWriteFailureManifest(t *testing.T) {
	t.Run("写入失败清单", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "failed_domains.csv")
		if err := WriteFailureManifest(path, []string{"a.com", "b.com"}); err != nil {
			t.Fatalf("WriteFailureManifest() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("读取清单失败: %v", err)
		}
		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("解析清单失败: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("期望3行, 实际 %d 行", len(records))
		}
		if records[0][0] != "domain" || records[0][1] != "reason" {
			t.Errorf("表头不符: %v", records[0])
		}
		if records[1][0] != "a.com" || records[1][1] != "logo_not_found" {
			t.Errorf("记录不符: %v", records[1])
		}
	})

	t.Run("无失败域名时不创建文件", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "failed_domains.csv")
		if err := WriteFailureManifest(path, nil); err != nil {
			t.Fatalf("WriteFailureManifest() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("空列表不应创建清单文件")
		}
	})
}
