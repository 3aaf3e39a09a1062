package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	// 空目录下加载,应该完全落在默认值上
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("切换工作目录失败: %v", err)
	}
	defer os.Chdir(oldWd)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if cfg.Crawl.MaxDomains != 1000 {
		t.Errorf("默认域名上限错误: 期望 1000, 得到 %d", cfg.Crawl.MaxDomains)
	}
	if cfg.Static.Workers != 0 {
		t.Errorf("静态worker默认应为0(自动): 得到 %d", cfg.Static.Workers)
	}
	if cfg.Static.MinHTMLBytes != 50 {
		t.Errorf("有效HTML最小字节数错误: 期望 50, 得到 %d", cfg.Static.MinHTMLBytes)
	}
	if cfg.Render.Tabs != 4 {
		t.Errorf("默认标签页数错误: 期望 4, 得到 %d", cfg.Render.Tabs)
	}
	if !cfg.Render.Headless {
		t.Error("默认应该启用无头模式")
	}
	if cfg.Render.PageMaxUses != 25 {
		t.Errorf("标签页复用上限错误: 期望 25, 得到 %d", cfg.Render.PageMaxUses)
	}
	if cfg.Render.RestartEveryN != 50 {
		t.Errorf("轮换周期错误: 期望 50, 得到 %d", cfg.Render.RestartEveryN)
	}
	if cfg.Render.MemoryRestartThreshold != 0.75 {
		t.Errorf("内存轮换阈值错误: 期望 0.75, 得到 %v", cfg.Render.MemoryRestartThreshold)
	}
	if cfg.Render.DelayMinMS != 500 || cfg.Render.DelayMaxMS != 1500 {
		t.Errorf("随机间隔默认值错误: 得到 [%d, %d]", cfg.Render.DelayMinMS, cfg.Render.DelayMaxMS)
	}
	if cfg.Output.FailedManifest != "failed_domains.csv" {
		t.Errorf("失败清单默认路径错误: 得到 %q", cfg.Output.FailedManifest)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("默认日志级别错误: 得到 %q", cfg.Logging.Level)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	content := `
crawl:
  max_domains: 200
static:
  workers: 16
  timeout_ms: 5000
render:
  tabs: 8
  headless: false
output:
  failed_manifest: "custom_failed.csv"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("写配置文件失败: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("加载配置文件失败: %v", err)
	}

	if cfg.Crawl.MaxDomains != 200 {
		t.Errorf("域名上限错误: 期望 200, 得到 %d", cfg.Crawl.MaxDomains)
	}
	if cfg.Static.Workers != 16 {
		t.Errorf("静态worker数错误: 期望 16, 得到 %d", cfg.Static.Workers)
	}
	if cfg.Static.TimeoutMS != 5000 {
		t.Errorf("静态超时错误: 期望 5000, 得到 %d", cfg.Static.TimeoutMS)
	}
	if cfg.Render.Tabs != 8 {
		t.Errorf("标签页数错误: 期望 8, 得到 %d", cfg.Render.Tabs)
	}
	if cfg.Render.Headless {
		t.Error("配置文件关闭了无头模式,不应被覆盖")
	}
	if cfg.Output.FailedManifest != "custom_failed.csv" {
		t.Errorf("失败清单路径错误: 得到 %q", cfg.Output.FailedManifest)
	}
	// 未出现在文件里的项保持默认
	if cfg.Render.RestartEveryN != 50 {
		t.Errorf("未配置项应保持默认: 期望 50, 得到 %d", cfg.Render.RestartEveryN)
	}
}

func TestMergeCLIFlags(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	cfg.MergeCLIFlags(500, 32, 6, 8, false, "cli_failed.csv")

	if cfg.Crawl.MaxDomains != 500 {
		t.Errorf("命令行域名上限未生效: 得到 %d", cfg.Crawl.MaxDomains)
	}
	if cfg.Static.Workers != 32 {
		t.Errorf("命令行静态worker未生效: 得到 %d", cfg.Static.Workers)
	}
	if cfg.Render.Workers != 6 {
		t.Errorf("命令行渲染worker未生效: 得到 %d", cfg.Render.Workers)
	}
	if cfg.Render.Tabs != 8 {
		t.Errorf("命令行标签页数未生效: 得到 %d", cfg.Render.Tabs)
	}
	if cfg.Render.Headless {
		t.Error("命令行关闭无头模式未生效")
	}
	if cfg.Output.FailedManifest != "cli_failed.csv" {
		t.Errorf("命令行失败清单路径未生效: 得到 %q", cfg.Output.FailedManifest)
	}
}

func TestMergeCLIFlagsZeroKeepsConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	cfg.MergeCLIFlags(0, 0, 0, 0, true, "")

	if cfg.Crawl.MaxDomains != 1000 {
		t.Errorf("零值不应覆盖配置: 得到 %d", cfg.Crawl.MaxDomains)
	}
	if cfg.Render.Tabs != 4 {
		t.Errorf("零值不应覆盖配置: 得到 %d", cfg.Render.Tabs)
	}
	if cfg.Output.FailedManifest != "failed_domains.csv" {
		t.Errorf("空路径不应覆盖配置: 得到 %q", cfg.Output.FailedManifest)
	}
}
