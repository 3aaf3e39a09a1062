package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Static  StaticConfig  `mapstructure:"static"`
	Render  RenderConfig  `mapstructure:"render"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// CrawlConfig 全局爬取配置
type CrawlConfig struct {
	MaxDomains int `mapstructure:"max_domains"` // 单次运行处理的域名上限
}

// StaticConfig 静态抓取阶段配置
type StaticConfig struct {
	Workers        int `mapstructure:"workers"`         // 并发worker数,0表示按资源自动计算
	TimeoutMS      int `mapstructure:"timeout_ms"`      // 单请求总超时(毫秒)
	ConnectMS      int `mapstructure:"connect_ms"`      // 连接超时(毫秒)
	TLSHandshakeMS int `mapstructure:"tls_handshake_ms"` // TLS握手超时(毫秒)
	ReadHeaderMS   int `mapstructure:"read_header_ms"`  // 响应头超时(毫秒)
	MaxIdleConns   int `mapstructure:"max_idle_conns"`  // 空闲连接池上限
	MinHTMLBytes   int `mapstructure:"min_html_bytes"`  // 有效HTML的最小字节数
}

// RenderConfig 浏览器渲染阶段配置
type RenderConfig struct {
	Workers                int     `mapstructure:"workers"`                  // 并发worker数,0表示按资源自动计算
	Tabs                   int     `mapstructure:"tabs"`                     // 标签页池大小
	Headless               bool    `mapstructure:"headless"`                 // 无头模式
	PageMaxUses            int     `mapstructure:"page_max_uses"`            // 单标签页复用次数上限
	RestartEveryN          int     `mapstructure:"restart_every_n"`          // 每处理N个域名轮换上下文
	MemoryCheckInterval    int     `mapstructure:"memory_check_interval"`    // 每N个域名检查一次内存
	MemoryRestartThreshold float64 `mapstructure:"memory_restart_threshold"` // 触发轮换的进程内存占比
	DelayMinMS             int     `mapstructure:"delay_min_ms"`             // 随机间隔下限(毫秒)
	DelayMaxMS             int     `mapstructure:"delay_max_ms"`             // 随机间隔上限(毫秒)
	NavTimeoutMS           int     `mapstructure:"nav_timeout_ms"`           // 单次导航超时(毫秒)
	PostNavDelayMS         int     `mapstructure:"post_nav_delay_ms"`        // 导航后固定等待(毫秒)
	DomainTimeoutMS        int     `mapstructure:"domain_timeout_ms"`        // 单域名硬超时(毫秒)
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	FailedManifest string `mapstructure:"failed_manifest"` // 失败域名清单路径
	FlushEvery     int    `mapstructure:"flush_every"`     // CSV写入器缓冲条数
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configPath != "" {
		// 使用指定的配置文件
		v.SetConfigFile(configPath)
	} else {
		// 搜索默认位置
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// 添加配置搜索路径
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		// 用户主目录
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".logocrawl"))
		}
	}

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果配置文件不存在,使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在,使用默认值
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 全局爬取默认值
	v.SetDefault("crawl.max_domains", 1000)

	// 静态阶段默认值
	v.SetDefault("static.workers", 0)
	v.SetDefault("static.timeout_ms", 10000)
	v.SetDefault("static.connect_ms", 5000)
	v.SetDefault("static.tls_handshake_ms", 5000)
	v.SetDefault("static.read_header_ms", 5000)
	v.SetDefault("static.max_idle_conns", 128)
	v.SetDefault("static.min_html_bytes", 50)

	// 渲染阶段默认值
	v.SetDefault("render.workers", 0)
	v.SetDefault("render.tabs", 4)
	v.SetDefault("render.headless", true)
	v.SetDefault("render.page_max_uses", 25)
	v.SetDefault("render.restart_every_n", 50)
	v.SetDefault("render.memory_check_interval", 10)
	v.SetDefault("render.memory_restart_threshold", 0.75)
	v.SetDefault("render.delay_min_ms", 500)
	v.SetDefault("render.delay_max_ms", 1500)
	v.SetDefault("render.nav_timeout_ms", 8000)
	v.SetDefault("render.post_nav_delay_ms", 800)
	v.SetDefault("render.domain_timeout_ms", 12000)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.failed_manifest", "failed_domains.csv")
	v.SetDefault("output.flush_every", 10)
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(
	maxDomains int,
	staticWorkers int,
	renderWorkers int,
	tabs int,
	headless bool,
	failedManifest string,
) {
	if maxDomains > 0 {
		c.Crawl.MaxDomains = maxDomains
	}
	if staticWorkers > 0 {
		c.Static.Workers = staticWorkers
	}
	if renderWorkers > 0 {
		c.Render.Workers = renderWorkers
	}
	if tabs > 0 {
		c.Render.Tabs = tabs
	}
	c.Render.Headless = headless
	if failedManifest != "" {
		c.Output.FailedManifest = failedManifest
	}
}
