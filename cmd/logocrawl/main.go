package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/logocrawl/internal/core"
	"github.com/RecoveryAshes/logocrawl/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	configFile string
	logLevel   string

	inputFile      string
	maxDomains     int
	staticWorkers  int
	renderWorkers  int
	tabs           int
	headless       bool
	failedManifest string
)

var rootCmd = &cobra.Command{
	Use:   "logocrawl",
	Short: "批量域名logo发现工具",
	Long: `logocrawl - 自适应两阶段logo爬取工具

从stdin读取换行分隔的域名列表,为每个域名发现一个logo地址:
  • 阶段一: 廉价的静态HTTP抓取,多数域名在此完结
  • 阶段二: 浏览器渲染兜底,处理JS渲染和反爬站点
  • 结果以 domain,logo_url CSV格式增量写到stdout
  • 未找到logo的域名落入失败清单文件

使用示例:
  cat domains.txt | logocrawl
  logocrawl -i domains.txt --tabs 8 > logos.csv

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		if err := ValidateFlags(maxDomains, staticWorkers, renderWorkers, tabs); err != nil {
			return err
		}

		appConfig, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig.MergeCLIFlags(maxDomains, staticWorkers, renderWorkers, tabs, headless, failedManifest)

		// 信号处理: 中断后停止准入,让在途任务收尾
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			if ctx.Err() == context.Canceled {
				utils.Warn("收到中断信号,停止接收新域名,等待在途任务收尾...")
			}
		}()

		// 读域名列表
		input, err := openInput()
		if err != nil {
			return err
		}
		defer func() {
			if input != os.Stdin {
				_ = input.(io.Closer).Close()
			}
		}()

		domains, received, err := utils.ReadDomains(input, appConfig.Crawl.MaxDomains)
		if err != nil {
			return fmt.Errorf("读取域名列表失败: %w", err)
		}
		if len(domains) == 0 {
			utils.Warn("没有收到任何域名,直接退出")
			return nil
		}

		// 执行两阶段爬取
		orchestrator := core.NewOrchestrator(appConfig, os.Stdout)
		if _, err := orchestrator.Run(ctx, domains, received); err != nil {
			return fmt.Errorf("爬取执行失败: %w", err)
		}

		utils.Info("✨ 任务完成!")
		return nil
	},
}

// openInput 打开域名输入流,-i指定文件时读文件,否则读stdin
func openInput() (io.Reader, error) {
	if inputFile == "" {
		return os.Stdin, nil
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("打开域名文件失败 [%s]: %w", inputFile, err)
	}
	return f, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("logocrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// 爬取参数
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "域名列表文件 (默认读stdin)")
	rootCmd.Flags().IntVar(&maxDomains, "max-domains", 0, "单次运行域名上限 (默认1000)")
	rootCmd.Flags().IntVar(&staticWorkers, "static-workers", 0, "静态阶段并发数 (默认按资源自动计算)")
	rootCmd.Flags().IntVar(&renderWorkers, "render-workers", 0, "渲染阶段并发数 (默认按资源自动计算)")
	rootCmd.Flags().IntVar(&tabs, "tabs", 0, "浏览器标签页池大小 (默认4)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVar(&failedManifest, "failed-output", "", "失败域名清单路径 (默认failed_domains.csv)")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
