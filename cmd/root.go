// Package cmd 提供 bitable-doc CLI 的命令实现
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/bitable-doc/internal/config"
	"yqhp/bitable-doc/internal/generator"
	"yqhp/bitable-doc/pkg/logger"
)

// Version 是当前版本号
const Version = "0.1.0"

// rootOptions 是所有子命令共享的全局状态
type rootOptions struct {
	cfgFile   string
	debug     bool
	quiet     bool
	outputDir string

	cfg    *config.Config
	runID  string
	logger *zap.Logger
}

var rootCmd = NewRootCmd()

// NewRootCmd 创建完整的命令树
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bitable-doc",
		Short: "飞书多维表格 .base 导出文件的文档生成器",
		Long: `bitable-doc 读取飞书多维表格导出的 .base 文件，把其中的表结构、公式和自动化流程
翻译成可读的中文文档：自动化地图、全量字段表、关联关系图与完整性校验报告。`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "配置文件路径")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "启用调试日志")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "静默模式，只输出错误")
	cmd.PersistentFlags().StringVarP(&opts.outputDir, "output-dir", "o", "", "文档输出目录，不指定时单个文档写到标准输出")

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate("bitable-doc {{.Version}}\n")

	cmd.AddCommand(
		newDocumentCmd(opts, docAutomation),
		newDocumentCmd(opts, docFields),
		newDocumentCmd(opts, docRelations),
		newDocumentCmd(opts, docAudit),
		newAllCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// init 加载配置并初始化日志，优先级：默认值 < 配置文件 < 环境变量 < 命令行参数
func (o *rootOptions) init(cmd *cobra.Command) error {
	overrides := make(map[string]string)
	if o.outputDir != "" {
		overrides["output.dir"] = o.outputDir
	}
	cfg, err := config.NewLoader().
		WithConfigPath(o.cfgFile).
		WithCmdArgs(overrides).
		Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	logger.Init(cfg.Logging.Logger())
	switch {
	case o.debug:
		logger.SetLevel("debug")
	case o.quiet:
		logger.SetLevel("error")
	default:
		logger.SetLevel(cfg.Logging.Level)
	}

	o.runID = uuid.NewString()
	o.logger = logger.Named("cli").With(
		zap.String("run_id", o.runID),
		zap.String("command", cmd.Name()),
	)
	o.logger.Debug("配置已加载", zap.String("config", o.cfgFile), zap.String("output_dir", cfg.Output.Dir))
	return nil
}

func (o *rootOptions) generator() (*generator.Generator, error) {
	return generator.NewFromConfig(o.cfg, o.logger)
}

// inputPath 取命令行参数，否则取配置中的 input.path
func (o *rootOptions) inputPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if o.cfg.Input.Path != "" {
		return o.cfg.Input.Path, nil
	}
	return "", fmt.Errorf("需要指定 .base 文件路径")
}

// toStdout 未通过 -o 指定目录时，单个文档写到标准输出
func (o *rootOptions) toStdout() bool {
	return o.outputDir == ""
}

// printf 非静默模式下向 stderr 输出提示
func (o *rootOptions) printf(w io.Writer, format string, a ...any) {
	if !o.quiet {
		fmt.Fprintf(w, format, a...)
	}
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}
