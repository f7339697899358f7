package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/bitable-doc/api/rest"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 接口",
		Long: `启动 HTTP 服务，通过 POST 上传 .base 文件内容获取翻译结果：
  POST /api/v1/translate    工作流翻译（?format=markdown 返回自动化地图）
  POST /api/v1/schema       字段目录与关联关系
  POST /api/v1/schema/xlsx  字段目录工作簿
  POST /api/v1/audit        完整性校验
  POST /api/v1/expression   在导出文件的符号表下翻译单条公式`,
		Example: `  bitable-doc serve
  bitable-doc serve --address :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("address") {
				opts.cfg.Server.Address = address
				if err := opts.cfg.Validate(); err != nil {
					return err
				}
			}
			gen, err := opts.generator()
			if err != nil {
				return err
			}
			server := rest.NewServer(gen, &opts.cfg.Server, opts.logger.Named("http"))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts.printf(cmd.ErrOrStderr(), "bitable-doc %s 正在监听 %s，按 Ctrl+C 停止。\n", Version, opts.cfg.Server.Address)
			opts.logger.Info("HTTP 服务启动", zap.String("address", opts.cfg.Server.Address))

			if err := server.StartWithContext(ctx); err != nil {
				return fmt.Errorf("HTTP 服务异常退出: %w", err)
			}
			opts.logger.Info("HTTP 服务已停止")
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "HTTP 监听地址，覆盖 server.address")
	return cmd
}
