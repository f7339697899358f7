package cmd

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/bitable-doc/internal/config"
	"yqhp/bitable-doc/internal/generator"
	"yqhp/bitable-doc/internal/render"
)

// docKind 描述一个单文档子命令
type docKind struct {
	use     string
	short   string
	long    string
	name    func(generator.Names) string
	content func(*generator.Bundle) string
	data    func(*generator.Bundle) any
}

var (
	docAutomation = docKind{
		use:     "automation",
		short:   "生成自动化地图",
		long:    `翻译导出文件中的全部自动化工作流：触发条件、查找与写入记录、分支和循环，输出为 Markdown 或 JSON。`,
		name:    func(n generator.Names) string { return n.Automation },
		content: func(b *generator.Bundle) string { return b.Documents.Automation },
		data:    func(b *generator.Bundle) any { return b.Workflows },
	}
	docFields = docKind{
		use:     "fields",
		short:   "生成全量字段表",
		long:    `列出每张数据表的全部字段、类型、AI 配置和翻译后的公式。可以同时导出 xlsx 工作簿。`,
		name:    func(n generator.Names) string { return n.Fields },
		content: func(b *generator.Bundle) string { return b.Documents.Fields },
		data:    func(b *generator.Bundle) any { return b.Catalog },
	}
	docRelations = docKind{
		use:     "relations",
		short:   "生成关联关系图",
		long:    `列出所有跨表关联的字段：公式引用、查找引用、单向/双向关联和选项同步。`,
		name:    func(n generator.Names) string { return n.Relations },
		content: func(b *generator.Bundle) string { return b.Documents.Relations },
		data:    func(b *generator.Bundle) any { return b.Relations },
	}
	docAudit = docKind{
		use:     "audit",
		short:   "生成完整性校验报告",
		long:    `检查未解析的步骤字段、文档中无法翻译的 ID 以及草稿里失效的表和字段引用。`,
		name:    func(n generator.Names) string { return n.Audit },
		content: func(b *generator.Bundle) string { return b.Documents.Audit },
		data:    func(b *generator.Bundle) any { return b.Report },
	}
)

func newDocumentCmd(opts *rootOptions, kind docKind) *cobra.Command {
	var (
		format string
		xlsx   string
	)
	cmd := &cobra.Command{
		Use:   kind.use + " [file.base]",
		Short: kind.short,
		Long:  kind.long,
		Example: fmt.Sprintf(`  bitable-doc %[1]s demo.base
  bitable-doc %[1]s demo.base --format json
  bitable-doc %[1]s demo.base -o ./docs`, kind.use),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != config.FormatMarkdown && format != config.FormatJSON {
				return fmt.Errorf("不支持的输出格式: %s", format)
			}
			b, gen, err := opts.load(cmd, args)
			if err != nil {
				return err
			}

			content, err := documentBytes(kind, b, format)
			if err != nil {
				return err
			}
			if opts.toStdout() {
				if _, err := cmd.OutOrStdout().Write(content); err != nil {
					return err
				}
			} else {
				path := opts.cfg.Output.Path(fileName(kind.name(gen.Names()), format))
				if err := render.WriteFile(path, content); err != nil {
					return err
				}
				opts.printf(cmd.ErrOrStderr(), "已生成: %s\n", path)
			}

			if xlsx != "" {
				if err := writeWorkbook(opts, cmd.ErrOrStderr(), b, xlsx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", config.FormatMarkdown, "输出格式: markdown 或 json")
	if kind.use == docFields.use {
		cmd.Flags().StringVar(&xlsx, "xlsx", "", "同时把字段目录写入该 xlsx 文件")
	}
	return cmd
}

func newAllCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all [file.base]",
		Short: "生成全部文档",
		Long: `一次生成自动化地图、全量字段表、关联关系图和完整性校验报告，写入输出目录。
校验报告会扫描另外三份文档中的未解析引用。配置中的 output.formats 决定是否额外输出 json 与 xlsx。`,
		Example: `  bitable-doc all demo.base -o ./docs
  bitable-doc all --config bitable-doc.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, gen, err := opts.load(cmd, args)
			if err != nil {
				return err
			}
			out := opts.cfg.Output
			names := gen.Names()
			stderr := cmd.ErrOrStderr()

			if out.Wants(config.FormatMarkdown) {
				for _, kind := range []docKind{docAutomation, docFields, docRelations, docAudit} {
					path := out.Path(kind.name(names))
					if err := render.WriteFile(path, []byte(kind.content(b))); err != nil {
						return err
					}
					opts.printf(stderr, "已生成: %s\n", path)
				}
			}
			if out.Wants(config.FormatJSON) {
				for _, kind := range []docKind{docAutomation, docFields, docRelations, docAudit} {
					content, err := documentBytes(kind, b, config.FormatJSON)
					if err != nil {
						return err
					}
					path := out.Path(fileName(kind.name(names), config.FormatJSON))
					if err := render.WriteFile(path, content); err != nil {
						return err
					}
					opts.printf(stderr, "已生成: %s\n", path)
				}
			}
			if out.Wants(config.FormatXLSX) {
				if err := writeWorkbook(opts, stderr, b, out.Path(out.Workbook)); err != nil {
					return err
				}
			}

			opts.printf(stderr, "完成: %s\n", b.Summary())
			return nil
		},
	}
}

func (o *rootOptions) load(cmd *cobra.Command, args []string) (*generator.Bundle, *generator.Generator, error) {
	path, err := o.inputPath(args)
	if err != nil {
		return nil, nil, err
	}
	gen, err := o.generator()
	if err != nil {
		return nil, nil, err
	}
	o.logger.Info("开始处理导出文件", zap.String("input", path))
	b, err := gen.LoadFile(cmd.Context(), path)
	if err != nil {
		return nil, nil, fmt.Errorf("处理 %s 失败: %w", path, err)
	}
	return b, gen, nil
}

func documentBytes(kind docKind, b *generator.Bundle, format string) ([]byte, error) {
	if format == config.FormatJSON {
		var buf bytes.Buffer
		if err := render.WriteJSON(&buf, kind.data(b)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return []byte(kind.content(b)), nil
}

// fileName 把 .md 文件名换成对应格式的扩展名
func fileName(name, format string) string {
	if format != config.FormatJSON {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
}

func writeWorkbook(opts *rootOptions, w io.Writer, b *generator.Bundle, path string) error {
	if err := render.SaveFieldWorkbook(path, b.Catalog); err != nil {
		return err
	}
	opts.printf(w, "已生成: %s\n", path)
	return nil
}
