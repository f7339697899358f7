package render

import (
	"fmt"
	"strings"

	"yqhp/bitable-doc/internal/interpreter"
	"yqhp/bitable-doc/internal/workflow"
)

// Automation renders the 自动化地图 document.
func (r *Renderer) Automation(results []workflow.Result) string {
	enabled := 0
	for _, res := range results {
		if res.Enabled {
			enabled++
		}
	}

	var b strings.Builder
	r.header(&b, "自动化地图", fmt.Sprintf("工作流总数: %d", len(results)))
	fmt.Fprintf(&b, "- 已启用: %d 个\n", enabled)
	fmt.Fprintf(&b, "- 已禁用: %d 个\n\n", len(results)-enabled)
	b.WriteString("---\n\n")
	b.WriteString("> **🔍 如何对应飞书界面？**\n")
	b.WriteString("> 1. **看名字**：文档已读取飞书侧边栏的真实名称，与界面完全一致。\n")
	b.WriteString("> 2. **看 ID**：如果需要精确排查，可参考自动化 ID。\n\n")

	for _, res := range results {
		writeWorkflow(&b, res)
	}
	return b.String()
}

func writeWorkflow(b *strings.Builder, res workflow.Result) {
	b.WriteString("## " + res.Title + "\n")
	b.WriteString("- **工作流 ID**: `" + res.ID + "`\n")
	b.WriteString("- **状态**: " + res.Status + "\n")
	if res.Err != nil {
		b.WriteString("- **步骤数据**: ⚠️ 无法解析，已跳过\n")
	}
	if len(res.Steps) > 0 {
		b.WriteString("- **执行逻辑**:\n")
		for _, step := range res.Steps {
			fmt.Fprintf(b, "- **步骤 %d: %s**\n", step.Index, step.Title)
			writeLines(b, step.Lines, "  ")
		}
	}
	b.WriteString("\n---\n\n")
}

// writeLines writes lines as a nested bullet list. Continuation lines of a
// multi-line value are indented under their bullet.
func writeLines(b *strings.Builder, lines []interpreter.Line, indent string) {
	for _, l := range lines {
		text := strings.ReplaceAll(l.Text(), "\n", "\n"+indent+"  ")
		b.WriteString(indent + "- " + text + "\n")
		writeLines(b, l.Children, indent+"  ")
	}
}
