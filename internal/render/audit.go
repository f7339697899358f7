package render

import (
	"fmt"
	"strings"

	"yqhp/bitable-doc/internal/audit"
)

const (
	maxKeyProblems  = 5
	maxFindings     = 10
	maxReferenceRow = 20
)

// Audit renders the 完整性校验报告 document.
func (r *Renderer) Audit(rep audit.Report) string {
	var b strings.Builder
	r.header(&b, "完整性校验报告")
	b.WriteString("---\n\n")

	cov := rep.Coverage
	b.WriteString("## 📊 校验结果\n\n")
	b.WriteString("| 项目 | 结果 |\n")
	b.WriteString("|------|------|\n")
	fmt.Fprintf(&b, "| 工作流解析 | ✅ %d 个工作流已解析 |\n", cov.Workflows)
	if cov.UnknownDataKeys == 0 {
		b.WriteString("| 字段覆盖率 | ✅ 100% 全部覆盖 |\n")
	} else {
		fmt.Fprintf(&b, "| 字段覆盖率 | ⚠️ %.1f%% (有 %d 个字段未解析) |\n", cov.Percent(), cov.UnknownDataKeys)
	}
	if unresolved := rep.Count(audit.CategoryUnresolved); unresolved == 0 {
		b.WriteString("| ID翻译 | ✅ 100% 已翻译 |\n")
	} else {
		fmt.Fprintf(&b, "| ID翻译 | ⚠️ 发现 %d 个未翻译ID |\n", unresolved)
	}
	refs := rep.References
	fmt.Fprintf(&b, "| 草稿引用 | 表引用 %d 处，字段引用 %d 处，%d 个无法解析，%d 个存在歧义 |\n\n",
		refs.TableRefs, refs.FieldRefs, len(refs.Unresolved), len(refs.Ambiguous))

	if keys := cov.StepDataUnknown(); len(keys) > 0 {
		b.WriteString("---\n\n")
		b.WriteString("## ⚠️ 未解析的步骤字段\n\n")
		for i, k := range keys {
			if i == maxKeyProblems {
				fmt.Fprintf(&b, "*还有 %d 个类似问题...*\n\n", len(keys)-maxKeyProblems)
				break
			}
			fmt.Fprintf(&b, "### 问题 %d: 未解析的步骤字段\n\n", i+1)
			fmt.Fprintf(&b, "- **位置**: %s 类型的步骤\n", k.Context)
			fmt.Fprintf(&b, "- **详情**: 字段 `%s` 未被解析 (出现 %d 次)\n", k.Key, k.Count)
			fmt.Fprintf(&b, "- **示例值**: `%s`\n\n", cell(k.Sample, 0))
		}
	}
	if other := otherUnknownKeys(cov.Unknown); len(other) > 0 {
		b.WriteString("### 其他层级的未知键\n\n")
		for _, k := range other {
			fmt.Fprintf(&b, "- %s: `%s` (出现 %d 次)\n", k.Level, k.Key, k.Count)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	if len(rep.Findings) == 0 {
		b.WriteString("## ✅ 解析完成\n\n")
		b.WriteString("所有内容均已成功解析，无需额外处理。\n\n")
	} else {
		b.WriteString("## ⚠️ 发现的问题 (需人工介入)\n\n")
		for i, f := range rep.Findings {
			if i == maxFindings {
				fmt.Fprintf(&b, "*还有 %d 个类似问题...*\n\n", len(rep.Findings)-maxFindings)
				break
			}
			writeFinding(&b, i+1, f)
		}
	}

	if len(refs.Unresolved) > 0 {
		b.WriteString("---\n\n")
		b.WriteString("## 🔗 草稿中无法解析的引用\n\n")
		b.WriteString("| 类型 | ID | 次数 | 工作流 |\n")
		b.WriteString("| :--- | :--- | :--- | :--- |\n")
		for i, ref := range refs.Unresolved {
			if i == maxReferenceRow {
				fmt.Fprintf(&b, "\n*还有 %d 个未列出...*\n", len(refs.Unresolved)-maxReferenceRow)
				break
			}
			fmt.Fprintf(&b, "| %s | `%s` | %d | %s |\n", ref.Kind, ref.ID, ref.Count, strings.Join(ref.Workflows, ", "))
		}
		b.WriteString("\n")
	}

	if len(refs.Ambiguous) > 0 {
		b.WriteString("---\n\n")
		b.WriteString("## 🔀 存在歧义的字段 ID\n\n")
		b.WriteString("同一字段 ID 注册在多张表中，文档采用第一个注册的名称，请确认是否正确。\n\n")
		b.WriteString("| ID | 采用 | 其他候选 | 次数 | 工作流 |\n")
		b.WriteString("| :--- | :--- | :--- | :--- | :--- |\n")
		for i, a := range refs.Ambiguous {
			if i == maxReferenceRow {
				fmt.Fprintf(&b, "\n*还有 %d 个未列出...*\n", len(refs.Ambiguous)-maxReferenceRow)
				break
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s | %d | %s |\n", a.FieldID, cell(a.Chosen, 0),
				cell(strings.Join(a.Alternatives, ", "), 0), a.Count, strings.Join(a.Workflows, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("## 💬 如果您发现其他问题\n\n")
	b.WriteString("在阅读生成的文档时，如果看到以下情况：\n\n")
	b.WriteString("- 显示为 `fldXXX` 或 `tblXXX` 格式的内容\n")
	b.WriteString("- 显示为 `未知类型(数字)` 的字段类型\n")
	b.WriteString("- 显示为英文的操作或字段\n\n")
	b.WriteString("请记录问题出现的文档与行号，并附上对应字段或自动化的配置截图。\n")
	return b.String()
}

func writeFinding(b *strings.Builder, n int, f audit.Finding) {
	fmt.Fprintf(b, "### 问题 %d: %s\n\n", n, f.Reason)
	fmt.Fprintf(b, "- **错误位置**: [%s:%d](./%s#L%d)\n", f.Document, f.Line, f.Document, f.Line)
	fmt.Fprintf(b, "- **精确定位**: %s\n", f.Context())
	fmt.Fprintf(b, "- **未解析内容**: `%s`\n", f.Text)
	fmt.Fprintf(b, "- **严重程度**: %s\n", f.Severity)
	fmt.Fprintf(b, "- **诊断结果**: %s\n", f.Diagnosis)
	b.WriteString("- **建议操作**: \n" + action(f) + "\n\n")
}

func action(f audit.Finding) string {
	switch f.Reason {
	case audit.ReasonParserGap:
		return "请检查 ID 映射逻辑。"
	case audit.ReasonMissingData:
		return "请执行以下操作：\n" +
			"  1. 打开飞书多维表格\n" +
			"  2. 定位到 **" + f.Heading + "**\n" +
			"  3. 找到 **" + f.Row + "** (或对应自动化流程)\n" +
			"  4. 检查是否有显示为 **红色错误** 或 **已删除** 的字段引用"
	}
	return "解析逻辑需要补充对该内容的翻译。"
}

func otherUnknownKeys(keys []audit.UnknownKey) []audit.UnknownKey {
	var out []audit.UnknownKey
	for _, k := range keys {
		if k.Level != audit.LevelStepData {
			out = append(out, k)
		}
	}
	return out
}
