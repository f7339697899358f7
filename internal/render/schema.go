package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"yqhp/bitable-doc/internal/expression"
	"yqhp/bitable-doc/internal/schema"
)

// Fields renders the 全量字段表 document.
func (r *Renderer) Fields(c schema.Catalog) string {
	var b strings.Builder
	r.header(&b, "全量字段表", fmt.Sprintf("数据表总数: %d", len(c.Tables)))

	for _, t := range c.Tables {
		b.WriteString("## 📊 " + t.Name + "\n")
		b.WriteString("- 表 ID: `" + t.ID + "`\n")
		fmt.Fprintf(&b, "- 字段数量: %d\n\n", len(t.Fields))

		b.WriteString("| 字段名称 | 字段类型 | 是否AI字段 | 业务描述 | 完整配置/公式 |\n")
		b.WriteString("| :--- | :--- | :--- | :--- | :--- |\n")
		for _, f := range t.Fields {
			fmt.Fprintf(&b, "| **%s** | %s | %s | %s | %s |\n",
				cell(f.Name, 0), f.TypeName, aiMarker(f.AI), cell(f.Description, 0), configCell(f))
		}
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

func aiMarker(ai bool) string {
	if ai {
		return "🤖 是"
	}
	return "否"
}

func configCell(f schema.Field) string {
	config := cell(f.Config, cellLimit)
	if f.AI && f.AIDescription != "" {
		return "**AI配置**: " + cell(f.AIDescription, 0) + "<br><br>" + config
	}
	return config
}

// Relations renders the 关联关系图 document.
func (r *Renderer) Relations(m schema.RelationshipMap) string {
	var b strings.Builder
	r.header(&b, "关联关系图", fmt.Sprintf("数据表总数: %d", m.TotalTables))

	fmt.Fprintf(&b, "**统计摘要**: 共 %d 张表存在跨表关联，涉及 %d 个关联字段。\n\n", len(m.Tables), m.RelationCount)
	b.WriteString("本文档列出了系统中所有具有 **跨表关联** 的字段，包括：\n")
	b.WriteString("- **公式关联**: 通过公式引用其他表的数据进行计算\n")
	b.WriteString("- **查找引用**: 从关联记录中获取特定字段的值\n")
	b.WriteString("- **选项同步**: 下拉选项从其他表字段动态获取\n")
	b.WriteString("- **记录关联**: 与其他表建立记录级别的关联\n\n")

	for _, t := range m.Tables {
		b.WriteString("## 📊 " + t.Name + "\n")
		b.WriteString("- 表 ID: `" + t.ID + "`\n")
		fmt.Fprintf(&b, "- 对外关联字段数: %d\n\n", len(t.Relations))

		b.WriteString("| 字段名称 | 关联类型 | 目标表 | 目标字段 | 逻辑说明 |\n")
		b.WriteString("| :--- | :--- | :--- | :--- | :--- |\n")
		for _, rel := range t.Relations {
			fmt.Fprintf(&b, "| **%s** | %s | %s | %s | %s |\n",
				cell(rel.FieldName, 0), rel.Kind, cell(rel.TargetTable, 0), cell(rel.TargetField, 0), logicCell(rel))
		}
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

// logicCell joins the logic, the filter summary and the formula. Long
// formulas collapse into a details block.
func logicCell(rel schema.Relation) string {
	logic := rel.Logic
	if rel.Filter != "" {
		logic += "<br>" + expression.FilterPrefix + rel.Filter
	}
	logic = cell(logic, 0)
	if rel.Formula == "" {
		return logic
	}
	formula := cell(rel.Formula, 0)
	if utf8.RuneCountInString(formula) > formulaInline {
		return logic + "<br><details><summary>查看完整公式</summary>`" + formula + "`</details>"
	}
	return logic + "<br>公式: `" + formula + "`"
}
