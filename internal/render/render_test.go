package render

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"yqhp/bitable-doc/internal/audit"
	"yqhp/bitable-doc/internal/interpreter"
	"yqhp/bitable-doc/internal/schema"
	"yqhp/bitable-doc/internal/workflow"
)

var fixedTime = time.Date(2024, 3, 5, 8, 9, 10, 0, time.UTC)

func newTestRenderer() *Renderer {
	return New(WithClock(func() time.Time { return fixedTime }), WithLocation(time.UTC))
}

func TestAutomationDocument(t *testing.T) {
	results := []workflow.Result{
		{
			ID: "wf1", Title: "订单审批", Enabled: true, Status: workflow.StatusEnabled,
			Steps: []interpreter.StepDescription{
				{Index: 1, Title: "新增记录时", Lines: []interpreter.Line{
					{Label: "涉及表", Value: "「订单」"},
					{Label: "设置字段", Children: []interpreter.Line{{Value: "「状态」= 新"}}},
					{Label: "返回字段", Value: "\n- 「金额」\n- 「客户」"},
				}},
			},
		},
		{ID: "wf2", Title: "坏草稿", Status: workflow.StatusDisabled, Err: errors.New("bad")},
	}

	doc := newTestRenderer().Automation(results)

	assert.True(t, strings.HasPrefix(doc, "# 自动化地图\n\n> 生成时间: 2024-03-05 08:09:10\n> 工作流总数: 2\n"))
	assert.Contains(t, doc, "- 已启用: 1 个\n- 已禁用: 1 个\n")
	assert.Contains(t, doc, "## 订单审批\n- **工作流 ID**: `wf1`\n- **状态**: ✅ 已启用\n- **执行逻辑**:\n")
	assert.Contains(t, doc, "- **步骤 1: 新增记录时**\n  - 涉及表: 「订单」\n  - 设置字段:\n    - 「状态」= 新\n")
	assert.Contains(t, doc, "  - 返回字段: \n    - 「金额」\n    - 「客户」\n")
	assert.Contains(t, doc, "## 坏草稿\n- **工作流 ID**: `wf2`\n- **状态**: ⚪ 已禁用\n- **步骤数据**: ⚠️ 无法解析，已跳过\n")
}

var testCatalog = schema.Catalog{Tables: []schema.TableFields{
	{ID: "tblB", Name: "客户", Fields: []schema.Field{
		{ID: "fB1", Name: "名称", TypeName: "文本", Config: schema.NoConfig},
	}},
	{ID: "tblA", Name: "订单", Fields: []schema.Field{
		{ID: "fA1", Name: "说明", TypeName: "文本", Description: "第一行 | 第二行", Config: "a|b\nc"},
		{ID: "fA2", Name: "摘要", TypeName: "文本", AI: true, AIDescription: "提示词: 总结", Config: schema.NoConfig},
		{ID: "fA3", Name: "长配置", TypeName: "公式", Config: strings.Repeat("字", 600)},
	}},
}}

func TestFieldsDocument(t *testing.T) {
	doc := newTestRenderer().Fields(testCatalog)

	assert.Contains(t, doc, "> 数据表总数: 2\n")
	assert.Contains(t, doc, "## 📊 订单\n- 表 ID: `tblA`\n- 字段数量: 3\n\n")
	assert.Contains(t, doc, "| **说明** | 文本 | 否 | 第一行 \\| 第二行 | a\\|b c |\n")
	assert.Contains(t, doc, "| **摘要** | 文本 | 🤖 是 |  | **AI配置**: 提示词: 总结<br><br>- |\n")
	assert.Contains(t, doc, strings.Repeat("字", cellLimit)+"... |\n")
	assert.NotContains(t, doc, strings.Repeat("字", cellLimit+1))
}

func TestRelationsDocument(t *testing.T) {
	m := schema.RelationshipMap{
		TotalTables:   3,
		RelationCount: 2,
		Tables: []schema.TableRelations{{ID: "tblA", Name: "订单", Relations: []schema.Relation{
			{FieldName: "等级", Kind: schema.RelationLookup, TargetTable: "客户", TargetField: "等级",
				Logic: "从「客户」的「等级」字段获取数据", Filter: "「名称」= 「客户」", Formula: "「客户」.「等级」"},
			{FieldName: "合计", Kind: schema.RelationFormula, TargetTable: "客户", TargetField: schema.NoTarget,
				Logic: "通过公式计算引用外部表数据", Formula: strings.Repeat("x", 120)},
		}}},
	}
	doc := newTestRenderer().Relations(m)

	assert.Contains(t, doc, "**统计摘要**: 共 1 张表存在跨表关联，涉及 2 个关联字段。")
	assert.Contains(t, doc, "- 对外关联字段数: 2\n")
	assert.Contains(t, doc, "| **等级** | 查找引用 | 客户 | 等级 | 从「客户」的「等级」字段获取数据<br>筛选条件: 「名称」= 「客户」<br>公式: `「客户」.「等级」` |\n")
	assert.Contains(t, doc, "<details><summary>查看完整公式</summary>`"+strings.Repeat("x", 120)+"`</details>")
}

func TestAuditDocument(t *testing.T) {
	rep := audit.Report{
		Coverage: audit.KeyCoverage{
			Workflows: 4, DataKeys: 8, UnknownDataKeys: 2,
			Unknown: []audit.UnknownKey{
				{Level: audit.LevelStepData, Context: "AddRecordTrigger", Key: "oddKey", Count: 3, Sample: "x"},
				{Level: audit.LevelTop, Key: "newSection", Count: 1, Sample: "[空]"},
			},
		},
		Findings: []audit.Finding{{
			Document: DocAutomation, Line: 12, Text: "[已删除的表:tblGone]", ID: "tblGone",
			Heading: "订单流程", Row: "未知行", Category: audit.CategoryUnresolved,
			Reason: audit.ReasonMissingData, Severity: audit.SeverityMedium, Diagnosis: "ID `tblGone` 在源数据中不存在。",
		}},
		References: audit.Inventory{TableRefs: 5, FieldRefs: 7, Unresolved: []audit.Reference{
			{Kind: audit.RefField, ID: "fldGone", Count: 2, Workflows: []string{"wf1", "wf3"}},
		}, Ambiguous: []audit.Ambiguity{
			{FieldID: "fldDup", Chosen: "「订单」.「状态」", Alternatives: []string{"「客户」.「等级」"}, Count: 3, Workflows: []string{"wf1"}},
		}},
	}
	doc := newTestRenderer().Audit(rep)

	assert.Contains(t, doc, "| 工作流解析 | ✅ 4 个工作流已解析 |\n")
	assert.Contains(t, doc, "| 字段覆盖率 | ⚠️ 75.0% (有 2 个字段未解析) |\n")
	assert.Contains(t, doc, "| ID翻译 | ⚠️ 发现 1 个未翻译ID |\n")
	assert.Contains(t, doc, "- **位置**: AddRecordTrigger 类型的步骤\n")
	assert.Contains(t, doc, "- 顶层: `newSection` (出现 1 次)\n")
	assert.Contains(t, doc, "- **错误位置**: [自动化地图.md:12](./自动化地图.md#L12)\n")
	assert.Contains(t, doc, "  2. 定位到 **订单流程**\n")
	assert.Contains(t, doc, "| 字段 | `fldGone` | 2 | wf1, wf3 |\n")
	assert.Contains(t, doc, "| 草稿引用 | 表引用 5 处，字段引用 7 处，1 个无法解析，1 个存在歧义 |\n")
	assert.Contains(t, doc, "| `fldDup` | 「订单」.「状态」 | 「客户」.「等级」 | 3 | wf1 |\n")
	assert.NotContains(t, doc, "解析完成")
}

func TestAuditDocumentClean(t *testing.T) {
	doc := newTestRenderer().Audit(audit.Report{Coverage: audit.KeyCoverage{Workflows: 1}})
	assert.Contains(t, doc, "| 字段覆盖率 | ✅ 100% 全部覆盖 |\n")
	assert.Contains(t, doc, "| ID翻译 | ✅ 100% 已翻译 |\n")
	assert.Contains(t, doc, "## ✅ 解析完成\n")
	assert.NotContains(t, doc, "草稿中无法解析的引用")
	assert.NotContains(t, doc, "存在歧义的字段 ID")
}

func TestJSON(t *testing.T) {
	res := workflow.Result{ID: "wf1", Title: "t", Err: errors.New("hidden"), Error: "shown"}

	data, err := JSON(res, false)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, sonic.Unmarshal(data, &back))
	assert.Equal(t, "wf1", back["id"])
	assert.Equal(t, "shown", back["error"])
	assert.NotContains(t, string(data), "hidden")

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testCatalog))
	assert.Contains(t, buf.String(), "\n  \"tables\": [")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestFieldWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFieldWorkbook(&buf, testCatalog))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"客户", "订单"}, f.GetSheetList())
	rows, err := f.GetRows("订单")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "字段名称", rows[0][0])
	assert.Equal(t, []string{"摘要", "fA2", "文本", "🤖 是", "提示词: 总结", "", "-"}, rows[2])
}

func TestFieldWorkbookEmpty(t *testing.T) {
	f, err := FieldWorkbook(schema.Catalog{})
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{defaultSheetName}, f.GetSheetList())
}

func TestUniqueSheetName(t *testing.T) {
	used := make(map[string]bool)
	assert.Equal(t, "a_b(c)", uniqueSheetName("a/b[c]", used))
	assert.Equal(t, "a_b(c)(2)", uniqueSheetName("a:b[c]", used))
	assert.Equal(t, defaultSheetName, uniqueSheetName("''", used))

	long := strings.Repeat("表", 40)
	first := uniqueSheetName(long, used)
	assert.Equal(t, maxSheetName, len([]rune(first)))
	second := uniqueSheetName(long, used)
	assert.Equal(t, maxSheetName, len([]rune(second)))
	assert.True(t, strings.HasSuffix(second, "(2)"))
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", DocFields)
	require.NoError(t, WriteFile(path, []byte("# x\n")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# x\n", string(data))
}
