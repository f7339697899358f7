package interpreter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/resolver"
)

const testSnapshot = `[{"schema": {"data": {"tables": [
	{"meta": {"id": "tbl1", "name": "颜色表"}, "fieldMap": {
		"fld1": {"name": "颜色", "type": 3, "property": {"options": [{"id": "opt1", "name": "Red"}, {"id": "opt2", "name": "Blue"}]}},
		"fld2": {"name": "数量", "type": 2}
	}}
]}}}]`

func newTestResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	snap, err := document.ParseString(testSnapshot)
	require.NoError(t, err)
	return resolver.New(registry.Build(document.Arr(snap)))
}

func parseSteps(t *testing.T, s string) []any {
	t.Helper()
	v, err := document.ParseString(s)
	require.NoError(t, err)
	return document.Arr(v)
}

func interpret(t *testing.T, steps string) []StepDescription {
	t.Helper()
	return Interpret(newTestResolver(t), parseSteps(t, steps), WithLocation(time.UTC))
}

func texts(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text())
	}
	return out
}

func TestStepSequencing(t *testing.T) {
	descs := interpret(t, `[
		{"id": "a", "type": "AddRecordTrigger", "data": {}},
		{"id": "b", "type": "IfElseBranch", "data": {"notMeetConditionStepId": "c"}},
		{"id": "c", "type": "Loop", "data": {"loopType": "forEach", "startChildStepId": "b"}}
	]`)
	require.Len(t, descs, 3)

	assert.Equal(t, 2, descs[1].Index)
	assert.Contains(t, texts(descs[1].Lines), "❌ 不满足: 跳转至步骤 3")
	assert.Contains(t, texts(descs[2].Lines), "循环体开始: 跳转至步骤 2")
	assert.Contains(t, texts(descs[2].Lines), "循环类型: 遍历每条记录")
}

func TestBranchConditionWithOption(t *testing.T) {
	descs := interpret(t, `[
		{"id": "b", "type": "IfElseBranch", "data": {
			"condition": {"conjunction": "And", "conditions": [
				{"leftValue": {"fields": [{"fieldId": "fld1"}]}, "operator": "is", "rightValue": ["opt1"]}
			]},
			"notMeetConditionStepId": "t"
		}},
		{"id": "x", "type": "AddRecordAction", "data": {}},
		{"id": "t", "type": "AddRecordAction", "data": {}}
	]`)

	b := descs[0]
	assert.Equal(t, "条件判断（If/Else）", b.Title)
	assert.Equal(t, []string{
		`**判断条件**: 「颜色」 等于 "Red"`,
		"✅ 满足时: 继续执行",
		"❌ 不满足: 跳转至步骤 3",
	}, texts(b.Lines))
	assert.True(t, b.Handled)
	assert.Empty(t, b.Unconsumed)
}

func TestBranchOperandsAndUnknownSuccessor(t *testing.T) {
	descs := interpret(t, `[
		{"id": "b", "type": "IfElseBranch", "data": {
			"condition": {"conjunction": "or", "conditions": [
				{"leftValue": {"type": "ref", "tagType": "RecordAttribute", "stepNum": 2, "attribute": "recordNum", "stepType": "FindRecordAction"},
				 "operator": "isGreater", "rightValue": [{"text": "0"}]},
				{"leftValue": {"type": "ref", "tagType": "step", "stepNum": 2, "fields": [{"fieldId": "fld2"}]}, "operator": "isEmpty"}
			]},
			"meetConditionStepId": "ghost"
		}}
	]`)

	assert.Equal(t, []string{
		`**判断条件**: [步骤2(查找记录)的记录数] 大于 "0" 或 [步骤2的「数量」] 为空`,
		"✅ 满足时: 跳转至步骤 " + resolver.StepMarker("ghost"),
		"❌ 不满足: (无动作)",
	}, texts(descs[0].Lines))
}

func TestChangeRecordTrigger(t *testing.T) {
	descs := interpret(t, `[{"id": "s1", "type": "ChangeRecordTrigger",
		"data": {
			"tableId": "tbl1",
			"fields": [
				{"fieldId": "fld1", "operator": "is", "value": ["opt1", "opt2"]},
				{"fieldId": "fld2", "operator": "isEmpty"}
			],
			"triggerControlList": ["pasteUpdate", "custom"]
		},
		"next": [{"condition": {"conjunction": "or", "conditions": [
			{"fieldId": "fld2", "operator": "isGreater", "value": ["5"]},
			{"conjunction": "and", "conditions": [{"fieldId": "fld1", "operator": "is", "value": []}]}
		]}}]
	}]`)

	d := descs[0]
	assert.Equal(t, "新增/修改的记录满足条件时触发", d.Title)
	assert.Equal(t, []string{
		"涉及表: 「颜色表」",
		`触发条件: 「颜色」等于 "Red, Blue" 且 「数量」为空`,
		"触发来源: 粘贴更新, custom",
		`**触发筛选条件**: 「数量」大于 "5" 或 (「颜色」等于 "[空]")`,
	}, texts(d.Lines))
	assert.Equal(t, []string{"tableId", "fields", "triggerControlList"}, d.Consumed)
}

func TestChangeRecordAliasShareHandler(t *testing.T) {
	descs := interpret(t, `[{"type": "ChangeRecordNewSatisfyTrigger", "data": {"fields": [{"fieldId": "fld1", "operator": "is", "value": ""}]}}]`)
	assert.True(t, descs[0].Handled)
	assert.Equal(t, []string{`触发条件: 「颜色」等于 "[空值]"`}, texts(descs[0].Lines))
}

func TestTimerAndButtonTriggers(t *testing.T) {
	descs := interpret(t, `[
		{"type": "TimerTrigger", "data": {"startTime": 1700000000000, "rule": "DAILY", "watchedCustomTableId": "tbl1"}},
		{"type": "ButtonTrigger", "data": {"buttonType": "recordMenu"}},
		{"type": "SetRecordTrigger", "data": {"fields": [{"fieldId": "fld1"}, {"fieldId": "fld2"}], "fieldIds": ["fld2"], "filterInfo": {"x": 1}}}
	]`)

	assert.Equal(t, []string{"开始时间: 2023-11-14 22:13", "重复规则: 每天", "关联表: 「颜色表」"}, texts(descs[0].Lines))
	assert.Equal(t, []string{"按钮类型: 记录菜单触发"}, texts(descs[1].Lines))
	assert.Equal(t, []string{"监听字段: 「颜色」, 「数量」", "监听字段(ID): 「数量」"}, texts(descs[2].Lines))
}

func TestFindRecord(t *testing.T) {
	descs := interpret(t, `[
		{"id": "s1", "type": "AddRecordTrigger", "data": {"watchedFieldId": "fld2"}},
		{"id": "s2", "type": "FindRecordAction", "data": {
			"tableId": "tbl1", "recordType": "Ref", "recordInfo": {"stepId": "s1"},
			"fieldIds": ["fld1", "fld2"], "shouldProceedWithNoResults": true, "fieldsMap": {}
		}},
		{"id": "s3", "type": "FindRecord", "data": {"recordInfo": {"conditions": [
			{"fieldId": "fld1", "operator": "is", "value": "opt2"},
			{"fieldId": "fld2", "operator": "is", "value": null, "matchValue": {"value": 3}}
		]}}},
		{"id": "s4", "type": "FindRecordAction", "data": {"recordInfo": {}}}
	]`)

	assert.Equal(t, []string{"监听字段: 「数量」"}, texts(descs[0].Lines))
	assert.Equal(t, []string{
		"涉及表: 「颜色表」",
		"返回字段: 「颜色」, 「数量」",
		"查找方式: 基于步骤1返回的记录进行筛选",
		"无结果时: 继续执行",
	}, texts(descs[1].Lines))
	assert.Equal(t, []string{`查找条件: 「颜色」等于 "Blue" 且 「数量」等于 "3"`}, texts(descs[2].Lines))
	assert.Equal(t, []string{"查找条件: 无（返回所有记录）"}, texts(descs[3].Lines))
}

func TestUpdateRecordValues(t *testing.T) {
	descs := interpret(t, `[{"type": "UpdateRecordAction", "data": {
		"tableId": "tbl1", "recordType": "stepRecord", "recordInfo": {"type": "ref", "stepNum": 2},
		"maxSetRecordNum": 100,
		"values": [
			{"fieldId": "fld1", "value": "opt1"},
			{"fieldId": "fld2", "value": [{"type": "ref", "tagType": "step", "stepNum": 2, "fields": [{"fieldId": "fld2"}]}]}
		]
	}}]`)

	d := descs[0]
	require.Len(t, d.Lines, 3)
	assert.Equal(t, "修改对象: [步骤2找到的记录]", d.Lines[1].Text())
	assert.Equal(t, "设置字段:", d.Lines[2].Text())
	assert.Equal(t, []string{"「颜色」= Red", "「数量」= [步骤2的「数量」]"}, texts(d.Lines[2].Children))
	assert.Empty(t, d.Unconsumed)
}

func TestDeleteRecordConditions(t *testing.T) {
	descs := interpret(t, `[{"type": "DeleteRecordAction", "data": {"recordInfo": {"conjunction": "or", "conditions": [
		{"fieldId": "fld1", "operator": "isNot", "value": "opt1"},
		{"fieldId": "fld2", "operator": "is_empty"}
	]}}}]`)
	assert.Equal(t, "删除记录", descs[0].Title)
	assert.Equal(t, []string{`删除条件: 「颜色」不等于 "Red" 或 「数量」为空`}, texts(descs[0].Lines))
}

func TestCustomActionFormData(t *testing.T) {
	descs := interpret(t, `[{"type": "CustomAction", "stepTitle": "发消息", "data": {
		"packId": "pk1", "version": "v1",
		"formData": [
			{"label": "消息", "value": [{"text": "你好 "}, {"type": "ref", "tagType": "step", "stepNum": 1, "fields": [{"fieldId": "fld1"}]}]},
			{"key": "to", "value": "opt1"},
			{"value": 3}
		]
	}}]`)

	d := descs[0]
	assert.Equal(t, "发消息", d.Title)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, "动作类型: 自定义动作 (packId: pk1)", d.Lines[0].Text())
	assert.Equal(t, []string{"消息: 你好 [步骤1的「颜色」]", "to: Red", "配置3: 3"}, texts(d.Lines[1].Children))
}

func TestGenericFallback(t *testing.T) {
	long := strings.Repeat("a", 400)
	descs := interpret(t, `[{"type": "SendSlack", "data": {
		"targets": ["fld1", "x"], "channel": "fld2", "empty": "", "flag": false,
		"formula": "bitable::$table[tbl1].$field[fld1]", "long": "`+long+`"
	}}]`)

	d := descs[0]
	assert.False(t, d.Handled)
	assert.Equal(t, "SendSlack", d.Title)
	assert.Equal(t, []string{"channel", "empty", "flag", "formula", "long", "targets"}, d.Unconsumed)

	require.Len(t, d.Lines, 1)
	assert.Equal(t, "其他配置:", d.Lines[0].Text())
	assert.Equal(t, []string{
		"channel: fld2 (解析: 数量)",
		"flag: false",
		"formula: 「颜色表」.「颜色」",
		"long: " + strings.Repeat("a", DefaultValueLimit) + "...",
		"targets: fld1, x (解析: 颜色)",
	}, texts(d.Lines[0].Children))
}

func TestFallbackCoversUnknownKeysOfKnownType(t *testing.T) {
	descs := interpret(t, `[{"type": "ButtonTrigger", "data": {"buttonType": "buttonField", "newKey": "opt2"}}]`)
	d := descs[0]
	assert.True(t, d.Handled)
	assert.Equal(t, []string{"newKey"}, d.Unconsumed)
	assert.Equal(t, "newKey: Blue", d.Lines[1].Children[0].Text())
}

func TestFallbackKeepsNonObjectPayload(t *testing.T) {
	descs := interpret(t, `[
		{"id": "s1", "type": "IfElseBranch", "data": "notanobject"},
		{"id": "s2", "type": "SendSlack", "data": ["fld1", "x"]}
	]`)

	branch := descs[0]
	assert.True(t, branch.Handled)
	assert.Equal(t, []string{"data"}, branch.Unconsumed)
	other := branch.Lines[len(branch.Lines)-1]
	assert.Equal(t, "其他配置:", other.Text())
	assert.Equal(t, []string{"data: notanobject"}, texts(other.Children))

	list := descs[1]
	assert.Equal(t, []string{"data"}, list.Unconsumed)
	require.Len(t, list.Lines, 1)
	assert.Equal(t, []string{"data: fld1, x (解析: 颜色)"}, texts(list.Lines[0].Children))
}

func TestDescribeInIsolation(t *testing.T) {
	steps := parseSteps(t, `[
		{"id": "a", "type": "Loop", "data": {"startChildStepId": "b"}},
		{"id": "b", "type": "AddRecordAction", "data": {}}
	]`)
	in := New(newTestResolver(t), NewStepIndex(steps))

	d := in.Describe(steps[0], 1)
	assert.Contains(t, texts(d.Lines), "循环体开始: 跳转至步骤 2")

	// 无 data、无类型的步骤也能渲染
	empty := in.Describe(document.NewObject(), 7)
	assert.Equal(t, UnknownType, empty.Title)
	assert.Empty(t, empty.Lines)
	assert.Equal(t, 7, empty.Index)
}

func TestStepIndex(t *testing.T) {
	x := NewStepIndex(parseSteps(t, `[{"id": "a"}, {}, {"id": "b"}, {"id": "a"}]`))
	n, ok := x.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	n, _ = x.Lookup("b")
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, x.Len())

	var nilIndex *StepIndex
	_, ok = nilIndex.Lookup("a")
	assert.False(t, ok)
}
