package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/resolver"
)

const testSnapshot = `[{"schema": {
	"tableMap": {"tbl1": {"name": "订单"}},
	"base": {"blockInfos": {"b1": {"blockToken": "wf2", "name": "侧边栏名"}}},
	"data": {"tables": [
		{"meta": {"id": "tbl1"}, "fieldMap": {
			"fld1": {"name": "状态", "type": 3, "property": {"options": [{"id": "opt1", "name": "已完成"}]}}
		}}
	]}
}}]`

const testWorkflows = `[
	{"id": "wf1", "status": 1, "WorkflowExtra": {
		"Draft": {"title": "草稿标题", "steps": [
			{"id": "s1", "type": "AddRecordTrigger", "data": {"tableId": "ref_tblA", "watchedFieldId": "ref_fldA"}}
		]},
		"Extra": {"TableMap": {"ref_tblA": {"TableID": "\"tbl1\"", "FieldMap": {"ref_fldA": "fld1"}}}}
	}},
	{"id": "wf2", "status": 0, "WorkflowExtra": {
		"Draft": {"steps": [{"type": "ChangeRecordTrigger", "data": {"tableId": "tbl1"}}]}
	}},
	{"id": 3, "status": 1, "WorkflowExtra": {
		"Draft": "{\"steps\": [{\"type\": \"TimerTrigger\", \"data\": {\"watchedCustomTableId\": \"tbl1\", \"rule\": \"WEEKLY\"}}]}"
	}},
	{"id": "wf4", "status": 1, "WorkflowExtra": {"Draft": "{not json"}},
	{"id": "wf5"},
	{"id": "wf6", "WorkflowExtra": {"Draft": {"steps": [{"type": "FindRecordAction", "data": {"tableId": "tblGone"}}]}}}
]`

func newTestAssembler(t *testing.T, opts ...Option) (*Assembler, []any) {
	t.Helper()
	snap, err := document.ParseString(testSnapshot)
	require.NoError(t, err)
	wfs, err := document.ParseString(testWorkflows)
	require.NoError(t, err)
	return NewAssembler(registry.Build(document.Arr(snap)), opts...), document.Arr(wfs)
}

func TestTranslateUsesWorkflowAliases(t *testing.T) {
	a, wfs := newTestAssembler(t)

	res := a.Translate(wfs[0])
	assert.Equal(t, "wf1", res.ID)
	assert.Equal(t, "草稿标题", res.Title)
	assert.Equal(t, TitleFromDraft, res.TitleSource)
	assert.True(t, res.Enabled)
	assert.Equal(t, StatusEnabled, res.Status)
	assert.NoError(t, res.Err)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, "涉及表: 「订单」", res.Steps[0].Lines[0].Text())
	assert.Equal(t, "监听字段: 「状态」", res.Steps[0].Lines[1].Text())
}

func TestTitleChain(t *testing.T) {
	a, wfs := newTestAssembler(t)

	tests := []struct {
		name   string
		wf     any
		title  string
		source string
	}{
		{"sidebar name", wfs[1], "侧边栏名", TitleFromBlock},
		{"timer from encoded draft", wfs[2], "定时触发 (基于「订单」)", TitleFromFirstStep},
		{"no draft", wfs[4], Untitled, TitleFromPlaceholder},
		{"stale table", wfs[5], "查找记录 (「" + resolver.TableMarker("tblGone") + "」)", TitleFromFirstStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Translate(tt.wf)
			assert.Equal(t, tt.title, res.Title)
			assert.Equal(t, tt.source, res.TitleSource)
		})
	}
}

func TestTranslateEncodedDraftAndNumericID(t *testing.T) {
	a, wfs := newTestAssembler(t)

	res := a.Translate(wfs[2])
	assert.Equal(t, "3", res.ID)
	require.Len(t, res.Steps, 1)
	assert.Contains(t, res.Steps[0].Lines[0].Text(), "每周")
}

func TestMalformedDraftIsSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a, wfs := newTestAssembler(t, WithLogger(zap.New(core)))

	res := a.Translate(wfs[3])
	assert.Equal(t, "wf4", res.ID)
	assert.Equal(t, StatusEnabled, res.Status)
	assert.Equal(t, Untitled, res.Title)
	assert.Empty(t, res.Steps)

	var malformed *MalformedPayloadError
	require.ErrorAs(t, res.Err, &malformed)
	assert.Equal(t, "wf4", malformed.WorkflowID)
	assert.NotEmpty(t, res.Error)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "wf4", logs.All()[0].ContextMap()["workflow_id"])
}

func TestTranslateAllPreservesOrder(t *testing.T) {
	a, wfs := newTestAssembler(t, WithWorkers(4))

	results, err := a.TranslateAll(context.Background(), wfs)
	require.NoError(t, err)
	require.Len(t, results, len(wfs))

	want := []string{"wf1", "wf2", "3", "wf4", "wf5", "wf6"}
	for i, res := range results {
		assert.Equal(t, want[i], res.ID)
	}
	// 坏草稿不影响其他工作流
	assert.Error(t, results[3].Err)
	assert.NoError(t, results[4].Err)
	assert.Len(t, results[5].Steps, 1)
}

func TestTranslateAllMatchesSequential(t *testing.T) {
	a, wfs := newTestAssembler(t, WithWorkers(8))

	var many []any
	for i := 0; i < 20; i++ {
		many = append(many, wfs...)
	}
	results, err := a.TranslateAll(context.Background(), many)
	require.NoError(t, err)
	for i, wf := range many {
		seq := a.Translate(wf)
		assert.Equal(t, seq.Title, results[i].Title, fmt.Sprint(i))
		assert.Equal(t, len(seq.Steps), len(results[i].Steps))
	}
}

func TestTranslateAllCanceled(t *testing.T) {
	a, wfs := newTestAssembler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := a.TranslateAll(ctx, wfs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestTranslateAllEmpty(t *testing.T) {
	a, _ := newTestAssembler(t)
	results, err := a.TranslateAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
