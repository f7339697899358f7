package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"yqhp/bitable-doc/internal/audit"
	"yqhp/bitable-doc/internal/config"
	"yqhp/bitable-doc/internal/loader"
	"yqhp/bitable-doc/internal/render"
	"yqhp/bitable-doc/internal/resolver"
)

const testBase = `{
	"gzipSnapshot": [{"schema": {
		"tableMap": {"tblA": {"name": "订单"}, "tblB": {"name": "客户"}},
		"data": {"tables": [
			{"meta": {"id": "tblA"}, "fieldMap": {
				"fA1": {"name": "金额", "type": 2},
				"fA2": {"name": "客户", "type": 18, "property": {"tableId": "tblB"}}
			}},
			{"meta": {"id": "tblB"}, "fieldMap": {
				"fB1": {"name": "名称", "type": 1}
			}}
		]}
	}}],
	"gzipAutomation": [
		{"id": "wf1", "status": 1, "WorkflowExtra": {"Draft": {"title": "新订单通知", "steps": [
			{"id": "s1", "type": "AddRecordTrigger", "data": {"tableId": "tblA"}}
		]}}},
		{"id": "wf2", "status": 0, "WorkflowExtra": {"Draft": {"steps": [
			{"id": "s1", "type": "FindRecordAction", "data": {"tableId": "tblGone"}}
		]}}}
	],
	"sign": "x"
}`

var fixedTime = time.Date(2024, 3, 5, 8, 9, 10, 0, time.UTC)

func newTestGenerator(opts ...Option) *Generator {
	r := render.New(render.WithClock(func() time.Time { return fixedTime }), render.WithLocation(time.UTC))
	return New(append([]Option{WithRenderer(r), WithLocation(time.UTC), WithWorkers(2)}, opts...)...)
}

func TestDecodeBytesBuildsEveryDocument(t *testing.T) {
	b, err := newTestGenerator().DecodeBytes(context.Background(), []byte(testBase))
	require.NoError(t, err)

	require.Len(t, b.Workflows, 2)
	assert.Equal(t, "新订单通知", b.Workflows[0].Title)
	assert.False(t, b.Workflows[1].Enabled)

	require.Len(t, b.Catalog.Tables, 2)
	assert.Equal(t, 3, b.Catalog.FieldCount())
	assert.Equal(t, 1, b.Relations.RelationCount)

	assert.True(t, strings.HasPrefix(b.Documents.Automation, "# 自动化地图\n\n> 生成时间: 2024-03-05 08:09:10\n"))
	assert.Contains(t, b.Documents.Automation, "## 新订单通知\n")
	assert.Contains(t, b.Documents.Fields, "## 📊 订单\n")
	assert.Contains(t, b.Documents.Relations, "与「客户」建立记录关联")
	assert.Contains(t, b.Documents.Audit, "# 完整性校验报告\n")

	require.NotEmpty(t, b.Report.Findings)
	f := b.Report.Findings[0]
	assert.Equal(t, render.DocAutomation, f.Document)
	assert.Equal(t, resolver.TableMarker("tblGone"), f.Text)
	assert.Equal(t, audit.ReasonMissingData, f.Reason)
	assert.Contains(t, b.Documents.Audit, "[自动化地图.md:")
}

func TestCustomNamesFlowIntoFindings(t *testing.T) {
	names := DefaultNames()
	names.Automation = "flows.md"
	g := newTestGenerator(WithNames(names))

	b, err := g.DecodeBytes(context.Background(), []byte(testBase))
	require.NoError(t, err)
	require.NotEmpty(t, b.Report.Findings)
	assert.Equal(t, "flows.md", b.Report.Findings[0].Document)

	files := b.Files(g.Names())
	assert.Len(t, files, 4)
	assert.Equal(t, b.Documents.Automation, files["flows.md"])
	assert.Equal(t, b.Documents.Audit, files[render.DocAudit])
}

func TestDecodeBytesRejectsMissingSnapshot(t *testing.T) {
	_, err := newTestGenerator().DecodeBytes(context.Background(), []byte(`{"gzipAutomation": []}`))
	require.Error(t, err)

	var missing *loader.SectionMissingError
	assert.ErrorAs(t, err, &missing)
}

func TestGenerateHonoursCancelledContext(t *testing.T) {
	g := newTestGenerator()
	export, err := g.Decode([]byte(testBase))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, export)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.base")
	require.NoError(t, os.WriteFile(path, []byte(testBase), 0644))

	core, logs := observer.New(zap.InfoLevel)
	b, err := newTestGenerator(WithLogger(zap.New(core))).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(b.Summary(), "2 个工作流, 2 张表, 3 个字段, 1 个跨表关联, "))

	entries := logs.FilterMessage("文档生成完成").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["workflows"])
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Audit = "check.md"
	cfg.Render.Workers = 3

	g, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "check.md", g.Names().Audit)
	assert.Equal(t, 3, g.workers)

	cfg.Render.Timezone = "Nowhere/Town"
	_, err = NewFromConfig(cfg, nil)
	assert.Error(t, err)
}
