package valueref

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/resolver"
)

const testSnapshot = `[{"schema": {"data": {"tables": [
	{"meta": {"id": "tbl1", "name": "颜色表"}, "fieldMap": {
		"fld1": {"name": "颜色", "type": 3, "property": {"options": [{"id": "opt1", "name": "Red"}, {"id": "opt2", "name": "Blue"}]}}
	}}
]}}}]`

func newTestFormatter(t *testing.T, opts ...Option) *Formatter {
	t.Helper()
	snap, err := document.ParseString(testSnapshot)
	require.NoError(t, err)
	return New(resolver.New(registry.Build(document.Arr(snap))), opts...)
}

func parse(t *testing.T, s string) any {
	t.Helper()
	v, err := document.ParseString(s)
	require.NoError(t, err)
	return v
}

func TestFormatScalars(t *testing.T) {
	f := newTestFormatter(t)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"empty string", "", EmptyValue},
		{"absent", nil, Empty},
		{"option", "opt1", "Red"},
		{"unknown option", "optGhost", "optGhost"},
		{"plain", "hello", "hello"},
		{"number", parse(t, `42`), "42"},
		{"bool", true, "true"},
		{"empty list", []any{}, EmptyList},
		{"empty map", document.NewObject(), EmptyMap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.value, 0))
		})
	}
	assert.NotEqual(t, f.Format("", 0), f.Format(nil, 0))
}

func TestFormatListLayout(t *testing.T) {
	f := newTestFormatter(t)

	assert.Equal(t, "Red, a, Blue", f.Format([]any{"opt1", "a", "opt2"}, 0))

	long := strings.Repeat("长", InlineLimit)
	assert.Equal(t, "\n- "+long+"\n- b", f.Format([]any{long, "b"}, 0))
	assert.Equal(t, "\n    - "+long+"\n    - b", f.Format([]any{long, "b"}, 2))
}

func TestFormatGenericMap(t *testing.T) {
	f := newTestFormatter(t)

	v := parse(t, `{"b": 1, "a": "opt2", "c": ["x", "y"], "d": ""}`)
	assert.Equal(t, "{ b: 1, a: Blue, c: x, y, d: [空值] }", f.Format(v, 0))
}

func TestFormatReferences(t *testing.T) {
	f := newTestFormatter(t, WithStepLookup(func(id string) (int, bool) {
		if id == "s1" {
			return 1, true
		}
		return 0, false
	}))

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"step field", `{"type": "ref", "tagType": "step", "stepNum": 2, "fields": [{"fieldId": "fld1"}]}`, "[步骤2的「颜色」]"},
		{"step result", `{"type": "ref", "tagType": "step", "stepNum": 2}`, "[步骤2的结果]"},
		{"trigger via step id", `{"type": "ref", "tagType": "trigger", "stepId": "s1"}`, "[步骤1的触发记录]"},
		{"unknown step id", `{"type": "ref", "tagType": "trigger", "stepId": "s9"}`, "[步骤?的触发记录]"},
		{"loop cursor", `{"type": "ref", "tagType": "loop", "stepNum": 3}`, "[步骤3的循环当前记录]"},
		{"loop field", `{"type": "ref", "tagType": "loop", "stepNum": 3, "path": [{"type": "Field", "value": "fld1"}]}`, "[步骤3循环的「颜色」]"},
		{"system variable", `{"type": "ref", "tagType": "system", "systemType": "viewUrl"}`, "[系统变量:视图链接]"},
		{"unknown system variable", `{"type": "ref", "tagType": "system", "systemType": "baseUrl"}`, "[系统变量:baseUrl]"},
		{"record attribute", `{"type": "ref", "tagType": "RecordAttribute", "stepNum": 1, "attribute": "recordId"}`, "[步骤1的记录ID]"},
		{"record attr path", `{"type": "ref", "tagType": "step", "stepNum": 2, "path": [{"type": "RecordAttr", "value": "recordId"}]}`, "[步骤2的记录ID]"},
		{"formula", `{"type": "ref", "tagType": "formula", "title": "总价"}`, "[公式计算: 总价]"},
		{"formula untitled", `{"type": "ref", "tagType": "formula"}`, "[公式计算: 未知]"},
		{"unresolved field", `{"type": "ref", "tagType": "step", "stepNum": 2, "fields": [{"fieldId": "fldGone"}]}`, "[步骤2的「" + resolver.FieldMarker("fldGone") + "」]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(parse(t, tt.ref), 0))
		})
	}
}

func TestFormatNestedReferences(t *testing.T) {
	f := newTestFormatter(t)

	v := parse(t, `{"to": [{"type": "ref", "tagType": "step", "stepNum": 1, "fields": [{"fieldId": "fld1"}]}, "opt1"]}`)
	assert.Equal(t, "{ to: [步骤1的「颜色」], Red }", f.Format(v, 0))
}

func TestFormatDepthCeiling(t *testing.T) {
	f := newTestFormatter(t, WithMaxDepth(3))

	var v any = "leaf"
	for i := 0; i < 10; i++ {
		v = []any{v}
	}
	out := f.Format(v, 0)
	assert.Contains(t, out, TruncatedMarker)
	assert.NotContains(t, out, "leaf")

	shallow := []any{[]any{"leaf"}}
	assert.Equal(t, "leaf", f.Format(shallow, 0))
}
