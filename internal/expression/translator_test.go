package expression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/resolver"
)

const testSnapshot = `[{"schema": {"data": {"tables": [
	{"meta": {"id": "tbl1", "name": "颜色表"}, "fieldMap": {
		"fld1": {"name": "颜色", "type": 3, "property": {"options": [{"id": "opt1", "name": "Red"}, {"id": "opt2", "name": "Blue"}]}},
		"fldKey": {"name": "编号"}
	}},
	{"meta": {"id": "tbl2", "name": "汇总表"}, "fieldMap": {
		"fld2": {"name": "颜色引用", "type": 20, "property": {"formula": "bitable::$table[tbl1].$field[fld1]"}},
		"fldKey": {"name": "汇总编号"}
	}}
]}}}]`

func newTestTranslator(t *testing.T) *Translator {
	t.Helper()
	snap, err := document.ParseString(testSnapshot)
	require.NoError(t, err)
	return New(resolver.New(registry.Build(document.Arr(snap))))
}

func TestTranslateCrossTableFormula(t *testing.T) {
	tr := newTestTranslator(t)

	res := tr.Translate("bitable::$table[tbl1].$field[fld1]", "tbl2")
	assert.Equal(t, "「颜色表」.「颜色」", res.Text)
	assert.Equal(t, 1, strings.Count(res.Text, "「颜色表」"))
	assert.Equal(t, 1, strings.Count(res.Text, "「颜色」"))
	assert.False(t, HasNamespace(res.Text))
	assert.Empty(t, res.Filter)
}

func TestTranslateUsesTableContext(t *testing.T) {
	tr := newTestTranslator(t)

	assert.Equal(t, "「汇总编号」", tr.TranslateText("$field[fldKey]", "tbl2"))
	assert.Equal(t, "「编号」", tr.TranslateText("$column[fldKey]", "tbl1"))
	// 紧跟表引用的字段按被引用表解析
	assert.Equal(t, "「颜色表」.「编号」", tr.TranslateText("bitable::$table[tbl1].$field[fldKey]", "tbl2"))
}

func TestTranslateFieldAfterFilterGroup(t *testing.T) {
	tr := newTestTranslator(t)

	assert.Equal(t, "「颜色表」.FILTER(CurrentValue.「颜色」 = 「汇总编号」).「编号」",
		tr.TranslateText("bitable::$table[tbl1].FILTER(CurrentValue.$column[fld1] = $field[fldKey]).$column[fldKey]", "tbl2"))
	assert.Equal(t, "「颜色表」.FILTER(CurrentValue.「颜色」 = 「汇总表」.「汇总编号」).「编号」",
		tr.TranslateText("bitable::$table[tbl1].FILTER(CurrentValue.$column[fld1] = bitable::$table[tbl2].$field[fldKey]).$column[fldKey]", "tbl2"))
	// 筛选组之后不是直接取字段时回到公式所在表
	assert.Equal(t, "「颜色表」.FILTER(CurrentValue.「颜色」 = 1).COUNTA() + 「汇总编号」",
		tr.TranslateText("bitable::$table[tbl1].FILTER(CurrentValue.$column[fld1] = 1).COUNTA() + $field[fldKey]", "tbl2"))
	assert.False(t, closedFilterGroup(".FILTER(a)).COUNTA()."))
	assert.True(t, closedFilterGroup(".FILTER(LEN(a) > 1)."))
}

func TestTranslateUnresolvedTokensKeepIDs(t *testing.T) {
	tr := newTestTranslator(t)

	res := tr.Translate("bitable::$table[tblGone].$field[fldGone] + 1", "tbl2")
	assert.Equal(t, "「"+resolver.TableMarker("tblGone")+"」.「"+resolver.FieldMarker("fldGone")+"」 + 1", res.Text)
	assert.Contains(t, res.Text, "tblGone")
	assert.Contains(t, res.Text, "fldGone")
}

func TestTranslateStripsStandaloneNamespace(t *testing.T) {
	tr := newTestTranslator(t)

	assert.Equal(t, "TODAY()", tr.TranslateText("bitable::TODAY()", "tbl1"))
	assert.Equal(t, "", tr.TranslateText("", "tbl1"))
	assert.Equal(t, "1 + 2", tr.TranslateText("1 + 2", "tbl1"))
}

func TestTranslateExtractsFilter(t *testing.T) {
	tr := newTestTranslator(t)

	formula := `bitable::$table[tbl1].FILTER(CurrentValue.$column[fldKey] = $field[fldKey] && CurrentValue.$column[fld1] != "opt2").$column[fld1].COUNTA()`
	res := tr.Translate(formula, "tbl2")

	require.Len(t, res.Clauses, 2)
	assert.Equal(t, "「编号」= 「汇总编号」", res.Clauses[0])
	assert.Equal(t, `「颜色」≠ "opt2"`, res.Clauses[1])
	assert.Equal(t, `「编号」= 「汇总编号」 且 「颜色」≠ "opt2"`, res.Filter)
	assert.Equal(t, FilterPrefix+res.Filter, res.FilterLine())
}

func TestExtractFilterMultipleGroups(t *testing.T) {
	text := "「A」.FILTER(CurrentValue.「x」= 1).「b」 + 「C」.FILTER(\nCurrentValue.「y」 != 2\n)"
	clauses := ExtractFilterClauses(text)
	assert.Equal(t, []string{"「x」= 1", "「y」≠ 2"}, clauses)
	assert.Empty(t, ExtractFilterClauses("no filter here"))
}

func TestCrossTableRefs(t *testing.T) {
	formula := "bitable::$table[tbl1].$field[a] + bitable::$table[tbl3].$field[b] + bitable::$table[tbl1].$field[c] + bitable::$table[tbl2].$field[d]"
	assert.Equal(t, []string{"tbl1", "tbl3"}, CrossTableRefs(formula, "tbl2"))
	assert.Empty(t, CrossTableRefs("$field[x]", "tbl2"))
}

// 对已翻译文本再次翻译不会重复包裹
func TestTranslateIdempotenceProperty(t *testing.T) {
	tr := newTestTranslator(t)
	tokens := []string{
		"bitable::$table[tbl1]", "bitable::$table[tblGone]", "$field[fld1]", "$column[fldKey]",
		"$field[fldGone]", " + ", ".", "FILTER(", ")", "CurrentValue.", " = ", "bitable::", "42",
	}

	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(tokens), 0, 12).Draw(t, "parts")
		expr := strings.Join(parts, "")

		once := tr.TranslateText(expr, "tbl2")
		twice := tr.TranslateText(once, "tbl2")
		if once != twice {
			t.Fatalf("not idempotent:\n%s\n%s", once, twice)
		}
		if strings.Contains(once, "「「") {
			t.Fatalf("double bracket in %q", once)
		}
	})
}
