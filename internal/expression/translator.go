// Package expression 翻译多维表格公式中的表/字段引用，并提取 FILTER 筛选条件。
//
// 公式示例:
//
//	bitable::$table[tblB].FILTER(CurrentValue.$column[fldC] = $field[fldA]).$column[fldD]
//
// 翻译后:
//
//	「表B」.FILTER(CurrentValue.「C」 = 「A」).「D」
package expression

import (
	"regexp"
	"strings"

	"github.com/duke-git/lancet/v2/slice"

	"yqhp/bitable-doc/internal/resolver"
)

// FilterPrefix is prepended to a non-empty filter summary when rendered.
const FilterPrefix = "筛选条件: "

// ClauseSeparator joins filter clauses.
const ClauseSeparator = " 且 "

const (
	namespacePrefix = "bitable::"
	filterOpen      = ".FILTER("
)

var (
	// 单次扫描: 表引用、字段/列引用、孤立的命名空间前缀
	tokenPattern      = regexp.MustCompile(`bitable::\$table\[(.*?)\]|\$(?:field|column)\[(.*?)\]|bitable::`)
	tableTokenPattern = regexp.MustCompile(`bitable::\$table\[(.*?)\]`)

	filterPattern   = regexp.MustCompile(`(?s)\.FILTER\((.*?)\)`)
	equalPattern    = regexp.MustCompile(`CurrentValue\.「([^」]+)」\s*=\s*([^&\)]+)`)
	notEqualPattern = regexp.MustCompile(`CurrentValue\.「([^」]+)」\s*!=\s*([^&\)]+)`)
)

// Result is the translation of one expression.
type Result struct {
	Text    string   `json:"text"`
	Filter  string   `json:"filter,omitempty"`
	Clauses []string `json:"clauses,omitempty"`
}

// FilterLine returns the prefixed filter summary, or "" when there is none.
func (r Result) FilterLine() string {
	if r.Filter == "" {
		return ""
	}
	return FilterPrefix + r.Filter
}

// Translator rewrites expressions through a resolver.
type Translator struct {
	resolver *resolver.Resolver
}

// New creates a Translator.
func New(r *resolver.Resolver) *Translator {
	return &Translator{resolver: r}
}

// Translate rewrites every reference token of expr and extracts the filter
// clauses from the rewritten text. tableID is the table the expression
// belongs to.
func (t *Translator) Translate(expr, tableID string) Result {
	text := t.TranslateText(expr, tableID)
	clauses := ExtractFilterClauses(text)
	return Result{
		Text:    text,
		Filter:  strings.Join(clauses, ClauseSeparator),
		Clauses: clauses,
	}
}

// TranslateText rewrites reference tokens only. Tokens are replaced in a
// single left-to-right pass, so names inserted into the output are never
// re-scanned as input.
func (t *Translator) TranslateText(expr, tableID string) string {
	if expr == "" {
		return ""
	}

	matches := tokenPattern.FindAllStringSubmatchIndex(expr, -1)
	if len(matches) == 0 {
		return expr
	}

	var b strings.Builder
	b.Grow(len(expr))
	last := 0
	var tables []tableSpan

	for _, m := range matches {
		b.WriteString(expr[last:m[0]])
		switch {
		case m[2] >= 0:
			id := expr[m[2]:m[3]]
			b.WriteString(bracket(t.resolver.ResolveTable(id)))
			tables = append(tables, tableSpan{id: id, end: m[1]})
		case m[4] >= 0:
			id := expr[m[4]:m[5]]
			b.WriteString(bracket(t.resolver.ResolveFieldIn(fieldContext(expr, m[0], tables, tableID), id)))
		default:
			// 孤立的 bitable:: 直接去掉
		}
		last = m[1]
	}
	b.WriteString(expr[last:])
	return b.String()
}

type tableSpan struct {
	id  string
	end int
}

// fieldContext picks the table a field token at pos belongs to. A field right
// after a table reference (「表」.$field[...]), after CurrentValue. following it,
// or after that reference's complete .FILTER(...) group belongs to the
// referenced table; anything else belongs to tableID.
func fieldContext(expr string, pos int, tables []tableSpan, tableID string) string {
	if len(tables) == 0 {
		return tableID
	}
	latest := tables[len(tables)-1]
	between := expr[latest.end:pos]
	if strings.TrimSpace(between) == "." || strings.HasSuffix(between, "CurrentValue.") {
		return latest.id
	}
	for i := len(tables) - 1; i >= 0; i-- {
		if closedFilterGroup(expr[tables[i].end:pos]) {
			return tables[i].id
		}
	}
	return tableID
}

// closedFilterGroup reports whether s is exactly one .FILTER(...) group
// followed by '.'. Parentheses inside string literals are not recognised.
func closedFilterGroup(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, filterOpen) || !strings.HasSuffix(s, ").") {
		return false
	}
	group := s[len(filterOpen)-1 : len(s)-1]
	depth := 0
	for i := 0; i < len(group); i++ {
		switch group[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(group)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func bracket(name string) string {
	return "「" + name + "」"
}

// ExtractFilterClauses scans already-translated text for .FILTER(...) groups
// and returns their equality and inequality comparisons on CurrentValue.
// Matching runs on display names, so a name containing ')' or '&' can cut a
// clause short.
func ExtractFilterClauses(translated string) []string {
	var clauses []string
	for _, group := range filterPattern.FindAllStringSubmatch(translated, -1) {
		body := group[1]
		for _, m := range equalPattern.FindAllStringSubmatch(body, -1) {
			clauses = append(clauses, "「"+m[1]+"」= "+strings.TrimSpace(m[2]))
		}
		for _, m := range notEqualPattern.FindAllStringSubmatch(body, -1) {
			clauses = append(clauses, "「"+m[1]+"」≠ "+strings.TrimSpace(m[2]))
		}
	}
	return clauses
}

// CrossTableRefs returns the distinct table ids referenced by expr other than
// tableID, in order of first appearance.
func CrossTableRefs(expr, tableID string) []string {
	var refs []string
	for _, m := range tableTokenPattern.FindAllStringSubmatch(expr, -1) {
		if m[1] != tableID {
			refs = append(refs, m[1])
		}
	}
	return slice.Unique(refs)
}

// HasNamespace reports whether expr still carries the raw namespace prefix.
func HasNamespace(expr string) bool {
	return strings.Contains(expr, namespacePrefix)
}
