package audit

import (
	"regexp"
	"sort"
	"strings"

	"yqhp/bitable-doc/internal/resolver"
)

// 问题类别
const (
	CategoryUnresolved  = "未解析"
	CategoryReadability = "可读性差"
	CategoryLostInfo    = "信息丢失"
	CategoryEnglish     = "英文残留"
)

// 未解析标记的诊断结论
const (
	ReasonParserGap   = "解析器缺陷"
	ReasonMissingData = "数据缺失"
)

// 严重程度
const (
	SeverityHigh   = "🔴 高 (可能是 Bug)"
	SeverityMedium = "🟡 中 (可能是已删除字段)"
	SeverityLow    = "🔵 低 (可读性问题)"
)

const (
	unknownHeading = "未知表"
	unknownRow     = "未知行"
)

// Finding is one suspicious span in a rendered document.
type Finding struct {
	Document  string `json:"document"`
	Line      int    `json:"line"`
	Text      string `json:"text"`
	ID        string `json:"id,omitempty"`
	Heading   string `json:"heading"`
	Row       string `json:"row"`
	Category  string `json:"category"`
	Reason    string `json:"reason"`
	Severity  string `json:"severity"`
	Diagnosis string `json:"diagnosis"`
}

// Context returns the "表: x / 行: y" locator.
func (f Finding) Context() string {
	return "表: " + f.Heading + " / 行: " + f.Row
}

type issuePattern struct {
	re       *regexp.Regexp
	issue    string
	category string
}

// markers are found through resolver.FindMarkers; these cover the rest.
var issuePatterns = []issuePattern{
	{regexp.MustCompile(`\[未知(?:字段|表|选项|引用)[^:\]]*:([^\]]+)\]`), "显式未知项", CategoryUnresolved},
	{regexp.MustCompile(`\[步骤\d+的(?:字段|formula|结果)\]`), "模糊引用", CategoryReadability},
	{regexp.MustCompile(`\[步骤\d+的循环当前记录\]`), "模糊循环", CategoryReadability},
	{regexp.MustCompile(`default_url":\s*"\{引用\}"`), "模糊动作配置", CategoryLostInfo},
	{regexp.MustCompile(`\b(is|isNot|contains|doesNotContain|isEmpty|isNotEmpty)\b`), "未翻译操作符", CategoryEnglish},
}

var (
	headingPattern = regexp.MustCompile(`(?m)^##\s+(.*?)$`)
	rowPattern     = regexp.MustCompile(`^\|?\s*\*{0,2}(.*?)\*{0,2}\s*\|`)
)

// Scanner classifies findings against the set of ids present in the export.
type Scanner struct {
	known func(id string) bool
}

// NewScanner creates a Scanner. known reports whether an id exists in the
// source data; nil treats every id as missing.
func NewScanner(known func(id string) bool) *Scanner {
	if known == nil {
		known = func(string) bool { return false }
	}
	return &Scanner{known: known}
}

// Scan returns every finding of one document, in order of category then
// position: unresolved-reference markers first, then the other patterns.
func (s *Scanner) Scan(name, content string) []Finding {
	idx := newLineIndex(content)
	var out []Finding

	for _, m := range resolver.FindMarkers(content) {
		out = append(out, s.unresolved(name, content, idx, m.Offset, m.Text, m.ID))
	}
	for _, p := range issuePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(content, -1) {
			text := content[loc[0]:loc[1]]
			if p.category == CategoryUnresolved {
				out = append(out, s.unresolved(name, content, idx, loc[0], text, content[loc[2]:loc[3]]))
				continue
			}
			f := s.locate(name, content, idx, loc[0], text)
			f.Category = p.category
			f.Reason = p.issue
			f.Severity = SeverityLow
			f.Diagnosis = "发现 " + p.issue + ": `" + text + "`"
			out = append(out, f)
		}
	}
	return out
}

func (s *Scanner) unresolved(name, content string, idx lineIndex, offset int, text, id string) Finding {
	f := s.locate(name, content, idx, offset, text)
	f.ID = id
	f.Category = CategoryUnresolved
	if s.known(id) {
		f.Reason = ReasonParserGap
		f.Severity = SeverityHigh
		f.Diagnosis = "ID `" + id + "` 存在于源数据中，但解析器未能识别。"
	} else {
		f.Reason = ReasonMissingData
		f.Severity = SeverityMedium
		f.Diagnosis = "ID `" + id + "` 在源数据中不存在。"
	}
	return f
}

func (s *Scanner) locate(name, content string, idx lineIndex, offset int, text string) Finding {
	line, start, end := idx.lookup(offset)
	f := Finding{
		Document: name,
		Line:     line,
		Text:     text,
		Heading:  unknownHeading,
		Row:      unknownRow,
	}
	if hs := headingPattern.FindAllStringSubmatch(content[:offset], -1); len(hs) > 0 {
		f.Heading = strings.TrimSpace(hs[len(hs)-1][1])
	}
	if m := rowPattern.FindStringSubmatch(strings.TrimSpace(content[start:end])); m != nil {
		f.Row = strings.TrimSpace(m[1])
	}
	return f
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex struct {
	starts []int
	size   int
}

func newLineIndex(content string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts, size: len(content)}
}

// lookup returns the line number of offset and the bounds of that line.
func (li lineIndex) lookup(offset int) (int, int, int) {
	i := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	end := li.size
	if i+1 < len(li.starts) {
		end = li.starts[i+1] - 1
	}
	return i + 1, li.starts[i], end
}
