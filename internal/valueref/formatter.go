// Package valueref 将步骤配置中的任意值树渲染为可读文本：
// 标量、选项 ID、列表、以及指向其他步骤输出/循环游标/系统变量/记录属性/公式结果的引用对象。
package valueref

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/resolver"
)

// 显示标记
const (
	EmptyValue      = "[空值]" // 空字符串
	Empty           = "[空]"  // 缺失 / null
	EmptyList       = "[空列表]"
	EmptyMap        = "{}"
	TruncatedMarker = "[嵌套过深，已截断]"
	UnknownStep     = "?"
)

const (
	// DefaultMaxDepth bounds recursion on malformed input.
	DefaultMaxDepth = 32
	// InlineLimit is the rune length below which list items are joined on one line.
	InlineLimit = 50
)

// Reference tag types.
const (
	TagStep            = "step"
	TagLoop            = "loop"
	TagTrigger         = "trigger"
	TagSystem          = "system"
	TagRecordAttribute = "RecordAttribute"
	TagFormula         = "formula"
)

var (
	systemVariables = map[string]string{
		"viewUrl":   "视图链接",
		"recordUrl": "记录链接",
	}
	recordAttributes = map[string]string{
		"recordId":  "记录ID",
		"record":    "记录",
		"recordNum": "记录数",
		"value":     "值",
	}
	tagDescriptions = map[string]string{
		TagLoop:            "循环当前记录",
		TagStep:            "结果",
		TagTrigger:         "触发记录",
		TagRecordAttribute: "记录属性",
	}
)

// StepLookup maps a step id to its 1-based position.
type StepLookup func(stepID string) (int, bool)

// Formatter renders value trees. It holds no mutable state.
type Formatter struct {
	resolver *resolver.Resolver
	steps    StepLookup
	maxDepth int
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithStepLookup lets references that carry only a stepId cite a step number.
func WithStepLookup(lookup StepLookup) Option {
	return func(f *Formatter) {
		f.steps = lookup
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(f *Formatter) {
		if depth > 0 {
			f.maxDepth = depth
		}
	}
}

// New creates a Formatter.
func New(r *resolver.Resolver, opts ...Option) *Formatter {
	f := &Formatter{resolver: r, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolver returns the resolver used for identifier lookups.
func (f *Formatter) Resolver() *resolver.Resolver {
	return f.resolver
}

// Format renders value at the given presentation depth.
func (f *Formatter) Format(value any, depth int) string {
	if depth > f.maxDepth {
		return TruncatedMarker
	}

	switch v := value.(type) {
	case nil:
		return Empty
	case string:
		if v == "" {
			return EmptyValue
		}
		return f.Scalar(v)
	case []any:
		return f.formatList(v, depth)
	case *document.Object:
		if v == nil {
			return Empty
		}
		if v.Len() == 0 {
			return EmptyMap
		}
		if IsReference(v) {
			return f.Reference(v)
		}
		return f.formatMap(v, depth)
	}
	return document.Text(value)
}

// Scalar translates option ids and passes other strings through.
func (f *Formatter) Scalar(s string) string {
	if resolver.IsOptionID(s) {
		if name, ok := f.resolver.Option(s); ok {
			return name
		}
	}
	return s
}

func (f *Formatter) formatList(items []any, depth int) string {
	if len(items) == 0 {
		return EmptyList
	}

	formatted := make([]string, len(items))
	inline := true
	for i, item := range items {
		formatted[i] = f.Format(item, depth+1)
		if strings.Contains(formatted[i], "\n") || utf8.RuneCountInString(formatted[i]) >= InlineLimit {
			inline = false
		}
	}
	if inline {
		return strings.Join(formatted, ", ")
	}

	indent := strings.Repeat("  ", depth)
	var b strings.Builder
	for _, item := range formatted {
		b.WriteString("\n")
		b.WriteString(indent)
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func (f *Formatter) formatMap(obj *document.Object, depth int) string {
	parts := make([]string, 0, obj.Len())
	for p := obj.Oldest(); p != nil; p = p.Next() {
		parts = append(parts, p.Key+": "+f.Format(p.Value, depth+1))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// IsReference reports whether v is a typed reference object.
func IsReference(v any) bool {
	return document.GetString(v, "type") == "ref"
}

// Reference renders a typed reference object as a bracketed phrase.
func (f *Formatter) Reference(ref any) string {
	tag := document.GetString(ref, "tagType")
	if tag == "" {
		tag = "未知"
	}

	switch tag {
	case TagFormula:
		title := document.GetString(ref, "title")
		if title == "" {
			title = "未知"
		}
		return "[公式计算: " + title + "]"

	case TagSystem:
		sys := document.GetString(ref, "systemType")
		if sys == "" {
			sys = "unknown"
		}
		return "[系统变量:" + lookup(systemVariables, sys) + "]"

	case TagRecordAttribute:
		attr := document.GetString(ref, "attribute")
		if attr == "" {
			attr = "unknown"
		}
		return "[步骤" + f.StepLabel(ref) + "的" + lookup(recordAttributes, attr) + "]"
	}

	step := f.StepLabel(ref)
	field := f.referencedField(ref)

	if tag == TagLoop {
		if field != "" {
			return "[步骤" + step + "循环" + field + "]"
		}
		return "[步骤" + step + "的循环当前记录]"
	}
	if field != "" {
		return "[步骤" + step + field + "]"
	}
	return "[步骤" + step + "的" + lookup(tagDescriptions, tag) + "]"
}

// StepLabel returns the step number a reference points at: its stepNum,
// else its stepId through the step lookup, else "?".
func (f *Formatter) StepLabel(ref any) string {
	if n := document.Get(ref, "stepNum"); n != nil {
		if s := document.Text(n); s != "" {
			return s
		}
	}
	if id := document.GetString(ref, "stepId"); id != "" && f.steps != nil {
		if idx, ok := f.steps(id); ok {
			return strconv.Itoa(idx)
		}
	}
	return UnknownStep
}

// referencedField returns "的「name」" / "的记录ID" for the field a reference
// selects, from fields[0].fieldId or the first Field/RecordAttr path entry.
func (f *Formatter) referencedField(ref any) string {
	if fields := document.GetArray(ref, "fields"); len(fields) > 0 {
		if fid := document.GetString(fields[0], "fieldId"); fid != "" {
			return "的「" + f.resolver.ResolveField(fid) + "」"
		}
	}

	for _, p := range document.GetArray(ref, "path") {
		switch document.GetString(p, "type") {
		case "Field":
			if fid := document.GetString(p, "value"); fid != "" {
				return "的「" + f.resolver.ResolveField(fid) + "」"
			}
		case "RecordAttr":
			return "的" + lookup(recordAttributes, document.GetString(p, "value"))
		}
	}
	return ""
}

func lookup(table map[string]string, key string) string {
	if v, ok := table[key]; ok {
		return v
	}
	return key
}
