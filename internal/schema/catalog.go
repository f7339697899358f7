package schema

import (
	"sort"
	"strings"
	"unicode/utf8"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/expression"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/resolver"
)

const (
	// NoConfig marks a field with no property block.
	NoConfig = "-"
	// UnknownTableName names a table structure without meta.id.
	UnknownTableName = "未知表"

	propertyPreviewLimit = 200
)

// Field is one catalog row.
type Field struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          int64  `json:"type"`
	TypeName      string `json:"typeName"`
	Description   string `json:"description,omitempty"`
	Config        string `json:"config"`
	AI            bool   `json:"ai"`
	AIDescription string `json:"aiDescription,omitempty"`
}

// TableFields lists the fields of one table structure.
type TableFields struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Catalog is the full field listing of a snapshot.
type Catalog struct {
	Tables []TableFields `json:"tables"`
}

// FieldCount returns the number of catalog rows.
func (c Catalog) FieldCount() int {
	n := 0
	for _, t := range c.Tables {
		n += len(t.Fields)
	}
	return n
}

// Builder derives catalog and relationship views from a registry.
type Builder struct {
	registry   *registry.Registry
	resolver   *resolver.Resolver
	translator *expression.Translator
}

// NewBuilder creates a Builder.
func NewBuilder(reg *registry.Registry) *Builder {
	r := resolver.New(reg)
	return &Builder{
		registry:   reg,
		resolver:   r,
		translator: expression.New(r),
	}
}

// Catalog lists every table structure, sorted by table name, with its
// fields sorted by field name. Ties keep document order.
func (b *Builder) Catalog() Catalog {
	tables := b.sortedTables()
	out := Catalog{Tables: make([]TableFields, 0, len(tables))}
	for _, t := range tables {
		entries := t.Fields()
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Name < entries[j].Name
		})
		tf := TableFields{ID: t.ID, Name: b.tableName(t.ID), Fields: make([]Field, 0, len(entries))}
		for _, e := range entries {
			tf.Fields = append(tf.Fields, b.DescribeField(t.ID, e))
		}
		out.Tables = append(out.Tables, tf)
	}
	return out
}

// DescribeField builds the catalog row of one field of tableID.
func (b *Builder) DescribeField(tableID string, e *registry.FieldEntry) Field {
	def := e.Definition
	f := Field{
		ID:          e.FieldID,
		Name:        e.Name,
		Type:        e.Type,
		TypeName:    FieldTypeName(e.Type),
		Description: strings.ReplaceAll(document.GetString(def, "description", "text"), "\n", " "),
		Config:      b.fieldConfig(tableID, e),
	}
	f.AI, f.AIDescription = b.detectAI(def)
	return f
}

func (b *Builder) fieldConfig(tableID string, e *registry.FieldEntry) string {
	prop := document.Get(e.Definition, "property")

	switch e.Type {
	case TypeFormula:
		return "`" + b.translator.TranslateText(document.GetString(prop, "formula"), tableID) + "`"

	case TypeSingleSelect, TypeMultiSelect:
		if tt := document.GetString(prop, "optionsRule", "targetTable"); tt != "" {
			tf := document.GetString(prop, "optionsRule", "targetField")
			return "选项同步自「" + b.resolver.ResolveTable(tt) + "」的「" + b.resolver.ResolveFieldIn(tt, tf) + "」"
		}
		var names []string
		for _, o := range document.GetArray(prop, "options") {
			names = append(names, document.GetString(o, "name"))
		}
		return "选项: " + strings.Join(names, ", ")

	case TypeLookup:
		if tt := document.GetString(prop, "filterInfo", "targetTable"); tt != "" {
			tf := document.GetString(prop, "targetField")
			text := "查找引用自「" + b.resolver.ResolveTable(tt) + "」的「" + b.resolver.ResolveFieldIn(tt, tf) + "」"
			if formula := document.GetString(prop, "formula"); formula != "" {
				if line := b.translator.Translate(formula, tableID).FilterLine(); line != "" {
					text += "<br>" + line
				}
			}
			return text
		}

	case TypeLink, TypeDuplexLink:
		if tt := document.GetString(prop, "tableId"); tt != "" {
			return "关联到「" + b.resolver.ResolveTable(tt) + "」"
		}

	case TypeAutoNumber:
		return autoNumberRules(document.GetArray(prop, "ruleFieldOptions"))

	case TypeDate:
		var parts []string
		format := strings.TrimSpace(document.GetString(prop, "dateFormat") + " " + document.GetString(prop, "timeFormat"))
		if format != "" {
			parts = append(parts, "格式: "+format)
		}
		if document.Truthy(document.Get(prop, "autoFill")) {
			parts = append(parts, "自动填入创建时间")
		}
		if len(parts) == 0 {
			return "日期"
		}
		return strings.Join(parts, " | ")

	case TypeNumber:
		if formatter := document.GetString(prop, "formatter"); formatter != "" {
			return "数字格式: " + formatter
		}
		return "数字"

	case TypeButton:
		title := "未命名按钮"
		if document.Has(document.Get(prop, "button"), "title") {
			title = document.Text(document.Get(prop, "button", "title"))
		}
		trigger := "无触发"
		if code, ok := document.Int(document.Get(prop, "trigger", "type")); ok && code == 0 {
			trigger = "触发自动化/脚本"
		}
		return "按钮: [" + title + "] (" + trigger + ")"

	case TypeAttachment:
		return "允许上传附件"
	}

	if !document.Truthy(prop) {
		return NoConfig
	}
	dump := document.Compact(prop)
	if utf8.RuneCountInString(dump) > propertyPreviewLimit {
		dump = string([]rune(dump)[:propertyPreviewLimit]) + "..."
	}
	return dump
}

func autoNumberRules(rules []any) string {
	var parts []string
	for _, rule := range rules {
		value := textOrEmpty(document.Get(rule, "value"))
		code, _ := document.Int(document.Get(rule, "type"))
		switch code {
		case 1:
			parts = append(parts, "{创建时间:"+value+"}")
		case 2:
			parts = append(parts, `"`+value+`"`)
		case 3:
			parts = append(parts, "{自增数字:"+value+"位}")
		default:
			parts = append(parts, "{未知规则:"+value+"}")
		}
	}
	if len(parts) == 0 {
		return "自动编号 (无规则)"
	}
	return "编号规则: " + strings.Join(parts, " + ")
}

// sortedTables orders table structures by display name. Unnamed tables sort
// as "" and keep document order among themselves.
func (b *Builder) sortedTables() []*registry.Table {
	tables := append([]*registry.Table(nil), b.registry.Tables()...)
	sort.SliceStable(tables, func(i, j int) bool {
		ni, _ := b.registry.TableName(tables[i].ID)
		nj, _ := b.registry.TableName(tables[j].ID)
		return ni < nj
	})
	return tables
}

func (b *Builder) tableName(id string) string {
	if id == "" {
		return UnknownTableName
	}
	if name, ok := b.registry.TableName(id); ok {
		return name
	}
	return id
}

func textOrEmpty(v any) string {
	if v == nil {
		return ""
	}
	return document.Text(v)
}
