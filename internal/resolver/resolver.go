// Package resolver 将表、字段、选项 ID 解析为显示名称。
//
// 解析是两级作用域：工作流本地别名表 (AliasMap) 链接到全局注册表。
// 每一级查找都是返回 (name, ok) 的全函数，按优先级取第一个成功结果；
// 全部失败时返回包含原始 ID 的未解析标记，而不是报错。
package resolver

import (
	"regexp"
	"strings"

	"yqhp/bitable-doc/internal/registry"
)

// 工作流导出中的复合别名: ref_tblXXX_fldYYY 或 ref_ref_tblXXX_fldYYY
var (
	compositeFieldPattern = regexp.MustCompile(`(tbl[^_]+)_(fld.+)`)
	compositeTablePattern = regexp.MustCompile(`^(?:ref_){1,2}(tbl[^_]+)$`)
)

const aliasPrefix = "ref_"

// Resolver resolves identifiers for one scope. The zero-alias Resolver is the
// global scope; Scoped derives a workflow-local child.
type Resolver struct {
	registry *registry.Registry
	aliases  *AliasMap
}

// New creates a global-scope resolver.
func New(reg *registry.Registry) *Resolver {
	return &Resolver{registry: reg}
}

// Scoped returns a resolver whose local scope is aliases, chained to the same
// global registry. The receiver is not modified.
func (r *Resolver) Scoped(aliases *AliasMap) *Resolver {
	return &Resolver{registry: r.registry, aliases: aliases}
}

// Registry returns the global registry.
func (r *Resolver) Registry() *registry.Registry {
	return r.registry
}

// Aliases returns the local scope, nil for the global scope.
func (r *Resolver) Aliases() *AliasMap {
	return r.aliases
}

// ---- tables ----

type tableTier func(r *Resolver, id string) (string, bool)

var tableTiers = []tableTier{
	(*Resolver).tableFromAliases,
	(*Resolver).tableDirect,
	(*Resolver).tableRecovered,
}

// LookupTable tries every tier and reports whether a name was found.
func (r *Resolver) LookupTable(id string) (string, bool) {
	id = cleanID(id)
	if id == "" {
		return "", false
	}
	for _, tier := range tableTiers {
		if name, ok := tier(r, id); ok {
			return name, true
		}
	}
	return "", false
}

// ResolveTable returns the display name of a table id, or a marker. Never fails.
func (r *Resolver) ResolveTable(id string) string {
	id = cleanID(id)
	if id == "" {
		return UnknownTable
	}
	if name, ok := r.LookupTable(id); ok {
		return name
	}
	return TableMarker(id)
}

func (r *Resolver) tableFromAliases(id string) (string, bool) {
	entry, ok := r.aliases.Table(id)
	if !ok || entry.TableID == "" {
		return "", false
	}
	return r.registryTable(entry.TableID)
}

func (r *Resolver) tableDirect(id string) (string, bool) {
	return r.registryTable(id)
}

// tableRecovered strips one or two alias prefixes and retries.
func (r *Resolver) tableRecovered(id string) (string, bool) {
	m := compositeTablePattern.FindStringSubmatch(id)
	if m == nil {
		return "", false
	}
	if name, ok := r.tableFromAliases(aliasPrefix + m[1]); ok {
		return name, true
	}
	return r.registryTable(m[1])
}

func (r *Resolver) registryTable(id string) (string, bool) {
	if r.registry == nil {
		return "", false
	}
	return r.registry.TableName(id)
}

// ---- fields ----

type fieldQuery struct {
	id        string // 去引号后的原始 ID
	tableID   string // 当前表上下文，可为空
	realTable string // 从复合别名恢复的表 ID
	realField string // 从复合别名恢复的字段 ID
}

type fieldTier func(r *Resolver, q fieldQuery) (string, bool)

var fieldTiers = []fieldTier{
	(*Resolver).fieldFromAliases,
	(*Resolver).fieldDirect,
	(*Resolver).fieldRelaxed,
}

func newFieldQuery(tableID, id string) fieldQuery {
	q := fieldQuery{id: cleanID(id), tableID: cleanID(tableID)}
	if strings.HasPrefix(q.id, aliasPrefix+aliasPrefix+"tbl") || strings.HasPrefix(q.id, aliasPrefix+"tbl") {
		if m := compositeFieldPattern.FindStringSubmatch(q.id); m != nil {
			q.realTable, q.realField = m[1], m[2]
		}
	}
	return q
}

// LookupField resolves a field id without table context.
func (r *Resolver) LookupField(id string) (string, bool) {
	return r.LookupFieldIn("", id)
}

// LookupFieldIn resolves a field id, preferring tableID for the direct tier.
func (r *Resolver) LookupFieldIn(tableID, id string) (string, bool) {
	q := newFieldQuery(tableID, id)
	if q.id == "" {
		return "", false
	}
	for _, tier := range fieldTiers {
		if name, ok := tier(r, q); ok {
			return name, true
		}
	}
	return "", false
}

// ResolveField returns the display name of a field id, or a marker. Never fails.
func (r *Resolver) ResolveField(id string) string {
	return r.ResolveFieldIn("", id)
}

// ResolveFieldIn is ResolveField with a current-table context.
func (r *Resolver) ResolveFieldIn(tableID, id string) string {
	q := newFieldQuery(tableID, id)
	if q.id == "" {
		return UnknownField
	}
	if name, ok := r.LookupFieldIn(tableID, id); ok {
		return name
	}
	return FieldMarker(q.id)
}

// fieldFromAliases: 复合别名中的表别名，以及各别名条目的 FieldMap。
func (r *Resolver) fieldFromAliases(q fieldQuery) (string, bool) {
	if q.realTable != "" {
		if entry, ok := r.aliases.Table(aliasPrefix + q.realTable); ok && entry.TableID != "" {
			if name, ok := r.registryField(entry.TableID, q.realField); ok {
				return name, true
			}
		}
	}

	var found string
	r.aliases.eachField(q.id, func(tableID, fieldID string) bool {
		if name, ok := r.registryField(tableID, fieldID); ok {
			found = name
			return true
		}
		return false
	})
	return found, found != ""
}

func (r *Resolver) fieldDirect(q fieldQuery) (string, bool) {
	if q.realTable != "" {
		if name, ok := r.registryField(q.realTable, q.realField); ok {
			return name, true
		}
	}
	if q.tableID != "" {
		if name, ok := r.registryField(q.tableID, q.id); ok {
			return name, true
		}
		// 表上下文本身可能是别名
		if entry, ok := r.aliases.Table(q.tableID); ok && entry.TableID != "" {
			return r.registryField(entry.TableID, q.id)
		}
	}
	return "", false
}

// fieldRelaxed ignores the table and takes the first registration of the
// field id in registry order. Ambiguous ids resolve deterministically but
// not necessarily to the intended table.
func (r *Resolver) fieldRelaxed(q fieldQuery) (string, bool) {
	if q.realField != "" {
		if name, ok := r.anyTableField(q.realField); ok {
			return name, true
		}
	}
	if name, ok := r.anyTableField(q.id); ok {
		return name, true
	}

	var found string
	r.aliases.eachField(q.id, func(_, fieldID string) bool {
		if name, ok := r.anyTableField(fieldID); ok {
			found = name
			return true
		}
		return false
	})
	return found, found != ""
}

func (r *Resolver) registryField(tableID, fieldID string) (string, bool) {
	if r.registry == nil {
		return "", false
	}
	return r.registry.FieldName(tableID, fieldID)
}

func (r *Resolver) anyTableField(fieldID string) (string, bool) {
	if r.registry == nil {
		return "", false
	}
	entry, ok := r.registry.FindField(fieldID)
	if !ok {
		return "", false
	}
	return entry.Name, true
}

// ---- options ----

// Option returns the display name of an option id.
func (r *Resolver) Option(id string) (string, bool) {
	if r.registry == nil {
		return "", false
	}
	return r.registry.OptionName(id)
}

// IsOptionID reports whether s follows the option id convention.
func IsOptionID(s string) bool {
	return strings.HasPrefix(s, "opt")
}
