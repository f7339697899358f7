package schema

import (
	"sort"
	"strings"

	"github.com/duke-git/lancet/v2/slice"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/expression"
	"yqhp/bitable-doc/internal/registry"
)

// 关联类型
const (
	RelationFormula    = "公式关联"
	RelationLookup     = "查找引用"
	RelationLink       = "单向关联"
	RelationDuplexLink = "双向关联"
	RelationOptionSync = "选项同步"
)

// NoTarget fills the target field column of relations without one.
const NoTarget = "-"

// Relation is one field that reads from or links to another table.
type Relation struct {
	FieldID     string `json:"fieldId"`
	FieldName   string `json:"fieldName"`
	Kind        string `json:"kind"`
	TargetTable string `json:"targetTable"`
	TargetField string `json:"targetField"`
	Logic       string `json:"logic"`
	// Filter is the joined filter summary without prefix.
	Filter  string `json:"filter,omitempty"`
	Formula string `json:"formula,omitempty"`
}

// TableRelations groups the outward relations of one table.
type TableRelations struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Relations []Relation `json:"relations"`
}

// RelationshipMap lists every table with at least one relation.
type RelationshipMap struct {
	TotalTables   int              `json:"totalTables"`
	Tables        []TableRelations `json:"tables"`
	RelationCount int              `json:"relationCount"`
}

// Relationships scans every table structure for cross-table fields. Tables
// are sorted by name and relations by field name.
func (b *Builder) Relationships() RelationshipMap {
	tables := b.sortedTables()
	out := RelationshipMap{TotalTables: len(tables)}
	for _, t := range tables {
		var rels []Relation
		for _, e := range t.Fields() {
			if rel, ok := b.relation(t.ID, e); ok {
				rels = append(rels, rel)
			}
		}
		if len(rels) == 0 {
			continue
		}
		sort.SliceStable(rels, func(i, j int) bool {
			return rels[i].FieldName < rels[j].FieldName
		})
		out.Tables = append(out.Tables, TableRelations{ID: t.ID, Name: b.tableName(t.ID), Relations: rels})
		out.RelationCount += len(rels)
	}
	return out
}

func (b *Builder) relation(tableID string, e *registry.FieldEntry) (Relation, bool) {
	prop := document.Get(e.Definition, "property")
	rel := Relation{FieldID: e.FieldID, FieldName: e.Name, TargetField: NoTarget}

	switch e.Type {
	case TypeFormula:
		formula := document.GetString(prop, "formula")
		refs := expression.CrossTableRefs(formula, tableID)
		if len(refs) == 0 {
			return rel, false
		}
		res := b.translator.Translate(formula, tableID)
		rel.Kind = RelationFormula
		rel.TargetTable = strings.Join(slice.Map(refs, func(_ int, id string) string {
			return b.resolver.ResolveTable(id)
		}), ", ")
		rel.Logic = "通过公式计算引用外部表数据"
		rel.Filter = res.Filter
		rel.Formula = res.Text
		return rel, true

	case TypeLookup:
		tt := document.GetString(prop, "filterInfo", "targetTable")
		if tt == "" {
			return rel, false
		}
		rel.Kind = RelationLookup
		rel.TargetTable = b.resolver.ResolveTable(tt)
		rel.TargetField = b.resolver.ResolveFieldIn(tt, document.GetString(prop, "targetField"))
		rel.Logic = "从「" + rel.TargetTable + "」的「" + rel.TargetField + "」字段获取数据"
		if formula := document.GetString(prop, "formula"); formula != "" {
			res := b.translator.Translate(formula, tableID)
			rel.Filter = res.Filter
			rel.Formula = res.Text
		}
		return rel, true

	case TypeLink, TypeDuplexLink:
		tt := document.GetString(prop, "tableId")
		if tt == "" {
			return rel, false
		}
		rel.Kind = RelationLink
		if e.Type == TypeDuplexLink {
			rel.Kind = RelationDuplexLink
		}
		rel.TargetTable = b.resolver.ResolveTable(tt)
		rel.Logic = "与「" + rel.TargetTable + "」建立记录关联"
		return rel, true

	case TypeSingleSelect, TypeMultiSelect:
		tt := document.GetString(prop, "optionsRule", "targetTable")
		if tt == "" {
			return rel, false
		}
		rel.Kind = RelationOptionSync
		rel.TargetTable = b.resolver.ResolveTable(tt)
		rel.TargetField = b.resolver.ResolveFieldIn(tt, document.GetString(prop, "optionsRule", "targetField"))
		rel.Logic = "下拉选项实时同步自「" + rel.TargetTable + "」的「" + rel.TargetField + "」"
		return rel, true
	}
	return rel, false
}

// Targets returns the distinct target table names of the map.
func (m RelationshipMap) Targets() []string {
	var names []string
	for _, t := range m.Tables {
		for _, r := range t.Relations {
			names = append(names, strings.Split(r.TargetTable, ", ")...)
		}
	}
	return slice.Unique(names)
}
