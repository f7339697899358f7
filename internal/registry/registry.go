// Package registry 从 schema 快照构建全局名称注册表：
// 表名、(表, 字段) 名称、选项名称，以及侧边栏显示名称。
//
// 合并规则:
//   - schema.tableMap 中的表名为权威来源，始终覆盖；
//   - data 中表结构的 meta.name 仅在该表尚未登记时写入 (先写者胜)；
//   - 字段名每次出现都覆盖 (后写者胜)，缺失时退化为字段 ID；
//   - 选项 ID 全局唯一，后写者胜。
package registry

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"yqhp/bitable-doc/internal/document"
)

// FieldKey identifies a field within its table.
type FieldKey struct {
	TableID string
	FieldID string
}

// FieldEntry is one registered field.
type FieldEntry struct {
	TableID    string
	FieldID    string
	Name       string
	Type       int64            // 字段类型编码，未声明时为 0
	Definition *document.Object // 原始字段定义
}

// Table is one table structure found in a snapshot's data section.
type Table struct {
	ID         string
	MetaName   string
	Definition *document.Object
}

// Fields returns the table's field definitions in document order.
func (t *Table) Fields() []*FieldEntry {
	fieldMap := document.GetObject(t.Definition, "fieldMap")
	if fieldMap == nil {
		return nil
	}
	out := make([]*FieldEntry, 0, fieldMap.Len())
	for p := fieldMap.Oldest(); p != nil; p = p.Next() {
		out = append(out, newFieldEntry(t.ID, p.Key, p.Value))
	}
	return out
}

// Registry holds the read-only lookup tables. It is never mutated after Build.
type Registry struct {
	tables     *orderedmap.OrderedMap[string, string]
	fields     *orderedmap.OrderedMap[FieldKey, *FieldEntry]
	firstField map[string]FieldKey
	options    *orderedmap.OrderedMap[string, string]
	blocks     map[string]string
	tableList  []*Table
}

func newRegistry() *Registry {
	return &Registry{
		tables:     orderedmap.New[string, string](),
		fields:     orderedmap.New[FieldKey, *FieldEntry](),
		firstField: make(map[string]FieldKey),
		options:    orderedmap.New[string, string](),
		blocks:     make(map[string]string),
	}
}

// Build scans the snapshot fragments in order. Malformed fragments are skipped;
// Build never fails.
func Build(snapshot []any) *Registry {
	r := newRegistry()
	for _, item := range snapshot {
		schema := document.GetObject(item, "schema")
		if schema == nil {
			continue
		}
		r.scanTableMap(schema)
		r.scanBlocks(schema)
		r.scanData(schema)
	}
	return r
}

func (r *Registry) scanTableMap(schema *document.Object) {
	document.Each(document.Get(schema, "tableMap"), func(tid string, info any) {
		if name := document.GetString(info, "name"); name != "" {
			r.tables.Set(tid, name)
		}
	})
}

func (r *Registry) scanBlocks(schema *document.Object) {
	document.Each(document.Get(schema, "base", "blockInfos"), func(_ string, info any) {
		token := document.GetString(info, "blockToken")
		name := document.GetString(info, "name")
		if token != "" && name != "" {
			r.blocks[token] = name
		}
	})
}

func (r *Registry) scanData(schema *document.Object) {
	data := document.GetObject(schema, "data")
	if data == nil {
		return
	}

	candidates := append([]any{}, document.GetArray(data, "tables")...)
	if table, ok := data.Get("table"); ok {
		candidates = append(candidates, table)
	}

	for _, raw := range candidates {
		def := document.Obj(raw)
		if def == nil {
			continue
		}
		table := &Table{
			ID:         document.GetString(def, "meta", "id"),
			MetaName:   document.GetString(def, "meta", "name"),
			Definition: def,
		}
		r.tableList = append(r.tableList, table)

		if table.ID == "" {
			continue
		}
		if _, exists := r.tables.Get(table.ID); !exists {
			name := table.MetaName
			if name == "" {
				name = table.ID
			}
			r.tables.Set(table.ID, name)
		}
		for _, field := range table.Fields() {
			r.registerField(field)
		}
	}
}

func (r *Registry) registerField(field *FieldEntry) {
	key := FieldKey{TableID: field.TableID, FieldID: field.FieldID}
	r.fields.Set(key, field)
	if _, seen := r.firstField[field.FieldID]; !seen {
		r.firstField[field.FieldID] = key
	}

	for _, opt := range document.GetArray(field.Definition, "property", "options") {
		id := document.GetString(opt, "id")
		if id == "" {
			continue
		}
		r.options.Set(id, document.GetString(opt, "name"))
	}
}

func newFieldEntry(tableID, fieldID string, def any) *FieldEntry {
	name := document.GetString(def, "name")
	if name == "" {
		name = fieldID
	}
	code, _ := document.Int(document.Get(def, "type"))
	return &FieldEntry{
		TableID:    tableID,
		FieldID:    fieldID,
		Name:       name,
		Type:       code,
		Definition: document.Obj(def),
	}
}

// TableName returns the registered display name of a table.
func (r *Registry) TableName(id string) (string, bool) {
	return r.tables.Get(id)
}

// Field returns the entry registered under (tableID, fieldID).
func (r *Registry) Field(tableID, fieldID string) (*FieldEntry, bool) {
	return r.fields.Get(FieldKey{TableID: tableID, FieldID: fieldID})
}

// FieldName returns the display name of (tableID, fieldID).
func (r *Registry) FieldName(tableID, fieldID string) (string, bool) {
	entry, ok := r.Field(tableID, fieldID)
	if !ok {
		return "", false
	}
	return entry.Name, true
}

// FindField matches by field id alone and returns the first registration in
// registry order. Field ids are not globally unique, so this is best effort.
func (r *Registry) FindField(fieldID string) (*FieldEntry, bool) {
	key, ok := r.firstField[fieldID]
	if !ok {
		return nil, false
	}
	return r.fields.Get(key)
}

// FieldCandidates returns every registration of fieldID in registry order.
func (r *Registry) FieldCandidates(fieldID string) []*FieldEntry {
	var out []*FieldEntry
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		if p.Key.FieldID == fieldID {
			out = append(out, p.Value)
		}
	}
	return out
}

// OptionName returns the display name of an option id.
func (r *Registry) OptionName(id string) (string, bool) {
	name, ok := r.options.Get(id)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// BlockName returns the sidebar display name registered for a block token.
func (r *Registry) BlockName(token string) (string, bool) {
	name, ok := r.blocks[token]
	return name, ok
}

// Tables returns the flat list of parsed table structures in scan order.
func (r *Registry) Tables() []*Table {
	return r.tableList
}

// TableIDs returns registered table ids in registration order.
func (r *Registry) TableIDs() []string {
	ids := make([]string, 0, r.tables.Len())
	for p := r.tables.Oldest(); p != nil; p = p.Next() {
		ids = append(ids, p.Key)
	}
	return ids
}

// HasTable reports whether id is a registered table.
func (r *Registry) HasTable(id string) bool {
	_, ok := r.tables.Get(id)
	return ok
}

// HasField reports whether id is registered as a field in any table.
func (r *Registry) HasField(id string) bool {
	_, ok := r.firstField[id]
	return ok
}

// Stats summarises the registry size.
type Stats struct {
	Tables  int `json:"tables"`
	Fields  int `json:"fields"`
	Options int `json:"options"`
	Blocks  int `json:"blocks"`
}

// Stats returns the number of registered entries per kind.
func (r *Registry) Stats() Stats {
	return Stats{
		Tables:  r.tables.Len(),
		Fields:  r.fields.Len(),
		Options: r.options.Len(),
		Blocks:  len(r.blocks),
	}
}
