package resolver

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"yqhp/bitable-doc/internal/document"
)

// AliasEntry maps one workflow-local table alias to its real table and the
// workflow-local field ids to real field ids.
type AliasEntry struct {
	Alias   string
	TableID string
	Fields  *orderedmap.OrderedMap[string, string]
}

// AliasMap is the workflow-local scope. It lives for one workflow only.
type AliasMap struct {
	entries *orderedmap.OrderedMap[string, *AliasEntry]
}

// NewAliasMap builds the local scope from a workflow's Extra.TableMap object:
//
//	{"ref_tblX": {"TableID": "\"tblX\"", "FieldMap": {"ref_fld": "fldY"}}}
//
// Entries that are not objects are ignored.
func NewAliasMap(tableMap any) *AliasMap {
	a := &AliasMap{entries: orderedmap.New[string, *AliasEntry]()}
	document.Each(tableMap, func(alias string, info any) {
		if document.Obj(info) == nil {
			return
		}
		entry := &AliasEntry{
			Alias:   alias,
			TableID: cleanID(document.GetString(info, "TableID")),
			Fields:  orderedmap.New[string, string](),
		}
		document.Each(document.Get(info, "FieldMap"), func(local string, real any) {
			if s, ok := real.(string); ok {
				entry.Fields.Set(local, cleanID(s))
			}
		})
		a.entries.Set(alias, entry)
	})
	return a
}

// Table returns the entry for a table alias.
func (a *AliasMap) Table(alias string) (*AliasEntry, bool) {
	if a == nil {
		return nil, false
	}
	return a.entries.Get(alias)
}

// Len returns the number of table aliases.
func (a *AliasMap) Len() int {
	if a == nil {
		return 0
	}
	return a.entries.Len()
}

// eachField visits (realTableID, realFieldID) for every alias entry whose
// FieldMap contains local, in alias order.
func (a *AliasMap) eachField(local string, fn func(tableID, fieldID string) bool) {
	if a == nil {
		return
	}
	for p := a.entries.Oldest(); p != nil; p = p.Next() {
		real, ok := p.Value.Fields.Get(local)
		if !ok {
			continue
		}
		if fn(p.Value.TableID, real) {
			return
		}
	}
}

// cleanID strips the JSON quoting some exports leave around ids.
func cleanID(id string) string {
	return strings.Trim(strings.TrimSpace(id), `"\`)
}
