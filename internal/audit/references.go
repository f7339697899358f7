package audit

import (
	"github.com/ohler55/ojg/jp"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/resolver"
	"yqhp/bitable-doc/internal/workflow"
)

// 引用类型
const (
	RefTable = "表"
	RefField = "字段"
)

var (
	tableIDPath = jp.MustParseString("$..tableId")
	fieldIDPath = jp.MustParseString("$..fieldId")
)

// Reference is an id cited by workflow drafts that no resolver tier can name.
type Reference struct {
	Kind      string   `json:"kind"`
	ID        string   `json:"id"`
	Count     int      `json:"count"`
	Workflows []string `json:"workflows"`
}

// Ambiguity is a cited field id registered under more than one table. The
// resolver keeps the first registration; the others are listed for review.
type Ambiguity struct {
	FieldID      string   `json:"fieldId"`
	Chosen       string   `json:"chosen"`
	Alternatives []string `json:"alternatives"`
	Count        int      `json:"count"`
	Workflows    []string `json:"workflows"`
}

// Inventory counts every tableId/fieldId value cited by workflow drafts.
type Inventory struct {
	TableRefs  int         `json:"tableRefs"`
	FieldRefs  int         `json:"fieldRefs"`
	Unresolved []Reference `json:"unresolved"`
	Ambiguous  []Ambiguity `json:"ambiguous"`
}

// CollectReferences walks every parseable draft and resolves each cited id
// through that workflow's alias scope.
func CollectReferences(reg *registry.Registry, workflows []any) Inventory {
	base := resolver.New(reg)
	var inv Inventory
	index := make(map[string]int)

	record := func(kind, id, wfID string) {
		key := kind + "\x00" + id
		i, ok := index[key]
		if !ok {
			i = len(inv.Unresolved)
			index[key] = i
			inv.Unresolved = append(inv.Unresolved, Reference{Kind: kind, ID: id})
		}
		ref := &inv.Unresolved[i]
		ref.Count++
		if n := len(ref.Workflows); n == 0 || ref.Workflows[n-1] != wfID {
			ref.Workflows = append(ref.Workflows, wfID)
		}
	}

	ambiguous := make(map[string]int)
	flag := func(id, wfID string) {
		i, ok := ambiguous[id]
		if !ok {
			candidates := reg.FieldCandidates(id)
			if len(candidates) < 2 {
				ambiguous[id] = -1
				return
			}
			a := Ambiguity{FieldID: id, Chosen: qualifiedName(reg, candidates[0])}
			for _, c := range candidates[1:] {
				a.Alternatives = append(a.Alternatives, qualifiedName(reg, c))
			}
			i = len(inv.Ambiguous)
			ambiguous[id] = i
			inv.Ambiguous = append(inv.Ambiguous, a)
		}
		if i < 0 {
			return
		}
		a := &inv.Ambiguous[i]
		a.Count++
		if n := len(a.Workflows); n == 0 || a.Workflows[n-1] != wfID {
			a.Workflows = append(a.Workflows, wfID)
		}
	}

	for _, wf := range workflows {
		draft, err := workflow.Draft(wf)
		if err != nil || draft == nil {
			continue
		}
		wfID := workflow.UnknownID
		if v := document.Get(wf, "id"); v != nil {
			wfID = document.Text(v)
		}
		scoped := base.Scoped(workflow.Aliases(wf))
		plain := document.Plain(draft)

		for _, id := range stringValues(tableIDPath.Get(plain)) {
			inv.TableRefs++
			if _, ok := scoped.LookupTable(id); !ok {
				record(RefTable, id, wfID)
			}
		}
		for _, id := range stringValues(fieldIDPath.Get(plain)) {
			inv.FieldRefs++
			if _, ok := scoped.LookupField(id); !ok {
				record(RefField, id, wfID)
				continue
			}
			if reg != nil {
				flag(id, wfID)
			}
		}
	}
	return inv
}

func qualifiedName(reg *registry.Registry, f *registry.FieldEntry) string {
	table, ok := reg.TableName(f.TableID)
	if !ok {
		table = f.TableID
	}
	field, ok := reg.FieldName(f.TableID, f.FieldID)
	if !ok {
		field = f.FieldID
	}
	return "「" + table + "」.「" + field + "」"
}

func stringValues(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
