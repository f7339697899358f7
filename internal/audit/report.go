package audit

import (
	set "github.com/duke-git/lancet/v2/datastructure/set"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/loader"
	"yqhp/bitable-doc/internal/registry"
)

// Document is one rendered document to scan.
type Document struct {
	Name    string
	Content string
}

// Report is the full audit result.
type Report struct {
	Coverage   KeyCoverage `json:"coverage"`
	Findings   []Finding   `json:"findings"`
	References Inventory   `json:"references"`
}

// Count returns the number of findings in category.
func (r Report) Count(category string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Category == category {
			n++
		}
	}
	return n
}

// Run audits an export and the documents rendered from it.
func Run(export *loader.Export, reg *registry.Registry, docs []Document) Report {
	scanner := NewScanner(SourceIDs(reg, export.ExtraInfo))
	report := Report{
		Coverage:   ScanKeys(export),
		References: CollectReferences(reg, export.Workflows),
	}
	for _, d := range docs {
		report.Findings = append(report.Findings, scanner.Scan(d.Name, d.Content)...)
	}
	return report
}

// SourceIDs returns a membership test over every table and field id present
// in the export: the registry plus the extra-info table listing.
func SourceIDs(reg *registry.Registry, extraInfo any) func(string) bool {
	extra := set.New[string]()
	for _, tbl := range document.GetArray(extraInfo, "tables") {
		if id := document.GetString(tbl, "tableId"); id != "" {
			extra.Add(id)
		}
		for _, fld := range document.GetArray(tbl, "fields") {
			if id := document.GetString(fld, "fieldId"); id != "" {
				extra.Add(id)
			}
		}
	}
	return func(id string) bool {
		if extra.Contain(id) {
			return true
		}
		return reg != nil && (reg.HasTable(id) || reg.HasField(id))
	}
}
