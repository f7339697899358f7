package resolver

import "regexp"

// 兜底显示文本
const (
	UnknownTable = "未知表"
	UnknownField = "未知字段"
)

// Marker kinds, embedded in the marker text.
const (
	KindTable = "已删除的表"
	KindField = "已删除的字段"
	KindStep  = "未知步骤"
)

// TableMarker renders the unresolved-reference marker for a table id.
func TableMarker(id string) string {
	return "[" + KindTable + ":" + id + "]"
}

// FieldMarker renders the unresolved-reference marker for a field id.
func FieldMarker(id string) string {
	return "[" + KindField + ":" + id + "]"
}

// StepMarker renders the marker for a step id missing from the step index.
func StepMarker(id string) string {
	return "[" + KindStep + ":" + id + "]"
}

var markerPattern = regexp.MustCompile(`\[(` + KindTable + `|` + KindField + `|` + KindStep + `):([^\]]+)\]`)

// MarkerRef is one marker found in rendered text.
type MarkerRef struct {
	Kind   string // KindTable, KindField or KindStep
	ID     string
	Text   string // 完整标记文本
	Offset int    // byte offset in the scanned text
}

// FindMarkers returns every unresolved-reference marker in text, in order.
func FindMarkers(text string) []MarkerRef {
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]MarkerRef, 0, len(matches))
	for _, m := range matches {
		out = append(out, MarkerRef{
			Kind:   text[m[2]:m[3]],
			ID:     text[m[4]:m[5]],
			Text:   text[m[0]:m[1]],
			Offset: m[0],
		})
	}
	return out
}

// IsMarker reports whether s is exactly one marker.
func IsMarker(s string) bool {
	loc := markerPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
