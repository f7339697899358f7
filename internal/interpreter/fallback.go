package interpreter

import (
	"sort"
	"strings"
	"unicode/utf8"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/expression"
)

const fieldIDHint = "fld"

// fallback renders every data key the handler did not consume under 其他配置.
// Empty values are listed in Unconsumed but not rendered. A payload that is
// not an object is rendered whole under the data key.
func (c *Context) fallback() {
	if c.Data != nil && document.Obj(c.Data) == nil {
		c.unconsumed = []string{"data"}
		if !isBlank(c.Data) {
			c.AddLine(Line{Label: "其他配置", Children: []Line{{Label: "data", Value: c.genericValue(c.Data)}}})
		}
		return
	}

	keys := document.Keys(c.Data)
	if len(keys) == 0 {
		return
	}

	var remaining []string
	for _, k := range keys {
		if !c.seen[k] {
			remaining = append(remaining, k)
		}
	}
	if len(remaining) == 0 {
		return
	}
	sort.Strings(remaining)
	c.unconsumed = remaining

	line := Line{Label: "其他配置"}
	for _, k := range remaining {
		v := document.Get(c.Data, k)
		if isBlank(v) {
			continue
		}
		line.Children = append(line.Children, Line{Label: k, Value: c.genericValue(v)})
	}
	if len(line.Children) > 0 {
		c.AddLine(line)
	}
}

// genericValue formats v and annotates strings that resolve as field ids.
// Strings carrying reference tokens are translated as expressions.
func (c *Context) genericValue(v any) string {
	var text string
	if s, ok := v.(string); ok && hasReferenceToken(s) {
		text = c.in.translator.TranslateText(s, c.TableID)
	} else {
		text = c.Format(v)
	}

	var resolved []string
	switch x := v.(type) {
	case string:
		if name, ok := c.lookupField(x); ok {
			resolved = append(resolved, name)
		}
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok {
				if name, ok := c.lookupField(s); ok {
					resolved = append(resolved, name)
				}
			}
		}
	}
	if len(resolved) > 0 {
		text += " (解析: " + strings.Join(resolved, ", ") + ")"
	}
	return truncate(text, c.in.valueLimit)
}

func (c *Context) lookupField(s string) (string, bool) {
	if !strings.Contains(s, fieldIDHint) || hasReferenceToken(s) {
		return "", false
	}
	return c.in.resolver.LookupFieldIn(c.TableID, s)
}

// isBlank reports null, "", [] and {}. false and 0 are values.
func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case *document.Object:
		return x == nil || x.Len() == 0
	}
	return false
}

func hasReferenceToken(s string) bool {
	return expression.HasNamespace(s) || strings.Contains(s, "$field[") || strings.Contains(s, "$column[")
}

// truncate cuts s to limit runes, appending "...".
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
