package document

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
)

// Obj returns v as an object, or nil.
func Obj(v any) *Object {
	if o, ok := v.(*Object); ok && o != nil {
		return o
	}
	return nil
}

// Arr returns v as an array, or nil.
func Arr(v any) []any {
	if a, ok := v.([]any); ok {
		return a
	}
	return nil
}

// Str returns v as a string.
func Str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Get walks the object keys in path. Missing keys and non-object hops yield nil.
func Get(v any, path ...string) any {
	cur := v
	for _, key := range path {
		o := Obj(cur)
		if o == nil {
			return nil
		}
		next, ok := o.Get(key)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Has reports whether v is an object containing key.
func Has(v any, key string) bool {
	o := Obj(v)
	if o == nil {
		return false
	}
	_, ok := o.Get(key)
	return ok
}

// GetString returns the string at path, or "".
func GetString(v any, path ...string) string {
	s, _ := Get(v, path...).(string)
	return s
}

// GetObject returns the object at path, or nil.
func GetObject(v any, path ...string) *Object {
	return Obj(Get(v, path...))
}

// GetArray returns the array at path, or nil.
func GetArray(v any, path ...string) []any {
	return Arr(Get(v, path...))
}

// Keys returns the object keys of v in document order.
func Keys(v any) []string {
	o := Obj(v)
	if o == nil {
		return nil
	}
	keys := make([]string, 0, o.Len())
	for p := o.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Each calls fn for every entry of v in document order. Non-objects are ignored.
func Each(v any, fn func(key string, value any)) {
	o := Obj(v)
	if o == nil {
		return
	}
	for p := o.Oldest(); p != nil; p = p.Next() {
		fn(p.Key, p.Value)
	}
}

// Int converts a JSON number (or numeric string) to int64.
func Int(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// Truthy mirrors the loose truthiness used by the export format:
// null, false, 0, "" and empty containers are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case []any:
		return len(x) > 0
	case *Object:
		return x != nil && x.Len() > 0
	}
	return true
}

// Text renders a scalar the way it appears in the export; containers are
// rendered as compact JSON.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return Compact(v)
}

// Compact renders v as single-line JSON without insignificant whitespace,
// keeping object key order.
func Compact(v any) string {
	n := node(v)
	data, err := n.MarshalJSON()
	if err != nil {
		return "null"
	}
	return string(data)
}

// node converts the tree into a sonic AST; ast objects encode their pairs in order.
func node(v any) ast.Node {
	switch x := v.(type) {
	case nil:
		return ast.NewNull()
	case string:
		return ast.NewString(x)
	case json.Number:
		if x == "" {
			return ast.NewNull()
		}
		return ast.NewNumber(x.String())
	case bool:
		return ast.NewBool(x)
	case []any:
		items := make([]ast.Node, len(x))
		for i, item := range x {
			items[i] = node(item)
		}
		return ast.NewArray(items)
	case *Object:
		if x == nil {
			return ast.NewNull()
		}
		pairs := make([]ast.Pair, 0, x.Len())
		for p := x.Oldest(); p != nil; p = p.Next() {
			pairs = append(pairs, ast.NewPair(p.Key, node(p.Value)))
		}
		return ast.NewObject(pairs)
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return ast.NewNull()
	}
	return ast.NewRaw(string(data))
}

// Plain converts the tree into map[string]any / []any / float64 / int64 values
// so that generic JSON tooling can walk it. Key order is lost.
func Plain(v any) any {
	switch x := v.(type) {
	case *Object:
		if x == nil {
			return nil
		}
		m := make(map[string]any, x.Len())
		for p := x.Oldest(); p != nil; p = p.Next() {
			m[p.Key] = Plain(p.Value)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Plain(item)
		}
		return out
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	}
	return v
}
