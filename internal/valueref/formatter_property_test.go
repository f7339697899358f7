package valueref

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"yqhp/bitable-doc/internal/document"
)

// TestFormatTerminatesProperty: 任意深度的嵌套都能在深度上限处截断并返回
func TestFormatTerminatesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	f := newTestFormatter(t, WithMaxDepth(8))

	properties.Property("deep nesting is truncated", prop.ForAll(
		func(depth int, useMap bool) bool {
			v := nested(depth, useMap)
			out := f.Format(v, 0)
			if depth > 8 {
				return strings.Contains(out, TruncatedMarker)
			}
			return !strings.Contains(out, TruncatedMarker)
		},
		gen.IntRange(0, 300),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestFormatNeverEmptyProperty: 非空输入渲染结果不为空
func TestFormatNeverEmptyProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	f := newTestFormatter(t)

	properties.Property("scalars render non-empty", prop.ForAll(
		func(s string) bool {
			return f.Format(s, 0) != ""
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func nested(depth int, useMap bool) any {
	var v any = "leaf"
	for i := 0; i < depth; i++ {
		if useMap {
			obj := document.NewObject()
			obj.Set("k", v)
			v = obj
		} else {
			v = []any{v}
		}
	}
	return v
}
