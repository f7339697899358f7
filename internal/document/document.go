// Package document 提供保持键顺序的 JSON 文档树。
// 导出文件中名称的覆盖规则依赖出现顺序，因此对象一律解码为有序 map，
// 数值保留原始字面量 (json.Number)。
package document

import (
	"encoding/json"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that remembers key insertion order.
type Object = orderedmap.OrderedMap[string, any]

// NewObject creates an empty ordered object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Parse decodes JSON text into a tree of nil, bool, json.Number, string,
// []any and *Object values.
func Parse(data []byte) (any, error) {
	value, dataType, offset, err := jsonparser.Get(data)
	if err != nil {
		return nil, NewSyntaxError(offset, "无法读取 JSON 根节点", err)
	}
	return decode(value, dataType, offset)
}

// ParseString is Parse for string input.
func ParseString(s string) (any, error) {
	return Parse([]byte(s))
}

func decode(value []byte, dataType jsonparser.ValueType, offset int) (any, error) {
	switch dataType {
	case jsonparser.Object:
		obj := NewObject()
		err := jsonparser.ObjectEach(value, func(key []byte, raw []byte, t jsonparser.ValueType, off int) error {
			child, err := decode(raw, t, offset+off)
			if err != nil {
				return err
			}
			// 重复键保留首次出现的位置，值取最后一次
			obj.Set(string(key), child)
			return nil
		})
		if err != nil {
			return nil, wrapSyntax(offset, "对象解析失败", err)
		}
		return obj, nil

	case jsonparser.Array:
		items := make([]any, 0)
		var inner error
		_, err := jsonparser.ArrayEach(value, func(raw []byte, t jsonparser.ValueType, off int, e error) {
			if inner != nil {
				return
			}
			if e != nil {
				inner = e
				return
			}
			child, err := decode(raw, t, offset+off)
			if err != nil {
				inner = err
				return
			}
			items = append(items, child)
		})
		if inner != nil {
			return nil, wrapSyntax(offset, "数组元素解析失败", inner)
		}
		if err != nil {
			return nil, wrapSyntax(offset, "数组解析失败", err)
		}
		return items, nil

	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, NewSyntaxError(offset, "字符串转义无效", err)
		}
		return s, nil

	case jsonparser.Number:
		return json.Number(string(value)), nil

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return nil, NewSyntaxError(offset, "布尔值无效", err)
		}
		return b, nil

	case jsonparser.Null:
		return nil, nil
	}

	return nil, NewSyntaxError(offset, "未知的 JSON 值类型", nil)
}

func wrapSyntax(offset int, message string, err error) error {
	if se, ok := err.(*SyntaxError); ok {
		return se
	}
	return NewSyntaxError(offset, message, err)
}
