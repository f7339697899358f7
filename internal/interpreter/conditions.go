package interpreter

import (
	"strings"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/valueref"
)

const (
	conjunctionAnd = " 且 "
	conjunctionOr  = " 或 "
	noCondition    = "无条件"
)

func connector(conjunction string) string {
	if strings.EqualFold(conjunction, "or") {
		return conjunctionOr
	}
	return conjunctionAnd
}

// comparison renders 「field」op "value", omitting the value for empty checks.
func comparison(subject, op, value string) string {
	if emptyCheckOperators[op] {
		return subject + OperatorLabel(op)
	}
	return subject + OperatorLabel(op) + ` "` + value + `"`
}

// optionList joins option ids and scalars on one line.
func (c *Context) optionList(value any, empty string) string {
	items, ok := value.([]any)
	if !ok {
		if value == nil {
			return empty
		}
		if s, ok := value.(string); ok {
			if s == "" {
				return empty
			}
			return c.Formatter().Scalar(s)
		}
		return document.Text(value)
	}
	if len(items) == 0 {
		return empty
	}
	parts := make([]string, 0, len(items))
	for _, v := range items {
		if s, ok := v.(string); ok {
			parts = append(parts, c.Formatter().Scalar(s))
			continue
		}
		parts = append(parts, c.Format(v))
	}
	return strings.Join(parts, ", ")
}

// triggerFilter renders next[0].condition, the filter attached to a step's
// outgoing edge.
func (c *Context) triggerFilter() string {
	next := document.GetArray(c.Step, "next")
	if len(next) == 0 {
		return ""
	}
	cond := document.GetObject(next[0], "condition")
	if cond == nil {
		return ""
	}
	return c.filterGroup(cond)
}

func (c *Context) filterGroup(group any) string {
	conditions := document.GetArray(group, "conditions")
	if len(conditions) == 0 {
		return ""
	}

	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		if document.Has(cond, "conditions") {
			if nested := c.filterGroup(cond); nested != "" {
				parts = append(parts, "("+nested+")")
			}
			continue
		}
		subject := bracket(c.Field(document.GetString(cond, "fieldId")))
		op := document.GetString(cond, "operator")
		parts = append(parts, comparison(subject, op, c.optionList(document.Get(cond, "value"), valueref.Empty)))
	}
	return strings.Join(parts, connector(document.GetString(group, "conjunction")))
}

// fieldConditions renders the field conditions of a change trigger.
func (c *Context) fieldConditions(fields []any) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		subject := bracket(c.Field(document.GetString(f, "fieldId")))
		op := document.GetString(f, "operator")
		parts = append(parts, comparison(subject, op, c.optionList(document.Get(f, "value"), valueref.EmptyValue)))
	}
	return strings.Join(parts, conjunctionAnd)
}

// conditionList renders record lookup conditions (recordInfo.conditions).
func (c *Context) conditionList(conditions []any, conjunction string) string {
	if len(conditions) == 0 {
		return noCondition
	}
	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		parts = append(parts, c.condition(cond))
	}
	return strings.Join(parts, connector(conjunction))
}

func (c *Context) condition(cond any) string {
	if _, ok := cond.(*document.Object); !ok {
		return document.Text(cond)
	}
	value := document.Get(cond, "value")
	if !document.Truthy(value) {
		value = document.Get(cond, "matchValue", "value")
	}
	subject := bracket(c.Field(document.GetString(cond, "fieldId")))
	return comparison(subject, document.GetString(cond, "operator"), c.Format(value))
}

// branchCondition renders an IfElseBranch condition group.
func (c *Context) branchCondition(group any) string {
	conditions := document.GetArray(group, "conditions")
	if len(conditions) == 0 {
		return noCondition
	}

	conj := document.GetString(group, "conjunction")
	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		if document.Has(cond, "conditions") {
			parts = append(parts, "("+c.branchCondition(cond)+")")
			continue
		}
		left := c.operand(document.Get(cond, "leftValue"))
		op := document.GetString(cond, "operator")
		if emptyCheckOperators[op] {
			parts = append(parts, left+" "+OperatorLabel(op))
			continue
		}
		right := c.rightValue(document.Get(cond, "rightValue"))
		parts = append(parts, left+" "+OperatorLabel(op)+` "`+right+`"`)
	}
	return strings.Join(parts, connector(conj))
}

// operand renders the left side of a branch comparison.
func (c *Context) operand(v any) string {
	if !document.Truthy(v) {
		return "未知"
	}
	if s, ok := v.(string); ok {
		return s
	}

	if valueref.IsReference(v) {
		f := c.Formatter()
		switch document.GetString(v, "tagType") {
		case valueref.TagRecordAttribute:
			attr := label(attributeLabels, document.GetString(v, "attribute"))
			stepType := document.GetString(v, "stepType")
			return "[步骤" + f.StepLabel(v) + "(" + label(actionLabels, stepType) + ")的" + attr + "]"
		case valueref.TagStep:
			if fields := document.GetArray(v, "fields"); len(fields) > 0 {
				if fid := document.GetString(fields[0], "fieldId"); fid != "" {
					return "[步骤" + f.StepLabel(v) + "的" + bracket(c.Field(fid)) + "]"
				}
			}
			return "[步骤" + f.StepLabel(v) + "的结果]"
		default:
			return f.Reference(v)
		}
	}

	if fields := document.GetArray(v, "fields"); len(fields) > 0 {
		return bracket(c.Field(document.GetString(fields[0], "fieldId")))
	}
	return c.Format(v)
}

// rightValue renders the right side of a branch comparison. Option ids are
// translated.
func (c *Context) rightValue(v any) string {
	if !document.Truthy(v) {
		return ""
	}
	items, ok := v.([]any)
	if !ok {
		return c.optionList(v, "")
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		if _, isObj := item.(*document.Object); isObj {
			switch {
			case document.Has(item, "text"):
				parts = append(parts, c.optionList(document.Get(item, "text"), ""))
			case document.Has(item, "value"):
				parts = append(parts, c.optionList(document.Get(item, "value"), ""))
			default:
				parts = append(parts, c.Format(item))
			}
			continue
		}
		parts = append(parts, c.optionList(item, ""))
	}
	return strings.Join(parts, ", ")
}
