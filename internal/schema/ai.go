package schema

import (
	"strings"
	"unicode/utf8"

	"github.com/duke-git/lancet/v2/slice"

	"yqhp/bitable-doc/internal/document"
)

const (
	promptPreviewLimit = 200
	aiMenuCategory     = "Bitable_AI_Menu"
)

// detectAI reports whether a field definition is AI-generated and describes
// its configuration. Two shapes exist: the built-in ext.ai prompt, and
// extension fields under exInfo.customOpenTypeData.
func (b *Builder) detectAI(def any) (bool, string) {
	if ai := document.Get(def, "ext", "ai"); document.Truthy(ai) {
		return true, "提示词: " + b.promptText(document.GetArray(ai, "prompt"))
	}

	exInfo := document.Get(def, "exInfo")
	custom := document.Get(exInfo, "customOpenTypeData")
	if !document.Truthy(custom) {
		return false, ""
	}

	config := document.Get(custom, "fieldConfigValue")
	isAI := document.GetString(custom, "innerType") == "ai_extract" || document.Has(config, "aiPrompt")

	var aiName string
	categories := textList(document.GetArray(custom, "category"))
	if document.GetString(custom, "extensionType") == "field_faas" && slice.Contain(categories, aiMenuCategory) {
		isAI = true
		aiName = document.GetString(custom, "name")
		if aiName == "" {
			aiName = "AI 扩展"
		}
	}
	if document.Truthy(document.Get(exInfo, "aiPaymentInfo", "enableAIPayment")) {
		isAI = true
	}
	if !isAI {
		return false, ""
	}

	form := document.Get(config, "formData")
	prompt := firstString(form, "promptEdit", "content", "custom_rules")

	source := document.Get(form, "source")
	if !document.Truthy(source) {
		source = document.Get(form, "choiceColumn")
	}
	var sourceField string
	if id := document.GetString(source, "id"); id != "" {
		sourceField = b.anyFieldName(id)
	}

	var parts []string
	if aiName != "" {
		parts = append(parts, "类型: "+aiName)
	}
	if sourceField != "" {
		parts = append(parts, "来源字段: 「"+sourceField+"」")
	}
	if prompt != "" {
		parts = append(parts, "提示词: "+preview(prompt, promptPreviewLimit))
	}
	if len(parts) == 0 {
		return true, "AI 字段"
	}
	return true, strings.Join(parts, " | ")
}

// promptText joins prompt segments; field variables render as {字段:name}.
func (b *Builder) promptText(segments []any) string {
	var sb strings.Builder
	for _, seg := range segments {
		switch document.GetString(seg, "type") {
		case "text":
			sb.WriteString(document.GetString(seg, "value"))
		case "variable":
			if document.GetString(seg, "value", "valueType") == "field" {
				id := document.GetString(seg, "value", "value", "id")
				sb.WriteString("{字段:" + b.anyFieldName(id) + "}")
			}
		}
	}
	return sb.String()
}

// anyFieldName resolves a field id ignoring tables, falling back to the id.
func (b *Builder) anyFieldName(id string) string {
	if entry, ok := b.registry.FindField(id); ok {
		return entry.Name
	}
	return id
}

func firstString(v any, keys ...string) string {
	for _, k := range keys {
		if s := document.GetString(v, k); s != "" {
			return s
		}
	}
	return ""
}

// preview flattens newlines and cuts s to limit runes.
func preview(s string, limit int) string {
	flat := strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(flat) <= limit {
		return flat
	}
	return string([]rune(flat)[:limit]) + "..."
}

func textList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		out = append(out, document.Text(v))
	}
	return out
}
