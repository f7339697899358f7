// Package audit 检查导出数据与生成文档的完整性：未被解析的键、
// 文档中残留的未解析标记，以及草稿中无法解析的 ID 引用。
package audit

import (
	"sort"
	"unicode/utf8"

	set "github.com/duke-git/lancet/v2/datastructure/set"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/loader"
	"yqhp/bitable-doc/internal/workflow"
)

// 键所在层级
const (
	LevelTop      = "顶层"
	LevelWorkflow = "工作流级别"
	LevelDraft    = "Draft级别"
	LevelStep     = "步骤级别"
	LevelStepData = "步骤数据"
)

const sampleLimit = 200

// KnownWorkflowKeys are the workflow record keys the translator reads or ignores on purpose.
var KnownWorkflowKeys = set.New(
	"id", "base_id", "trigger_name", "creator", "editor", "status", "delete_flag",
	"created_time", "updated_time", "source", "access_mode", "webhook_token",
	"biz_type", "nodeSchema", "WorkflowExtra",
)

// KnownDraftKeys are the draft keys the translator understands.
var KnownDraftKeys = set.New("title", "steps", "version")

// KnownStepKeys are the step envelope keys.
var KnownStepKeys = set.New("type", "id", "data", "stepTitle")

// KnownStepDataKeys are the step data keys some step handler consumes.
var KnownStepDataKeys = set.New(
	// 通用
	"type", "id", "data", "stepTitle",
	// 触发器
	"tableId", "fields", "triggerControlList", "watchedFieldId", "rule", "startTime",
	"watchedCustomTableId", "buttonType",
	// 查找记录
	"recordInfo", "fieldsMap", "fieldIds", "recordType", "shouldProceedWithNoResults",
	// 新增/修改记录
	"recordList", "updateFields", "values", "maxSetRecordNum",
	// 条件分支
	"condition", "ifStepId", "elseStepId", "meetConditionStepId", "notMeetConditionStepId",
	// 循环
	"loopType", "loopData", "loopStartStepId", "maxLoopCount", "maxLoopTimes", "loopMode", "startChildStepId",
	// 自定义动作
	"packId", "formData", "version", "endpointId", "resultTypeInfo", "packType",
	"filterInfo", "isEnabled", "stepNum",
)

// UnknownKey is one key outside the allowlists, aggregated over occurrences.
type UnknownKey struct {
	Level   string `json:"level"`
	Context string `json:"context,omitempty"` // 步骤数据的步骤类型
	Key     string `json:"key"`
	Count   int    `json:"count"`
	Sample  string `json:"sample"`
}

// KeyCoverage summarizes how much of the export the translator understands.
type KeyCoverage struct {
	Workflows int          `json:"workflows"`
	Unknown   []UnknownKey `json:"unknown"`
	// DataKeys counts distinct (step type, data key) pairs; UnknownDataKeys
	// counts those outside KnownStepDataKeys.
	DataKeys        int `json:"dataKeys"`
	UnknownDataKeys int `json:"unknownDataKeys"`
}

// Percent returns the share of step data keys that are understood.
func (c KeyCoverage) Percent() float64 {
	if c.UnknownDataKeys == 0 {
		return 100
	}
	return 100 - float64(c.UnknownDataKeys)/float64(max(c.DataKeys, 1))*100
}

// StepDataUnknown returns the unknown step data keys only.
func (c KeyCoverage) StepDataUnknown() []UnknownKey {
	var out []UnknownKey
	for _, k := range c.Unknown {
		if k.Level == LevelStepData {
			out = append(out, k)
		}
	}
	return out
}

type keyCounter struct {
	order []string
	byID  map[string]*UnknownKey
}

func newKeyCounter() *keyCounter {
	return &keyCounter{byID: make(map[string]*UnknownKey)}
}

func (kc *keyCounter) add(level, context, key string, value any) {
	id := level + "\x00" + context + "\x00" + key
	if u, ok := kc.byID[id]; ok {
		u.Count++
		return
	}
	kc.order = append(kc.order, id)
	kc.byID[id] = &UnknownKey{Level: level, Context: context, Key: key, Count: 1, Sample: sample(value)}
}

func (kc *keyCounter) list() []UnknownKey {
	out := make([]UnknownKey, 0, len(kc.order))
	for _, id := range kc.order {
		out = append(out, *kc.byID[id])
	}
	return out
}

// ScanKeys walks the export and reports every key outside the allowlists.
// Workflows whose draft cannot be parsed contribute only workflow-level keys.
func ScanKeys(export *loader.Export) KeyCoverage {
	cov := KeyCoverage{Workflows: len(export.Workflows)}
	unknown := newKeyCounter()

	known := set.New(loader.KnownSections...)
	for _, k := range export.TopLevelKeys {
		if !known.Contain(k) {
			unknown.add(LevelTop, "", k, nil)
		}
	}

	dataKeys := make(map[string]set.Set[string])
	var stepTypes []string

	for _, wf := range export.Workflows {
		checkKeys(unknown, LevelWorkflow, "", wf, KnownWorkflowKeys)

		draft, err := workflow.Draft(wf)
		if err != nil || document.Obj(draft) == nil {
			continue
		}
		checkKeys(unknown, LevelDraft, "", draft, KnownDraftKeys)

		for _, step := range document.GetArray(draft, "steps") {
			checkKeys(unknown, LevelStep, "", step, KnownStepKeys)

			stepType := document.GetString(step, "type")
			if stepType == "" {
				stepType = "Unknown"
			}
			seen, ok := dataKeys[stepType]
			if !ok {
				seen = set.New[string]()
				dataKeys[stepType] = seen
				stepTypes = append(stepTypes, stepType)
			}
			document.Each(document.Get(step, "data"), func(key string, value any) {
				if !KnownStepDataKeys.Contain(key) {
					unknown.add(LevelStepData, stepType, key, value)
				}
				seen.Add(key)
			})
		}
	}

	sort.Strings(stepTypes)
	for _, st := range stepTypes {
		for key := range dataKeys[st] {
			cov.DataKeys++
			if !KnownStepDataKeys.Contain(key) {
				cov.UnknownDataKeys++
			}
		}
	}
	cov.Unknown = unknown.list()
	return cov
}

func checkKeys(kc *keyCounter, level, context string, v any, known set.Set[string]) {
	document.Each(v, func(key string, value any) {
		if !known.Contain(key) {
			kc.add(level, context, key, value)
		}
	})
}

func sample(v any) string {
	if !document.Truthy(v) {
		return "[空]"
	}
	s := document.Text(v)
	if utf8.RuneCountInString(s) > sampleLimit {
		s = string([]rune(s)[:sampleLimit])
	}
	return s
}
