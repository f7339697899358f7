package interpreter

import (
	"strconv"
	"strings"
	"time"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/valueref"
)

// RegisterBuiltins registers the handlers for every known step type.
func RegisterBuiltins(r *Registry) {
	r.MustRegister(NewHandler("ChangeRecordTrigger", describeChangeRecordTrigger))
	r.MustRegister(NewHandler("AddRecordTrigger", describeAddRecordTrigger))
	r.MustRegister(NewHandler("SetRecordTrigger", describeSetRecordTrigger))
	r.MustRegister(NewHandler("TimerTrigger", describeTimerTrigger))
	r.MustRegister(NewHandler("ButtonTrigger", describeButtonTrigger))
	r.MustRegister(NewHandler("FormSubmitTrigger", describeFormSubmitTrigger))
	r.MustRegister(NewHandler("FindRecordAction", describeFindRecord))
	r.MustRegister(NewHandler("AddRecordAction", describeAddRecord))
	r.MustRegister(NewHandler("UpdateRecordAction", describeUpdateRecord))
	r.MustRegister(NewHandler("DeleteRecordAction", describeDeleteRecord))
	r.MustRegister(NewHandler("Loop", describeLoop))
	r.MustRegister(NewHandler("IfElseBranch", describeIfElseBranch))
	r.MustRegister(NewHandler("CustomAction", describeCustomAction))

	r.RegisterAlias("ChangeRecordNewSatisfyTrigger", "ChangeRecordTrigger")
	r.RegisterAlias("FindRecord", "FindRecordAction")
	r.RegisterAlias("AddRecord", "AddRecordAction")
	r.RegisterAlias("UpdateRecord", "UpdateRecordAction")
	r.RegisterAlias("SetRecordAction", "UpdateRecordAction")
}

// ---- 触发器 ----

func describeChangeRecordTrigger(c *Context) {
	if fields := c.TakeArray("fields"); len(fields) > 0 {
		c.Add("触发条件", c.fieldConditions(fields))
	}
	describeTriggerSources(c)
}

func describeAddRecordTrigger(c *Context) {
	if fid := c.TakeString("watchedFieldId"); fid != "" {
		c.Add("监听字段", bracket(c.Field(fid)))
	}
	describeTriggerSources(c)
}

func describeTriggerSources(c *Context) {
	sources := c.TakeArray("triggerControlList")
	if len(sources) == 0 {
		return
	}
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, label(triggerSourceLabels, document.Text(s)))
	}
	c.Add("触发来源", strings.Join(names, ", "))
}

func describeSetRecordTrigger(c *Context) {
	c.Consume("filterInfo")
	if fields := c.TakeArray("fields"); len(fields) > 0 {
		ids := make([]string, 0, len(fields))
		for _, f := range fields {
			ids = append(ids, document.GetString(f, "fieldId"))
		}
		c.Add("监听字段", c.fieldNames(ids))
	}
	if ids := c.TakeArray("fieldIds"); len(ids) > 0 {
		c.Add("监听字段(ID)", c.fieldNames(textList(ids)))
	}
}

func describeTimerTrigger(c *Context) {
	rule := c.TakeString("rule")
	if ms, ok := document.Int(c.Take("startTime")); ok && ms > 0 {
		start := time.UnixMilli(ms).In(c.in.location)
		c.Add("开始时间", start.Format("2006-01-02 15:04"))
	}
	c.Add("重复规则", label(timerRuleLabels, rule))
	if tid := c.TakeString("watchedCustomTableId"); tid != "" {
		c.Add("关联表", bracket(c.Table(tid)))
	}
}

func describeButtonTrigger(c *Context) {
	c.Add("按钮类型", label(buttonTypeLabels, c.TakeString("buttonType")))
}

func describeFormSubmitTrigger(c *Context) {
	c.Add("触发方式", "表单提交")
}

// ---- 记录操作 ----

func describeFindRecord(c *Context) {
	c.Consume("fieldsMap")
	if ids := c.TakeArray("fieldIds"); len(ids) > 0 {
		c.Add("返回字段", c.fieldNames(textList(ids)))
	}

	info := c.Take("recordInfo")
	recordType := c.TakeString("recordType")
	if _, ok := info.(*document.Object); ok {
		if recordType == "Ref" {
			c.Add("查找方式", "基于步骤"+c.refStep(info)+"返回的记录进行筛选")
		} else if conditions := document.GetArray(info, "conditions"); len(conditions) > 0 {
			c.Add("查找条件", c.conditionList(conditions, document.GetString(info, "conjunction")))
		} else {
			c.Add("查找条件", "无（返回所有记录）")
		}
	}

	if document.Truthy(c.Take("shouldProceedWithNoResults")) {
		c.Add("无结果时", "继续执行")
	}
}

func describeAddRecord(c *Context) {
	describeFieldValues(c)
}

func describeUpdateRecord(c *Context) {
	describeRecordTarget(c, "修改对象", "修改条件")
	describeFieldValues(c)
}

func describeDeleteRecord(c *Context) {
	describeRecordTarget(c, "删除对象", "删除条件")
}

// describeRecordTarget renders which records an update or delete applies to:
// a prior step's records, or a condition list.
func describeRecordTarget(c *Context, targetLabel, conditionLabel string) {
	c.Consume("maxSetRecordNum")
	recordType := c.TakeString("recordType")
	info := c.Take("recordInfo")

	if recordType == "stepRecord" || valueref.IsReference(info) {
		c.Add(targetLabel, "[步骤"+c.refStep(info)+"找到的记录]")
		return
	}
	if conditions := document.GetArray(info, "conditions"); len(conditions) > 0 {
		c.Add(conditionLabel, c.conditionList(conditions, document.GetString(info, "conjunction")))
	}
}

// describeFieldValues renders values: [{fieldId, value}] as 「field」= value.
func describeFieldValues(c *Context) {
	values := c.TakeArray("values")
	if len(values) == 0 {
		return
	}
	line := Line{Label: "设置字段"}
	for _, v := range values {
		if _, ok := v.(*document.Object); !ok {
			continue
		}
		name := c.Field(document.GetString(v, "fieldId"))
		line.Children = append(line.Children, Line{Value: bracket(name) + "= " + c.Format(document.Get(v, "value"))})
	}
	if len(line.Children) > 0 {
		c.AddLine(line)
	}
}

// ---- 流程控制 ----

func describeLoop(c *Context) {
	c.Consume("loopMode")
	c.Add("循环类型", label(loopTypeLabels, c.TakeString("loopType")))

	if data := c.Take("loopData"); valueref.IsReference(data) {
		c.Add("循环数据", "[步骤"+c.refStep(data)+"找到的记录]")
	}

	maxTimes := c.Take("maxLoopTimes")
	if !document.Truthy(maxTimes) {
		maxTimes = c.Take("maxLoopCount")
	}
	if document.Truthy(maxTimes) {
		c.Add("最大循环次数", document.Text(maxTimes))
	}

	start := c.TakeString("startChildStepId")
	if start == "" {
		start = c.TakeString("loopStartStepId")
	}
	if start != "" {
		c.Add("循环体开始", c.Jump(start))
	}
}

func describeIfElseBranch(c *Context) {
	if cond := c.Take("condition"); document.Truthy(cond) {
		c.AddStrong("判断条件", c.branchCondition(cond))
	}

	meet := c.TakeString("meetConditionStepId")
	if meet == "" {
		meet = c.TakeString("ifStepId")
	}
	notMeet := c.TakeString("notMeetConditionStepId")
	if notMeet == "" {
		notMeet = c.TakeString("elseStepId")
	}

	if meet != "" {
		c.Add("✅ 满足时", c.Jump(meet))
	} else {
		c.Add("✅ 满足时", "继续执行")
	}
	if notMeet != "" {
		c.Add("❌ 不满足", c.Jump(notMeet))
	} else {
		c.Add("❌ 不满足", "(无动作)")
	}
}

func describeCustomAction(c *Context) {
	c.Consume("version", "endpointId", "resultTypeInfo", "packType")
	packID := ""
	if v := c.Take("packId"); v != nil {
		packID = document.Text(v)
	}
	c.Add("动作类型", "自定义动作 (packId: "+packID+")")

	form := c.Take("formData")
	if !document.Truthy(form) {
		return
	}

	line := Line{Label: "配置详情"}
	if items, ok := form.([]any); ok {
		for i, item := range items {
			if _, isObj := item.(*document.Object); !isObj {
				continue
			}
			name := firstNonEmpty(
				document.GetString(item, "label"),
				document.GetString(item, "key"),
				"配置"+strconv.Itoa(i+1),
			)
			line.Children = append(line.Children, Line{Label: name, Value: c.formValue(document.Get(item, "value"))})
		}
	} else {
		line.Children = append(line.Children, Line{Value: truncate(c.Format(form), DefaultFormDataLimit)})
	}
	c.AddLine(line)
}

// formValue renders a custom action form value. Rich text lists are
// concatenated: text segments verbatim, references formatted.
func (c *Context) formValue(v any) string {
	items, ok := v.([]any)
	if !ok {
		return c.Format(v)
	}
	var b strings.Builder
	for _, item := range items {
		if _, isObj := item.(*document.Object); isObj {
			if text, ok := document.Get(item, "text").(string); ok {
				b.WriteString(text)
				continue
			}
			b.WriteString(c.Format(item))
			continue
		}
		b.WriteString(document.Text(item))
	}
	return b.String()
}

// ---- helpers ----

// refStep returns the step a record reference points at.
func (c *Context) refStep(ref any) string {
	if ref == nil {
		return valueref.UnknownStep
	}
	return c.Formatter().StepLabel(ref)
}

func (c *Context) fieldNames(ids []string) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, bracket(c.Field(id)))
	}
	return strings.Join(names, ", ")
}

func textList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		out = append(out, document.Text(v))
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
