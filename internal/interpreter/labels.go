package interpreter

// 操作符翻译，同时包含 snake_case 与 camelCase 两种写法
var operatorLabels = map[string]string{
	"is":                    "等于",
	"is_not":                "不等于",
	"isNot":                 "不等于",
	"contains":              "包含",
	"does_not_contain":      "不包含",
	"doesNotContain":        "不包含",
	"is_empty":              "为空",
	"isEmpty":               "为空",
	"is_not_empty":          "不为空",
	"isNotEmpty":            "不为空",
	"greater_than":          "大于",
	"isGreater":             "大于",
	"less_than":             "小于",
	"isLess":                "小于",
	"greater_than_or_equal": "大于等于",
	"isGreaterEqual":        "大于等于",
	"less_than_or_equal":    "小于等于",
	"isLessEqual":           "小于等于",
	"is_before":             "早于",
	"isBefore":              "早于",
	"is_after":              "晚于",
	"isAfter":               "晚于",
	"is_on_or_before":       "不晚于",
	"isOnOrBefore":          "不晚于",
	"is_on_or_after":        "不早于",
	"isOnOrAfter":           "不早于",
	"isAnyOf":               "是以下任一",
	"isNoneOf":              "不是以下任一",
}

var actionLabels = map[string]string{
	"AddRecordAction":    "新增记录",
	"AddRecord":          "新增记录",
	"UpdateRecordAction": "修改记录",
	"UpdateRecord":       "修改记录",
	"SetRecordAction":    "修改记录",
	"FindRecordAction":   "查找记录",
	"FindRecord":         "查找记录",
	"DeleteRecordAction": "删除记录",
	"IfElseBranch":       "条件判断（If/Else）",
	"Loop":               "循环",
	"CustomAction":       "自定义动作",
	"SendNotification":   "发送通知",
	"SendEmail":          "发送邮件",
}

var triggerLabels = map[string]string{
	"AddRecordTrigger":              "新增记录时触发",
	"SetRecordTrigger":              "记录更新时触发",
	"TimerTrigger":                  "定时触发",
	"ButtonTrigger":                 "按钮点击触发",
	"FormSubmitTrigger":             "表单提交时触发",
	"ChangeRecordTrigger":           "新增/修改的记录满足条件时触发",
	"ChangeRecordNewSatisfyTrigger": "新增/修改的记录满足条件时触发",
}

var (
	triggerSourceLabels = map[string]string{
		"pasteUpdate":           "粘贴更新",
		"automationBatchUpdate": "自动化批量更新",
		"appendImport":          "追加导入",
		"openAPIBatchUpdate":    "API批量更新",
	}
	timerRuleLabels = map[string]string{
		"MONTHLY": "每月",
		"WEEKLY":  "每周",
		"DAILY":   "每天",
		"HOURLY":  "每小时",
	}
	buttonTypeLabels = map[string]string{
		"buttonField": "字段按钮触发",
		"recordMenu":  "记录菜单触发",
	}
	loopTypeLabels = map[string]string{
		"forEach": "遍历每条记录",
		"times":   "固定次数",
	}
	attributeLabels = map[string]string{
		"recordNum": "记录数",
		"recordId":  "记录ID",
		"record":    "记录",
		"value":     "值",
	}
)

// emptyCheckOperators omit the compared value.
var emptyCheckOperators = map[string]bool{
	"is_empty":     true,
	"isEmpty":      true,
	"is_not_empty": true,
	"isNotEmpty":   true,
}

// UnknownType titles a step without a type tag.
const UnknownType = "未知类型"

// OperatorLabel translates a comparison operator, passing unknown ones through.
func OperatorLabel(op string) string {
	return label(operatorLabels, op)
}

// StepTypeLabel returns the display label of a step type: action labels
// first, then trigger labels, else the tag itself.
func StepTypeLabel(stepType string) string {
	if stepType == "" {
		return UnknownType
	}
	if l, ok := actionLabels[stepType]; ok {
		return l
	}
	return label(triggerLabels, stepType)
}

// ActionLabel returns the action label of a step type, or the tag itself.
func ActionLabel(stepType string) string {
	return label(actionLabels, stepType)
}

func label(table map[string]string, key string) string {
	if l, ok := table[key]; ok {
		return l
	}
	return key
}
