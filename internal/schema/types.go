// Package schema 基于注册表生成全量字段目录与跨表关联关系。
package schema

import "fmt"

// 字段类型编码
const (
	TypeText         int64 = 1
	TypeNumber       int64 = 2
	TypeSingleSelect int64 = 3
	TypeMultiSelect  int64 = 4
	TypeDate         int64 = 5
	TypeCheckbox     int64 = 7
	TypeUser         int64 = 11
	TypePhone        int64 = 13
	TypeURL          int64 = 15
	TypeAttachment   int64 = 17
	TypeLink         int64 = 18
	TypeLookup       int64 = 19
	TypeFormula      int64 = 20
	TypeDuplexLink   int64 = 21
	TypeLocation     int64 = 22
	TypeGroupChat    int64 = 23
	TypeCreatedTime  int64 = 1001
	TypeModifiedTime int64 = 1002
	TypeCreatedUser  int64 = 1003
	TypeModifiedUser int64 = 1004
	TypeAutoNumber   int64 = 1005
	TypeButton       int64 = 3001
)

var fieldTypeNames = map[int64]string{
	TypeText:         "文本",
	TypeNumber:       "数字",
	TypeSingleSelect: "单选",
	TypeMultiSelect:  "多选",
	TypeDate:         "日期",
	TypeCheckbox:     "复选框",
	TypeUser:         "人员",
	TypePhone:        "电话",
	TypeURL:          "超链接",
	TypeAttachment:   "附件",
	TypeLink:         "关联",
	TypeLookup:       "查找引用",
	TypeFormula:      "公式",
	TypeDuplexLink:   "双向关联",
	TypeLocation:     "地理位置",
	TypeGroupChat:    "群组",
	TypeCreatedTime:  "创建时间",
	TypeModifiedTime: "修改时间",
	TypeCreatedUser:  "创建人",
	TypeModifiedUser: "修改人",
	TypeAutoNumber:   "自动编号",
	TypeButton:       "按钮",
}

// FieldTypeName returns the display name of a field type code.
func FieldTypeName(code int64) string {
	if name, ok := fieldTypeNames[code]; ok {
		return name
	}
	return fmt.Sprintf("未知类型(%d)", code)
}
