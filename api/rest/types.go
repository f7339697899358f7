// Package rest 提供 bitable-doc 的 HTTP 接口：上传 .base 导出内容，返回结构化的翻译结果。
package rest

import (
	"encoding/json"

	"yqhp/bitable-doc/internal/audit"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/schema"
	"yqhp/bitable-doc/internal/workflow"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// TranslateResponse 工作流翻译结果
type TranslateResponse struct {
	RunID     string            `json:"runId"`
	Stats     registry.Stats    `json:"stats"`
	Workflows []workflow.Result `json:"workflows"`
}

// SchemaResponse 字段目录与跨表关系
type SchemaResponse struct {
	RunID     string                 `json:"runId"`
	Catalog   schema.Catalog         `json:"catalog"`
	Relations schema.RelationshipMap `json:"relations"`
}

// AuditResponse 完整性校验结果
type AuditResponse struct {
	RunID   string       `json:"runId"`
	Summary string       `json:"summary"`
	Report  audit.Report `json:"report"`
}

// ExpressionRequest 在某个导出的符号表下翻译一条公式
type ExpressionRequest struct {
	Base    json.RawMessage `json:"base"`
	Formula string          `json:"formula"`
	TableID string          `json:"tableId"`
}

// ExpressionResponse 公式翻译结果
type ExpressionResponse struct {
	RunID   string   `json:"runId"`
	Text    string   `json:"text"`
	Filter  string   `json:"filter,omitempty"`
	Clauses []string `json:"clauses,omitempty"`
}
