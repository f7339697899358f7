// Package workflow 组装单个工作流的翻译结果：解析草稿、建立别名作用域、确定标题，
// 再交给步骤解释器逐步描述。
package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/interpreter"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/resolver"
)

// 标题来源
const (
	TitleFromDraft       = "draft"
	TitleFromBlock       = "block"
	TitleFromFirstStep   = "first_step"
	TitleFromPlaceholder = "placeholder"
)

const (
	// Untitled titles a workflow without steps or any name source.
	Untitled = "未命名工作流"
	// UnknownID stands in for a missing workflow id.
	UnknownID = "未知"

	StatusEnabled  = "✅ 已启用"
	StatusDisabled = "⚪ 已禁用"
)

// Result is the translation of one workflow.
type Result struct {
	ID          string                        `json:"id"`
	Title       string                        `json:"title"`
	TitleSource string                        `json:"titleSource"`
	Enabled     bool                          `json:"enabled"`
	Status      string                        `json:"status"`
	Steps       []interpreter.StepDescription `json:"steps"`
	// Err is set when the draft could not be parsed; Steps is then empty.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Assembler translates workflows against one registry.
type Assembler struct {
	resolver   *resolver.Resolver
	logger     *zap.Logger
	workers    int
	interpOpts []interpreter.Option
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used to report skipped drafts.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithWorkers bounds TranslateAll's parallelism. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(a *Assembler) {
		a.workers = max(n, 1)
	}
}

// WithInterpreterOptions passes options to every step interpreter.
func WithInterpreterOptions(opts ...interpreter.Option) Option {
	return func(a *Assembler) {
		a.interpOpts = append(a.interpOpts, opts...)
	}
}

// NewAssembler creates an Assembler.
func NewAssembler(reg *registry.Registry, opts ...Option) *Assembler {
	a := &Assembler{
		resolver: resolver.New(reg),
		logger:   zap.NewNop(),
		workers:  1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Translate translates one workflow record. It never fails: a malformed
// draft yields a Result with Err set and no steps.
func (a *Assembler) Translate(wf any) Result {
	res := Result{ID: workflowID(wf)}

	status, _ := document.Int(document.Get(wf, "status"))
	res.Enabled = status == 1
	res.Status = StatusDisabled
	if res.Enabled {
		res.Status = StatusEnabled
	}

	scoped := a.resolver.Scoped(Aliases(wf))

	draft, err := Draft(wf)
	if err != nil {
		res.Err = NewMalformedPayloadError(res.ID, err)
		res.Error = res.Err.Error()
		a.logger.Warn("工作流步骤数据解析失败，跳过步骤",
			zap.String("workflow_id", res.ID),
			zap.Error(err),
		)
	}
	steps := document.GetArray(draft, "steps")

	res.Title, res.TitleSource = a.title(res.ID, draft, steps, scoped)
	if len(steps) > 0 {
		res.Steps = interpreter.Interpret(scoped, steps, a.interpOpts...)
	}
	return res
}

// TranslateAll translates workflows in parallel, preserving input order.
// Workflows share only the read-only registry.
func (a *Assembler) TranslateAll(ctx context.Context, workflows []any) ([]Result, error) {
	results := make([]Result, len(workflows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, wf := range workflows {
		i, wf := i, wf
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.Translate(wf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("翻译工作流失败: %w", err)
	}
	return results, nil
}

// title picks the draft title, else the sidebar name, else a title
// synthesized from the first step.
func (a *Assembler) title(id string, draft any, steps []any, r *resolver.Resolver) (string, string) {
	if t := document.GetString(draft, "title"); t != "" {
		return t, TitleFromDraft
	}
	if reg := r.Registry(); reg != nil {
		if name, ok := reg.BlockName(id); ok {
			return name, TitleFromBlock
		}
	}
	if len(steps) == 0 {
		return Untitled, TitleFromPlaceholder
	}
	return synthesizeTitle(steps[0], r), TitleFromFirstStep
}

func synthesizeTitle(first any, r *resolver.Resolver) string {
	data := document.Get(first, "data")
	tid := document.GetString(data, "tableId")
	if tid == "" {
		tid = document.GetString(data, "watchedCustomTableId")
	}
	table := r.ResolveTable(tid)

	switch stepType := document.GetString(first, "type"); stepType {
	case "ChangeRecordTrigger":
		return "当「" + table + "」记录变更时"
	case "AddRecordTrigger":
		return "当「" + table + "」新增记录时"
	case "SetRecordTrigger":
		return "当「" + table + "」记录满足条件时"
	case "TimerTrigger":
		return "定时触发 (基于「" + table + "」)"
	case "ButtonTrigger":
		return "按钮触发 (「" + table + "」)"
	default:
		return interpreter.ActionLabel(stepType) + " (「" + table + "」)"
	}
}

// Draft returns the parsed draft of a workflow record.
func Draft(wf any) (any, error) {
	return parseDraft(document.Get(wf, "WorkflowExtra", "Draft"))
}

// Aliases returns the workflow's private alias map.
func Aliases(wf any) *resolver.AliasMap {
	return resolver.NewAliasMap(embedded(document.Get(wf, "WorkflowExtra", "Extra"), "TableMap"))
}

// parseDraft accepts the draft as an encoded JSON string or as an object.
// An absent draft is an empty one.
func parseDraft(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		parsed, err := document.ParseString(v)
		if err != nil {
			return nil, err
		}
		if document.Obj(parsed) == nil {
			return nil, fmt.Errorf("草稿不是 JSON 对象")
		}
		return parsed, nil
	case *document.Object:
		return v, nil
	}
	return nil, fmt.Errorf("草稿类型不支持: %T", raw)
}

// embedded returns key of v, decoding v first when it is an encoded string.
func embedded(v any, key string) any {
	if s, ok := v.(string); ok && s != "" {
		parsed, err := document.ParseString(s)
		if err != nil {
			return nil
		}
		v = parsed
	}
	return document.Get(v, key)
}

func workflowID(wf any) string {
	v := document.Get(wf, "id")
	if v == nil {
		return UnknownID
	}
	if s := document.Text(v); s != "" {
		return s
	}
	return UnknownID
}
