// Package interpreter 将工作流步骤列表翻译为结构化的步骤描述。
//
// 每个步骤按类型分派给注册表中的处理器；处理器未消费的 data 键由通用兜底逻辑
// 逐一渲染，保证未知步骤类型和未知字段不会被静默丢弃。
package interpreter

import (
	"strconv"
	"time"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/expression"
	"yqhp/bitable-doc/internal/resolver"
	"yqhp/bitable-doc/internal/valueref"
)

const (
	// DefaultValueLimit truncates generic fallback values, in runes.
	DefaultValueLimit = 300
	// DefaultFormDataLimit truncates non-list custom action form data, in runes.
	DefaultFormDataLimit = 500
)

// Interpreter describes the steps of one workflow. It is read-only after
// construction.
type Interpreter struct {
	resolver   *resolver.Resolver
	translator *expression.Translator
	formatter  *valueref.Formatter
	index      *StepIndex
	handlers   *Registry
	location   *time.Location
	valueLimit int
	maxDepth   int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(in *Interpreter) {
		if r != nil {
			in.handlers = r
		}
	}
}

// WithLocation sets the time zone for timer start times. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(in *Interpreter) {
		if loc != nil {
			in.location = loc
		}
	}
}

// WithValueLimit sets the fallback value truncation length.
func WithValueLimit(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.valueLimit = n
		}
	}
}

// WithMaxDepth bounds value formatting recursion.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) {
		in.maxDepth = n
	}
}

// New creates an Interpreter for one workflow. r should be scoped to the
// workflow's aliases; index covers the workflow's steps.
func New(r *resolver.Resolver, index *StepIndex, opts ...Option) *Interpreter {
	in := &Interpreter{
		resolver:   r,
		translator: expression.New(r),
		index:      index,
		handlers:   DefaultRegistry,
		location:   time.Local,
		valueLimit: DefaultValueLimit,
		maxDepth:   valueref.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.formatter = valueref.New(r,
		valueref.WithStepLookup(index.Lookup),
		valueref.WithMaxDepth(in.maxDepth),
	)
	return in
}

// Interpret indexes steps and describes each of them in order.
func Interpret(r *resolver.Resolver, steps []any, opts ...Option) []StepDescription {
	return New(r, NewStepIndex(steps), opts...).DescribeAll(steps)
}

// DescribeAll describes steps with 1-based indexes.
func (in *Interpreter) DescribeAll(steps []any) []StepDescription {
	out := make([]StepDescription, 0, len(steps))
	for i, step := range steps {
		out = append(out, in.Describe(step, i+1))
	}
	return out
}

// Describe renders a single step. It depends only on the step, its index
// and the interpreter's StepIndex, so any step can be described in isolation.
func (in *Interpreter) Describe(step any, index int) StepDescription {
	c := newContext(in, step, index)

	if tid := c.TakeString("tableId"); tid != "" {
		c.Add("涉及表", bracket(c.Table(tid)))
	}

	h := in.handlers.Get(c.Type)
	if h != nil {
		h.Describe(c)
	}

	if filter := c.triggerFilter(); filter != "" {
		c.AddStrong("触发筛选条件", filter)
	}

	c.fallback()

	title := document.GetString(step, "stepTitle")
	if title == "" {
		title = StepTypeLabel(c.Type)
	}

	return StepDescription{
		Index:      index,
		ID:         c.ID,
		Type:       c.Type,
		Title:      title,
		Lines:      c.lines,
		Handled:    h != nil,
		Consumed:   c.consumed,
		Unconsumed: c.unconsumed,
	}
}

// Context carries one step through its handler.
type Context struct {
	in *Interpreter

	// Step is the raw step object, Data its payload.
	Step any
	Data any

	ID      string
	Type    string
	TableID string
	Index   int

	lines      []Line
	consumed   []string
	unconsumed []string
	seen       map[string]bool
}

func newContext(in *Interpreter, step any, index int) *Context {
	data := document.Get(step, "data")
	return &Context{
		in:      in,
		Step:    step,
		Data:    data,
		ID:      document.GetString(step, "id"),
		Type:    document.GetString(step, "type"),
		TableID: document.GetString(data, "tableId"),
		Index:   index,
		seen:    make(map[string]bool),
	}
}

// Consume marks payload keys as rendered.
func (c *Context) Consume(keys ...string) {
	for _, k := range keys {
		if !c.seen[k] {
			c.seen[k] = true
			c.consumed = append(c.consumed, k)
		}
	}
}

// Take consumes key and returns its value.
func (c *Context) Take(key string) any {
	c.Consume(key)
	return document.Get(c.Data, key)
}

// TakeString consumes key and returns it as a string.
func (c *Context) TakeString(key string) string {
	c.Consume(key)
	return document.GetString(c.Data, key)
}

// TakeArray consumes key and returns it as an array.
func (c *Context) TakeArray(key string) []any {
	c.Consume(key)
	return document.GetArray(c.Data, key)
}

// Add appends a labeled line.
func (c *Context) Add(label, value string) {
	c.lines = append(c.lines, Line{Label: label, Value: value})
}

// AddStrong appends an emphasized labeled line.
func (c *Context) AddStrong(label, value string) {
	c.lines = append(c.lines, Line{Label: label, Value: value, Strong: true})
}

// AddLine appends a prepared line.
func (c *Context) AddLine(l Line) {
	c.lines = append(c.lines, l)
}

// Table resolves a table id.
func (c *Context) Table(id string) string {
	return c.in.resolver.ResolveTable(id)
}

// Field resolves a field id, preferring the step's table.
func (c *Context) Field(id string) string {
	return c.in.resolver.ResolveFieldIn(c.TableID, id)
}

// Format renders a value tree.
func (c *Context) Format(v any) string {
	return c.in.formatter.Format(v, 0)
}

// Formatter returns the value formatter.
func (c *Context) Formatter() *valueref.Formatter {
	return c.in.formatter
}

// StepRef renders a successor step id as its position, or a marker when the
// id is not part of the workflow.
func (c *Context) StepRef(id string) string {
	if n, ok := c.in.index.Lookup(id); ok {
		return strconv.Itoa(n)
	}
	return resolver.StepMarker(id)
}

// Jump renders "跳转至步骤 N".
func (c *Context) Jump(id string) string {
	return "跳转至步骤 " + c.StepRef(id)
}

func bracket(name string) string {
	return "「" + name + "」"
}
