// Package generator 串联解包、符号表、工作流翻译、字段目录、关系图与完整性校验，
// 产出全部文档。命令行与 HTTP 接口共用这一条流水线。
package generator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"yqhp/bitable-doc/internal/audit"
	"yqhp/bitable-doc/internal/config"
	"yqhp/bitable-doc/internal/interpreter"
	"yqhp/bitable-doc/internal/loader"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/render"
	"yqhp/bitable-doc/internal/schema"
	"yqhp/bitable-doc/internal/workflow"
)

// Names are the file names documents are written under. Audit findings
// link to these names.
type Names struct {
	Automation string
	Fields     string
	Relations  string
	Audit      string
}

// DefaultNames returns the standard document file names.
func DefaultNames() Names {
	return Names{
		Automation: render.DocAutomation,
		Fields:     render.DocFields,
		Relations:  render.DocRelations,
		Audit:      render.DocAudit,
	}
}

// Documents holds the rendered markdown documents.
type Documents struct {
	Automation string
	Fields     string
	Relations  string
	Audit      string
}

// Bundle is everything generated from one export.
type Bundle struct {
	Export    *loader.Export
	Registry  *registry.Registry
	Workflows []workflow.Result
	Catalog   schema.Catalog
	Relations schema.RelationshipMap
	Report    audit.Report
	Documents Documents
}

// Generator runs the pipeline.
type Generator struct {
	logger     *zap.Logger
	decoder    *loader.Decoder
	maxBytes   int64
	renderer   *render.Renderer
	names      Names
	workers    int
	location   *time.Location
	valueLimit int
	maxDepth   int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMaxSectionBytes bounds the inflated size of one export section.
func WithMaxSectionBytes(n int64) Option {
	return func(g *Generator) {
		g.maxBytes = n
	}
}

// WithRenderer replaces the document renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(g *Generator) {
		if r != nil {
			g.renderer = r
		}
	}
}

// WithNames sets the document file names.
func WithNames(n Names) Option {
	return func(g *Generator) {
		g.names = n
	}
}

// WithWorkers bounds parallel workflow translation.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		g.workers = max(n, 1)
	}
}

// WithLocation sets the time zone of timer triggers.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.location = loc
		}
	}
}

// WithValueLimits sets fallback truncation and formatting depth.
func WithValueLimits(valueLimit, maxDepth int) Option {
	return func(g *Generator) {
		g.valueLimit = valueLimit
		g.maxDepth = maxDepth
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		logger:     zap.NewNop(),
		names:      DefaultNames(),
		workers:    1,
		location:   time.Local,
		valueLimit: interpreter.DefaultValueLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.decoder = loader.NewDecoder(
		loader.WithLogger(g.logger.Named("loader")),
		loader.WithMaxInflatedBytes(g.maxBytes),
	)
	if g.renderer == nil {
		g.renderer = render.New(render.WithLocation(g.location))
	}
	return g
}

// NewFromConfig creates a Generator from the loaded configuration.
func NewFromConfig(cfg *config.Config, l *zap.Logger) (*Generator, error) {
	loc, err := cfg.Render.Location()
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = zap.NewNop()
	}
	return New(
		WithLogger(l),
		WithMaxSectionBytes(cfg.Input.MaxSectionBytes()),
		WithNames(Names{
			Automation: cfg.Output.Automation,
			Fields:     cfg.Output.Fields,
			Relations:  cfg.Output.Relations,
			Audit:      cfg.Output.Audit,
		}),
		WithWorkers(cfg.Render.Workers),
		WithLocation(loc),
		WithValueLimits(cfg.Render.ValueLimit, cfg.Render.MaxDepth),
	), nil
}

// Names returns the configured document file names.
func (g *Generator) Names() Names {
	return g.names
}

// Renderer returns the document renderer.
func (g *Generator) Renderer() *render.Renderer {
	return g.renderer
}

// LoadFile reads and processes a .base file.
func (g *Generator) LoadFile(ctx context.Context, path string) (*Bundle, error) {
	export, err := g.decoder.Load(path)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, export)
}

// DecodeBytes processes raw .base content.
func (g *Generator) DecodeBytes(ctx context.Context, data []byte) (*Bundle, error) {
	export, err := g.decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, export)
}

// Decode unpacks raw .base content without running the pipeline.
func (g *Generator) Decode(data []byte) (*loader.Export, error) {
	return g.decoder.Decode(data)
}

// Generate runs every stage over a decoded export. The audit scans the other
// three documents, so it is rendered last.
func (g *Generator) Generate(ctx context.Context, export *loader.Export) (*Bundle, error) {
	start := time.Now()
	reg := registry.Build(export.Snapshot)
	stats := reg.Stats()
	g.logger.Debug("符号表已建立",
		zap.Int("tables", stats.Tables),
		zap.Int("fields", stats.Fields),
		zap.Int("options", stats.Options),
	)

	results, err := g.Assembler(reg).TranslateAll(ctx, export.Workflows)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Export: export, Registry: reg, Workflows: results}
	sb := schema.NewBuilder(reg)
	b.Catalog = sb.Catalog()
	b.Relations = sb.Relationships()

	b.Documents.Automation = g.renderer.Automation(results)
	b.Documents.Fields = g.renderer.Fields(b.Catalog)
	b.Documents.Relations = g.renderer.Relations(b.Relations)

	b.Report = audit.Run(export, reg, []audit.Document{
		{Name: g.names.Automation, Content: b.Documents.Automation},
		{Name: g.names.Fields, Content: b.Documents.Fields},
		{Name: g.names.Relations, Content: b.Documents.Relations},
	})
	b.Documents.Audit = g.renderer.Audit(b.Report)

	g.logger.Info("文档生成完成",
		zap.Int("workflows", len(results)),
		zap.Int("tables", len(b.Catalog.Tables)),
		zap.Int("relations", b.Relations.RelationCount),
		zap.Int("findings", len(b.Report.Findings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b, nil
}

// Assembler returns a workflow assembler configured like the pipeline's.
func (g *Generator) Assembler(reg *registry.Registry) *workflow.Assembler {
	interpOpts := []interpreter.Option{
		interpreter.WithLocation(g.location),
		interpreter.WithValueLimit(g.valueLimit),
	}
	if g.maxDepth > 0 {
		interpOpts = append(interpOpts, interpreter.WithMaxDepth(g.maxDepth))
	}
	return workflow.NewAssembler(reg,
		workflow.WithLogger(g.logger.Named("workflow")),
		workflow.WithWorkers(g.workers),
		workflow.WithInterpreterOptions(interpOpts...),
	)
}

// Files maps output file names to document content.
func (b *Bundle) Files(n Names) map[string]string {
	return map[string]string{
		n.Automation: b.Documents.Automation,
		n.Fields:     b.Documents.Fields,
		n.Relations:  b.Documents.Relations,
		n.Audit:      b.Documents.Audit,
	}
}

// Summary is a one-line description of the bundle for logs and CLI output.
func (b *Bundle) Summary() string {
	return fmt.Sprintf("%d 个工作流, %d 张表, %d 个字段, %d 个跨表关联, %d 个待处理问题",
		len(b.Workflows), len(b.Catalog.Tables), b.Catalog.FieldCount(), b.Relations.RelationCount, len(b.Report.Findings))
}
