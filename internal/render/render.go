// Package render 把翻译结果写成 Markdown、JSON 与 XLSX 文档。
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// 默认文档文件名
const (
	DocAutomation = "自动化地图.md"
	DocFields     = "全量字段表.md"
	DocRelations  = "关联关系图.md"
	DocAudit      = "完整性校验报告.md"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	cellLimit       = 500
	formulaInline   = 100
)

// Renderer renders documents. Generation time comes from its clock.
type Renderer struct {
	clock    func() time.Time
	location *time.Location
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock used for the generation time line.
func WithClock(clock func() time.Time) Option {
	return func(r *Renderer) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLocation sets the time zone of the generation time line.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.location = loc
		}
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{clock: time.Now, location: time.Local}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) timestamp() string {
	return r.clock().In(r.location).Format(timestampLayout)
}

func (r *Renderer) header(b *strings.Builder, title string, meta ...string) {
	b.WriteString("# " + title + "\n\n")
	b.WriteString("> 生成时间: " + r.timestamp() + "\n")
	for _, m := range meta {
		b.WriteString("> " + m + "\n")
	}
	b.WriteString("\n")
}

// cell makes text safe for a markdown table cell and cuts it to limit runes.
func cell(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	if limit > 0 && utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit]) + "..."
	}
	return s
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(path string, content []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败: %w", err)
		}
	}
	return nil
}
