// Package loader 负责读取飞书多维表格 .base 导出文件并解开各个 gzip 数据块。
package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"yqhp/bitable-doc/internal/document"
)

// 顶层数据块名称
const (
	SectionSnapshot         = "gzipSnapshot"
	SectionAutomation       = "gzipAutomation"
	SectionExtraInfo        = "gzipExtraInfo"
	SectionBaseRole         = "gzipBaseRole"
	SectionAccessConfig     = "gzipAccessConfig"
	SectionDashboard        = "gzipDashboard"
	SectionAutomationButton = "gzipAutomationButtonRule"
	SectionSign             = "sign"
)

// 单个数据块解压后的默认上限
const defaultMaxInflatedSection = 512 << 20

// KnownSections lists every top-level key the export format is known to carry.
var KnownSections = []string{
	SectionSnapshot,
	SectionExtraInfo,
	SectionBaseRole,
	SectionAccessConfig,
	SectionDashboard,
	SectionAutomation,
	SectionAutomationButton,
	SectionSign,
}

// Export is the decoded content of a .base file.
type Export struct {
	// Snapshot is the ordered list of schema fragments.
	Snapshot []any
	// Workflows is the automation list; empty when the export has none.
	Workflows []any
	// ExtraInfo is the decoded gzipExtraInfo section, nil if absent or undecodable.
	ExtraInfo any
	// TopLevelKeys are the raw file's keys in document order.
	TopLevelKeys []string
}

// Decoder unpacks .base exports.
type Decoder struct {
	logger   *zap.Logger
	maxBytes int64
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for non-fatal section failures.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMaxInflatedBytes caps the size of a single inflated section.
func WithMaxInflatedBytes(n int64) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxBytes = n
		}
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		logger:   zap.NewNop(),
		maxBytes: defaultMaxInflatedSection,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load reads and decodes the file at path.
func (d *Decoder) Load(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return d.Decode(data)
}

// Decode decodes raw .base JSON. A missing or undecodable snapshot is fatal;
// every other section degrades to empty.
func (d *Decoder) Decode(data []byte) (*Export, error) {
	root, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析文件 JSON 失败: %w", err)
	}
	if document.Obj(root) == nil {
		return nil, NewDecodeError("root", StageFraming, fmt.Errorf("顶层不是 JSON 对象"))
	}

	export := &Export{TopLevelKeys: document.Keys(root)}

	rawSnapshot := document.Get(root, SectionSnapshot)
	if !document.Truthy(rawSnapshot) {
		return nil, NewSectionMissingError(SectionSnapshot)
	}
	snapshot, err := d.DecodeSection(SectionSnapshot, rawSnapshot)
	if err != nil {
		return nil, err
	}
	export.Snapshot = asList(snapshot)

	if raw := document.Get(root, SectionAutomation); document.Truthy(raw) {
		workflows, err := d.DecodeSection(SectionAutomation, raw)
		if err != nil {
			d.logger.Warn("自动化数据解压失败", zap.Error(err))
		} else {
			export.Workflows = document.Arr(workflows)
		}
	}

	if raw := document.Get(root, SectionExtraInfo); document.Truthy(raw) {
		extra, err := d.DecodeSection(SectionExtraInfo, raw)
		if err != nil {
			d.logger.Debug("扩展信息解压失败", zap.Error(err))
		} else {
			export.ExtraInfo = extra
		}
	}

	d.logger.Debug("导出文件解码完成",
		zap.Int("snapshot_fragments", len(export.Snapshot)),
		zap.Int("workflows", len(export.Workflows)),
	)
	return export, nil
}

// DecodeSection unpacks one section value. Accepted framings: a base64 string
// of gzip data, a JSON array of byte values holding gzip data, or an already
// decoded object/array.
func (d *Decoder) DecodeSection(section string, raw any) (any, error) {
	var compressed []byte

	switch v := raw.(type) {
	case string:
		b, err := decodeBase64(v)
		if err != nil {
			return nil, NewDecodeError(section, StageBase64, err)
		}
		compressed = b
	case []any:
		b, ok := byteList(v)
		if !ok {
			return v, nil
		}
		compressed = b
	case *document.Object:
		return v, nil
	default:
		return nil, NewDecodeError(section, StageFraming, fmt.Errorf("不支持的数据块类型 %T", raw))
	}

	inflated, err := d.inflate(compressed)
	if err != nil {
		return nil, NewDecodeError(section, StageGzip, err)
	}

	decoded, err := document.Parse(inflated)
	if err != nil {
		return nil, NewDecodeError(section, StageJSON, err)
	}
	return decoded, nil
}

func (d *Decoder) inflate(compressed []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, d.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > d.maxBytes {
		return nil, fmt.Errorf("解压后数据超过上限 %d 字节", d.maxBytes)
	}
	return out, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// byteList converts a JSON array of 0..255 integer literals to bytes.
// Fractions, exponents and strings disqualify the whole list.
func byteList(items []any) ([]byte, bool) {
	if len(items) == 0 {
		return nil, false
	}
	out := make([]byte, len(items))
	for i, item := range items {
		num, ok := item.(json.Number)
		if !ok {
			return nil, false
		}
		n, err := strconv.ParseUint(num.String(), 10, 8)
		if err != nil {
			return nil, false
		}
		out[i] = byte(n)
	}
	return out, true
}

func asList(v any) []any {
	if items := document.Arr(v); items != nil {
		return items
	}
	if v == nil {
		return nil
	}
	return []any{v}
}

// Load decodes the file at path with a default Decoder.
func Load(path string) (*Export, error) {
	return NewDecoder().Load(path)
}

// Decode decodes raw .base JSON with a default Decoder.
func Decode(data []byte) (*Export, error) {
	return NewDecoder().Decode(data)
}
