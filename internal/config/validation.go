package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/duke-git/lancet/v2/slice"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("配置校验失败:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields 返回出错的配置路径
func (e ValidationErrors) Fields() []string {
	return slice.Map(e, func(_ int, v ValidationError) string { return v.Field })
}

var (
	validFormats    = []string{FormatMarkdown, FormatJSON, FormatXLSX}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "console"}
	validLogOutputs = []string{"stdout", "stderr", "file", "both"}
)

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateInputConfig(&cfg.Input)
	v.validateOutputConfig(&cfg.Output)
	v.validateRenderConfig(&cfg.Render)
	v.validateServerConfig(&cfg.Server)
	v.validateLoggingConfig(&cfg.Logging)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateInputConfig(cfg *InputConfig) {
	if cfg.MaxSectionMiB <= 0 {
		v.addError("input.max_section_mib", "解压上限必须为正数")
	}
}

func (v *Validator) validateOutputConfig(cfg *OutputConfig) {
	names := map[string]string{
		"output.automation": cfg.Automation,
		"output.fields":     cfg.Fields,
		"output.relations":  cfg.Relations,
		"output.audit":      cfg.Audit,
	}
	for _, field := range []string{"output.automation", "output.fields", "output.relations", "output.audit"} {
		name := names[field]
		if name == "" {
			v.addError(field, "文件名不能为空")
		} else if strings.ContainsAny(name, `/\`) {
			v.addError(field, "文件名不能包含路径分隔符")
		}
	}
	if cfg.Wants(FormatXLSX) && cfg.Workbook == "" {
		v.addError("output.workbook", "输出 xlsx 时必须指定工作簿文件名")
	}
	if len(cfg.Formats) == 0 {
		v.addError("output.formats", "至少需要一种输出格式")
	}
	for _, f := range cfg.Formats {
		if !slice.Contain(validFormats, strings.ToLower(f)) {
			v.addError("output.formats", fmt.Sprintf("无效的输出格式 '%s'，可选: %s", f, strings.Join(validFormats, ", ")))
		}
	}
}

func (v *Validator) validateRenderConfig(cfg *RenderConfig) {
	if _, err := cfg.Location(); err != nil {
		v.addError("render.timezone", fmt.Sprintf("无效的时区 '%s'", cfg.Timezone))
	}
	if cfg.Workers < 1 {
		v.addError("render.workers", "并发数至少为 1")
	}
	if cfg.ValueLimit < 1 {
		v.addError("render.value_limit", "截断长度必须为正数")
	}
	if cfg.MaxDepth < 1 {
		v.addError("render.max_depth", "递归深度必须为正数")
	}
}

func (v *Validator) validateServerConfig(cfg *ServerConfig) {
	if cfg.Address == "" {
		v.addError("server.address", "监听地址不能为空")
	} else if !isValidAddress(cfg.Address) {
		v.addError("server.address", "无效的地址格式，应为 host:port 或 :port")
	}
	if cfg.ReadTimeout < 0 {
		v.addError("server.read_timeout", "读超时不能为负数")
	} else if cfg.ReadTimeout > 0 && cfg.ReadTimeout < time.Second {
		v.addError("server.read_timeout", "读超时至少为 1 秒")
	}
	if cfg.WriteTimeout < 0 {
		v.addError("server.write_timeout", "写超时不能为负数")
	} else if cfg.WriteTimeout > 0 && cfg.WriteTimeout < time.Second {
		v.addError("server.write_timeout", "写超时至少为 1 秒")
	}
	if cfg.BodyLimitMiB <= 0 {
		v.addError("server.body_limit_mib", "请求体上限必须为正数")
	}
}

func (v *Validator) validateLoggingConfig(cfg *LoggingConfig) {
	if !slice.Contain(validLogLevels, strings.ToLower(cfg.Level)) {
		v.addError("logging.level", fmt.Sprintf("无效的日志级别 '%s'，可选: %s", cfg.Level, strings.Join(validLogLevels, ", ")))
	}
	if !slice.Contain(validLogFormats, strings.ToLower(cfg.Format)) {
		v.addError("logging.format", fmt.Sprintf("无效的日志格式 '%s'，可选: %s", cfg.Format, strings.Join(validLogFormats, ", ")))
	}
	output := strings.ToLower(cfg.Output)
	if !slice.Contain(validLogOutputs, output) {
		v.addError("logging.output", fmt.Sprintf("无效的日志输出 '%s'，可选: %s", cfg.Output, strings.Join(validLogOutputs, ", ")))
	}
	if (output == "file" || output == "both") && cfg.FilePath == "" {
		v.addError("logging.file_path", "输出到文件时必须指定文件路径")
	}
}

// isValidAddress checks host:port or :port.
func isValidAddress(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return false
	}
	return host == "" || net.ParseIP(host) != nil || isValidHostname(host)
}

func isValidHostname(hostname string) bool {
	if len(hostname) > 253 {
		return false
	}
	for _, label := range strings.Split(hostname, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if !isAlphanumeric(label[0]) || !isAlphanumeric(label[len(label)-1]) {
			return false
		}
		for i := 0; i < len(label); i++ {
			if !isAlphanumeric(label[i]) && label[i] != '-' {
				return false
			}
		}
	}
	return true
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	return NewValidator().Validate(c)
}

// LoadAndValidate loads configuration from a file and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
