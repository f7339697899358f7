package interpreter

import (
	"fmt"
	"sort"
	"sync"
)

// Handler describes one step type.
type Handler interface {
	// Type returns the step type tag the handler serves.
	Type() string
	// Describe appends lines to c and marks the payload keys it consumed.
	Describe(c *Context)
}

type handlerFunc struct {
	stepType string
	describe func(c *Context)
}

func (h handlerFunc) Type() string        { return h.stepType }
func (h handlerFunc) Describe(c *Context) { h.describe(c) }

// NewHandler adapts a function into a Handler.
func NewHandler(stepType string, describe func(c *Context)) Handler {
	return handlerFunc{stepType: stepType, describe: describe}
}

// Registry 管理步骤处理器的注册和查找。
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry 创建一个空的处理器注册表。
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register 为处理器的类型注册处理器，类型重复时返回错误。
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("不能注册空处理器")
	}

	stepType := h.Type()
	if stepType == "" {
		return fmt.Errorf("处理器类型不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[stepType]; exists {
		return fmt.Errorf("处理器类型已注册: %s", stepType)
	}

	r.handlers[stepType] = h
	return nil
}

// MustRegister 注册处理器，如果出错则 panic。
func (r *Registry) MustRegister(h Handler) {
	if err := r.Register(h); err != nil {
		panic(err)
	}
}

// Unregister 移除给定类型的处理器。
func (r *Registry) Unregister(stepType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, stepType)
}

// Get 按类型获取处理器，未注册时返回 nil。
func (r *Registry) Get(stepType string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[stepType]
}

// Has 检查给定类型是否已注册处理器。
func (r *Registry) Has(stepType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[stepType]
	return exists
}

// Types 返回所有已注册的步骤类型，按字典序。
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count 返回已注册处理器的数量。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// RegisterAlias 让别名类型复用目标类型的处理器。目标未注册时忽略。
func (r *Registry) RegisterAlias(aliasType, targetType string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if target, exists := r.handlers[targetType]; exists {
		r.handlers[aliasType] = target
	}
}

// DefaultRegistry 是内置步骤处理器的全局注册表。
var DefaultRegistry = NewRegistry()

func init() {
	RegisterBuiltins(DefaultRegistry)
}

// Register 在默认注册表中注册处理器。
func Register(h Handler) error {
	return DefaultRegistry.Register(h)
}

// MustRegister 在默认注册表中注册处理器，如果出错则 panic。
func MustRegister(h Handler) {
	DefaultRegistry.MustRegister(h)
}

// RegisterAlias 在默认注册表中为已注册的处理器创建别名。
func RegisterAlias(aliasType, targetType string) {
	DefaultRegistry.RegisterAlias(aliasType, targetType)
}
