package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/stream"
)

// Result 技能执行的结构化结果
//
// 技能处理器永不 panic 到调用方：任何失败都折叠为
// Success=false 的结果，由 LLM 决定如何继续。
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK 构造成功结果
func OK(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Fail 构造失败结果
func Fail(err error) Result {
	return Result{Success: false, Message: err.Error()}
}

// Failf 构造格式化失败结果
func Failf(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Handler 技能处理器
//
// input 是 LLM 产出的 JSON 对象反序列化结果。
type Handler func(ctx context.Context, input map[string]any) Result

// Set 技能处理器集合
//
// Thread Safety: Set 是并发安全的。
type Set struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	bus      *stream.Bus
	logger   *slog.Logger
}

// SetOption Set 配置选项
type SetOption func(*Set)

// WithSetBus 设置事件总线，技能执行进度以 skill-update 事件发布
func WithSetBus(bus *stream.Bus) SetOption {
	return func(s *Set) { s.bus = bus }
}

// WithSetLogger 设置日志器
func WithSetLogger(logger *slog.Logger) SetOption {
	return func(s *Set) { s.logger = logger }
}

// NewSet 创建技能集合
func NewSet(opts ...SetOption) *Set {
	s := &Set{
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register 注册技能处理器，重名覆盖
func (s *Set) Register(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// Names 返回已注册的技能名
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	return names
}

// SkillUpdatePayload skill-update 事件载荷
type SkillUpdatePayload struct {
	Skill   string `json:"skill"`
	Phase   string `json:"phase"` // started | completed | failed
	Message string `json:"message,omitempty"`
}

// Invoke 调用技能
//
// 未知技能和处理器 panic 都折叠为失败结果，不向上传播。
func (s *Set) Invoke(ctx context.Context, name string, input map[string]any) Result {
	return s.InvokeStreaming(ctx, "", name, input)
}

// InvokeStreaming 调用技能并把执行进度发布到事件总线
//
// correlationID 标识技能所属的那一轮发言或任务：
// 执行前发布 started，落定后按结果发布 completed/failed。
// 总线未配置或 correlationID 为空时不产生事件。
func (s *Set) InvokeStreaming(ctx context.Context, correlationID, name string, input map[string]any) Result {
	s.publishSkillUpdate(correlationID, SkillUpdatePayload{Skill: name, Phase: "started"})

	result := s.invoke(ctx, name, input)

	phase := "completed"
	if !result.Success {
		phase = "failed"
	}
	s.publishSkillUpdate(correlationID, SkillUpdatePayload{
		Skill:   name,
		Phase:   phase,
		Message: result.Message,
	})
	return result
}

// invoke 实际执行技能处理器
func (s *Set) invoke(ctx context.Context, name string, input map[string]any) (result Result) {
	s.mu.RLock()
	h, ok := s.handlers[name]
	s.mu.RUnlock()

	if !ok {
		return Failf("unknown skill: %s", name)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("skill handler panic", "skill", name, "panic", r)
			result = Failf("skill %s panicked: %v", name, r)
		}
	}()

	return h(ctx, input)
}

// publishSkillUpdate 发布技能进度事件（总线未配置或无关联标识时为空操作）
func (s *Set) publishSkillUpdate(correlationID string, payload SkillUpdatePayload) {
	if s.bus == nil || correlationID == "" {
		return
	}
	if _, err := s.bus.Publish(correlationID, stream.EventSkillUpdate, payload); err != nil {
		s.logger.Warn("skill update publish failed",
			"skill", payload.Skill, "correlation_id", correlationID, "error", err)
	}
}

// decodeInto 把松散的 JSON 对象解码为具体类型
func decodeInto(input map[string]any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}
