package stream

import "time"

// EventType 流事件类别
type EventType string

const (
	// EventThinkingStart 成员开始思考
	EventThinkingStart EventType = "thinking-start"
	// EventLLMStart 外部 LLM 调用开始
	EventLLMStart EventType = "llm-start"
	// EventLLMEnd 外部 LLM 调用结束
	EventLLMEnd EventType = "llm-end"
	// EventTokenDelta 流式文本增量
	EventTokenDelta EventType = "token-delta"
	// EventSkillUpdate 技能执行进度
	EventSkillUpdate EventType = "skill-update"
	// EventPlanUpdate 计划/任务状态变更
	EventPlanUpdate EventType = "plan-update"
	// EventError 错误（含取消），流的终止事件
	EventError EventType = "error"
)

// Event 流事件
//
// 事件是短暂的，不做持久化；生命周期等于一次流式响应。
// Seq 由 Bus 在发布时分配，同一 CorrelationID 内严格递增。
type Event struct {
	Type          EventType `json:"type"`
	CorrelationID string    `json:"correlation_id"`
	Seq           int64     `json:"seq"`
	Payload       any       `json:"payload,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Kind 实现 actor.Message 接口，事件可以直接投递给 Actor
func (e *Event) Kind() string { return "stream." + string(e.Type) }

// Terminal 报告事件是否终止所在的流
func (e *Event) Terminal() bool { return e.Type == EventError }

// CancelPayload 取消事件的载荷
type CancelPayload struct {
	Reason string `json:"reason"`
}
