package member

import (
	"context"

	agentpkg "github.com/lwmacct/251215-go-pkg-agent/pkg/agent"
	"github.com/lwmacct/251215-go-pkg-llm/pkg/llm"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
)

// ═══════════════════════════════════════════════════════════════════════════
// 核心执行消息
// ═══════════════════════════════════════════════════════════════════════════

// ExecuteTask 执行计划任务请求
//
// 成员领取一个 ready 任务：置为 running、调用 LLM、把流事件
// 发布到事件总线、把产出写入会话历史，最后推进任务状态
// （completed 或 failed）。
//
// CorrelationID 为空时默认使用 "planID/taskID"。
type ExecuteTask struct {
	PlanID        string
	TaskID        string
	Instruction   string
	CorrelationID string
	Context       context.Context
	ReplyChan     chan *ExecuteResult
}

// Kind 实现 actor.Message 接口
func (m *ExecuteTask) Kind() string { return "member.execute_task" }

// ExecuteResult 任务执行结果
type ExecuteResult struct {
	PlanID string
	TaskID string
	Text   string
	Error  error
}

// Respond 会话发言请求
//
// 成员针对一条入站消息产出一轮回复。回复作为独立的逻辑发言
// 记入会话历史，message_id 由成员自行分配（入站消息的
// message_id 属于发送者，不能跨发送者复用）。
// Private 为 true 时该轮产出不写入会话历史（点对点沟通）。
type Respond struct {
	Text          string
	CorrelationID string
	Private       bool
	Context       context.Context
	ReplyChan     chan *RespondResult
}

// Kind 实现 actor.Message 接口
func (m *Respond) Kind() string { return "member.respond" }

// RespondResult 发言结果
type RespondResult struct {
	MessageID string
	Text      string
	Error     error
}

// ═══════════════════════════════════════════════════════════════════════════
// 状态查询消息
// ═══════════════════════════════════════════════════════════════════════════

// GetProfile 获取成员档案请求
type GetProfile struct {
	ReplyChan chan *crew.Member
}

// Kind 实现 actor.Message 接口
func (m *GetProfile) Kind() string { return "member.get_profile" }

// GetStatus 获取底层 Agent 状态请求
type GetStatus struct {
	ReplyChan chan *agentpkg.Status
}

// Kind 实现 actor.Message 接口
func (m *GetStatus) Kind() string { return "member.get_status" }

// GetMessages 获取底层 Agent 消息历史请求
type GetMessages struct {
	ReplyChan chan []llm.Message
}

// Kind 实现 actor.Message 接口
func (m *GetMessages) Kind() string { return "member.get_messages" }

// ═══════════════════════════════════════════════════════════════════════════
// 生命周期消息
// ═══════════════════════════════════════════════════════════════════════════

// Stop 停止请求
type Stop struct {
	Reason string
}

// Kind 实现 actor.Message 接口
func (m *Stop) Kind() string { return "member.stop" }
