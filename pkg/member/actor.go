package member

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	agentpkg "github.com/lwmacct/251215-go-pkg-agent/pkg/agent"
	"github.com/lwmacct/251215-go-pkg-llm/pkg/llm"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/actor"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/history"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/plan"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/stream"
)

// MemberActor 把一名剧组成员（档案 + LLM Agent）包装为 Actor
//
// 这是适配器模式，不修改底层 Agent 代码。执行链路：
// 领取任务 → 置为 running（获得可取消的 context）→ 调用 LLM →
// 流事件发布到事件总线 → 产出写入会话历史 → 推进任务状态。
//
// 取消是协作式的：任务 context 被取消后，LLM 调用在下一个
// 安全检查点返回，成员以 failed 确认放弃。
type MemberActor struct {
	profile *crew.Member
	agent   agentpkg.AgentInterface

	// 协作设施（均可选）
	bus       *stream.Bus
	log       *history.Log
	scheduler *plan.Scheduler

	// 状态
	mu        sync.RWMutex
	lastError error

	// 统计
	stats *actor.StatsCollector

	// 生命周期
	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger
}

// MemberOption MemberActor 配置选项
type MemberOption func(*MemberActor)

// WithBus 设置流事件总线
func WithBus(bus *stream.Bus) MemberOption {
	return func(a *MemberActor) { a.bus = bus }
}

// WithHistory 设置会话历史
func WithHistory(log *history.Log) MemberOption {
	return func(a *MemberActor) { a.log = log }
}

// WithScheduler 设置计划调度器
func WithScheduler(s *plan.Scheduler) MemberOption {
	return func(a *MemberActor) { a.scheduler = s }
}

// WithMemberLogger 设置日志器
func WithMemberLogger(logger *slog.Logger) MemberOption {
	return func(a *MemberActor) { a.logger = logger }
}

// New 创建成员 Actor
func New(profile *crew.Member, ag agentpkg.AgentInterface, opts ...MemberOption) *MemberActor {
	ctx, cancel := context.WithCancel(context.Background())
	a := &MemberActor{
		profile: profile,
		agent:   ag,
		stats:   actor.NewStatsCollector(),
		ctx:     ctx,
		cancel:  cancel,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Receive 处理接收到的消息（Actor 核心方法）
func (a *MemberActor) Receive(ctx *actor.Context, msg actor.Message) {
	a.stats.RecordReceived()
	startTime := time.Now()

	defer func() {
		a.stats.RecordHandled(time.Since(startTime))
	}()

	switch m := msg.(type) {
	case *actor.Started:
		a.logger.Debug("MemberActor started", "member", a.profile.Name)
		return

	case *actor.Stopping:
		a.logger.Debug("MemberActor stopping", "member", a.profile.Name)
		a.handleStop()
		return

	case *actor.Stopped:
		a.logger.Debug("MemberActor stopped", "member", a.profile.Name)
		return

	case *actor.Restarting:
		a.logger.Debug("MemberActor restarting", "member", a.profile.Name)
		return

	// ─────────────────────────────────────────────────────────────────────
	// 核心执行消息
	// ─────────────────────────────────────────────────────────────────────

	case *ExecuteTask:
		a.handleExecuteTask(m)

	case *Respond:
		a.handleRespond(m)

	// ─────────────────────────────────────────────────────────────────────
	// 状态查询消息
	// ─────────────────────────────────────────────────────────────────────

	case *GetProfile:
		actor.TrySend(m.ReplyChan, a.profile.Clone())

	case *GetStatus:
		actor.TrySend(m.ReplyChan, a.agent.Status())

	case *GetMessages:
		actor.TrySend(m.ReplyChan, a.agent.Messages())

	// ─────────────────────────────────────────────────────────────────────
	// 生命周期消息
	// ─────────────────────────────────────────────────────────────────────

	case *Stop:
		a.handleStop()
		ctx.StopSelf()

	default:
		a.logger.Warn("MemberActor received unknown message", "type", msg.Kind())
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 核心执行处理
// ═══════════════════════════════════════════════════════════════════════════

// handleExecuteTask 处理任务执行
func (a *MemberActor) handleExecuteTask(msg *ExecuteTask) {
	corr := msg.CorrelationID
	if corr == "" {
		corr = msg.PlanID + "/" + msg.TaskID
	}

	parent := actor.MergeContexts(a.ctx, msg.Context)
	if a.bus != nil {
		parent = actor.MergeContexts(parent, a.bus.Open(corr))
	}

	// 领取任务：ready → running，获得可取消的任务 context
	taskCtx := parent
	if a.scheduler != nil {
		var err error
		taskCtx, err = a.scheduler.Start(parent, msg.PlanID, msg.TaskID)
		if err != nil {
			actor.TrySend(msg.ReplyChan, &ExecuteResult{
				PlanID: msg.PlanID, TaskID: msg.TaskID, Error: err,
			})
			return
		}
	}

	go func() {
		a.publish(corr, stream.EventThinkingStart, a.profile.Name)
		a.publish(corr, stream.EventLLMStart, a.profile.Name)

		text, runErr := a.runStreaming(taskCtx, corr, msg.Instruction)

		messageID := uuid.NewString()
		if runErr != nil {
			a.recordError(runErr)
			a.appendHistory(history.NewRecord(messageID, a.profile.Name,
				history.ErrorBlock(runErr.Error())))
			if a.scheduler != nil {
				_, _ = a.scheduler.Advance(msg.PlanID, msg.TaskID, plan.TaskStatusFailed, runErr)
			}
			if a.bus != nil {
				a.bus.Cancel(corr, runErr.Error())
			}
			actor.TrySend(msg.ReplyChan, &ExecuteResult{
				PlanID: msg.PlanID, TaskID: msg.TaskID, Error: runErr,
			})
			return
		}

		a.appendHistory(history.NewRecord(messageID, a.profile.Name,
			history.TextBlock(text)))
		if a.scheduler != nil {
			_, _ = a.scheduler.Advance(msg.PlanID, msg.TaskID, plan.TaskStatusCompleted, nil)
		}
		a.publish(corr, stream.EventLLMEnd, text)
		if a.bus != nil {
			a.bus.End(corr)
		}

		actor.TrySend(msg.ReplyChan, &ExecuteResult{
			PlanID: msg.PlanID, TaskID: msg.TaskID, Text: text,
		})
	}()
}

// handleRespond 处理会话发言
func (a *MemberActor) handleRespond(msg *Respond) {
	execCtx := actor.MergeContexts(a.ctx, msg.Context)

	// 回复是成员自己的逻辑发言，分配全新的 message_id
	messageID := uuid.NewString()

	go func() {
		corr := msg.CorrelationID
		if corr != "" {
			a.publish(corr, stream.EventThinkingStart, a.profile.Name)
			a.publish(corr, stream.EventLLMStart, a.profile.Name)
		}

		text, runErr := a.runStreaming(execCtx, corr, msg.Text)

		if runErr != nil {
			a.recordError(runErr)
			if corr != "" {
				a.publish(corr, stream.EventError, runErr.Error())
			}
			actor.TrySend(msg.ReplyChan, &RespondResult{MessageID: messageID, Error: runErr})
			return
		}

		// 私下消息绕过会话历史
		if !msg.Private {
			a.appendHistory(history.NewRecord(messageID, a.profile.Name,
				history.TextBlock(text)))
		}
		if corr != "" {
			a.publish(corr, stream.EventLLMEnd, text)
		}

		actor.TrySend(msg.ReplyChan, &RespondResult{MessageID: messageID, Text: text})
	}()
}

// runStreaming 调用 Agent.Run 并把事件桥接到事件总线
//
// 返回累积的全文。context 取消时 Run 在下一个安全检查点返回
// error 事件，这里原样上报。
func (a *MemberActor) runStreaming(ctx context.Context, corr, text string) (string, error) {
	eventCh := a.agent.Run(ctx, text)

	var full string
	var runErr error
	for event := range eventCh {
		switch event.Type {
		case llm.EventTypeText:
			full += event.Text
			if corr != "" {
				a.publish(corr, stream.EventTokenDelta, event.Text)
			}
		case llm.EventTypeError:
			if event.Error != nil {
				runErr = event.Error
			}
		case llm.EventTypeDone:
			if event.Result != nil && event.Result.Text != "" {
				full = event.Result.Text
			}
		}
	}

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return full, runErr
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助方法
// ═══════════════════════════════════════════════════════════════════════════

// publish 发布流事件（bus 未配置时为空操作）
func (a *MemberActor) publish(corr string, typ stream.EventType, payload any) {
	if a.bus == nil || corr == "" {
		return
	}
	if _, err := a.bus.Publish(corr, typ, payload); err != nil {
		a.logger.Debug("stream publish skipped", "correlation_id", corr, "error", err)
	}
}

// appendHistory 写入会话历史（log 未配置时为空操作）
func (a *MemberActor) appendHistory(r history.Record) {
	if a.log == nil {
		return
	}
	if err := a.log.Append(r); err != nil {
		a.logger.Warn("history append failed", "member", a.profile.Name, "error", err)
	}
}

// recordError 记录错误
func (a *MemberActor) recordError(err error) {
	a.stats.RecordError(err)
	a.mu.Lock()
	a.lastError = err
	a.mu.Unlock()
}

// handleStop 处理停止
func (a *MemberActor) handleStop() {
	a.cancel()
	if err := a.agent.Close(); err != nil {
		a.logger.Warn("agent close error", "member", a.profile.Name, "error", err)
	}
}

// Profile 获取成员档案
func (a *MemberActor) Profile() *crew.Member {
	return a.profile
}

// Agent 获取底层 Agent
func (a *MemberActor) Agent() agentpkg.AgentInterface {
	return a.agent
}

// LastError 获取最近一次错误
func (a *MemberActor) LastError() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastError
}

// Stats 获取统计信息
func (a *MemberActor) Stats() *actor.ActorStats {
	return a.stats.Stats()
}
