package studio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	baseagent "github.com/lwmacct/251215-go-pkg-agent/pkg/agent"
	"github.com/lwmacct/251215-go-pkg-llm/pkg/llm"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/actor"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/history"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/member"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/plan"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/stream"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/tool"
)

// planActorName PlanActor 在 Actor 系统中的注册名
const planActorName = "studio-plan"

// defaultTurnTimeout 单轮发言的默认超时
const defaultTurnTimeout = 120 * time.Second

// Studio 剧组会话
//
// 把注册表、路由器、调度器、事件总线、会话历史和成员 Actor
// 装配为一个工作整体。入站消息经路由器决策后投递给目标成员；
// 计划执行由 RunPlan 驱动：就绪任务按声明顺序派发给对应职位
// 的成员，互相独立的任务并发执行。
type Studio struct {
	name string

	system    *actor.System
	registry  *crew.Registry
	router    *crew.Router
	scheduler *plan.Scheduler
	bus       *stream.Bus
	log       *history.Log

	planPID *actor.PID
	factory *member.Factory

	provider    llm.Provider
	planStore   *plan.Store
	turnTimeout time.Duration
	logger      *slog.Logger
}

// Option Studio 配置选项
type Option func(*Studio)

// WithProvider 设置 LLM Provider
func WithProvider(p llm.Provider) Option {
	return func(s *Studio) { s.provider = p }
}

// WithTitleOrder 设置职位重要性排序
func WithTitleOrder(order []crew.Title) Option {
	return func(s *Studio) { s.registry = crew.NewRegistry(crew.WithTitleOrder(order)) }
}

// WithHistoryStore 设置会话历史的 JSONL 持久化
func WithHistoryStore(store *history.Store) Option {
	return func(s *Studio) { s.log = history.NewLog(history.WithStore(store)) }
}

// WithPlanStore 设置计划状态的 JSON 持久化
func WithPlanStore(store *plan.Store) Option {
	return func(s *Studio) { s.planStore = store }
}

// WithTurnTimeout 设置单轮发言超时
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Studio) {
		if d > 0 {
			s.turnTimeout = d
		}
	}
}

// WithLogger 设置日志器
func WithLogger(logger *slog.Logger) Option {
	return func(s *Studio) { s.logger = logger }
}

// New 创建剧组会话
func New(name string, opts ...Option) *Studio {
	s := &Studio{
		name:        name,
		registry:    crew.NewRegistry(),
		bus:         stream.NewBus(),
		log:         history.NewLog(),
		turnTimeout: defaultTurnTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = crew.NewRouterWithLogger(s.registry, s.logger)

	schedulerOpts := []plan.SchedulerOption{
		plan.WithEventBus(s.bus),
		plan.WithSchedulerLogger(s.logger),
	}
	if s.planStore != nil {
		schedulerOpts = append(schedulerOpts, plan.WithPlanStore(s.planStore))
	}
	s.scheduler = plan.NewScheduler(s.registry, schedulerOpts...)

	s.system = actor.NewSystemWithConfig(name, &actor.SystemConfig{
		DefaultMailboxSize: 100,
		DeadLetterSize:     1000,
		Logger:             s.logger,
	})
	s.planPID = s.system.Spawn(plan.NewPlanActor(s.scheduler), planActorName)

	s.factory = member.NewFactory(s.provider,
		member.WithBus(s.bus),
		member.WithHistory(s.log),
		member.WithScheduler(s.scheduler),
		member.WithMemberLogger(s.logger),
	)

	return s
}

// ═══════════════════════════════════════════════════════════════════════════
// 成员管理
// ═══════════════════════════════════════════════════════════════════════════

// AddMember 注册成员并拉起其 Actor
func (s *Studio) AddMember(profile *crew.Member) error {
	return s.AddMemberWithOptions(profile)
}

// AddMemberWithOptions 注册成员，创建底层 Agent 时附加额外选项
//
// 典型用法：为单个成员指定独立的 Provider 或模型参数。
func (s *Studio) AddMemberWithOptions(profile *crew.Member, opts ...baseagent.Option) error {
	if err := s.registry.Register(profile); err != nil {
		return err
	}
	if _, err := s.factory.CreateAndSpawn(s.system, profile, opts...); err != nil {
		_ = s.registry.Remove(profile.Name)
		return err
	}
	s.logger.Info("crew member joined", "studio", s.name,
		"member", profile.Name, "crew_title", profile.Title)
	return nil
}

// AddRoster 批量注册成员，遇到第一个错误停止
func (s *Studio) AddRoster(profiles []*crew.Member) error {
	for _, p := range profiles {
		if err := s.AddMember(p); err != nil {
			return err
		}
	}
	return nil
}

// RemoveMember 移除成员并停止其 Actor
func (s *Studio) RemoveMember(name string) error {
	if err := s.registry.Remove(name); err != nil {
		return err
	}
	s.stopMemberActor(name)
	s.logger.Info("crew member left", "studio", s.name, "member", name)
	return nil
}

// stopMemberActor 停止成员 Actor（不存在时为空操作）
func (s *Studio) stopMemberActor(name string) {
	if pid, found := s.system.GetActor(name); found {
		pid.Tell(&member.Stop{Reason: "removed from crew"})
	}
}

// Skills 为指定成员装配技能集合
//
// 包含 plan、crew_member、todo、speak_to 四项技能，
// 供宿主应用接到底层 Agent 的工具调用回路。
// 通过 [tool.Set.InvokeStreaming] 调用时，技能执行进度以
// skill-update 事件发布到会话的事件总线。
func (s *Studio) Skills(memberName string) *tool.Set {
	set := tool.NewSet(tool.WithSetBus(s.bus), tool.WithSetLogger(s.logger))

	planTool := tool.NewPlanTool(s.scheduler)
	set.Register(planTool.Name(), planTool.Handle)

	crewTool := tool.NewCrewTool(s.registry,
		tool.WithOnCreate(func(m *crew.Member) error {
			_, err := s.factory.CreateAndSpawn(s.system, m)
			return err
		}),
		tool.WithOnDelete(s.stopMemberActor),
	)
	set.Register(crewTool.Name(), crewTool.Handle)

	todoTool := tool.NewTodoTool(s.planPID, memberName)
	set.Register(todoTool.Name(), todoTool.Handle)

	speakTool := tool.NewSpeakTool(memberName, s.router, s.log, s.deliver)
	set.Register(speakTool.Name(), speakTool.Handle)

	return set
}

// ═══════════════════════════════════════════════════════════════════════════
// 会话轮次
// ═══════════════════════════════════════════════════════════════════════════

// Turn 一轮会话的结果
type Turn struct {
	Sender        string
	Target        string
	Mode          crew.DecisionMode
	MessageID     string
	CorrelationID string
	Reply         string
}

// Say 向剧组发送一条消息并等待目标成员的回复
//
// 路由规则：消息中出现可解析的 @name 或 @title 即为显式地址；
// 没有显式地址时兜底给重要性最高的成员（通常是 producer）。
// 入站消息与成员回复都写入会话历史。
func (s *Studio) Say(ctx context.Context, sender, text string) (*Turn, error) {
	decision, err := s.router.Route(crew.Inbound{Sender: sender, Text: text})
	if err != nil {
		return nil, err
	}

	inbound := history.NewRecord(newMessageID(), sender, history.TextBlock(text))
	inbound.Recipient = decision.Target.Name
	if err := s.log.Append(inbound); err != nil {
		return nil, err
	}

	return s.dispatchTurn(ctx, decision, sender, text, false)
}

// SayPrivate 点对点私信
//
// 绕过路由器的兜底逻辑，且双方的往来都不写入会话历史。
func (s *Studio) SayPrivate(ctx context.Context, sender, recipient, text string) (*Turn, error) {
	decision, err := s.router.Private(sender, recipient)
	if err != nil {
		return nil, err
	}
	return s.dispatchTurn(ctx, decision, sender, text, true)
}

// dispatchTurn 把消息投递给决策选中的成员并等待回复
func (s *Studio) dispatchTurn(ctx context.Context, decision crew.Decision, sender, text string, private bool) (*Turn, error) {
	pid, found := s.system.GetActor(decision.Target.Name)
	if !found {
		return nil, fmt.Errorf("member %s has no running actor", decision.Target.Name)
	}

	corr := ""
	if !private {
		corr = "turn-" + newMessageID()
	}

	replyCh := make(chan *member.RespondResult, 1)
	pid.Tell(&member.Respond{
		Text:          text,
		CorrelationID: corr,
		Private:       private,
		Context:       ctx,
		ReplyChan:     replyCh,
	})

	select {
	case result := <-replyCh:
		if result.Error != nil {
			return nil, result.Error
		}
		return &Turn{
			Sender:        sender,
			Target:        decision.Target.Name,
			Mode:          decision.Mode,
			MessageID:     result.MessageID,
			CorrelationID: corr,
			Reply:         result.Text,
		}, nil
	case <-time.After(s.turnTimeout):
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deliver speak_to 技能的投递实现
//
// 入站消息已由技能按其 message_id 写入历史；收件人的回复
// 是另一条逻辑发言，由成员用自己的 message_id 记录。
func (s *Studio) deliver(ctx context.Context, decision crew.Decision, text, _ string) error {
	pid, found := s.system.GetActor(decision.Target.Name)
	if !found {
		return fmt.Errorf("member %s has no running actor", decision.Target.Name)
	}

	pid.Tell(&member.Respond{
		Text:    text,
		Private: decision.Mode == crew.ModePrivateTarget,
		Context: ctx,
	})
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 计划执行
// ═══════════════════════════════════════════════════════════════════════════

// CreatePlan 创建计划
func (s *Studio) CreatePlan(title, description string, tasks []plan.TaskSpec) (*plan.Plan, error) {
	return s.scheduler.Create(title, description, tasks)
}

// RunPlan 驱动计划执行直到终态
//
// 每一轮把全部就绪任务并发派发给对应成员，等待这批任务落定
// 后重新评估。互相独立的任务同时执行；有依赖边的任务严格在
// 其依赖 completed 之后才会被派发。
func (s *Studio) RunPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := s.scheduler.Get(planID)
		if err != nil {
			return nil, err
		}

		switch p.Status {
		case plan.PlanStatusCompleted, plan.PlanStatusFailed, plan.PlanStatusCancelled:
			return p, nil
		}

		ready := p.ReadyTasks()
		if len(ready) == 0 {
			// 没有就绪任务也没有在途任务：图已经走不动了
			if p.CountByStatus(plan.TaskStatusRunning) == 0 {
				return p, nil
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := s.dispatchBatch(ctx, planID, ready); err != nil {
			return nil, err
		}
	}
}

// dispatchBatch 并发派发一批就绪任务并等待全部落定
func (s *Studio) dispatchBatch(ctx context.Context, planID string, ready []*plan.Task) error {
	results := make(chan *member.ExecuteResult, len(ready))
	dispatched := 0

	for _, t := range ready {
		assignee, err := s.registry.Resolve(t.AssignedTitle)
		if err != nil {
			s.failUndispatched(ctx, planID, t.ID, err)
			continue
		}
		pid, found := s.system.GetActor(assignee.Name)
		if !found {
			s.failUndispatched(ctx, planID, t.ID,
				fmt.Errorf("member %s has no running actor", assignee.Name))
			continue
		}

		s.logger.Info("task dispatched", "studio", s.name,
			"plan", planID, "task", t.ID, "member", assignee.Name)

		pid.Tell(&member.ExecuteTask{
			PlanID:      planID,
			TaskID:      t.ID,
			Instruction: taskInstruction(t),
			Context:     ctx,
			ReplyChan:   results,
		})
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		select {
		case <-results:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// failUndispatched 把派发不出去的就绪任务判为失败
//
// failed 只能从 running 迁移，所以先走一次 Start。
func (s *Studio) failUndispatched(ctx context.Context, planID, taskID string, cause error) {
	if _, err := s.scheduler.Start(ctx, planID, taskID); err != nil {
		s.logger.Warn("undispatched task not failable", "plan", planID, "task", taskID, "error", err)
		return
	}
	_, _ = s.scheduler.Advance(planID, taskID, plan.TaskStatusFailed,
		&plan.ExecutionError{TaskID: taskID, Err: cause})
}

// taskInstruction 拼装任务指令文本
func taskInstruction(t *plan.Task) string {
	text := t.Name
	if t.Description != "" {
		text += "\n\n" + t.Description
	}
	for k, v := range t.Parameters {
		text += fmt.Sprintf("\n%s: %v", k, v)
	}
	return text
}

// ═══════════════════════════════════════════════════════════════════════════
// 访问器与生命周期
// ═══════════════════════════════════════════════════════════════════════════

// Name 会话名
func (s *Studio) Name() string { return s.name }

// Registry 成员注册表
func (s *Studio) Registry() *crew.Registry { return s.registry }

// Router 消息路由器
func (s *Studio) Router() *crew.Router { return s.router }

// Scheduler 计划调度器
func (s *Studio) Scheduler() *plan.Scheduler { return s.scheduler }

// Bus 流事件总线
func (s *Studio) Bus() *stream.Bus { return s.bus }

// History 会话历史
func (s *Studio) History() *history.Log { return s.log }

// System 底层 Actor 系统
func (s *Studio) System() *actor.System { return s.system }

// PlanPID 计划 Actor 的 PID
func (s *Studio) PlanPID() *actor.PID { return s.planPID }

// Shutdown 关闭会话
//
// 停止全部成员 Actor 并关闭 Actor 系统。
func (s *Studio) Shutdown(timeout time.Duration) {
	for _, m := range s.registry.ListOrdered() {
		s.stopMemberActor(m.Name)
	}
	s.system.ShutdownWithTimeout(timeout)
}

// newMessageID 生成消息 ID
func newMessageID() string {
	return uuid.NewString()
}
