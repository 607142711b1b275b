package plan

import (
	"log/slog"
	"time"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/actor"
)

// PlanActor Actor-based 计划调度入口
//
// 把 Scheduler 与待办看板包进一个 Actor 邮箱：所有调用方通过
// 消息传递访问，Actor 串行处理天然满足同计划变更串行化的要求。
// Scheduler 自身仍然持锁，因此直接持有 *Scheduler 的调用方
// （如 studio 会话循环）可以绕过邮箱并发读取快照。
//
// Thread Safety: PlanActor 天然并发安全，无需额外锁保护。
type PlanActor struct {
	scheduler *Scheduler
	todos     *TodoBoard

	logger *slog.Logger
	stats  *actor.StatsCollector
}

// NewPlanActor 创建 PlanActor
func NewPlanActor(scheduler *Scheduler) *PlanActor {
	return &PlanActor{
		scheduler: scheduler,
		todos:     NewTodoBoard(),
		logger:    slog.Default(),
		stats:     actor.NewStatsCollector(),
	}
}

// Scheduler 返回底层调度器（供直接持有方读取快照）
func (a *PlanActor) Scheduler() *Scheduler {
	return a.scheduler
}

// Receive 处理接收到的消息（Actor 核心方法）
func (a *PlanActor) Receive(ctx *actor.Context, msg actor.Message) {
	a.stats.RecordReceived()
	startTime := time.Now()

	defer func() {
		a.stats.RecordHandled(time.Since(startTime))
	}()

	switch m := msg.(type) {
	// ─────────────────────────────────────────────────────────────────────
	// 系统消息
	// ─────────────────────────────────────────────────────────────────────

	case *actor.Started:
		a.logger.Debug("PlanActor started")

	case *actor.Stopping:
		a.logger.Debug("PlanActor stopping")

	case *actor.Stopped:
		a.logger.Debug("PlanActor stopped")

	// ─────────────────────────────────────────────────────────────────────
	// 计划管理消息
	// ─────────────────────────────────────────────────────────────────────

	case *CreatePlanMsg:
		p, err := a.scheduler.Create(m.Title, m.Description, m.Tasks)
		actor.TrySend(m.ReplyChan, &PlanReply{Plan: p, Err: err})

	case *UpdatePlanMsg:
		p, err := a.scheduler.Update(m.PlanID, m.Tasks, m.AppendTasks)
		actor.TrySend(m.ReplyChan, &PlanReply{Plan: p, Err: err})

	case *AdvanceTaskMsg:
		p, err := a.scheduler.Advance(m.PlanID, m.TaskID, m.Status, m.Err)
		actor.TrySend(m.ReplyChan, &PlanReply{Plan: p, Err: err})

	case *CancelTaskMsg:
		err := a.scheduler.CancelTask(m.PlanID, m.TaskID, m.Reason)
		actor.TrySend(m.ReplyChan, err)

	case *GetPlanMsg:
		p, err := a.scheduler.Get(m.PlanID)
		actor.TrySend(m.ReplyChan, &PlanReply{Plan: p, Err: err})

	case *GetPlanTaskMsg:
		t, err := a.scheduler.GetTask(m.PlanID, m.TaskID)
		actor.TrySend(m.ReplyChan, &TaskReply{Task: t, Err: err})

	case *ListPlansMsg:
		actor.TrySend(m.ReplyChan, a.scheduler.List())

	case *DeletePlanMsg:
		err := a.scheduler.Delete(m.PlanID)
		actor.TrySend(m.ReplyChan, err)

	case *ReadyTasksMsg:
		tasks, err := a.scheduler.ReadyTasks(m.PlanID)
		actor.TrySend(m.ReplyChan, &ReadyTasksReply{Tasks: tasks, Err: err})

	// ─────────────────────────────────────────────────────────────────────
	// 待办看板消息
	// ─────────────────────────────────────────────────────────────────────

	case *AddTodoMsg:
		id := a.todos.Add(m.Owner, m.Content)
		actor.TrySend(m.ReplyChan, id)

	case *UpdateTodoMsg:
		err := a.todos.Update(m.TodoID, m.Status)
		actor.TrySend(m.ReplyChan, err)

	case *GetTodoMsg:
		todo := a.todos.GetByID(m.TodoID)
		if todo == nil {
			actor.TrySend(m.ReplyChan, &TodoReply{Err: &NotFoundError{Kind: "todo", ID: m.TodoID}})
		} else {
			actor.TrySend(m.ReplyChan, &TodoReply{Todo: todo})
		}

	case *RemoveTodoMsg:
		err := a.todos.Remove(m.TodoID)
		actor.TrySend(m.ReplyChan, err)

	case *ListTodosMsg:
		if m.Owner != "" {
			actor.TrySend(m.ReplyChan, a.todos.GetByOwner(m.Owner))
		} else {
			actor.TrySend(m.ReplyChan, a.todos.List())
		}

	default:
		a.logger.Warn("PlanActor received unknown message", "type", msg.Kind())
	}
}

// Stats 获取统计信息
func (a *PlanActor) Stats() *actor.ActorStats {
	return a.stats.Stats()
}
