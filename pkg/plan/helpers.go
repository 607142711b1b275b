package plan

import (
	"context"
	"time"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/actor"
)

// ═══════════════════════════════════════════════════════════════════════════
// 计划管理便捷函数
// ═══════════════════════════════════════════════════════════════════════════

// DoCreatePlan 创建计划
func DoCreatePlan(pid *actor.PID, title, description string, tasks []TaskSpec, timeout time.Duration) (*Plan, error) {
	replyCh := make(chan *PlanReply, 1)

	pid.Tell(&CreatePlanMsg{
		Title:       title,
		Description: description,
		Tasks:       tasks,
		ReplyChan:   replyCh,
	})

	select {
	case reply := <-replyCh:
		return reply.Plan, reply.Err
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoUpdatePlan 更新计划
func DoUpdatePlan(pid *actor.PID, planID string, tasks, appendTasks []TaskSpec, timeout time.Duration) (*Plan, error) {
	replyCh := make(chan *PlanReply, 1)

	pid.Tell(&UpdatePlanMsg{
		PlanID:      planID,
		Tasks:       tasks,
		AppendTasks: appendTasks,
		ReplyChan:   replyCh,
	})

	select {
	case reply := <-replyCh:
		return reply.Plan, reply.Err
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoAdvanceTask 推进任务状态
func DoAdvanceTask(pid *actor.PID, planID, taskID string, status TaskStatus, execErr error, timeout time.Duration) (*Plan, error) {
	replyCh := make(chan *PlanReply, 1)

	pid.Tell(&AdvanceTaskMsg{
		PlanID:    planID,
		TaskID:    taskID,
		Status:    status,
		Err:       execErr,
		ReplyChan: replyCh,
	})

	select {
	case reply := <-replyCh:
		return reply.Plan, reply.Err
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoCancelTask 请求取消任务
func DoCancelTask(pid *actor.PID, planID, taskID, reason string, timeout time.Duration) error {
	replyCh := make(chan error, 1)

	pid.Tell(&CancelTaskMsg{
		PlanID:    planID,
		TaskID:    taskID,
		Reason:    reason,
		ReplyChan: replyCh,
	})

	select {
	case err := <-replyCh:
		return err
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// DoGetPlan 获取计划快照
func DoGetPlan(pid *actor.PID, planID string, timeout time.Duration) (*Plan, error) {
	replyCh := make(chan *PlanReply, 1)

	pid.Tell(&GetPlanMsg{
		PlanID:    planID,
		ReplyChan: replyCh,
	})

	select {
	case reply := <-replyCh:
		return reply.Plan, reply.Err
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoGetPlanTask 获取任务快照
func DoGetPlanTask(pid *actor.PID, planID, taskID string, timeout time.Duration) (*Task, error) {
	replyCh := make(chan *TaskReply, 1)

	pid.Tell(&GetPlanTaskMsg{
		PlanID:    planID,
		TaskID:    taskID,
		ReplyChan: replyCh,
	})

	select {
	case reply := <-replyCh:
		return reply.Task, reply.Err
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoListPlans 列出全部计划
func DoListPlans(pid *actor.PID, timeout time.Duration) ([]*Plan, error) {
	replyCh := make(chan []*Plan, 1)

	pid.Tell(&ListPlansMsg{
		ReplyChan: replyCh,
	})

	select {
	case plans := <-replyCh:
		return plans, nil
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoDeletePlan 删除计划
func DoDeletePlan(pid *actor.PID, planID string, timeout time.Duration) error {
	replyCh := make(chan error, 1)

	pid.Tell(&DeletePlanMsg{
		PlanID:    planID,
		ReplyChan: replyCh,
	})

	select {
	case err := <-replyCh:
		return err
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// DoReadyTasks 获取就绪任务
func DoReadyTasks(pid *actor.PID, planID string, timeout time.Duration) ([]*Task, error) {
	replyCh := make(chan *ReadyTasksReply, 1)

	pid.Tell(&ReadyTasksMsg{
		PlanID:    planID,
		ReplyChan: replyCh,
	})

	select {
	case reply := <-replyCh:
		return reply.Tasks, reply.Err
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 待办看板便捷函数
// ═══════════════════════════════════════════════════════════════════════════

// DoAddTodo 添加待办事项
func DoAddTodo(pid *actor.PID, owner, content string, timeout time.Duration) (string, error) {
	replyCh := make(chan string, 1)

	pid.Tell(&AddTodoMsg{
		Owner:     owner,
		Content:   content,
		ReplyChan: replyCh,
	})

	select {
	case id := <-replyCh:
		return id, nil
	case <-time.After(timeout):
		return "", context.DeadlineExceeded
	}
}

// DoUpdateTodo 更新待办事项状态
func DoUpdateTodo(pid *actor.PID, todoID string, status TodoStatus, timeout time.Duration) error {
	replyCh := make(chan error, 1)

	pid.Tell(&UpdateTodoMsg{
		TodoID:    todoID,
		Status:    status,
		ReplyChan: replyCh,
	})

	select {
	case err := <-replyCh:
		return err
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// DoGetTodo 查看单个待办事项
func DoGetTodo(pid *actor.PID, todoID string, timeout time.Duration) (*Todo, error) {
	replyCh := make(chan *TodoReply, 1)

	pid.Tell(&GetTodoMsg{
		TodoID:    todoID,
		ReplyChan: replyCh,
	})

	select {
	case reply := <-replyCh:
		return reply.Todo, reply.Err
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoRemoveTodo 移除待办事项
func DoRemoveTodo(pid *actor.PID, todoID string, timeout time.Duration) error {
	replyCh := make(chan error, 1)

	pid.Tell(&RemoveTodoMsg{
		TodoID:    todoID,
		ReplyChan: replyCh,
	})

	select {
	case err := <-replyCh:
		return err
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// DoListTodos 列出待办事项（owner 为空返回全部）
func DoListTodos(pid *actor.PID, owner string, timeout time.Duration) ([]Todo, error) {
	replyCh := make(chan []Todo, 1)

	pid.Tell(&ListTodosMsg{
		Owner:     owner,
		ReplyChan: replyCh,
	})

	select {
	case todos := <-replyCh:
		return todos, nil
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}
