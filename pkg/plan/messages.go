package plan

// ═══════════════════════════════════════════════════════════════════════════
// 计划管理消息
// ═══════════════════════════════════════════════════════════════════════════

// PlanReply 计划操作应答
type PlanReply struct {
	Plan *Plan
	Err  error
}

// CreatePlanMsg 创建计划请求
//
// 校验失败时不会产生半成品计划。
type CreatePlanMsg struct {
	Title       string
	Description string
	Tasks       []TaskSpec
	ReplyChan   chan *PlanReply
}

// Kind 实现 actor.Message 接口
func (m *CreatePlanMsg) Kind() string { return "plan.create" }

// UpdatePlanMsg 更新计划请求
//
// Tasks 更新现有任务定义，AppendTasks 向图中追加新任务。
type UpdatePlanMsg struct {
	PlanID      string
	Tasks       []TaskSpec
	AppendTasks []TaskSpec
	ReplyChan   chan *PlanReply
}

// Kind 实现 actor.Message 接口
func (m *UpdatePlanMsg) Kind() string { return "plan.update" }

// AdvanceTaskMsg 推进任务状态请求
type AdvanceTaskMsg struct {
	PlanID    string
	TaskID    string
	Status    TaskStatus
	Err       error
	ReplyChan chan *PlanReply
}

// Kind 实现 actor.Message 接口
func (m *AdvanceTaskMsg) Kind() string { return "plan.advance_task" }

// CancelTaskMsg 取消任务请求
type CancelTaskMsg struct {
	PlanID    string
	TaskID    string
	Reason    string
	ReplyChan chan error
}

// Kind 实现 actor.Message 接口
func (m *CancelTaskMsg) Kind() string { return "plan.cancel_task" }

// GetPlanMsg 获取计划请求
type GetPlanMsg struct {
	PlanID    string
	ReplyChan chan *PlanReply
}

// Kind 实现 actor.Message 接口
func (m *GetPlanMsg) Kind() string { return "plan.get" }

// GetPlanTaskMsg 获取任务请求
type GetPlanTaskMsg struct {
	PlanID    string
	TaskID    string
	ReplyChan chan *TaskReply
}

// Kind 实现 actor.Message 接口
func (m *GetPlanTaskMsg) Kind() string { return "plan.get_task" }

// TaskReply 任务操作应答
type TaskReply struct {
	Task *Task
	Err  error
}

// ListPlansMsg 列出全部计划请求
type ListPlansMsg struct {
	ReplyChan chan []*Plan
}

// Kind 实现 actor.Message 接口
func (m *ListPlansMsg) Kind() string { return "plan.list" }

// DeletePlanMsg 删除计划请求
type DeletePlanMsg struct {
	PlanID    string
	ReplyChan chan error
}

// Kind 实现 actor.Message 接口
func (m *DeletePlanMsg) Kind() string { return "plan.delete" }

// ReadyTasksMsg 获取就绪任务请求
type ReadyTasksMsg struct {
	PlanID    string
	ReplyChan chan *ReadyTasksReply
}

// Kind 实现 actor.Message 接口
func (m *ReadyTasksMsg) Kind() string { return "plan.ready_tasks" }

// ReadyTasksReply 就绪任务应答
type ReadyTasksReply struct {
	Tasks []*Task
	Err   error
}

// ═══════════════════════════════════════════════════════════════════════════
// 待办看板消息
// ═══════════════════════════════════════════════════════════════════════════

// AddTodoMsg 添加待办事项请求
//
// 返回生成的待办 ID。
type AddTodoMsg struct {
	Owner     string
	Content   string
	ReplyChan chan string
}

// Kind 实现 actor.Message 接口
func (m *AddTodoMsg) Kind() string { return "plan.add_todo" }

// UpdateTodoMsg 更新待办事项请求
type UpdateTodoMsg struct {
	TodoID    string
	Status    TodoStatus
	ReplyChan chan error
}

// Kind 实现 actor.Message 接口
func (m *UpdateTodoMsg) Kind() string { return "plan.update_todo" }

// GetTodoMsg 查看待办事项请求
type GetTodoMsg struct {
	TodoID    string
	ReplyChan chan *TodoReply
}

// Kind 实现 actor.Message 接口
func (m *GetTodoMsg) Kind() string { return "plan.get_todo" }

// TodoReply 单个待办事项应答
type TodoReply struct {
	Todo *Todo
	Err  error
}

// RemoveTodoMsg 移除待办事项请求
type RemoveTodoMsg struct {
	TodoID    string
	ReplyChan chan error
}

// Kind 实现 actor.Message 接口
func (m *RemoveTodoMsg) Kind() string { return "plan.remove_todo" }

// ListTodosMsg 列出待办事项请求
//
// Owner 为空时返回全部。
type ListTodosMsg struct {
	Owner     string
	ReplyChan chan []Todo
}

// Kind 实现 actor.Message 接口
func (m *ListTodosMsg) Kind() string { return "plan.list_todos" }
