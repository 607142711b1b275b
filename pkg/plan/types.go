package plan

import "time"

// ═══════════════════════════════════════════════════════════════════════════
// Task 相关类型
// ═══════════════════════════════════════════════════════════════════════════

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // 依赖未满足
	TaskStatusReady     TaskStatus = "ready"     // 依赖全部完成，可执行
	TaskStatusRunning   TaskStatus = "running"   // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败
	TaskStatusBlocked   TaskStatus = "blocked"   // 因上游失败被阻塞
)

// Task 计划内的任务
//
// 任务通过 Needs 构成有向无环图；AssignedTitle 可以是成员名称或职位，
// 执行时才惰性解析为具体成员。
type Task struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	AssignedTitle string         `json:"title"`
	Needs         []string       `json:"needs,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Status        TaskStatus     `json:"status"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// clone 返回任务的深拷贝
func (t *Task) clone() *Task {
	c := *t
	c.Needs = append([]string(nil), t.Needs...)
	if t.Parameters != nil {
		c.Parameters = make(map[string]any, len(t.Parameters))
		for k, v := range t.Parameters {
			c.Parameters[k] = v
		}
	}
	return &c
}

// TaskSpec 创建/更新计划时的任务载荷
type TaskSpec struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Title       string         `json:"title"`
	Needs       []string       `json:"needs,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// toTask 从载荷构建初始任务
func (s TaskSpec) toTask() *Task {
	return &Task{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		AssignedTitle: s.Title,
		Needs:         append([]string(nil), s.Needs...),
		Parameters:    s.Parameters,
		Status:        TaskStatusPending,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Plan 相关类型
// ═══════════════════════════════════════════════════════════════════════════

// PlanStatus 计划状态
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"     // 已创建，尚未开始执行
	PlanStatusRunning   PlanStatus = "running"   // 有任务在执行
	PlanStatusCompleted PlanStatus = "completed" // 全部任务完成
	PlanStatusFailed    PlanStatus = "failed"    // 所有分支已定（至少一个 failed/blocked）
	PlanStatusCancelled PlanStatus = "cancelled" // 被删除/取消
)

// Plan 依赖关联任务的集合
type Plan struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Tasks       []*Task    `json:"tasks"`
	Status      PlanStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Task 按 ID 查找任务
func (p *Plan) Task(id string) (*Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// ReadyTasks 按计划任务列表顺序返回所有 ready 任务
//
// 同时就绪的任务按这个稳定顺序处理，不依赖 map 迭代顺序。
func (p *Plan) ReadyTasks() []*Task {
	var ready []*Task
	for _, t := range p.Tasks {
		if t.Status == TaskStatusReady {
			ready = append(ready, t)
		}
	}
	return ready
}

// CountByStatus 返回指定状态的任务数量
func (p *Plan) CountByStatus(status TaskStatus) int {
	count := 0
	for _, t := range p.Tasks {
		if t.Status == status {
			count++
		}
	}
	return count
}

// clone 返回计划的深拷贝（快照读取用）
func (p *Plan) clone() *Plan {
	c := *p
	c.Tasks = make([]*Task, len(p.Tasks))
	for i, t := range p.Tasks {
		c.Tasks[i] = t.clone()
	}
	return &c
}
