package tool

import (
	"context"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/plan"
)

// PlanTool plan 技能
//
// operation 决定动作：create | delete | update | get | list。
// 全部变更委托给调度器，校验失败（环、未知依赖、未知受派人）
// 以结构化失败结果返回，调度器状态不变。
type PlanTool struct {
	scheduler *plan.Scheduler
}

// NewPlanTool 创建 plan 技能
func NewPlanTool(s *plan.Scheduler) *PlanTool {
	return &PlanTool{scheduler: s}
}

// Name 技能名
func (t *PlanTool) Name() string { return "plan" }

// planInput plan 技能输入
type planInput struct {
	Operation   string          `json:"operation"`
	PlanID      string          `json:"plan_id,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Tasks       []plan.TaskSpec `json:"tasks,omitempty"`
	AppendTasks []plan.TaskSpec `json:"append_tasks,omitempty"`
}

// Handle 处理 plan 技能调用
func (t *PlanTool) Handle(_ context.Context, input map[string]any) Result {
	var in planInput
	if err := decodeInto(input, &in); err != nil {
		return Fail(err)
	}

	switch in.Operation {
	case "create":
		p, err := t.scheduler.Create(in.Title, in.Description, in.Tasks)
		if err != nil {
			return Fail(err)
		}
		return OK("plan created: "+p.ID, p)

	case "delete":
		if err := t.scheduler.Delete(in.PlanID); err != nil {
			return Fail(err)
		}
		return OK("plan deleted: "+in.PlanID, nil)

	case "update":
		p, err := t.scheduler.Update(in.PlanID, in.Tasks, in.AppendTasks)
		if err != nil {
			return Fail(err)
		}
		return OK("plan updated: "+p.ID, p)

	case "get":
		p, err := t.scheduler.Get(in.PlanID)
		if err != nil {
			return Fail(err)
		}
		return OK("", p)

	case "list":
		return OK("", t.scheduler.List())

	default:
		return Failf("unknown plan operation: %q", in.Operation)
	}
}
