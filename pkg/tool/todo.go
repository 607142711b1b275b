package tool

import (
	"context"
	"time"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/actor"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/plan"
)

// defaultTodoTimeout 待办操作的邮箱应答超时
const defaultTodoTimeout = 5 * time.Second

// TodoTool todo 技能
//
// 待办看板由 PlanActor 串行维护，这里通过其邮箱访问。
// operation：create | delete | update | get | list
// （add/remove 分别是 create/delete 的别名）。
type TodoTool struct {
	pid     *actor.PID
	owner   string // 调用该技能的成员名
	timeout time.Duration
}

// NewTodoTool 创建 todo 技能
//
// owner 是技能归属的成员名，add 的事项记在该成员名下，
// list 默认也只看该成员的事项。
func NewTodoTool(pid *actor.PID, owner string) *TodoTool {
	return &TodoTool{
		pid:     pid,
		owner:   owner,
		timeout: defaultTodoTimeout,
	}
}

// Name 技能名
func (t *TodoTool) Name() string { return "todo" }

// todoInput todo 技能输入
type todoInput struct {
	Operation string `json:"operation"`
	TodoID    string `json:"todo_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Status    string `json:"status,omitempty"`
	All       bool   `json:"all,omitempty"` // list 时查看全员事项
}

// Handle 处理 todo 技能调用
func (t *TodoTool) Handle(_ context.Context, input map[string]any) Result {
	var in todoInput
	if err := decodeInto(input, &in); err != nil {
		return Fail(err)
	}

	switch in.Operation {
	case "create", "add":
		if in.Content == "" {
			return Failf("todo create requires content")
		}
		id, err := plan.DoAddTodo(t.pid, t.owner, in.Content, t.timeout)
		if err != nil {
			return Fail(err)
		}
		return OK("todo created: "+id, map[string]string{"todo_id": id})

	case "update":
		if err := plan.DoUpdateTodo(t.pid, in.TodoID, plan.TodoStatus(in.Status), t.timeout); err != nil {
			return Fail(err)
		}
		return OK("todo updated: "+in.TodoID, nil)

	case "get":
		todo, err := plan.DoGetTodo(t.pid, in.TodoID, t.timeout)
		if err != nil {
			return Fail(err)
		}
		return OK("", todo)

	case "delete", "remove":
		if err := plan.DoRemoveTodo(t.pid, in.TodoID, t.timeout); err != nil {
			return Fail(err)
		}
		return OK("todo deleted: "+in.TodoID, nil)

	case "list":
		owner := t.owner
		if in.All {
			owner = ""
		}
		todos, err := plan.DoListTodos(t.pid, owner, t.timeout)
		if err != nil {
			return Fail(err)
		}
		return OK("", todos)

	default:
		return Failf("unknown todo operation: %q", in.Operation)
	}
}
