package plan

import (
	"fmt"
	"time"
)

// TodoStatus 待办事项状态
type TodoStatus string

const (
	TodoStatusPending    TodoStatus = "pending"
	TodoStatusInProgress TodoStatus = "in_progress"
	TodoStatusCompleted  TodoStatus = "completed"
	TodoStatusFailed     TodoStatus = "failed"
	TodoStatusBlocked    TodoStatus = "blocked"
)

// Todo 轻量待办事项
//
// 与 Plan/Task 的依赖图不同，待办是成员自己维护的扁平清单，
// 没有就绪性计算，也不触发失败传播。
type Todo struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Status      TodoStatus `json:"status"`
	Owner       string     `json:"owner,omitempty"` // 维护该事项的成员名
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TodoBoard 待办看板
//
// Thread Safety: TodoBoard 本身不加锁，
// 由持有它的 Actor 串行访问保证安全。
type TodoBoard struct {
	Todos []Todo `json:"todos"`

	seq int
}

// NewTodoBoard 创建待办看板
func NewTodoBoard() *TodoBoard {
	return &TodoBoard{
		Todos: make([]Todo, 0),
	}
}

// Add 添加待办事项，返回生成的 ID
func (b *TodoBoard) Add(owner, content string) string {
	b.seq++
	now := time.Now()
	todo := Todo{
		ID:        fmt.Sprintf("todo-%d", b.seq),
		Content:   content,
		Status:    TodoStatusPending,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Todos = append(b.Todos, todo)
	return todo.ID
}

// Update 更新待办事项状态
func (b *TodoBoard) Update(id string, status TodoStatus) error {
	for i := range b.Todos {
		if b.Todos[i].ID == id {
			b.Todos[i].Status = status
			b.Todos[i].UpdatedAt = time.Now()
			if status == TodoStatusCompleted {
				now := time.Now()
				b.Todos[i].CompletedAt = &now
			}
			return nil
		}
	}
	return &NotFoundError{Kind: "todo", ID: id}
}

// Remove 移除待办事项
func (b *TodoBoard) Remove(id string) error {
	for i := range b.Todos {
		if b.Todos[i].ID == id {
			b.Todos = append(b.Todos[:i], b.Todos[i+1:]...)
			return nil
		}
	}
	return &NotFoundError{Kind: "todo", ID: id}
}

// GetByID 查找待办事项
func (b *TodoBoard) GetByID(id string) *Todo {
	for i := range b.Todos {
		if b.Todos[i].ID == id {
			todo := b.Todos[i]
			return &todo
		}
	}
	return nil
}

// GetByOwner 按成员名筛选待办事项
func (b *TodoBoard) GetByOwner(owner string) []Todo {
	var result []Todo
	for _, t := range b.Todos {
		if t.Owner == owner {
			result = append(result, t)
		}
	}
	return result
}

// GetByStatus 按状态筛选待办事项
func (b *TodoBoard) GetByStatus(status TodoStatus) []Todo {
	var result []Todo
	for _, t := range b.Todos {
		if t.Status == status {
			result = append(result, t)
		}
	}
	return result
}

// List 返回全部待办事项副本
func (b *TodoBoard) List() []Todo {
	result := make([]Todo, len(b.Todos))
	copy(result, b.Todos)
	return result
}

// Counts 按状态统计
func (b *TodoBoard) Counts() map[TodoStatus]int {
	counts := make(map[TodoStatus]int)
	for _, t := range b.Todos {
		counts[t.Status]++
	}
	return counts
}
