package plan

import (
	"fmt"
	"strings"
)

// CyclicDependencyError 任务依赖图存在环
type CyclicDependencyError struct {
	// Cycle 构成环的任务 ID，按依赖方向排列
	Cycle []string
}

// Error 实现 error 接口
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic task dependency: %s", strings.Join(e.Cycle, " -> "))
}

// NotFoundError 计划或任务不存在
type NotFoundError struct {
	Kind string // "plan" 或 "task"
	ID   string
}

// Error 实现 error 接口
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ValidationError 创建/更新载荷不合法（非环类结构错误）
type ValidationError struct {
	Reason string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid plan payload: %s", e.Reason)
}

// ExecutionError 任务执行失败（底层外部调用出错）
type ExecutionError struct {
	TaskID string
	Err    error
}

// Error 实现 error 接口
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s execution failed: %v", e.TaskID, e.Err)
}

// Unwrap 返回底层错误
func (e *ExecutionError) Unwrap() error { return e.Err }

// CancellationError 任务被协作式取消
type CancellationError struct {
	Reason string
}

// Error 实现 error 接口
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled: %s", e.Reason)
}

// TransitionError 非法的任务状态迁移
type TransitionError struct {
	TaskID string
	From   TaskStatus
	To     TaskStatus
}

// Error 实现 error 接口
func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: invalid transition %s -> %s", e.TaskID, e.From, e.To)
}
