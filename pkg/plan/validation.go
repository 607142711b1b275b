package plan

import (
	"strings"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
)

// AssigneeResolver 校验任务受派人时使用的解析接口
// *crew.Registry 满足此接口
type AssigneeResolver interface {
	Resolve(identifier string) (*crew.Member, error)
}

// validatePayload 校验一次 create/update 的完整任务载荷
//
// 校验是整体性的：任何一项失败都意味着本次调用不产生任何变更。
// 检查项：
//   - 任务 ID 非空且在（载荷 ∪ 已有计划）内唯一
//   - 每个 needs 引用都指向载荷或已有计划中的任务
//   - AssignedTitle 非保留类别且能解析到注册表
//   - 合并后的依赖图无环
//
// merged 是"假如应用这次载荷"之后的任务全集（按计划列表顺序）。
func validatePayload(merged []*Task, resolver AssigneeResolver) error {
	ids := make(map[string]bool, len(merged))
	for _, t := range merged {
		if strings.TrimSpace(t.ID) == "" {
			return &ValidationError{Reason: "task id cannot be empty"}
		}
		if ids[t.ID] {
			return &ValidationError{Reason: "duplicate task id: " + t.ID}
		}
		ids[t.ID] = true
	}

	for _, t := range merged {
		for _, need := range t.Needs {
			if !ids[need] {
				return &ValidationError{Reason: "task " + t.ID + " needs unknown task: " + need}
			}
		}
		if crew.IsReservedTitle(t.AssignedTitle) {
			return &crew.InvalidTitleError{Title: t.AssignedTitle}
		}
		if resolver != nil {
			if _, err := resolver.Resolve(t.AssignedTitle); err != nil {
				return err
			}
		}
	}

	if cycle := findCycle(merged); cycle != nil {
		return &CyclicDependencyError{Cycle: cycle}
	}
	return nil
}

// findCycle 在依赖图中寻找环
//
// Kahn 拓扑排序：能全部出队则无环；否则残留节点必然含环，
// 沿残留节点的 needs 边走一圈提取出具体的环用于报错。
func findCycle(tasks []*Task) []string {
	needs := make(map[string][]string, len(tasks))
	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))

	for _, t := range tasks {
		needs[t.ID] = t.Needs
		indegree[t.ID] = len(t.Needs)
		for _, need := range t.Needs {
			dependents[need] = append(dependents[need], t.ID)
		}
	}

	queue := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if indegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited == len(tasks) {
		return nil
	}

	// 残留节点中提取具体的环
	remaining := make(map[string]bool)
	var start string
	for _, t := range tasks {
		if indegree[t.ID] > 0 {
			remaining[t.ID] = true
			if start == "" {
				start = t.ID
			}
		}
	}

	// 沿 needs 边前进，第一次重复到达的节点即环的起点
	index := make(map[string]int)
	var path []string
	current := start
	for {
		if at, seen := index[current]; seen {
			cycle := append([]string(nil), path[at:]...)
			cycle = append(cycle, current)
			return cycle
		}
		index[current] = len(path)
		path = append(path, current)

		next := ""
		for _, need := range needs[current] {
			if remaining[need] {
				next = need
				break
			}
		}
		if next == "" {
			// 理论上不可达：残留节点必有残留前驱
			return path
		}
		current = next
	}
}
