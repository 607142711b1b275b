package plan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/stream"
)

// defaultCancelTimeout 协作式取消的兜底超时
// 外部调用在此时限内未确认放弃时，任务被强制置为 failed
const defaultCancelTimeout = 30 * time.Second

// PlanUpdatePayload plan-update 事件载荷
type PlanUpdatePayload struct {
	PlanID     string     `json:"plan_id"`
	PlanStatus PlanStatus `json:"plan_status"`
	TaskID     string     `json:"task_id,omitempty"`
	TaskStatus TaskStatus `json:"task_status,omitempty"`
}

// Scheduler 计划调度器
//
// 持有全部 Plan/Task 实体，负责就绪性计算、状态迁移和失败传播。
//
// 并发契约：同一 Plan 的全部变更（create/update/advance/delete）
// 按 plan id 串行化 —— 每个计划有自己的互斥段；读取返回快照，
// 可以与变更并发进行。相互独立的任务可以同时 ready/running，
// 有依赖边的任务严格有序。
type Scheduler struct {
	mu    sync.RWMutex
	plans map[string]*planEntry

	resolver      AssigneeResolver
	bus           *stream.Bus
	store         *Store
	logger        *slog.Logger
	cancelTimeout time.Duration
}

// planEntry 单个计划及其互斥段
type planEntry struct {
	mu      sync.Mutex
	plan    *Plan
	cancels map[string]context.CancelFunc // running 任务的取消信号
}

// SchedulerOption Scheduler 配置选项
type SchedulerOption func(*Scheduler)

// WithEventBus 设置事件总线，状态变更会发布 plan-update 事件
func WithEventBus(bus *stream.Bus) SchedulerOption {
	return func(s *Scheduler) { s.bus = bus }
}

// WithSchedulerLogger 设置日志器
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// WithPlanStore 设置持久化存储，每次变更落定后写入快照
func WithPlanStore(store *Store) SchedulerOption {
	return func(s *Scheduler) { s.store = store }
}

// WithCancelTimeout 设置协作式取消的兜底超时
func WithCancelTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.cancelTimeout = d
		}
	}
}

// NewScheduler 创建调度器
//
// resolver 用于校验任务受派人（通常是 *crew.Registry），可以为 nil。
func NewScheduler(resolver AssigneeResolver, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		plans:         make(map[string]*planEntry),
		resolver:      resolver,
		logger:        slog.Default(),
		cancelTimeout: defaultCancelTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ═══════════════════════════════════════════════════════════════════════════
// 变更操作
// ═══════════════════════════════════════════════════════════════════════════

// Create 创建计划
//
// 校验是全有或全无的：needs 引用、受派人解析、无环检查任一失败，
// 调度器状态不变，不产生半成品计划。
// 创建成功后，needs 为空的任务立即变为 ready。
func (s *Scheduler) Create(title, description string, specs []TaskSpec) (*Plan, error) {
	tasks := make([]*Task, len(specs))
	for i, spec := range specs {
		tasks[i] = spec.toTask()
	}

	if err := validatePayload(tasks, s.resolver); err != nil {
		return nil, err
	}

	p := &Plan{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Tasks:       tasks,
		Status:      PlanStatusDraft,
		CreatedAt:   time.Now(),
	}
	s.recompute(p)

	s.mu.Lock()
	s.plans[p.ID] = &planEntry{
		plan:    p,
		cancels: make(map[string]context.CancelFunc),
	}
	s.mu.Unlock()

	s.logger.Debug("plan created", "plan", p.ID, "tasks", len(p.Tasks))
	s.publish(p, nil)

	snapshot := p.clone()
	s.persist(snapshot)
	return snapshot, nil
}

// Restore 从持久化存储恢复计划
//
// 重启后 running 任务已无在途执行者，回退为未开始状态并按
// 就绪性重新评估；终态任务原样保留。已在内存中的计划跳过。
// 返回恢复的计划数。
func (s *Scheduler) Restore() (int, error) {
	if s.store == nil {
		return 0, nil
	}

	plans, err := s.store.LoadAll()
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, p := range plans {
		for _, t := range p.Tasks {
			if t.Status == TaskStatusRunning {
				t.Status = TaskStatusPending
				t.StartedAt = nil
			}
		}
		s.recompute(p)
		p.Status = resolveStatus(p)

		s.mu.Lock()
		if _, exists := s.plans[p.ID]; exists {
			s.mu.Unlock()
			continue
		}
		s.plans[p.ID] = &planEntry{
			plan:    p,
			cancels: make(map[string]context.CancelFunc),
		}
		s.mu.Unlock()
		restored++
	}

	if restored > 0 {
		s.logger.Info("plans restored from store", "count", restored)
	}
	return restored, nil
}

// Update 更新计划
//
// tasks 按 ID 更新已有任务的定义（仅限尚未开始执行的任务），
// appendTasks 向图中合并新任务。两者在合并后的图上整体校验，
// 失败时计划保持原样。成功后重新评估全部受影响节点的就绪性。
func (s *Scheduler) Update(planID string, tasks, appendTasks []TaskSpec) (*Plan, error) {
	entry, err := s.entry(planID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	p := entry.plan

	// 在副本上合并，校验通过后整体替换
	merged := make([]*Task, len(p.Tasks))
	index := make(map[string]int, len(p.Tasks))
	for i, t := range p.Tasks {
		merged[i] = t.clone()
		index[t.ID] = i
	}

	for _, spec := range tasks {
		i, ok := index[spec.ID]
		if !ok {
			return nil, &NotFoundError{Kind: "task", ID: spec.ID}
		}
		if merged[i].Status != TaskStatusPending && merged[i].Status != TaskStatusReady {
			return nil, &ValidationError{Reason: "task " + spec.ID + " already started, cannot be redefined"}
		}
		updated := spec.toTask()
		updated.Status = TaskStatusPending
		merged[i] = updated
	}

	for _, spec := range appendTasks {
		if _, exists := index[spec.ID]; exists {
			return nil, &ValidationError{Reason: "append_tasks id already in plan: " + spec.ID}
		}
		t := spec.toTask()
		index[t.ID] = len(merged)
		merged = append(merged, t)
	}

	if err := validatePayload(merged, s.resolver); err != nil {
		return nil, err
	}

	p.Tasks = merged
	s.recompute(p)
	p.Status = resolveStatus(p)

	s.logger.Debug("plan updated", "plan", p.ID, "tasks", len(p.Tasks))
	s.publish(p, nil)
	s.persist(p)
	return p.clone(), nil
}

// Start 将 ready 任务置为 running，返回与任务绑定的 context
//
// 返回的 context 是执行外部调用（LLM/技能）时应当携带的取消信号；
// CancelTask 或 Delete 会取消它。
func (s *Scheduler) Start(ctx context.Context, planID, taskID string) (context.Context, error) {
	entry, err := s.entry(planID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	p := entry.plan
	t, ok := p.Task(taskID)
	if !ok {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	if t.Status != TaskStatusReady {
		return nil, &TransitionError{TaskID: taskID, From: t.Status, To: TaskStatusRunning}
	}

	now := time.Now()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
	p.Status = resolveStatus(p)

	taskCtx, cancel := context.WithCancel(ctx)
	entry.cancels[taskID] = cancel

	s.publish(p, t)
	s.persist(p)
	return taskCtx, nil
}

// Advance 推进任务状态
//
// 这是任务离开 running 的唯一途径：
//   - completed: 重新评估依赖它的任务，needs 全部满足者变为 ready
//   - failed: 传递性地将所有（直接与间接）依赖它的任务置为 blocked，
//     不影响独立的兄弟分支
//
// 其余目标状态是非法迁移。
func (s *Scheduler) Advance(planID, taskID string, status TaskStatus, execErr error) (*Plan, error) {
	entry, err := s.entry(planID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	p := entry.plan
	t, ok := p.Task(taskID)
	if !ok {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}

	now := time.Now()
	switch status {
	case TaskStatusRunning:
		if t.Status != TaskStatusReady {
			return nil, &TransitionError{TaskID: taskID, From: t.Status, To: status}
		}
		t.Status = TaskStatusRunning
		t.StartedAt = &now

	case TaskStatusCompleted:
		if t.Status != TaskStatusRunning {
			return nil, &TransitionError{TaskID: taskID, From: t.Status, To: status}
		}
		t.Status = TaskStatusCompleted
		t.CompletedAt = &now
		s.releaseCancel(entry, taskID)
		s.recompute(p)

	case TaskStatusFailed:
		if t.Status != TaskStatusRunning {
			return nil, &TransitionError{TaskID: taskID, From: t.Status, To: status}
		}
		t.Status = TaskStatusFailed
		t.CompletedAt = &now
		if execErr != nil {
			t.Error = execErr.Error()
		}
		s.releaseCancel(entry, taskID)
		propagateBlocked(p)

	default:
		return nil, &TransitionError{TaskID: taskID, From: t.Status, To: status}
	}

	p.Status = resolveStatus(p)
	s.publish(p, t)
	s.persist(p)
	return p.clone(), nil
}

// CancelTask 协作式取消 running 任务
//
// 立即取消任务 context（外部调用在下一个安全检查点放弃）。
// 任务只有在执行方确认放弃（调用 Advance failed）或兜底超时
// 之后才真正离开 running；超时由调度器强制置为 failed。
func (s *Scheduler) CancelTask(planID, taskID, reason string) error {
	entry, err := s.entry(planID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	t, ok := entry.plan.Task(taskID)
	if !ok {
		entry.mu.Unlock()
		return &NotFoundError{Kind: "task", ID: taskID}
	}
	if t.Status != TaskStatusRunning {
		entry.mu.Unlock()
		return &TransitionError{TaskID: taskID, From: t.Status, To: TaskStatusFailed}
	}
	cancel := entry.cancels[taskID]
	entry.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.logger.Info("task cancellation requested", "plan", planID, "task", taskID, "reason", reason)

	// 兜底：超时后仍在 running 则强制失败
	timeout := s.cancelTimeout
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		<-timer.C

		entry.mu.Lock()
		t, ok := entry.plan.Task(taskID)
		stillRunning := ok && t.Status == TaskStatusRunning
		entry.mu.Unlock()

		if stillRunning {
			s.logger.Warn("cancellation not acknowledged, forcing failure",
				"plan", planID, "task", taskID, "timeout", timeout)
			_, _ = s.Advance(planID, taskID, TaskStatusFailed,
				&CancellationError{Reason: reason + " (timeout)"})
		}
	}()
	return nil
}

// Delete 删除计划
//
// 对所有 running 任务发出取消信号（尽力而为，不强制终止）后移除。
func (s *Scheduler) Delete(planID string) error {
	s.mu.Lock()
	entry, ok := s.plans[planID]
	if !ok {
		s.mu.Unlock()
		return &NotFoundError{Kind: "plan", ID: planID}
	}
	delete(s.plans, planID)
	s.mu.Unlock()

	entry.mu.Lock()
	entry.plan.Status = PlanStatusCancelled
	cancels := entry.cancels
	entry.cancels = make(map[string]context.CancelFunc)
	entry.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	if s.bus != nil {
		s.bus.Cancel(planID, "plan deleted")
	}
	if s.store != nil {
		if err := s.store.Delete(planID); err != nil {
			s.logger.Warn("plan store delete failed", "plan", planID, "error", err)
		}
	}
	s.logger.Debug("plan deleted", "plan", planID)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 读取操作（快照，无副作用）
// ═══════════════════════════════════════════════════════════════════════════

// Get 返回计划快照
func (s *Scheduler) Get(planID string) (*Plan, error) {
	entry, err := s.entry(planID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.plan.clone(), nil
}

// GetTask 返回任务快照
func (s *Scheduler) GetTask(planID, taskID string) (*Task, error) {
	entry, err := s.entry(planID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	t, ok := entry.plan.Task(taskID)
	if !ok {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	return t.clone(), nil
}

// List 返回全部计划快照，按创建时间排序
func (s *Scheduler) List() []*Plan {
	s.mu.RLock()
	entries := make([]*planEntry, 0, len(s.plans))
	for _, e := range s.plans {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	plans := make([]*Plan, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		plans = append(plans, e.plan.clone())
		e.mu.Unlock()
	}
	sortPlansByCreation(plans)
	return plans
}

// ReadyTasks 按计划任务列表顺序返回 ready 任务快照
func (s *Scheduler) ReadyTasks(planID string) ([]*Task, error) {
	p, err := s.Get(planID)
	if err != nil {
		return nil, err
	}
	return p.ReadyTasks(), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 内部
// ═══════════════════════════════════════════════════════════════════════════

// entry 查找计划条目
func (s *Scheduler) entry(planID string) (*planEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.plans[planID]
	if !ok {
		return nil, &NotFoundError{Kind: "plan", ID: planID}
	}
	return entry, nil
}

// releaseCancel 释放任务的取消函数（需持有 entry.mu）
func (s *Scheduler) releaseCancel(entry *planEntry, taskID string) {
	if cancel, ok := entry.cancels[taskID]; ok {
		cancel()
		delete(entry.cancels, taskID)
	}
}

// recompute 重新评估就绪性：pending 任务的 needs 全部 completed 则 ready
//
// 不变量：任务是 ready 当且仅当其每个 needs 都是 completed。
func (s *Scheduler) recompute(p *Plan) {
	for _, t := range p.Tasks {
		if t.Status != TaskStatusPending && t.Status != TaskStatusReady {
			continue
		}
		if needsSatisfied(p, t) {
			t.Status = TaskStatusReady
		} else {
			t.Status = TaskStatusPending
		}
	}
}

// needsSatisfied 检查任务的全部依赖是否已完成
func needsSatisfied(p *Plan, t *Task) bool {
	for _, need := range t.Needs {
		dep, ok := p.Task(need)
		if !ok || dep.Status != TaskStatusCompleted {
			return false
		}
	}
	return true
}

// propagateBlocked 将失败任务的所有传递性依赖者置为 blocked
//
// 迭代至不动点：任一 needs 处于 failed/blocked 的未定任务都被阻塞，
// 绝不静默跳过。running 任务不受影响（失败只在其自身结果中体现）。
func propagateBlocked(p *Plan) {
	for changed := true; changed; {
		changed = false
		for _, t := range p.Tasks {
			if t.Status != TaskStatusPending && t.Status != TaskStatusReady {
				continue
			}
			for _, need := range t.Needs {
				dep, ok := p.Task(need)
				if ok && (dep.Status == TaskStatusFailed || dep.Status == TaskStatusBlocked) {
					t.Status = TaskStatusBlocked
					changed = true
					break
				}
			}
		}
	}
}

// resolveStatus 从任务状态推导计划状态
//
// 执行错误是局部的：一个分支失败不会中止独立的兄弟分支，
// 只有当所有分支都已归于 completed/failed/blocked 且存在
// failed/blocked 叶子时，计划才整体 failed。
func resolveStatus(p *Plan) PlanStatus {
	if p.Status == PlanStatusCancelled {
		return PlanStatusCancelled
	}
	if len(p.Tasks) == 0 {
		return p.Status
	}

	var running, unresolved, failed, started int
	for _, t := range p.Tasks {
		switch t.Status {
		case TaskStatusRunning:
			running++
			started++
		case TaskStatusPending, TaskStatusReady:
			unresolved++
		case TaskStatusFailed, TaskStatusBlocked:
			failed++
			started++
		case TaskStatusCompleted:
			started++
		}
	}

	switch {
	case running > 0:
		return PlanStatusRunning
	case unresolved == 0 && failed == 0:
		return PlanStatusCompleted
	case unresolved == 0 && failed > 0:
		return PlanStatusFailed
	case started > 0:
		return PlanStatusRunning
	default:
		return PlanStatusDraft
	}
}

// persist 写入持久化快照（store 未配置时为空操作）
func (s *Scheduler) persist(p *Plan) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(p); err != nil {
		s.logger.Warn("plan persist failed", "plan", p.ID, "error", err)
	}
}

// publish 发布 plan-update 事件（bus 未配置时为空操作）
func (s *Scheduler) publish(p *Plan, t *Task) {
	if s.bus == nil {
		return
	}
	payload := PlanUpdatePayload{
		PlanID:     p.ID,
		PlanStatus: p.Status,
	}
	if t != nil {
		payload.TaskID = t.ID
		payload.TaskStatus = t.Status
	}
	_, _ = s.bus.Publish(p.ID, stream.EventPlanUpdate, payload)
}

// sortPlansByCreation 按创建时间稳定排序
func sortPlansByCreation(plans []*Plan) {
	for i := 1; i < len(plans); i++ {
		for j := i; j > 0 && plans[j].CreatedAt.Before(plans[j-1].CreatedAt); j-- {
			plans[j], plans[j-1] = plans[j-1], plans[j]
		}
	}
}
