package actor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// System Actor 系统
// 管理所有 Actor 的生命周期、消息投递和监督
type System struct {
	name string

	// Actor 注册表
	actors   map[string]*actorCell
	actorsMu sync.RWMutex

	// 死信队列（无法投递的消息）
	deadLetters chan envelope

	// 生命周期控制
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning atomic.Bool

	config *SystemConfig
	logger *slog.Logger

	// 统计
	totalMessages int64
	deadLettered  int64
}

// SystemConfig 系统配置
type SystemConfig struct {
	// DefaultMailboxSize 默认 Actor 邮箱大小
	DefaultMailboxSize int
	// DeadLetterSize 死信队列大小
	DeadLetterSize int
	// EnableDeadLetterLogging 是否记录死信
	EnableDeadLetterLogging bool
	// PanicHandler panic 处理函数
	PanicHandler func(actor *PID, msg Message, err any)
	// Logger 自定义日志器
	Logger *slog.Logger
}

// DefaultSystemConfig 默认系统配置
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DefaultMailboxSize:      100,
		DeadLetterSize:          1000,
		EnableDeadLetterLogging: true,
	}
}

// actorCell Actor 单元，包含 Actor 及其运行时状态
type actorCell struct {
	pid     *PID
	actor   Actor
	mailbox chan envelope

	state    actorState
	stateMu  sync.RWMutex
	restarts int

	supervisor SupervisorStrategy

	ctx    context.Context
	cancel context.CancelFunc
}

type actorState int

const (
	actorStateRunning actorState = iota
	actorStateStopping
	actorStateStopped
)

// envelope 消息信封
type envelope struct {
	sender   *PID
	message  Message
	sentAt   time.Time
	response chan Message    // 用于 Request/Response
	ctx      context.Context // 用于取消请求
}

// NewSystem 创建新的 Actor 系统
func NewSystem(name string) *System {
	return NewSystemWithConfig(name, DefaultSystemConfig())
}

// NewSystemWithConfig 使用配置创建 Actor 系统
func NewSystemWithConfig(name string, config *SystemConfig) *System {
	if config == nil {
		config = DefaultSystemConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &System{
		name:        name,
		actors:      make(map[string]*actorCell),
		deadLetters: make(chan envelope, config.DeadLetterSize),
		ctx:         ctx,
		cancel:      cancel,
		config:      config,
		logger:      logger,
	}

	s.isRunning.Store(true)

	if config.EnableDeadLetterLogging {
		s.wg.Add(1)
		go s.deadLetterLoop()
	}

	s.logger.Info("actor system started", "name", name)
	return s
}

// Name 返回系统名称
func (s *System) Name() string {
	return s.name
}

// Spawn 创建 Actor
func (s *System) Spawn(actor Actor, name string) *PID {
	return s.SpawnWithProps(actor, DefaultProps(name))
}

// SpawnWithProps 使用属性创建 Actor
//
// 同名 Actor 已存在时返回现有的 PID。
func (s *System) SpawnWithProps(actor Actor, props *Props) *PID {
	s.actorsMu.Lock()

	if existing, ok := s.actors[props.Name]; ok {
		s.actorsMu.Unlock()
		s.logger.Warn("actor already exists, returning existing PID", "name", props.Name)
		return existing.pid
	}

	pid := &PID{ID: props.Name, system: s}

	mailboxSize := props.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = s.config.DefaultMailboxSize
	}

	ctx, cancel := context.WithCancel(s.ctx)
	cell := &actorCell{
		pid:        pid,
		actor:      actor,
		mailbox:    make(chan envelope, mailboxSize),
		state:      actorStateRunning,
		supervisor: props.SupervisorStrategy,
		ctx:        ctx,
		cancel:     cancel,
	}

	s.actors[props.Name] = cell
	s.actorsMu.Unlock()

	s.wg.Add(1)
	go s.actorLoop(cell)

	s.Send(pid, &Started{})

	s.logger.Debug("spawned actor", "name", props.Name)
	return pid
}

// Send 发送消息（无发送者）
func (s *System) Send(target *PID, msg Message) {
	s.SendWithSender(target, msg, nil)
}

// SendWithSender 发送消息（带发送者）
func (s *System) SendWithSender(target *PID, msg Message, sender *PID) {
	if !s.isRunning.Load() {
		return
	}
	s.deliver(envelope{sender: sender, message: msg, sentAt: time.Now()}, target)
}

// TrySend 尝试发送消息（非阻塞）
// 如果目标不存在或邮箱已满，返回 false
func (s *System) TrySend(target *PID, msg Message) bool {
	if !s.isRunning.Load() {
		return false
	}

	s.actorsMu.RLock()
	cell, exists := s.actors[target.ID]
	s.actorsMu.RUnlock()
	if !exists {
		return false
	}

	select {
	case cell.mailbox <- envelope{message: msg, sentAt: time.Now()}:
		atomic.AddInt64(&s.totalMessages, 1)
		return true
	default:
		return false
	}
}

// deliver 将信封投递到目标邮箱，失败时转入死信
func (s *System) deliver(env envelope, target *PID) {
	s.actorsMu.RLock()
	cell, exists := s.actors[target.ID]
	s.actorsMu.RUnlock()

	if !exists {
		s.toDeadLetters(env, target)
		return
	}

	select {
	case cell.mailbox <- env:
		atomic.AddInt64(&s.totalMessages, 1)
	default:
		s.logger.Warn("actor mailbox full, message queued to dead letter", "actor", target.ID)
		s.toDeadLetters(env, target)
	}
}

func (s *System) toDeadLetters(env envelope, target *PID) {
	select {
	case s.deadLetters <- env:
		atomic.AddInt64(&s.deadLettered, 1)
	default:
		s.logger.Warn("dead letter queue full, message dropped",
			"kind", env.message.Kind(), "target", target.ID)
	}
}

// Broadcast 广播消息到所有 Actor（非阻塞发送）
func (s *System) Broadcast(msg Message) {
	s.actorsMu.RLock()
	pids := make([]*PID, 0, len(s.actors))
	for _, cell := range s.actors {
		pids = append(pids, cell.pid)
	}
	s.actorsMu.RUnlock()

	for _, pid := range pids {
		s.TrySend(pid, msg)
	}
}

// Request 同步请求（等待响应）
func (s *System) Request(target *PID, msg Message, timeout time.Duration) (Message, error) {
	if !s.isRunning.Load() {
		return nil, fmt.Errorf("actor system is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	responseChan := make(chan Message, 1)
	env := envelope{
		message:  msg,
		sentAt:   time.Now(),
		response: responseChan,
		ctx:      ctx,
	}

	s.deliver(env, target)

	select {
	case resp := <-responseChan:
		return resp, nil
	case <-ctx.Done():
		return nil, &ResponseTimeout{Target: target, Timeout: timeout}
	}
}

// Stop 停止 Actor
func (s *System) Stop(pid *PID) {
	s.actorsMu.RLock()
	cell, exists := s.actors[pid.ID]
	s.actorsMu.RUnlock()

	if !exists {
		return
	}

	cell.stateMu.Lock()
	cell.state = actorStateStopping
	cell.stateMu.Unlock()

	s.Send(pid, &PoisonPill{})
}

// StopGracefully 优雅停止 Actor（等待处理完当前消息）
func (s *System) StopGracefully(pid *PID, timeout time.Duration) error {
	s.Stop(pid)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s.actorsMu.RLock()
		_, exists := s.actors[pid.ID]
		s.actorsMu.RUnlock()

		if !exists {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	return fmt.Errorf("timeout waiting for actor %s to stop", pid.ID)
}

// Shutdown 关闭整个 Actor 系统
func (s *System) Shutdown() {
	s.ShutdownWithTimeout(30 * time.Second)
}

// ShutdownWithTimeout 带超时的关闭
func (s *System) ShutdownWithTimeout(timeout time.Duration) {
	s.logger.Info("actor system shutting down", "name", s.name)

	s.isRunning.Store(false)

	s.actorsMu.RLock()
	pids := make([]*PID, 0, len(s.actors))
	for _, cell := range s.actors {
		pids = append(pids, cell.pid)
	}
	s.actorsMu.RUnlock()

	for _, pid := range pids {
		// isRunning 已置 false，直接投递毒丸
		s.actorsMu.RLock()
		cell, ok := s.actors[pid.ID]
		s.actorsMu.RUnlock()
		if ok {
			select {
			case cell.mailbox <- envelope{message: &PoisonPill{}, sentAt: time.Now()}:
			default:
			}
		}
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("actor system shutdown complete", "name", s.name)
	case <-time.After(timeout):
		s.logger.Warn("actor system shutdown timeout, forcing exit", "name", s.name)
	}
}

// actorLoop Actor 消息处理循环
func (s *System) actorLoop(cell *actorCell) {
	defer s.wg.Done()
	defer s.cleanupActor(cell)

	for {
		select {
		case <-cell.ctx.Done():
			return
		case env := <-cell.mailbox:
			s.processMessage(cell, env)

			if _, ok := env.message.(*PoisonPill); ok {
				return
			}
		}
	}
}

// processMessage 处理单条消息
func (s *System) processMessage(cell *actorCell, env envelope) {
	defer func() {
		if r := recover(); r != nil {
			if s.config.PanicHandler != nil {
				s.config.PanicHandler(cell.pid, env.message, r)
			} else {
				s.logger.Error("panic in actor",
					"actor", cell.pid.ID,
					"message", env.message.Kind(),
					"error", r,
					"stack", string(debug.Stack()))
			}
			s.handleFailure(cell, env.message, r)
		}
	}()

	ctx := &Context{
		Self:    cell.pid,
		Sender:  env.sender,
		system:  s,
		ctx:     cell.ctx,
		message: env.message,
	}

	if env.response != nil {
		ctx.responseChan = env.response
		ctx.requestCtx = env.ctx
	}

	if _, ok := env.message.(*PoisonPill); ok {
		cell.actor.Receive(ctx, &Stopping{})
		return
	}

	cell.actor.Receive(ctx, env.message)
}

// handleFailure 处理 Actor panic，应用监督策略
func (s *System) handleFailure(cell *actorCell, msg Message, err any) {
	supervisor := cell.supervisor
	if supervisor == nil {
		supervisor = DefaultSupervisorStrategy()
	}

	switch supervisor.HandleFailure(cell.pid, msg, err) {
	case DirectiveResume:
		s.logger.Debug("actor resumed after failure", "actor", cell.pid.ID)

	case DirectiveRestart:
		cell.restarts++
		ctx := &Context{Self: cell.pid, system: s, ctx: cell.ctx}
		cell.actor.Receive(ctx, &Restarting{})
		s.Send(cell.pid, &Started{})
		s.logger.Info("actor restarted", "actor", cell.pid.ID, "restarts", cell.restarts)

	case DirectiveStop:
		s.Stop(cell.pid)
	}
}

// cleanupActor 清理 Actor
func (s *System) cleanupActor(cell *actorCell) {
	cell.stateMu.Lock()
	cell.state = actorStateStopped
	cell.stateMu.Unlock()

	ctx := &Context{Self: cell.pid, system: s, ctx: context.Background()}
	cell.actor.Receive(ctx, &Stopped{})

	s.actorsMu.Lock()
	delete(s.actors, cell.pid.ID)
	s.actorsMu.Unlock()

	cell.cancel()
	s.logger.Debug("actor stopped", "actor", cell.pid.ID)
}

// deadLetterLoop 死信处理器
func (s *System) deadLetterLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case env := <-s.deadLetters:
			s.logger.Warn("dead letter",
				"message", env.message.Kind(),
				"sender", env.sender)
		}
	}
}

// GetActor 获取 Actor
func (s *System) GetActor(name string) (*PID, bool) {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()

	if cell, ok := s.actors[name]; ok {
		return cell.pid, true
	}
	return nil, false
}

// ListActors 列出所有 Actor
func (s *System) ListActors() []*PID {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()

	pids := make([]*PID, 0, len(s.actors))
	for _, cell := range s.actors {
		pids = append(pids, cell.pid)
	}
	return pids
}

// Count 返回 Actor 数量
func (s *System) Count() int {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()
	return len(s.actors)
}

// IsRunning 检查系统是否运行中
func (s *System) IsRunning() bool {
	return s.isRunning.Load()
}

// TotalMessages 返回已投递的消息总数
func (s *System) TotalMessages() int64 {
	return atomic.LoadInt64(&s.totalMessages)
}

// DeadLetterCount 返回死信数量
func (s *System) DeadLetterCount() int64 {
	return atomic.LoadInt64(&s.deadLettered)
}
