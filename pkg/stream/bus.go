package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// defaultSubscriberBuffer 订阅者通道缓冲
// 缓冲满时事件被丢弃并告警，不阻塞发布者
const defaultSubscriberBuffer = 256

// Subscription 订阅句柄
type Subscription struct {
	// ID 订阅者标识
	ID string
	// C 事件接收通道，流结束（End/Cancel）后关闭
	C <-chan Event

	correlationID string
	ch            chan Event
}

// Bus 流事件总线
//
// 每个 correlation_id 对应一条流：单生产者、多订阅者。
// 保证同一 correlation_id 的事件按发布顺序投递给每个已注册订阅者；
// 中途加入的订阅者默认只收到后续事件，除非显式要求回放积压。
//
// Thread Safety: Bus 是并发安全的。
type Bus struct {
	mu      sync.Mutex
	streams map[string]*streamState
	logger  *slog.Logger
	bufSize int
	subSeq  int64
}

// streamState 单条流的状态
type streamState struct {
	seq     int64
	subs    map[string]*Subscription
	backlog []Event

	ctx        context.Context
	cancel     context.CancelFunc
	cancelOnce sync.Once
	closed     bool
}

// BusOption Bus 配置选项
type BusOption func(*Bus)

// WithLogger 设置日志器
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) { b.logger = logger }
}

// WithSubscriberBuffer 设置订阅者通道缓冲大小
func WithSubscriberBuffer(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.bufSize = n
		}
	}
}

// NewBus 创建事件总线
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		streams: make(map[string]*streamState),
		logger:  slog.Default(),
		bufSize: defaultSubscriberBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open 打开一条流，返回生产者应当监听的 context
//
// Cancel 会取消该 context；外部调用（LLM/技能执行）持有它即可
// 在下一个安全检查点协作式放弃。重复 Open 返回同一 context。
func (b *Bus) Open(correlationID string) context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getOrCreate(correlationID).ctx
}

// getOrCreate 需持有 b.mu
func (b *Bus) getOrCreate(correlationID string) *streamState {
	if st, ok := b.streams[correlationID]; ok {
		return st
	}
	ctx, cancel := context.WithCancel(context.Background())
	st := &streamState{
		subs:   make(map[string]*Subscription),
		ctx:    ctx,
		cancel: cancel,
	}
	b.streams[correlationID] = st
	return st
}

// Publish 发布事件到流
//
// 分配流内递增的 Seq 并投递给当前所有订阅者。
// 流已关闭时发布被拒绝。
func (b *Bus) Publish(correlationID string, typ EventType, payload any) (Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.getOrCreate(correlationID)
	if st.closed {
		return Event{}, fmt.Errorf("stream %s is closed", correlationID)
	}

	ev := b.emit(correlationID, st, typ, payload)
	return ev, nil
}

// emit 分配序号、记录积压并投递（需持有 b.mu）
func (b *Bus) emit(correlationID string, st *streamState, typ EventType, payload any) Event {
	st.seq++
	ev := Event{
		Type:          typ,
		CorrelationID: correlationID,
		Seq:           st.seq,
		Payload:       payload,
		Timestamp:     time.Now(),
	}
	st.backlog = append(st.backlog, ev)

	for _, sub := range st.subs {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("subscriber channel full, event dropped",
				"subscriber", sub.ID,
				"correlation_id", correlationID,
				"type", typ,
			)
		}
	}
	return ev
}

// SubscribeOption 订阅选项
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	backlog bool
}

// WithBacklog 订阅时回放流的全部历史事件
func WithBacklog() SubscribeOption {
	return func(c *subscribeConfig) { c.backlog = true }
}

// Subscribe 订阅一条流
//
// 默认只收到订阅之后发布的事件（不回放）；
// 使用 [WithBacklog] 可以先收到订阅前的积压。
// 订阅已结束的流会立即得到一个已关闭的通道（回放仍然有效）。
func (b *Bus) Subscribe(correlationID string, opts ...SubscribeOption) *Subscription {
	var cfg subscribeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.getOrCreate(correlationID)

	b.subSeq++
	bufSize := b.bufSize
	if cfg.backlog && len(st.backlog) > bufSize {
		bufSize = len(st.backlog) + b.bufSize
	}

	sub := &Subscription{
		ID:            fmt.Sprintf("sub-%d", b.subSeq),
		correlationID: correlationID,
		ch:            make(chan Event, bufSize),
	}
	sub.C = sub.ch

	if cfg.backlog {
		for _, ev := range st.backlog {
			sub.ch <- ev
		}
	}

	if st.closed {
		close(sub.ch)
		return sub
	}

	st.subs[sub.ID] = sub
	return sub
}

// Unsubscribe 取消订阅并关闭其通道
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.streams[sub.correlationID]
	if !ok {
		return
	}
	if _, registered := st.subs[sub.ID]; registered {
		delete(st.subs, sub.ID)
		close(sub.ch)
	}
}

// Cancel 取消一条流
//
// 取消生产者 context（外部调用在下一个安全检查点放弃），
// 并恰好发布一次携带取消原因的终止 error 事件，然后关闭流。
// 对同一条流重复 Cancel 不会产生第二个终止事件。
// 从未 Open 过的流也会被建立并立即关闭，后续 Publish 被拒绝。
func (b *Bus) Cancel(correlationID, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.getOrCreate(correlationID)

	st.cancelOnce.Do(func() {
		st.cancel()
		if !st.closed {
			b.emit(correlationID, st, EventError, CancelPayload{Reason: reason})
		}
		b.closeLocked(correlationID, st)
	})
}

// End 正常结束一条流，关闭所有订阅者通道
func (b *Bus) End(correlationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.streams[correlationID]
	if !ok || st.closed {
		return
	}
	st.cancel()
	b.closeLocked(correlationID, st)
}

// closeLocked 需持有 b.mu
func (b *Bus) closeLocked(correlationID string, st *streamState) {
	if st.closed {
		return
	}
	st.closed = true
	for _, sub := range st.subs {
		close(sub.ch)
	}
	st.subs = make(map[string]*Subscription)
	b.logger.Debug("stream closed", "correlation_id", correlationID)
}

// Cancelled 报告流是否已被取消
func (b *Bus) Cancelled(correlationID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.streams[correlationID]
	if !ok {
		return false
	}
	select {
	case <-st.ctx.Done():
		return true
	default:
		return false
	}
}

// Backlog 返回流的历史事件副本
func (b *Bus) Backlog(correlationID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.streams[correlationID]
	if !ok {
		return nil
	}
	out := make([]Event, len(st.backlog))
	copy(out, st.backlog)
	return out
}
